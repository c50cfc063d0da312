package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/example/shipmesh/gateway"
	"github.com/example/shipmesh/pkg/graphql"
	"github.com/spf13/cobra"
)

func supergraphCmd() *cobra.Command {
	var timeout int
	cmd := &cobra.Command{
		Use:   "supergraph",
		Short: "Compose the configured subgraphs and print the supergraph SDL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}
			defer log.Sync()

			httpClient := &http.Client{}
			subgraphs := make([]gateway.Subgraph, 0, len(cfg.Gateway.Subgraphs))
			for _, s := range cfg.Gateway.Subgraphs {
				subgraphs = append(subgraphs, gateway.Subgraph{Name: s.Name, Fetcher: graphql.NewClient(s.URL, httpClient)})
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), secondsOrDefault(timeout))
			defer cancel()
			sg, err := gateway.Compose(ctx, subgraphs, log)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), sg.SDL)
			return nil
		},
	}
	cmd.Flags().IntVar(&timeout, "timeout", 10, "seconds to wait for the subgraphs")
	return cmd
}

func secondsOrDefault(n int) time.Duration {
	if n <= 0 {
		return 10 * time.Second
	}
	return time.Duration(n) * time.Second
}
