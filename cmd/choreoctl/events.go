package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/example/shipmesh/pkg/events"
	"github.com/spf13/cobra"
)

func eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect the choreography event stream",
	}
	cmd.AddCommand(tailCmd())
	return cmd
}

func tailCmd() *cobra.Command {
	var group, eventType string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Follow choreography events until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}
			defer log.Sync()

			if len(cfg.Kafka.Brokers) == 0 {
				return fmt.Errorf("kafka.brokers is not configured")
			}
			reader := events.NewReader(cfg.Kafka.Brokers, cfg.Kafka.Topic, group)
			defer reader.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			enc := json.NewEncoder(cmd.OutOrStdout())
			return events.Tail(ctx, reader, func(e events.Event) error {
				if eventType != "" && e.Type != eventType {
					return nil
				}
				return enc.Encode(e)
			})
		},
	}
	cmd.Flags().StringVar(&group, "group", "choreoctl", "consumer group id")
	cmd.Flags().StringVar(&eventType, "type", "", "only print events of this type, e.g. order.placed")
	return cmd
}
