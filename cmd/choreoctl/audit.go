package main

import (
	"encoding/json"
	"fmt"

	"github.com/example/shipmesh/pkg/repository"
	"github.com/spf13/cobra"
)

func auditCmd() *cobra.Command {
	var limit int64
	cmd := &cobra.Command{
		Use:   "audit [entity-id]",
		Short: "Show the newest audit entries, optionally for one entity",
		Long: `Print audit entries from MongoDB as JSON lines, newest first.

Examples:
  choreoctl audit
  choreoctl audit 42 --limit 5`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}
			defer log.Sync()

			if cfg.MongoDB.URI == "" {
				return fmt.Errorf("mongodb.uri is not configured")
			}
			audit, err := repository.NewMongoAuditLog(&cfg.MongoDB, log)
			if err != nil {
				return err
			}
			defer audit.Close(cmd.Context())

			var entityID string
			if len(args) == 1 {
				entityID = args[0]
			}
			entries, err := audit.List(cmd.Context(), entityID, limit)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, e := range entries {
				if err := enc.Encode(e); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().Int64VarP(&limit, "limit", "n", 20, "maximum entries to print")
	return cmd
}
