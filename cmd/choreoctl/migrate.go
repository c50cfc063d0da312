package main

import (
	"fmt"

	"github.com/example/shipmesh/pkg/database"
	"github.com/example/shipmesh/pkg/models"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func migrateCmd() *cobra.Command {
	var shipxpress, marketplace bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the ShipXpress and YapPerce tables",
		Long: `Apply the ShipXpress DDL to Postgres and auto-migrate the YapPerce
models in MySQL. Both steps are idempotent.

Examples:
  choreoctl migrate
  choreoctl migrate --marketplace=false`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}
			defer log.Sync()

			if shipxpress {
				db, err := database.NewConnection(&cfg.Postgres)
				if err != nil {
					return fmt.Errorf("failed to connect to Postgres: %w", err)
				}
				defer db.Close()
				if err := database.Migrate(cmd.Context(), db); err != nil {
					return err
				}
				log.Info("ShipXpress schema applied", zap.Int("statements", len(database.Schema)))
			}

			if marketplace {
				db, err := database.OpenMySQL(&cfg.MySQL, log,
					&models.User{}, &models.Category{}, &models.Product{},
					&models.Order{}, &models.OrderItem{}, &models.OrderTransition{},
					&models.Payment{})
				if err != nil {
					return err
				}
				if sqlDB, err := db.DB(); err == nil {
					defer sqlDB.Close()
				}
				log.Info("YapPerce schema migrated")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&shipxpress, "shipxpress", true, "migrate the Postgres database")
	cmd.Flags().BoolVar(&marketplace, "marketplace", true, "migrate the MySQL database")
	return cmd
}
