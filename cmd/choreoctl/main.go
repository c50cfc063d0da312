// choreoctl is the operator CLI: schema migrations, the composed
// supergraph, audit history and the choreography event stream.
package main

import (
	"fmt"
	"os"

	"github.com/example/shipmesh/pkg/config"
	"github.com/example/shipmesh/pkg/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var Version = "dev"

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:           "choreoctl",
		Short:         "Operate the ShipXpress and YapPerce services",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/choreoctl.yaml", "config file")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(supergraphCmd())
	rootCmd.AddCommand(auditCmd())
	rootCmd.AddCommand(eventsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	cfg.Log.Encoding = "console"
	cfg.Log.OutputPaths = []string{"stderr"}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}
