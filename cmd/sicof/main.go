// Command sicof serves the SICOF HTTP API and runs maintenance tasks
// against the configured document store.
package main

import (
	"context"
	"fmt"
	"os"

	"sicof/internal/cli"
	"sicof/internal/config"
	"sicof/internal/log"

	"github.com/spf13/cobra"
)

var flagConfig string

var rootCmd = &cobra.Command{
	Use:           "sicof",
	Short:         "Budget credit, expense and accountability dashboard",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "",
		"TOML configuration file (default $"+config.ConfigFileEnv+")")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// openApp is the shared bootstrap path for every command that touches the
// store.
func openApp(ctx context.Context) (*cli.App, error) {
	cfg, err := cli.LoadAndValidateConfig(flagConfig)
	if err != nil {
		return nil, err
	}
	logger := cli.SetupLogger(cfg)
	app, err := cli.Bootstrap(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize application", log.FieldError, err)
		return nil, err
	}
	return app, nil
}
