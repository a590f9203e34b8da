package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"sicof/internal/config"

	"github.com/spf13/cobra"
)

var flagUser string

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate configuration and test store connectivity",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

var closeYearCmd = &cobra.Command{
	Use:   "close-year <year>",
	Short: "Record the annual closing of a fiscal year",
	Args:  cobra.ExactArgs(1),
	RunE:  runCloseYear,
}

func init() {
	closeYearCmd.Flags().StringVarP(&flagUser, "user", "u", "", "Responsible user (required)")
	_ = closeYearCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(checkCmd, closeYearCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	app, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()
	if !app.Store.CheckConnectivity(ctx) {
		return fmt.Errorf("%s store is unreachable", app.Config.DataBackend)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "  Config file: %s\n", configSource())
	fmt.Fprintf(out, "  Store:       %s (ok)\n", app.Config.DataBackend)
	fmt.Fprintf(out, "  Events:      %s\n", app.Config.EventsBackend)
	fmt.Fprintf(out, "  Backups:     %s\n", app.Config.BackupBackend)
	fmt.Fprintf(out, "  Timezone:    %s\n", app.Config.Location())
	return nil
}

func configSource() string {
	switch {
	case flagConfig != "":
		return flagConfig
	case os.Getenv(config.ConfigFileEnv) != "":
		return os.Getenv(config.ConfigFileEnv)
	default:
		return "none (defaults and environment)"
	}
}

func runCloseYear(cmd *cobra.Command, args []string) error {
	year, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid fiscal year %q", args[0])
	}

	app, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	closing, err := app.Services.Closings.CloseYear(cmd.Context(), year, flagUser)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Closed %d on %s by %s, %s returned\n",
		closing.FiscalYear, closing.ClosingDate.BR(), closing.ResponsibleUser, closing.TotalReturned.BRL())
	return nil
}
