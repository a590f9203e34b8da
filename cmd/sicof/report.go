package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"sicof/internal/reports"

	"github.com/spf13/cobra"
)

var (
	flagYear   int
	flagFormat string
)

var reportCmd = &cobra.Command{
	Use:       "report <name>",
	Short:     "Print a report as CSV or JSON",
	Long:      "Print one of: " + strings.Join(reports.Names, ", "),
	Args:      cobra.ExactArgs(1),
	ValidArgs: reports.Names,
	RunE:      runReport,
}

func init() {
	reportCmd.Flags().IntVarP(&flagYear, "year", "y", 0, "Restrict to one fiscal year")
	reportCmd.Flags().StringVarP(&flagFormat, "format", "f", "csv", "Output format: csv or json")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	if flagFormat != "csv" && flagFormat != "json" {
		return fmt.Errorf("unknown format %q", flagFormat)
	}

	app, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	tbl, err := app.Services.Reports.Build(cmd.Context(), args[0], flagYear)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if flagFormat == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(tbl)
	}
	if err := reports.WriteRecords(out, tbl.Records); err != nil {
		return fmt.Errorf("%s: %w", tbl.Name, err)
	}
	return nil
}
