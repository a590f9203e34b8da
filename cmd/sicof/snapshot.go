package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"sicof/internal/storage"

	"github.com/spf13/cobra"
)

var (
	flagOut     string
	flagToSink  bool
	flagFromBak string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the whole store as a JSON snapshot",
	Long:  "Write every collection as one JSON object to stdout, to --out, or to the configured backup sink with --sink.",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Replace the whole store with a JSON snapshot",
	Long:  "Read a snapshot from file (or stdin when file is -) or, with --backup, from the configured sink, and overwrite the store.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runImport,
}

var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "List snapshots in the backup sink",
	Args:  cobra.NoArgs,
	RunE:  runBackups,
}

func init() {
	exportCmd.Flags().StringVarP(&flagOut, "out", "o", "", "Output file (default stdout), or the backup name with --sink")
	exportCmd.Flags().BoolVar(&flagToSink, "sink", false, "Write to the configured backup sink instead")
	importCmd.Flags().StringVar(&flagFromBak, "backup", "", "Restore the named snapshot from the backup sink")
	rootCmd.AddCommand(exportCmd, importCmd, backupsCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	app, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	if flagToSink {
		name, err := app.Services.Backup.Backup(cmd.Context(), flagOut)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), name)
		return nil
	}

	snap, err := app.Services.Backup.ExportAll(cmd.Context())
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if flagOut == "" {
		_, err = cmd.OutOrStdout().Write(append(data, '\n'))
		return err
	}
	if err := os.WriteFile(flagOut, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", flagOut, err)
	}
	app.Logger.Info("Snapshot exported", "file", flagOut, "bytes", len(data))
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	if flagFromBak == "" && len(args) == 0 {
		return fmt.Errorf("import needs a file argument or --backup")
	}

	app, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	if flagFromBak != "" {
		return app.Services.Backup.Restore(cmd.Context(), flagFromBak)
	}

	snap, err := readSnapshot(cmd.InOrStdin(), args[0])
	if err != nil {
		return err
	}
	return app.Services.Backup.ImportAll(cmd.Context(), snap)
}

func readSnapshot(stdin io.Reader, path string) (storage.Snapshot, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var snap storage.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	return snap, nil
}

func runBackups(cmd *cobra.Command, _ []string) error {
	app, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	names, err := app.Services.Backup.List(cmd.Context())
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}
