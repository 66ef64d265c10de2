package main

import (
	"fmt"
	"log/slog"
	"manifestscan/internal/scan"

	"github.com/spf13/cobra"
)

func init() {
	scanCmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Analyze every manifest under a directory",
		Long: `Walks the given directory (default: current) and runs each registered
analyzer on the manifests it accepts. One row is printed per artifact;
a manifest that cannot be read is reported without stopping the scan.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runScan,
	}

	scanCmd.Flags().Bool("json", false, "Print the run as JSON")
	scanCmd.Flags().IntP("workers", "w", 0, "Number of concurrent analyses (default from config)")
	scanCmd.Flags().Bool("save", false, "Persist the run to the configured store")

	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	jsonOut, _ := cmd.Flags().GetBool("json")
	save, _ := cmd.Flags().GetBool("save")

	settings, err := currentSettings(cmd)
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)
	startMetrics(ctx, settings)

	opts := []scan.Option{
		scan.WithWorkers(settings.Workers),
		scan.WithObserver(sharedMetrics()),
		scan.WithLogger(slog.Default()),
	}
	if save {
		store, err := storeFactory(settings)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer store.Close()
		opts = append(opts, scan.WithStore(store))
	}

	run, err := scan.New(registryFactory(), opts...).Scan(ctx, root, scan.Options{
		SkipDirs:    settings.Scan.SkipDirs,
		MaxFileSize: settings.Scan.MaxFileSize,
		Logger:      slog.Default(),
	})
	if run == nil {
		return err
	}

	if jsonOut {
		if werr := writeJSON(cmd.OutOrStdout(), newReport(run)); werr != nil {
			return werr
		}
	} else {
		printRun(cmd.OutOrStdout(), run)
	}
	return err
}
