package main

import (
	"fmt"
	"log/slog"
	"manifestscan/internal/scan"
	"manifestscan/internal/watch"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	watchCmd := &cobra.Command{
		Use:   "watch [path]",
		Short: "Re-analyze manifests as they change",
		Long: `Watches the given directory (default: current) and analyzes any accepted
manifest that is created or written. Changes arriving close together are
analyzed as one batch.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runWatch,
	}
	watchCmd.Flags().Duration("debounce", watch.DefaultDebounce, "Quiet period before a batch is analyzed")
	watchCmd.Flags().IntP("workers", "w", 0, "Number of concurrent analyses (default from config)")
	watchCmd.Flags().Bool("save", false, "Persist every batch to the configured store")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	debounce, _ := cmd.Flags().GetDuration("debounce")
	save, _ := cmd.Flags().GetBool("save")

	settings, err := currentSettings(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()
	startMetrics(ctx, settings)

	reg := registryFactory()
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

	out := cmd.OutOrStdout()
	w, err := watch.New(watch.Config{
		Root:        absRoot,
		Scanner:     scan.New(reg, opts...),
		Registry:    reg,
		SkipDirs:    settings.Scan.SkipDirs,
		MaxFileSize: settings.Scan.MaxFileSize,
		Debounce:    debounce,
		OnRun: func(run *scan.Run) {
			fmt.Fprintf(out, "\n%s\n", dimStyle.Render(time.Now().Format("15:04:05")))
			printRun(out, run)
		},
		Logger: slog.Default(),
	})
	if err != nil {
		return err
	}
	defer w.Close()

	fmt.Fprintf(out, "Watching %s for manifest changes...\n", absRoot)
	return w.Run(ctx)
}
