package main

import (
	"context"
	"fmt"
	"log/slog"
	"manifestscan/internal/analyzer"
	"manifestscan/internal/analyzer/all"
	"manifestscan/internal/config"
	"manifestscan/internal/db"
	"manifestscan/internal/metrics"
	"manifestscan/internal/telemetry"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var exit = os.Exit
var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "manifestscan",
	Short: "Identify components from package manifests",
	Long: `manifestscan walks a source tree, finds package manifests (podspecs,
Package.swift, go.mod, package.json, Cargo.toml, pubspec.yaml) and reports
the name, version and license each one declares.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "\n=== CRITICAL ERROR: Command Execution Panic ===\n")
			fmt.Fprintf(os.Stderr, "Error: %v\n", r)
			exit(1)
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "Run 'manifestscan --help' for usage.")
		exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./manifestscan.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
	rootCmd.PersistentFlags().String("log-file", "", "Also write JSON logs to this file")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("log_file", rootCmd.PersistentFlags().Lookup("log-file"))
	viper.BindPFlag("no_color", rootCmd.PersistentFlags().Lookup("no-color"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if err := config.Load(cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exit(1)
		return
	}

	if err := config.ValidateConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exit(1)
		return
	}

	telemetry.InitLogger(viper.GetBool("verbose"), viper.GetString("log_file"))

	if viper.GetBool("no_color") {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

var registryFactory = func() *analyzer.Registry {
	return all.Default(slog.Default())
}

var storeFactory = func(s config.Settings) (db.Store, error) {
	return db.NewStore(db.StoreConfig{Type: s.Store.Type, ConnectionString: s.Store.DSN})
}

var (
	metricsOnce   sync.Once
	appMetrics    *metrics.Metrics
	metricsServer sync.Once
)

// sharedMetrics registers the collectors once per process.
func sharedMetrics() *metrics.Metrics {
	metricsOnce.Do(func() {
		appMetrics = metrics.NewMetrics(nil)
	})
	return appMetrics
}

// startMetrics serves /metrics in the background when enabled.
func startMetrics(ctx context.Context, s config.Settings) {
	if !s.Metrics.Enabled {
		return
	}
	metricsServer.Do(func() {
		handler := sharedMetrics().Handler()
		go func() {
			if err := telemetry.StartMetricsServer(ctx, s.Metrics.Addr, handler); err != nil {
				telemetry.LogError("Metrics server stopped", err, "addr", s.Metrics.Addr)
			}
		}()
	})
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// currentSettings applies per-command flag overrides to the loaded config.
func currentSettings(cmd *cobra.Command) (config.Settings, error) {
	s, err := config.Current()
	if err != nil {
		return s, err
	}
	if f := cmd.Flags().Lookup("workers"); f != nil && f.Changed {
		n, err := cmd.Flags().GetInt("workers")
		if err != nil {
			return s, err
		}
		if n < 1 {
			return s, fmt.Errorf("--workers must be positive, got %d", n)
		}
		s.Workers = n
	}
	return s, nil
}
