package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Settings is the typed view of the loaded configuration.
type Settings struct {
	Workers int    `mapstructure:"workers"`
	Verbose bool   `mapstructure:"verbose"`
	LogFile string `mapstructure:"log_file"`
	Metrics struct {
		Enabled bool   `mapstructure:"enabled"`
		Addr    string `mapstructure:"addr"`
	} `mapstructure:"metrics"`
	Store struct {
		Type string `mapstructure:"type"`
		DSN  string `mapstructure:"dsn"`
	} `mapstructure:"store"`
	Scan struct {
		SkipDirs    []string `mapstructure:"skip_dirs"`
		MaxFileSize int64    `mapstructure:"max_file_size"`
	} `mapstructure:"scan"`
}

// DefaultSkipDirs are directory names never descended into during discovery.
var DefaultSkipDirs = []string{".git", "node_modules", "Pods", ".build", "vendor"}

// SetDefaults registers every default value with viper.
func SetDefaults() {
	viper.SetDefault("workers", 4)
	viper.SetDefault("verbose", false)
	viper.SetDefault("log_file", "")
	viper.SetDefault("metrics.enabled", false)
	viper.SetDefault("metrics.addr", ":2112")
	viper.SetDefault("store.type", "sqlite")
	viper.SetDefault("store.dsn", ".manifestscan.db")
	viper.SetDefault("scan.skip_dirs", DefaultSkipDirs)
	viper.SetDefault("scan.max_file_size", 1<<20)
}

// Load initializes the configuration from file and environment variables.
// A missing config file is not an error unless cfgFile names it explicitly.
func Load(cfgFile string) error {
	// .env is optional
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("manifestscan")
	}

	viper.SetEnvPrefix("MANIFESTSCAN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	SetDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && cfgFile == "" {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	return nil
}

// Current decodes the active viper state into Settings.
func Current() (Settings, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return s, fmt.Errorf("failed to decode config: %w", err)
	}
	return s, nil
}
