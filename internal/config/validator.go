package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// ValidateConfig validates configuration values and returns an error if any are invalid.
// This function should be called after viper has loaded the configuration.
func ValidateConfig() error {
	var errors []string

	if viper.IsSet("workers") {
		if workers := viper.GetInt("workers"); workers <= 0 {
			errors = append(errors, fmt.Sprintf("workers must be positive, got: %d", workers))
		}
	}

	if viper.GetBool("metrics.enabled") && strings.TrimSpace(viper.GetString("metrics.addr")) == "" {
		errors = append(errors, "metrics.addr must be set when metrics are enabled")
	}

	storeType := strings.ToLower(viper.GetString("store.type"))
	switch storeType {
	case "", "sqlite", "sqlite3":
	case "postgres", "postgresql":
		if viper.GetString("store.dsn") == "" {
			errors = append(errors, "store.dsn is required for postgres")
		}
	default:
		errors = append(errors, fmt.Sprintf("store.type must be sqlite or postgres, got: %q", storeType))
	}

	if viper.IsSet("scan.max_file_size") {
		if size := viper.GetInt64("scan.max_file_size"); size < 0 {
			errors = append(errors, fmt.Sprintf("scan.max_file_size must not be negative, got: %d", size))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  %s", strings.Join(errors, "\n  "))
	}

	return nil
}

// ValidateAndExit validates the configuration and exits with a non-zero code if validation fails.
func ValidateAndExit() {
	if err := ValidateConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
