// Package all assembles the built-in analyzers.
package all

import (
	"log/slog"
	"manifestscan/internal/analyzer"
	"manifestscan/internal/analyzer/cargo"
	"manifestscan/internal/analyzer/cocoapods"
	"manifestscan/internal/analyzer/gomod"
	"manifestscan/internal/analyzer/npm"
	"manifestscan/internal/analyzer/pub"
	"manifestscan/internal/analyzer/swiftpm"
)

// Default returns a registry holding every built-in analyzer in a fixed
// order. Each call returns fresh, unprepared analyzers.
func Default(logger *slog.Logger) *analyzer.Registry {
	return analyzer.NewRegistry(
		cocoapods.New(logger),
		swiftpm.New(logger),
		gomod.New(logger),
		npm.New(logger),
		cargo.New(logger),
		pub.New(logger),
	)
}
