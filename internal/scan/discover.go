package scan

import (
	"fmt"
	"io/fs"
	"log/slog"
	"manifestscan/internal/analyzer"
	"os"
	"path/filepath"
)

// Options controls discovery.
type Options struct {
	// SkipDirs are directory base names that are never descended into.
	SkipDirs []string
	// MaxFileSize skips larger files. Zero means no limit.
	MaxFileSize int64
	Logger      *slog.Logger
}

// Candidate pairs a manifest path with one analyzer that accepts it.
type Candidate struct {
	Path     string
	Analyzer analyzer.Analyzer
}

// Discover walks root in lexical order and returns one candidate per
// (file, accepting analyzer) pair. root may itself be a file.
func Discover(root string, reg *analyzer.Registry, opts Options) ([]Candidate, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("failed to stat scan root: %w", err)
	}

	skip := make(map[string]bool, len(opts.SkipDirs))
	for _, d := range opts.SkipDirs {
		skip[d] = true
	}

	var out []Candidate
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			logger.Debug("Skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if d.IsDir() {
			if path != root && skip[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		analyzers := reg.For(path)
		if len(analyzers) == 0 {
			return nil
		}
		if opts.MaxFileSize > 0 {
			info, err := d.Info()
			if err != nil {
				logger.Debug("Skipping unreadable file", "path", path, "error", err)
				return nil
			}
			if info.Size() > opts.MaxFileSize {
				logger.Info("Skipping oversized manifest", "path", path, "size", info.Size(), "limit", opts.MaxFileSize)
				return nil
			}
		}
		for _, a := range analyzers {
			out = append(out, Candidate{Path: path, Analyzer: a})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return out, nil
}

// Candidates pairs explicit paths with their accepting analyzers without
// walking or size checks.
func Candidates(reg *analyzer.Registry, paths ...string) []Candidate {
	var out []Candidate
	for _, p := range paths {
		for _, a := range reg.For(p) {
			out = append(out, Candidate{Path: p, Analyzer: a})
		}
	}
	return out
}
