// Package swiftpm extracts component identity from Swift Package Manager
// manifests (Package.swift).
package swiftpm

import (
	"fmt"
	"log/slog"
	"manifestscan/internal/analyzer"
	"manifestscan/internal/dependency"
	"manifestscan/internal/evidence"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	Name      = "SWIFT Package Manager Analyzer"
	Ecosystem = "Swift.PM"
	FileName  = "Package.swift"
)

// New returns the Package.swift analyzer.
func New(logger *slog.Logger) *analyzer.Driver {
	return analyzer.NewDriver(analyzer.Options{
		Name:      Name,
		Ecosystem: Ecosystem,
		Accept:    Accept,
		NewExtractor: func() (analyzer.Extractor, error) {
			return newExtractor()
		},
		Logger: logger,
	})
}

// Accept matches files named exactly Package.swift. Versioned manifests
// such as Package@swift-5.swift are not accepted.
func Accept(path string) bool {
	return filepath.Base(path) == FileName
}

type extractor struct {
	constant *regexp.Regexp
}

func newExtractor() (*extractor, error) {
	constant, err := regexp.Compile(`(?m)^[ \t]*(?:let|var)[ \t]+([A-Za-z_]\w*)[ \t]*(?::[ \t]*String[ \t]*)?=[ \t]*("(?:[^"\\\n]|\\.)*"|#+"[^\n]*"#+)[ \t]*;?[ \t]*$`)
	if err != nil {
		return nil, err
	}
	return &extractor{constant: constant}, nil
}

func (x *extractor) Extract(content []byte, a *dependency.Artifact, logger *slog.Logger) {
	src := stripComments(string(content))

	args, ok := packageArguments(src)
	if !ok {
		logger.Debug("No Package( declaration found")
		return
	}

	for _, arg := range args {
		label, value, found := strings.Cut(arg, ":")
		if !found || strings.TrimSpace(label) != "name" {
			continue
		}
		name, err := x.resolveName(strings.TrimSpace(value), src)
		if err != nil {
			logger.Debug("Skipping package name", "field", "name", "error", err)
			return
		}
		a.Evidence.AddValue(evidence.Product, FileName, "name", name, evidence.Highest)
		return
	}
}

// resolveName accepts a string literal or an identifier bound to one by a
// top-level let.
func (x *extractor) resolveName(value, src string) (string, error) {
	if startsLiteral(value) {
		s, rest, err := stringLiteral(value)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(rest) != "" {
			return "", fmt.Errorf("name is an expression: %q", value)
		}
		return s, nil
	}

	if !isIdentifier(value) {
		return "", fmt.Errorf("name is not a literal: %q", value)
	}
	for _, m := range x.constant.FindAllStringSubmatch(src, -1) {
		if m[1] != value {
			continue
		}
		s, _, err := stringLiteral(m[2])
		return s, err
	}
	return "", fmt.Errorf("unresolved identifier %q", value)
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (i > 0 && r >= '0' && r <= '9') {
			continue
		}
		return false
	}
	return true
}
