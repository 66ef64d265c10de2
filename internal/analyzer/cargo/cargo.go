// Package cargo extracts component identity from Rust Cargo.toml manifests.
package cargo

import (
	"bufio"
	"bytes"
	"log/slog"
	"manifestscan/internal/analyzer"
	"manifestscan/internal/dependency"
	"manifestscan/internal/evidence"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	Name      = "Rust Cargo Analyzer"
	Ecosystem = "crates.io"
	FileName  = "Cargo.toml"
)

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

func Accept(path string) bool {
	return filepath.Base(path) == FileName
}

type extractor struct {
	table    *regexp.Regexp
	keyValue *regexp.Regexp
}

func newExtractor() (*extractor, error) {
	table, err := regexp.Compile(`^\[\s*([^\]]+?)\s*\]$`)
	if err != nil {
		return nil, err
	}
	keyValue, err := regexp.Compile(`^([A-Za-z0-9_-]+)\s*=\s*("(?:[^"\\]|\\.)*"|'[^']*')`)
	if err != nil {
		return nil, err
	}
	return &extractor{table: table, keyValue: keyValue}, nil
}

func (x *extractor) Extract(content []byte, a *dependency.Artifact, logger *slog.Logger) {
	var doc map[string]any
	if err := toml.Unmarshal(content, &doc); err != nil {
		logger.Debug("Cargo.toml did not decode, scanning [package] lines", "error", err)
		doc = map[string]any{"package": x.scanPackage(content)}
	}

	pkg, ok := doc["package"].(map[string]any)
	if !ok {
		logger.Debug("No [package] table found")
		return
	}

	if name, ok := pkg["name"].(string); ok {
		a.Evidence.AddValue(evidence.Product, FileName, "name", name, evidence.Highest)
	}
	// version.workspace = true decodes to a table and is not a version
	if version, ok := pkg["version"].(string); ok {
		a.Evidence.AddValue(evidence.Version, FileName, "version", version, evidence.Highest)
	}
	for _, author := range stringList(pkg["authors"]) {
		if name := analyzer.PersonName(author); name != "" {
			a.Evidence.AddValue(evidence.Vendor, FileName, "authors", name, evidence.High)
		}
	}
	for _, field := range []string{"homepage", "repository"} {
		if s, ok := pkg[field].(string); ok {
			a.Evidence.AddValue(evidence.Vendor, FileName, field, s, evidence.Medium)
		}
	}
	for _, field := range []string{"license", "license-file"} {
		if s, ok := pkg[field].(string); ok && a.SetLicense(s) {
			break
		}
	}
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// scanPackage recovers the simple string keys of [package] from a file the
// TOML decoder rejected.
func (x *extractor) scanPackage(content []byte) map[string]any {
	pkg := make(map[string]any)
	scanner := bufio.NewScanner(bytes.NewReader(content))
	inPackage := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if m := x.table.FindStringSubmatch(line); m != nil {
			inPackage = m[1] == "package"
			continue
		}
		if !inPackage {
			continue
		}
		m := x.keyValue.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		value := m[2]
		if strings.HasPrefix(value, `"`) {
			unquoted, err := strconv.Unquote(value)
			if err != nil {
				continue
			}
			value = unquoted
		} else {
			value = strings.Trim(value, "'")
		}
		if _, seen := pkg[m[1]]; !seen {
			pkg[m[1]] = value
		}
	}
	return pkg
}
