// Package pub extracts component identity from Dart pubspec.yaml files.
package pub

import (
	"bufio"
	"bytes"
	"log/slog"
	"manifestscan/internal/analyzer"
	"manifestscan/internal/dependency"
	"manifestscan/internal/evidence"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	Name      = "Dart Pub Analyzer"
	Ecosystem = "Pub"
	FileName  = "pubspec.yaml"
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
	topLevel *regexp.Regexp
}

func newExtractor() (*extractor, error) {
	topLevel, err := regexp.Compile(`^([a-z_]+):\s*(.*?)\s*$`)
	if err != nil {
		return nil, err
	}
	return &extractor{topLevel: topLevel}, nil
}

// Extract walks the document node tree so scalars keep their source text;
// version: 1.0 stays "1.0" instead of becoming a float.
func (x *extractor) Extract(content []byte, a *dependency.Artifact, logger *slog.Logger) {
	fields, err := decodeTopLevel(content)
	if err != nil {
		logger.Debug("pubspec.yaml did not decode, scanning top-level keys", "error", err)
		fields = x.scanTopLevel(content)
	}

	if name := scalar(fields["name"]); name != "" {
		a.Evidence.AddValue(evidence.Product, FileName, "name", name, evidence.Highest)
	}
	if version := scalar(fields["version"]); version != "" {
		a.Evidence.AddValue(evidence.Version, FileName, "version", version, evidence.Highest)
	}
	for _, field := range []string{"author", "authors"} {
		for _, s := range scalars(fields[field]) {
			if name := analyzer.PersonName(s); name != "" {
				a.Evidence.AddValue(evidence.Vendor, FileName, field, name, evidence.High)
			}
		}
	}
	for _, field := range []string{"homepage", "repository"} {
		if s := scalar(fields[field]); s != "" {
			a.Evidence.AddValue(evidence.Vendor, FileName, field, s, evidence.Medium)
		}
	}
}

func decodeTopLevel(content []byte) (map[string]*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, err
	}
	fields := make(map[string]*yaml.Node)
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return fields, nil
	}
	root := doc.Content[0]
	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i].Value
		if _, dup := fields[key]; !dup {
			fields[key] = root.Content[i+1]
		}
	}
	return fields, nil
}

func scalar(n *yaml.Node) string {
	if n == nil || n.Kind != yaml.ScalarNode || n.Tag == "!!null" {
		return ""
	}
	return n.Value
}

func scalars(n *yaml.Node) []string {
	if n == nil {
		return nil
	}
	if n.Kind == yaml.SequenceNode {
		var out []string
		for _, item := range n.Content {
			if s := scalar(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	if s := scalar(n); s != "" {
		return []string{s}
	}
	return nil
}

// scanTopLevel recovers unindented "key: value" pairs from a document the
// YAML decoder rejected.
func (x *extractor) scanTopLevel(content []byte) map[string]*yaml.Node {
	fields := make(map[string]*yaml.Node)
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		m := x.topLevel.FindStringSubmatch(scanner.Text())
		if m == nil || m[2] == "" {
			continue
		}
		value := m[2]
		if i := strings.Index(value, " #"); i >= 0 {
			value = strings.TrimSpace(value[:i])
		}
		value = strings.Trim(value, `"'`)
		if _, dup := fields[m[1]]; !dup {
			fields[m[1]] = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
		}
	}
	return fields
}
