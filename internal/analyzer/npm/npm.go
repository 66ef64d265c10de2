// Package npm extracts component identity from package.json manifests.
package npm

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"manifestscan/internal/analyzer"
	"manifestscan/internal/dependency"
	"manifestscan/internal/evidence"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	Name      = "Node.js Package Analyzer"
	Ecosystem = "npm"
	FileName  = "package.json"
)

func New(logger *slog.Logger) *analyzer.Driver {
	return analyzer.NewDriver(analyzer.Options{
		Name:      Name,
		Ecosystem: Ecosystem,
		Accept:    Accept,
		NewExtractor: func() (analyzer.Extractor, error) {
			return analyzer.ExtractorFunc(extract), nil
		},
		Logger: logger,
	})
}

func Accept(path string) bool {
	return filepath.Base(path) == FileName
}

// person is the object form of author, contributors and maintainers.
type person struct {
	Name string `json:"name"`
}

type licenseObject struct {
	Type string `json:"type"`
}

// topLevelKey matches a single-line string member of the root object.
var topLevelKey = regexp.MustCompile(`^\s*"(name|version|homepage|license)"\s*:\s*("(?:[^"\\]|\\.)*")`)

// extract decodes field by field so one malformed field does not hide the
// rest of the document.
func extract(content []byte, a *dependency.Artifact, logger *slog.Logger) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(content, &doc); err != nil {
		logger.Debug("package.json is not a JSON object, scanning lines", "error", err)
		doc = scanTopLevel(content)
		if len(doc) == 0 {
			return
		}
	}

	if name, ok := stringField(doc, "name", logger); ok {
		a.Evidence.AddValue(evidence.Product, FileName, "name", name, evidence.Highest)
		if scope, bare, scoped := splitScope(name); scoped {
			a.Evidence.AddValue(evidence.Vendor, FileName, "name.scope", scope, evidence.Medium)
			a.Evidence.AddValue(evidence.Product, FileName, "name.bare", bare, evidence.Low)
		}
	}
	if version, ok := stringField(doc, "version", logger); ok {
		a.Evidence.AddValue(evidence.Version, FileName, "version", version, evidence.Highest)
	}

	if raw, ok := doc["author"]; ok {
		for _, name := range people(raw, logger) {
			a.Evidence.AddValue(evidence.Vendor, FileName, "author", name, evidence.High)
		}
	}
	for _, field := range []string{"contributors", "maintainers"} {
		raw, ok := doc[field]
		if !ok {
			continue
		}
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			logger.Debug("Skipping package.json field", "field", field, "error", err)
			continue
		}
		for _, item := range list {
			for _, name := range people(item, logger) {
				a.Evidence.AddValue(evidence.Vendor, FileName, field, name, evidence.Medium)
			}
		}
	}

	if homepage, ok := stringField(doc, "homepage", logger); ok {
		a.Evidence.AddValue(evidence.Vendor, FileName, "homepage", homepage, evidence.Medium)
	}

	if license, ok := licenseField(doc, logger); ok {
		a.SetLicense(license)
	}
}

// scanTopLevel recovers the plain string members of the root object from a
// document the JSON decoder rejected.
func scanTopLevel(content []byte) map[string]json.RawMessage {
	doc := make(map[string]json.RawMessage)
	scanner := bufio.NewScanner(bytes.NewReader(content))
	depth := 0
	for scanner.Scan() {
		line := scanner.Text()
		if depth == 1 {
			if m := topLevelKey.FindStringSubmatch(line); m != nil {
				if _, seen := doc[m[1]]; !seen {
					doc[m[1]] = json.RawMessage(m[2])
				}
			}
		}
		depth += nesting(line)
	}
	return doc
}

// nesting is the bracket balance of line outside string literals. A string
// left open runs to the end of the line.
func nesting(line string) int {
	n := 0
	inString := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case inString && c == '\\':
			i++
		case c == '"':
			inString = !inString
		case inString:
		case c == '{' || c == '[':
			n++
		case c == '}' || c == ']':
			n--
		}
	}
	return n
}

func stringField(doc map[string]json.RawMessage, field string, logger *slog.Logger) (string, bool) {
	raw, ok := doc[field]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		logger.Debug("Skipping package.json field", "field", field, "error", err)
		return "", false
	}
	return s, evidence.Normalize(s) != ""
}

// people accepts "Name <mail> (url)" strings and {"name": ...} objects.
func people(raw json.RawMessage, logger *slog.Logger) []string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if name := analyzer.PersonName(s); name != "" {
			return []string{name}
		}
		return nil
	}
	var p person
	if err := json.Unmarshal(raw, &p); err != nil {
		logger.Debug("Skipping package.json person", "error", err)
		return nil
	}
	if name := evidence.Normalize(p.Name); name != "" {
		return []string{name}
	}
	return nil
}

// licenseField handles the SPDX string, the deprecated {"type": ...} object
// and the legacy "licenses" array.
func licenseField(doc map[string]json.RawMessage, logger *slog.Logger) (string, bool) {
	if raw, ok := doc["license"]; ok {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s, true
		}
		var obj licenseObject
		if err := json.Unmarshal(raw, &obj); err == nil && obj.Type != "" {
			return obj.Type, true
		}
		logger.Debug("Skipping package.json field", "field", "license")
	}

	raw, ok := doc["licenses"]
	if !ok {
		return "", false
	}
	var list []licenseObject
	if err := json.Unmarshal(raw, &list); err != nil {
		logger.Debug("Skipping package.json field", "field", "licenses", "error", err)
		return "", false
	}
	var types []string
	for _, l := range list {
		if l.Type != "" {
			types = append(types, l.Type)
		}
	}
	if len(types) == 0 {
		return "", false
	}
	return strings.Join(types, ", "), true
}

// splitScope splits "@scope/name" into its parts.
func splitScope(name string) (scope, bare string, ok bool) {
	if !strings.HasPrefix(name, "@") {
		return "", name, false
	}
	scope, bare, ok = strings.Cut(name[1:], "/")
	if !ok || scope == "" || bare == "" {
		return "", name, false
	}
	return scope, bare, true
}
