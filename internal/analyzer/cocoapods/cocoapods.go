// Package cocoapods extracts component identity from CocoaPods podspec files.
package cocoapods

import (
	"log/slog"
	"manifestscan/internal/analyzer"
	"manifestscan/internal/dependency"
	"manifestscan/internal/evidence"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	Name      = "CocoaPods Package Analyzer"
	Ecosystem = "CocoaPods"
	source    = "podspec"
)

// New returns the podspec analyzer.
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

// Accept matches any file with the .podspec extension.
func Accept(path string) bool {
	return strings.HasSuffix(filepath.Base(path), ".podspec")
}

type extractor struct {
	statement    *regexp.Regexp
	newStatement *regexp.Regexp
	openEnded    *regexp.Regexp
	interp       *regexp.Regexp
}

func newExtractor() (*extractor, error) {
	statement, newStatement, openEnded, err := compileStatementPatterns()
	if err != nil {
		return nil, err
	}
	interp, err := regexp.Compile(`#\{\s*([^}]*?)\s*\}`)
	if err != nil {
		return nil, err
	}
	return &extractor{
		statement:    statement,
		newStatement: newStatement,
		openEnded:    openEnded,
		interp:       interp,
	}, nil
}

// fieldRule says which evidence bucket a podspec attribute feeds.
type fieldRule struct {
	typ        evidence.Type
	confidence evidence.Confidence
	people     bool
}

var fields = map[string]fieldRule{
	"name":             {typ: evidence.Product, confidence: evidence.Highest},
	"version":          {typ: evidence.Version, confidence: evidence.Highest},
	"author":           {typ: evidence.Vendor, confidence: evidence.High, people: true},
	"authors":          {typ: evidence.Vendor, confidence: evidence.High, people: true},
	"homepage":         {typ: evidence.Vendor, confidence: evidence.Medium},
	"social_media_url": {typ: evidence.Vendor, confidence: evidence.Low},
	"summary":          {typ: evidence.Product, confidence: evidence.Low},
}

// state holds what a single file has declared so far. It lives for one
// Extract call only.
type state struct {
	vars  map[string]string
	attrs map[string]string
	seen  map[string]bool
}

func (x *extractor) Extract(content []byte, a *dependency.Artifact, logger *slog.Logger) {
	st := &state{
		vars:  make(map[string]string),
		attrs: make(map[string]string),
		seen:  make(map[string]bool),
	}

	for _, line := range x.logicalLines(string(content)) {
		m := x.statement.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		receiver, field, raw := m[1], m[2], strings.TrimSpace(m[3])
		rule, known := fields[field]
		if raw == "" || (!known && field != "license" && receiver != "") {
			continue
		}

		v, err := parseValue(raw, x.resolver(st))
		if err != nil {
			if known || field == "license" {
				logger.Debug("Skipping podspec attribute", "field", field, "error", err)
			}
			continue
		}

		if receiver == "" && v.kind == valString {
			st.vars[field] = v.str
		}

		if field == "license" {
			if license, ok := x.license(v, st); ok {
				a.SetLicense(license)
			}
			continue
		}
		if !known {
			continue
		}

		values := v.strings()
		if !rule.people && len(values) > 1 {
			values = values[:1]
		}
		for _, s := range values {
			s, ok := x.literal(s, st)
			if !ok {
				logger.Debug("Skipping interpolated podspec value", "field", field)
				continue
			}
			if rule.people {
				s = analyzer.PersonName(s)
			}
			x.record(a, st, rule, field, s)
		}
	}
}

func (x *extractor) record(a *dependency.Artifact, st *state, rule fieldRule, field, value string) {
	value = evidence.Normalize(value)
	if value == "" {
		return
	}
	if _, ok := st.attrs[field]; !ok {
		st.attrs[field] = value
	}
	key := string(rule.typ) + "\x00" + field + "\x00" + value
	if st.seen[key] {
		return
	}
	if a.Evidence.AddValue(rule.typ, source, field, value, rule.confidence) {
		st.seen[key] = true
	}
}

// license reduces a license declaration to one string: the :type of a
// hash, else its :text, else the joined strings.
func (x *extractor) license(v value, st *state) (string, bool) {
	var parts []string
	switch v.kind {
	case valHash:
		keyed := false
		for _, key := range []string{"type", "text"} {
			if inner, ok := v.lookup(key); ok {
				keyed = true
				if s, ok := x.license(inner, st); ok {
					return s, true
				}
			}
		}
		if keyed {
			return "", false
		}
		for _, p := range v.pairs {
			parts = append(parts, p.value.strings()...)
		}
	default:
		parts = v.strings()
	}

	var out []string
	for _, p := range parts {
		if s, ok := x.literal(p, st); ok && evidence.Normalize(s) != "" {
			out = append(out, evidence.Normalize(s))
		}
	}
	if len(out) == 0 {
		return "", false
	}
	return strings.Join(out, ", "), true
}

// literal substitutes interpolations that refer to values already declared
// in the file. A value that is nothing but unresolved interpolation is not
// evidence.
func (x *extractor) literal(s string, st *state) (string, bool) {
	if !strings.Contains(s, "#{") {
		return s, true
	}
	out := x.interp.ReplaceAllStringFunc(s, func(m string) string {
		ident := x.interp.FindStringSubmatch(m)[1]
		if v, ok := x.resolver(st)(ident); ok {
			return v
		}
		return m
	})
	if strings.TrimSpace(x.interp.ReplaceAllString(out, "")) == "" {
		return "", false
	}
	return out, true
}

var conversions = []string{".to_s", ".freeze", ".strip", ".dup"}

func (x *extractor) resolver(st *state) resolver {
	return func(ident string) (string, bool) {
		for trimmed := true; trimmed; {
			trimmed = false
			for _, c := range conversions {
				if strings.HasSuffix(ident, c) {
					ident = strings.TrimSuffix(ident, c)
					trimmed = true
				}
			}
		}
		if i := strings.IndexByte(ident, '.'); i >= 0 {
			v, ok := st.attrs[ident[i+1:]]
			return v, ok
		}
		v, ok := st.vars[ident]
		return v, ok
	}
}
