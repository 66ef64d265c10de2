// Package gomod extracts component identity from go.mod files.
package gomod

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
)

const (
	Name      = "Go Module Analyzer"
	Ecosystem = "Go"
	FileName  = "go.mod"
)

// Code hosts whose second path element names the owner.
var ownerHosts = map[string]bool{
	"github.com":    true,
	"gitlab.com":    true,
	"bitbucket.org": true,
}

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
	majorSuffix *regexp.Regexp
	gopkgSuffix *regexp.Regexp
}

func newExtractor() (*extractor, error) {
	majorSuffix, err := regexp.Compile(`^v([2-9]|[1-9][0-9]+)$`)
	if err != nil {
		return nil, err
	}
	gopkgSuffix, err := regexp.Compile(`^(.+)\.(v[0-9]+)(?:-unstable)?$`)
	if err != nil {
		return nil, err
	}
	return &extractor{majorSuffix: majorSuffix, gopkgSuffix: gopkgSuffix}, nil
}

func (x *extractor) Extract(content []byte, a *dependency.Artifact, logger *slog.Logger) {
	path := modulePath(content)
	if path == "" {
		logger.Debug("No module directive found")
		return
	}

	a.Evidence.AddValue(evidence.Product, FileName, "module", path, evidence.Highest)

	elems := strings.Split(path, "/")
	base := elems[len(elems)-1]
	var major string

	switch {
	case len(elems) > 1 && x.majorSuffix.MatchString(base):
		major = base
		elems = elems[:len(elems)-1]
		base = elems[len(elems)-1]
	case elems[0] == "gopkg.in":
		if m := x.gopkgSuffix.FindStringSubmatch(base); m != nil {
			base, major = m[1], m[2]
		}
	}

	a.Evidence.AddValue(evidence.Product, FileName, "module.base", base, evidence.Low)
	if owner := moduleOwner(elems); owner != "" {
		a.Evidence.AddValue(evidence.Vendor, FileName, "module.owner", owner, evidence.Low)
	}
	// a major suffix names an import path generation, not a release
	if major != "" {
		logger.Debug("Module path carries a major version", "major", major)
	}
}

// modulePath returns the argument of the module directive, or "".
func modulePath(content []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	inBlock := false
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.Index(line, "//"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)

		switch {
		case line == "module (":
			inBlock = true
			continue
		case inBlock && line == ")":
			inBlock = false
			continue
		case inBlock && line != "":
			return unquote(line)
		}

		fields := strings.Fields(line)
		if len(fields) == 2 && fields[0] == "module" {
			return unquote(fields[1])
		}
	}
	return ""
}

func unquote(s string) string {
	if strings.HasPrefix(s, `"`) || strings.HasPrefix(s, "`") {
		if u, err := strconv.Unquote(s); err == nil {
			return u
		}
	}
	return s
}

// moduleOwner guesses the publisher from the import path: the account on
// well known code hosts, otherwise the registrable name of the domain.
func moduleOwner(elems []string) string {
	host := elems[0]
	if !strings.Contains(host, ".") {
		return ""
	}
	if ownerHosts[host] || host == "gopkg.in" {
		if len(elems) > 2 {
			return elems[1]
		}
		return ""
	}
	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return ""
	}
	return labels[len(labels)-2]
}
