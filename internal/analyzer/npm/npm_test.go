package npm

import (
	"io"
	"log/slog"
	"manifestscan/internal/dependency"
	"manifestscan/internal/evidence"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analyzeFile(t *testing.T, path string) *dependency.Artifact {
	t.Helper()
	a := New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, a.Prepare())
	t.Cleanup(func() { _ = a.Close() })

	artifact := dependency.NewArtifact(path)
	_, err := a.Analyze(artifact)
	require.NoError(t, err)
	require.NotNil(t, artifact.Identity)
	return artifact
}

func analyzeJSON(t *testing.T, content string) *dependency.Artifact {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return analyzeFile(t, path)
}

func TestAccept(t *testing.T) {
	assert.True(t, Accept("/app/package.json"))
	assert.False(t, Accept("/app/package-lock.json"))
	assert.False(t, Accept("/app/Package.json"))
}

func TestAnalyze_Fixture(t *testing.T) {
	a := analyzeFile(t, filepath.Join("testdata", "package.json"))

	assert.Equal(t, "@babel/core:7.24.0", a.Identity.DisplayLabel)
	assert.Equal(t, "MIT", a.License)
	assert.Equal(t, []evidence.Fact{
		{Source: "package.json", Name: "name.scope", Value: "babel", Confidence: evidence.Medium},
		{Source: "package.json", Name: "author", Value: "The Babel Team", Confidence: evidence.High},
		{Source: "package.json", Name: "contributors", Value: "Sebastian McKenzie", Confidence: evidence.Medium},
		{Source: "package.json", Name: "contributors", Value: "Henry Zhu", Confidence: evidence.Medium},
		{Source: "package.json", Name: "homepage", Value: "https://babel.dev/docs/en/next/babel-core", Confidence: evidence.Medium},
	}, a.Evidence.Facts(evidence.Vendor))
	assert.Contains(t, a.Evidence.String(evidence.Product), "package.json/name.bare: core (LOW)")
	assert.NotContains(t, a.Evidence.String(evidence.Product), "code-frame")
}

func TestAnalyze_Variants(t *testing.T) {
	tests := []struct {
		name    string
		content string
		label   string
		license string
		vendors int
	}{
		{
			name:    "license object",
			content: `{"name": "old", "version": "0.1.0", "license": {"type": "BSD-3-Clause", "url": "x"}}`,
			label:   "old:0.1.0",
			license: "BSD-3-Clause",
		},
		{
			name:    "legacy licenses array",
			content: `{"name": "older", "licenses": [{"type": "MIT"}, {"type": "Apache-2.0"}]}`,
			label:   "older",
			license: "MIT, Apache-2.0",
		},
		{
			name:    "author object",
			content: `{"name": "obj", "author": {"name": "Jane Doe", "email": "jane@example.com"}}`,
			label:   "obj",
			vendors: 1,
		},
		{
			name:    "malformed field does not lose the rest",
			content: `{"name": 42, "version": "1.0.0", "author": ["bad"], "homepage": "https://ok.example"}`,
			label:   ":1.0.0",
			vendors: 1,
		},
		{
			name:    "email only author",
			content: `{"name": "anon", "author": "<anon@example.com>"}`,
			label:   "anon",
		},
		{
			name: "syntax error falls back to top-level lines",
			content: `{
  "repository": {
    "name": "nested"
  },
  "name": "broken",
  "version": "1.2.3",
  "description": "unterminated,
  "homepage": "https://broken.example",
  "license": "ISC"
}`,
			label:   "broken:1.2.3",
			license: "ISC",
			vendors: 1,
		},
		{
			name:    "not json",
			content: `name = "toml"`,
		},
		{
			name:    "json array",
			content: `[1, 2, 3]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := analyzeJSON(t, tt.content)
			assert.Equal(t, tt.label, a.Identity.DisplayLabel)
			assert.Equal(t, tt.license, a.License)
			assert.Equal(t, tt.vendors, a.Evidence.Len(evidence.Vendor))
		})
	}
}

func TestSplitScope(t *testing.T) {
	tests := []struct {
		in, scope, bare string
		ok              bool
	}{
		{"@types/node", "types", "node", true},
		{"lodash", "", "lodash", false},
		{"@broken", "", "@broken", false},
		{"@/x", "", "@/x", false},
	}
	for _, tt := range tests {
		scope, bare, ok := splitScope(tt.in)
		assert.Equal(t, tt.scope, scope, tt.in)
		assert.Equal(t, tt.bare, bare, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
}

func TestScanTopLevel(t *testing.T) {
	doc := scanTopLevel([]byte("{\n  \"scripts\": {\n    \"version\": \"nope\"\n  },\n  \"version\": \"2.0.0\",\n  \"name\": \"a \\\"q\\\" b\",\n  \"name\": \"second\",\n  \"bad\": \"open [\n}"))
	assert.Equal(t, `"2.0.0"`, string(doc["version"]))
	assert.Equal(t, `"a \"q\" b"`, string(doc["name"]))
	assert.Len(t, doc, 2)
}
