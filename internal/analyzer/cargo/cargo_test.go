package cargo

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

func analyzeTOML(t *testing.T, content string) *dependency.Artifact {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return analyzeFile(t, path)
}

func TestAccept(t *testing.T) {
	assert.True(t, Accept("/crate/Cargo.toml"))
	assert.False(t, Accept("/crate/Cargo.lock"))
	assert.False(t, Accept("/crate/cargo.toml"))
}

func TestAnalyze_Fixture(t *testing.T) {
	a := analyzeFile(t, filepath.Join("testdata", "Cargo.toml"))

	assert.Equal(t, "serde:1.0.197", a.Identity.DisplayLabel)
	assert.Equal(t, "crates.io", a.Identity.Ecosystem)
	assert.Equal(t, "MIT OR Apache-2.0", a.License)
	assert.Equal(t, []evidence.Fact{
		{Source: "Cargo.toml", Name: "authors", Value: "Erick Tryzelaar", Confidence: evidence.High},
		{Source: "Cargo.toml", Name: "authors", Value: "David Tolnay", Confidence: evidence.High},
		{Source: "Cargo.toml", Name: "homepage", Value: "https://serde.rs", Confidence: evidence.Medium},
		{Source: "Cargo.toml", Name: "repository", Value: "https://github.com/serde-rs/serde", Confidence: evidence.Medium},
	}, a.Evidence.Facts(evidence.Vendor))
	assert.NotContains(t, a.Evidence.String(evidence.Version), "=1.0.197")
}

func TestAnalyze_Variants(t *testing.T) {
	tests := []struct {
		name    string
		content string
		label   string
		license string
	}{
		{
			name:    "workspace inherited version",
			content: "[package]\nname = \"member\"\nversion.workspace = true\nlicense-file = \"LICENSE\"\n",
			label:   "member",
			license: "LICENSE",
		},
		{
			name:    "workspace root without package",
			content: "[workspace]\nmembers = [\"a\", \"b\"]\n",
		},
		{
			name:    "invalid toml falls back to line scan",
			content: "[package]\nname = 'rough'\nversion = \"0.3.1\"\nbroken = [\n\n[dependencies]\nname = \"other\"\n",
			label:   "rough:0.3.1",
		},
		{
			name:    "license wins over license-file",
			content: "[package]\nname = \"both\"\nlicense = \"MIT\"\nlicense-file = \"LICENSE\"\n",
			label:   "both",
			license: "MIT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := analyzeTOML(t, tt.content)
			assert.Equal(t, tt.label, a.Identity.DisplayLabel)
			assert.Equal(t, tt.license, a.License)
		})
	}
}
