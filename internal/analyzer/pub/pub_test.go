package pub

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

func analyzeYAML(t *testing.T, content string) *dependency.Artifact {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return analyzeFile(t, path)
}

func TestAccept(t *testing.T) {
	assert.True(t, Accept("/app/pubspec.yaml"))
	assert.False(t, Accept("/app/pubspec.lock"))
	assert.False(t, Accept("/app/pubspec.yml"))
}

func TestAnalyze_Fixture(t *testing.T) {
	a := analyzeFile(t, filepath.Join("testdata", "pubspec.yaml"))

	assert.Equal(t, "http:1.2.1", a.Identity.DisplayLabel)
	assert.Equal(t, "Pub", a.Identity.Ecosystem)
	assert.Empty(t, a.License)
	assert.Equal(t, []evidence.Fact{
		{Source: "pubspec.yaml", Name: "authors", Value: "Dart Team", Confidence: evidence.High},
		{Source: "pubspec.yaml", Name: "authors", Value: "Natalie Weizenbaum", Confidence: evidence.High},
		{Source: "pubspec.yaml", Name: "repository", Value: "https://github.com/dart-lang/http/tree/master/pkgs/http", Confidence: evidence.Medium},
	}, a.Evidence.Facts(evidence.Vendor))
}

func TestAnalyze_Variants(t *testing.T) {
	tests := []struct {
		name    string
		content string
		label   string
		vendors int
	}{
		{name: "numeric looking version keeps its text", content: "name: pkg\nversion: 1.0\n", label: "pkg:1.0"},
		{name: "single author", content: "name: solo\nauthor: Jane Doe <jane@example.com>\nhomepage: https://solo.dev\n", label: "solo", vendors: 2},
		{name: "null version", content: "name: nover\nversion:\n", label: "nover"},
		{name: "not a mapping", content: "- just\n- a list\n", label: ""},
		{name: "invalid yaml falls back", content: "name: rough\nversion: 2.0.0\ndescription: [unclosed\n", label: "rough:2.0.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := analyzeYAML(t, tt.content)
			assert.Equal(t, tt.label, a.Identity.DisplayLabel)
			assert.Equal(t, tt.vendors, a.Evidence.Len(evidence.Vendor))
		})
	}
}
