package all

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	reg := Default(nil)

	var names []string
	for _, a := range reg.Analyzers() {
		names = append(names, a.Name())
	}
	assert.Equal(t, []string{
		"CocoaPods Package Analyzer",
		"SWIFT Package Manager Analyzer",
		"Go Module Analyzer",
		"Node.js Package Analyzer",
		"Rust Cargo Analyzer",
		"Dart Pub Analyzer",
	}, names)

	require.NoError(t, reg.PrepareAll())
	assert.NoError(t, reg.CloseAll())
}

func TestDefault_Routing(t *testing.T) {
	reg := Default(nil)

	tests := map[string]string{
		"/p/EasyPeasy.podspec": "CocoaPods",
		"/p/Package.swift":     "Swift.PM",
		"/p/go.mod":            "Go",
		"/p/package.json":      "npm",
		"/p/Cargo.toml":        "crates.io",
		"/p/pubspec.yaml":      "Pub",
	}
	for path, ecosystem := range tests {
		matches := reg.For(path)
		require.Len(t, matches, 1, path)
		assert.Equal(t, ecosystem, matches[0].Ecosystem(), path)
	}
	assert.Empty(t, reg.For("/p/README.md"))
}
