package cocoapods

import (
	"io"
	"log/slog"
	"manifestscan/internal/analyzer"
	"manifestscan/internal/dependency"
	"manifestscan/internal/evidence"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func analyze(t *testing.T, path string) *dependency.Artifact {
	t.Helper()
	a := New(discard)
	require.NoError(t, a.Prepare())
	t.Cleanup(func() { _ = a.Close() })

	artifact := dependency.NewArtifact(path)
	_, err := a.Analyze(artifact)
	require.NoError(t, err)
	return artifact
}

func analyzeString(t *testing.T, content string) *dependency.Artifact {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Inline.podspec")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return analyze(t, path)
}

func TestName(t *testing.T) {
	a := New(nil)
	assert.Equal(t, "CocoaPods Package Analyzer", a.Name())
	assert.Equal(t, "CocoaPods", a.Ecosystem())
}

func TestAccept(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"test.podspec", true},
		{"/src/EasyPeasy/EasyPeasy.podspec", true},
		{"Podfile", false},
		{"test.podspec.json", false},
		{"test.PODSPEC", false},
		{"Package.swift", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, Accept(tt.path))
		})
	}
}

func TestAnalyze_EasyPeasy(t *testing.T) {
	a := analyze(t, filepath.Join("testdata", "EasyPeasy.podspec"))

	vendor := a.Evidence.String(evidence.Vendor)
	assert.Contains(t, vendor, "Carlos Vidal")
	assert.Contains(t, vendor, "https://github.com/nakiostudio/EasyPeasy")
	assert.NotContains(t, vendor, "nakio195@gmail.com")
	assert.Contains(t, a.Evidence.String(evidence.Product), "EasyPeasy")
	assert.Contains(t, a.Evidence.String(evidence.Version), "0.2.3")

	require.NotNil(t, a.Identity)
	assert.Equal(t, "EasyPeasy", a.Identity.Name)
	assert.Equal(t, "0.2.3", a.Identity.Version)
	assert.Equal(t, "EasyPeasy:0.2.3", a.Identity.DisplayLabel)
	assert.Equal(t, Ecosystem, a.Identity.Ecosystem)
	assert.Equal(t, "MIT", a.License)
	assert.Equal(t, "MIT", a.Identity.License)
}

func TestAnalyze_EasyPeasyConfidences(t *testing.T) {
	a := analyze(t, filepath.Join("testdata", "EasyPeasy.podspec"))

	assert.Equal(t, []evidence.Fact{
		{Source: "podspec", Name: "homepage", Value: "https://github.com/nakiostudio/EasyPeasy", Confidence: evidence.Medium},
		{Source: "podspec", Name: "author", Value: "Carlos Vidal", Confidence: evidence.High},
		{Source: "podspec", Name: "social_media_url", Value: "https://twitter.com/nakiostudio", Confidence: evidence.Low},
	}, a.Evidence.Facts(evidence.Vendor))

	product := a.Evidence.Facts(evidence.Product)
	require.Len(t, product, 2)
	assert.Equal(t, evidence.Highest, product[0].Confidence)
	assert.Equal(t, "summary", product[1].Name)
	assert.Equal(t, evidence.Low, product[1].Confidence)
}

func TestAnalyze_Tricky(t *testing.T) {
	a := analyze(t, filepath.Join("testdata", "Tricky.podspec"))

	require.NotNil(t, a.Identity)
	assert.Equal(t, "Tricky:4.1.0", a.Identity.DisplayLabel)
	assert.Equal(t, "Apache-2.0", a.License)
	assert.Equal(t, 1, a.Evidence.Len(evidence.Version))

	vendor := a.Evidence.String(evidence.Vendor)
	assert.Contains(t, vendor, "Ada Lovelace")
	assert.Contains(t, vendor, "Grace Hopper")
	assert.Contains(t, vendor, "https://example.com/Tricky")
	assert.NotContains(t, vendor, "#{")
	assert.NotContains(t, vendor, "@example.com")

	assert.Contains(t, a.Evidence.String(evidence.Product), "A pod with a # inside its summary")
}

func TestAnalyze_Variants(t *testing.T) {
	tests := []struct {
		name    string
		content string
		check   func(t *testing.T, a *dependency.Artifact)
	}{
		{
			name:    "method call without equals",
			content: "Pod::Spec.new do |s|\n  s.name 'Bare'\n  s.version '1.0'\nend\n",
			check: func(t *testing.T, a *dependency.Artifact) {
				assert.Equal(t, "Bare:1.0", a.Identity.DisplayLabel)
			},
		},
		{
			name:    "author array",
			content: "s.name = 'Pod'\ns.authors = ['One', 'Two <two@example.com>']\n",
			check: func(t *testing.T, a *dependency.Artifact) {
				assert.Equal(t, "podspec/authors: One (HIGH); podspec/authors: Two (HIGH)", a.Evidence.String(evidence.Vendor))
			},
		},
		{
			name:    "single author string",
			content: "s.author = 'Solo Dev'\n",
			check: func(t *testing.T, a *dependency.Artifact) {
				assert.Equal(t, "podspec/author: Solo Dev (HIGH)", a.Evidence.String(evidence.Vendor))
			},
		},
		{
			name:    "license hash with text only",
			content: "s.license = { :text => <<-LICENSE\n  Custom\n    terms apply\n  LICENSE\n}\n",
			check: func(t *testing.T, a *dependency.Artifact) {
				assert.Equal(t, "Custom terms apply", a.License)
			},
		},
		{
			name:    "license hash with type and multi-line text",
			content: "s.license = {\n  :type => 'MIT',\n  :text => <<-LICENSE\n    Copyright 2020\n    Permission is granted\n  LICENSE\n}\ns.version = '1.1'\n",
			check: func(t *testing.T, a *dependency.Artifact) {
				assert.Equal(t, "MIT", a.License)
				assert.Equal(t, "1.1", a.Identity.Version)
			},
		},
		{
			name:    "license text read from a file",
			content: "s.license = { :type => 'MIT', :text => File.read('LICENSE') }\n",
			check: func(t *testing.T, a *dependency.Artifact) {
				assert.Equal(t, "MIT", a.License)
			},
		},
		{
			name:    "license file from a constant",
			content: "s.license = { :type => 'MIT', :file => LICENSE_PATH }\n",
			check: func(t *testing.T, a *dependency.Artifact) {
				assert.Equal(t, "MIT", a.License)
			},
		},
		{
			name:    "license text alone from a file is not a license",
			content: "s.license = { :text => File.read('LICENSE') }\n",
			check: func(t *testing.T, a *dependency.Artifact) {
				assert.Empty(t, a.License)
			},
		},
		{
			name:    "author mail from the environment",
			content: "s.authors = { 'Jane Doe' => ENV['MAIL'] }\n",
			check: func(t *testing.T, a *dependency.Artifact) {
				assert.Contains(t, a.Evidence.String(evidence.Vendor), "Jane Doe")
			},
		},
		{
			name:    "unterminated heredoc does not swallow the file",
			content: "s.description = <<-DESC\n  never closed\ns.version = '2.0'\n",
			check: func(t *testing.T, a *dependency.Artifact) {
				assert.Equal(t, "2.0", a.Identity.Version)
			},
		},
		{
			name:    "license with ruby 1.9 hash syntax",
			content: "s.license = { type: 'BSD', file: 'LICENSE' }\n",
			check: func(t *testing.T, a *dependency.Artifact) {
				assert.Equal(t, "BSD", a.License)
			},
		},
		{
			name:    "first license wins",
			content: "s.license = 'MIT'\ns.license = 'GPL'\n",
			check: func(t *testing.T, a *dependency.Artifact) {
				assert.Equal(t, "MIT", a.License)
			},
		},
		{
			name:    "pure interpolation skipped",
			content: "s.name = 'Pod'\ns.version = \"#{ENV['VERSION']}\"\n",
			check: func(t *testing.T, a *dependency.Artifact) {
				assert.Zero(t, a.Evidence.Len(evidence.Version))
				assert.Equal(t, "Pod", a.Identity.DisplayLabel)
			},
		},
		{
			name:    "computed field is skipped",
			content: "s.name = package['name']\ns.version = '2.0'\ns.homepage = 'https://pod.example'\n",
			check: func(t *testing.T, a *dependency.Artifact) {
				assert.Zero(t, a.Evidence.Len(evidence.Product))
				assert.Equal(t, "2.0", a.Identity.Version)
				assert.Equal(t, ":2.0", a.Identity.DisplayLabel)
				assert.Equal(t, 1, a.Evidence.Len(evidence.Vendor))
			},
		},
		{
			name:    "unclosed hash does not swallow the next attribute",
			content: "s.author = { 'Broken' => 'x@example.com',\ns.version = '3.0'\n",
			check: func(t *testing.T, a *dependency.Artifact) {
				assert.Equal(t, "3.0", a.Identity.Version)
			},
		},
		{
			name:    "empty file",
			content: "",
			check: func(t *testing.T, a *dependency.Artifact) {
				assert.Zero(t, a.Evidence.Total())
				assert.Empty(t, a.Identity.Name)
				assert.Equal(t, Ecosystem, a.Identity.Ecosystem)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := analyzeString(t, tt.content)
			require.NotNil(t, a.Identity)
			tt.check(t, a)
		})
	}
}

func TestAnalyze_MissingFile(t *testing.T) {
	a := New(discard)
	require.NoError(t, a.Prepare())

	artifact := dependency.NewArtifact(filepath.Join(t.TempDir(), "Gone.podspec"))
	_, err := a.Analyze(artifact)

	require.Error(t, err)
	assert.True(t, analyzer.IsIO(err))
	assert.Nil(t, artifact.Identity)
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		src      string
		expected []string
	}{
		{`'MIT'`, []string{"MIT"}},
		{`"It's"`, []string{"It's"}},
		{`'It\'s'`, []string{"It's"}},
		{`'a' + "b"`, []string{"ab"}},
		{`%w[One Two]`, []string{"One", "Two"}},
		{`%q(Quoted (nested))`, []string{"Quoted (nested)"}},
		{`['a', 'b',]`, []string{"a", "b"}},
		{`'a', 'b'`, []string{"a", "b"}},
		{`:ios, '8.0'`, []string{"ios", "8.0"}},
		{`{ 'Name' => 'mail' }`, []string{"Name"}},
		{`('Paren')`, []string{"Paren"}},
		{`1.0`, []string{"1.0"}},
		{`ENV['MAIL']`, nil},
		{`File.read('LICENSE').strip`, nil},
		{`'v' + VERSION`, nil},
		{`{ 'Jane Doe' => ENV['MAIL'] }`, []string{"Jane Doe"}},
		{`['a', UNKNOWN, 'b']`, []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			v, err := parseValue(tt.src, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, v.strings())
		})
	}
}

func TestParseValue_Errors(t *testing.T) {
	for _, src := range []string{
		`'unterminated`,
		`{ 'a' => }`,
		`File.read('LICENSE'`,
		`Pod::Spec`,
		`[1, 2`,
	} {
		t.Run(src, func(t *testing.T) {
			_, err := parseValue(src, nil)
			assert.Error(t, err)
		})
	}
}

func TestLogicalLines(t *testing.T) {
	x, err := newExtractor()
	require.NoError(t, err)

	content := "s.a = 1 # comment\n" +
		"s.b = [\n  'x',\n  'y'\n]\n" +
		"s.c = 'q' \\\n  + 'r'\n" +
		"s.d = <<~TEXT\n  body # not a comment\nTEXT\n"

	assert.Equal(t, []string{
		"s.a = 1",
		"s.b = [ 'x', 'y' ]",
		"s.c = 'q'  + 'r'",
		"s.d = '  body # not a comment'",
	}, x.logicalLines(content))
}
