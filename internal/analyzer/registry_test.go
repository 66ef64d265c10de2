package analyzer

import (
	"errors"
	"path/filepath"
	"testing"

	"manifestscan/internal/dependency"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAnalyzer struct {
	name       string
	suffix     string
	prepareErr error
	closeErr   error
	prepared   bool
	closed     int
}

func (s *stubAnalyzer) Name() string      { return s.name }
func (s *stubAnalyzer) Ecosystem() string { return "stub" }
func (s *stubAnalyzer) Accept(path string) bool {
	return filepath.Ext(path) == s.suffix
}
func (s *stubAnalyzer) Prepare() error {
	if s.prepareErr != nil {
		return s.prepareErr
	}
	s.prepared = true
	return nil
}
func (s *stubAnalyzer) Analyze(*dependency.Artifact) (*dependency.Identity, error) {
	return &dependency.Identity{}, nil
}
func (s *stubAnalyzer) Close() error {
	s.closed++
	s.prepared = false
	return s.closeErr
}

func TestRegistry_For(t *testing.T) {
	a := &stubAnalyzer{name: "a", suffix: ".podspec"}
	b := &stubAnalyzer{name: "b", suffix: ".json"}
	c := &stubAnalyzer{name: "c", suffix: ".podspec"}
	r := NewRegistry(a, b, c)

	got := r.For("/x/Foo.podspec")
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Name())
	assert.Equal(t, "c", got[1].Name())

	assert.Empty(t, r.For("/x/README.md"))
	assert.True(t, r.Accepts("/x/package.json"))
	assert.False(t, r.Accepts("/x/README.md"))
}

func TestRegistry_Lookup(t *testing.T) {
	r := NewRegistry(&stubAnalyzer{name: "a"})

	got, ok := r.Lookup("a")
	assert.True(t, ok)
	assert.Equal(t, "a", got.Name())

	_, ok = r.Lookup("missing")
	assert.False(t, ok)
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	assert.Panics(t, func() {
		NewRegistry(&stubAnalyzer{name: "a"}, &stubAnalyzer{name: "a"})
	})
}

func TestRegistry_AnalyzersIsCopy(t *testing.T) {
	r := NewRegistry(&stubAnalyzer{name: "a"}, &stubAnalyzer{name: "b"})
	list := r.Analyzers()
	list[0] = nil

	assert.Equal(t, "a", r.Analyzers()[0].Name())
}

func TestRegistry_PrepareAllRollsBack(t *testing.T) {
	a := &stubAnalyzer{name: "a"}
	b := &stubAnalyzer{name: "b", prepareErr: errors.New("boom")}
	c := &stubAnalyzer{name: "c"}
	r := NewRegistry(a, b, c)

	err := r.PrepareAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prepare b")
	assert.False(t, a.prepared)
	assert.Equal(t, 1, a.closed)
	assert.False(t, c.prepared)
}

func TestRegistry_CloseAllJoinsErrors(t *testing.T) {
	a := &stubAnalyzer{name: "a", closeErr: errors.New("first")}
	b := &stubAnalyzer{name: "b"}
	c := &stubAnalyzer{name: "c", closeErr: errors.New("second")}
	r := NewRegistry(a, b, c)

	err := r.CloseAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first")
	assert.Contains(t, err.Error(), "second")
	assert.Equal(t, 1, b.closed)
}
