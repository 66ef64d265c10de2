// Package analyzer defines the analyzer contract and the driver that turns a
// manifest file into evidence and an identity.
package analyzer

import (
	"errors"
	"log/slog"
	"manifestscan/internal/dependency"
	"manifestscan/internal/evidence"
	"sync"
)

// Analyzer inspects one kind of manifest.
type Analyzer interface {
	// Name is constant per analyzer type.
	Name() string
	// Ecosystem is the tag attached to every identity this analyzer builds.
	Ecosystem() string
	// Accept decides from the path alone. It never opens the file.
	Accept(path string) bool
	Prepare() error
	Analyze(a *dependency.Artifact) (*dependency.Identity, error)
	Close() error
}

// Extractor is the format-specific grammar. It records facts into the
// artifact's evidence store and may set its license. Unparseable fragments
// are skipped, never reported as errors.
type Extractor interface {
	Extract(content []byte, a *dependency.Artifact, logger *slog.Logger)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(content []byte, a *dependency.Artifact, logger *slog.Logger)

// Extract calls f.
func (f ExtractorFunc) Extract(content []byte, a *dependency.Artifact, logger *slog.Logger) {
	f(content, a, logger)
}

// Options configures a Driver.
type Options struct {
	Name      string
	Ecosystem string
	Accept    func(path string) bool

	// NewExtractor is called by Prepare. Compiled patterns and other
	// read-only tables are built here so every Analyze shares them.
	NewExtractor func() (Extractor, error)

	Logger *slog.Logger
}

// Driver implements Analyzer for any Extractor.
type Driver struct {
	name      string
	ecosystem string
	accept    func(string) bool
	factory   func() (Extractor, error)
	logger    *slog.Logger

	mu        sync.RWMutex
	extractor Extractor
	closed    bool
}

// NewDriver builds a Driver. Name, Ecosystem, Accept and NewExtractor are
// required; it panics when one is missing since that is a programming error.
func NewDriver(opts Options) *Driver {
	if opts.Name == "" || opts.Ecosystem == "" || opts.Accept == nil || opts.NewExtractor == nil {
		panic("analyzer: NewDriver requires Name, Ecosystem, Accept and NewExtractor")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		name:      opts.Name,
		ecosystem: opts.Ecosystem,
		accept:    opts.Accept,
		factory:   opts.NewExtractor,
		logger:    logger.With("analyzer", opts.Name),
	}
}

func (d *Driver) Name() string      { return d.name }
func (d *Driver) Ecosystem() string { return d.ecosystem }

func (d *Driver) Accept(path string) bool {
	return d.accept(path)
}

// Prepare builds the extractor. Calling it again on a prepared driver is a
// no-op; calling it after Close makes the driver usable again.
func (d *Driver) Prepare() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.extractor != nil && !d.closed {
		return nil
	}
	ex, err := d.factory()
	if err != nil {
		return &AnalysisError{Op: "analyzer.Prepare", Analyzer: d.name, Kind: KindLifecycle, Err: err}
	}
	d.extractor = ex
	d.closed = false
	return nil
}

// Analyze reads the artifact's file, extracts evidence, resolves it and
// attaches the resulting identity. On error the artifact carries no identity.
func (d *Driver) Analyze(a *dependency.Artifact) (*dependency.Identity, error) {
	if a == nil || a.Path == "" {
		return nil, &AnalysisError{Op: "analyzer.Analyze", Analyzer: d.name, Kind: KindInput, Err: errors.New("artifact has no path")}
	}

	d.mu.RLock()
	ex, closed := d.extractor, d.closed
	d.mu.RUnlock()

	if closed {
		return nil, &AnalysisError{Op: "analyzer.Analyze", Analyzer: d.name, Path: a.Path, Kind: KindLifecycle, Err: ErrClosed}
	}
	if ex == nil {
		return nil, &AnalysisError{Op: "analyzer.Analyze", Analyzer: d.name, Path: a.Path, Kind: KindLifecycle, Err: ErrNotPrepared}
	}

	content, err := ReadManifest(a.Path)
	if err != nil {
		var ae *AnalysisError
		if errors.As(err, &ae) {
			ae.Op = "analyzer.Analyze"
			ae.Analyzer = d.name
		}
		return nil, err
	}

	if a.Evidence == nil {
		a.Evidence = evidence.NewStore()
	}
	ex.Extract(content, a, d.logger.With("path", a.Path))

	id := dependency.BuildIdentity(evidence.Resolve(a.Evidence), d.ecosystem, a.License)
	a.Identity = &id

	d.logger.Debug("Artifact analyzed",
		"path", a.Path,
		"display_label", id.DisplayLabel,
		"facts", a.Evidence.Total())
	return &id, nil
}

// Close releases the extractor. It is idempotent.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.extractor = nil
	d.closed = true
	return nil
}
