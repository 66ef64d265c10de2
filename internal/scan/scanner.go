// Package scan runs the registered analyzers over a tree of manifests.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"manifestscan/internal/analyzer"
	"manifestscan/internal/db"
	"manifestscan/internal/dependency"
	"manifestscan/internal/runner"
	"time"

	"github.com/google/uuid"
)

// Observer receives per-artifact outcomes. *metrics.Metrics satisfies it.
type Observer interface {
	ObserveAnalysis(analyzerName string, a *dependency.Artifact, err error, d time.Duration)
	ScanStarted()
	ScanFinished()
}

// Result is the outcome of one analyzer on one artifact.
type Result struct {
	RunID     string
	Analyzer  string
	Ecosystem string
	Artifact  *dependency.Artifact
	Err       error
	Duration  time.Duration
}

// Failed reports whether analysis returned an error.
func (r Result) Failed() bool {
	return r.Err != nil
}

// Run is one scan. Results are in discovery order.
type Run struct {
	ID         string
	Root       string
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []Result
}

// Failed counts results with an error.
func (r *Run) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Failed() {
			n++
		}
	}
	return n
}

// Succeeded counts results with an identity.
func (r *Run) Succeeded() int {
	return len(r.Results) - r.Failed()
}

// Record converts the run header for storage.
func (r *Run) Record() db.Run {
	return db.Run{
		ID:         r.ID,
		Root:       r.Root,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Total:      len(r.Results),
		Failed:     r.Failed(),
	}
}

// Scanner prepares a registry and fans artifacts out to a worker pool.
type Scanner struct {
	registry *analyzer.Registry
	workers  int
	observer Observer
	store    db.Store
	logger   *slog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithWorkers sets the pool size.
func WithWorkers(n int) Option {
	return func(s *Scanner) { s.workers = n }
}

// WithObserver reports every analysis to o.
func WithObserver(o Observer) Option {
	return func(s *Scanner) { s.observer = o }
}

// WithStore persists each finished run and its results.
func WithStore(store db.Store) Option {
	return func(s *Scanner) { s.store = store }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Scanner) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns a Scanner over reg.
func New(reg *analyzer.Registry, opts ...Option) *Scanner {
	s := &Scanner{
		registry: reg,
		workers:  4,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan discovers manifests under root and analyzes them.
func (s *Scanner) Scan(ctx context.Context, root string, opts Options) (*Run, error) {
	if opts.Logger == nil {
		opts.Logger = s.logger
	}
	candidates, err := Discover(root, s.registry, opts)
	if err != nil {
		return nil, err
	}
	return s.Analyze(ctx, root, candidates)
}

// Analyze runs every candidate through its analyzer. A failing artifact
// never affects the others. When ctx is cancelled no further artifacts are
// started; the returned run holds what finished and the error is ctx.Err().
func (s *Scanner) Analyze(ctx context.Context, root string, candidates []Candidate) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		Root:      root,
		StartedAt: time.Now().UTC(),
	}
	logger := s.logger.With("run_id", run.ID)

	if s.observer != nil {
		s.observer.ScanStarted()
		defer s.observer.ScanFinished()
	}

	if err := s.registry.PrepareAll(); err != nil {
		return nil, fmt.Errorf("failed to prepare analyzers: %w", err)
	}
	defer func() {
		if err := s.registry.CloseAll(); err != nil {
			logger.Warn("Failed to close analyzers", "error", err)
		}
	}()

	pool := runner.NewWorkerPool(s.workers)
	pool.SetLogger(logger)
	pool.Start()
	defer pool.Stop()

	results := make([]Result, len(candidates))
	submitted := 0
	for i, c := range candidates {
		if ctx.Err() != nil {
			break
		}
		pool.Submit(func(int) error {
			results[i] = s.analyze(run.ID, c)
			return results[i].Err
		})
		submitted++
	}
	pool.Wait()

	run.Results = results[:submitted]
	run.FinishedAt = time.Now().UTC()
	logger.Info("Scan finished", "root", root, "artifacts", len(run.Results), "failed", run.Failed())

	var errs []error
	if s.store != nil {
		if err := s.persist(run); err != nil {
			errs = append(errs, err)
		}
	}
	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return run, errors.Join(errs...)
}

func (s *Scanner) analyze(runID string, c Candidate) (res Result) {
	artifact := dependency.NewArtifact(c.Path)
	res = Result{
		RunID:     runID,
		Analyzer:  c.Analyzer.Name(),
		Ecosystem: c.Analyzer.Ecosystem(),
		Artifact:  artifact,
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res.Err = &analyzer.AnalysisError{
				Op:       "analyze",
				Analyzer: res.Analyzer,
				Path:     c.Path,
				Kind:     analyzer.KindUnknown,
				Err:      fmt.Errorf("panic: %v", r),
			}
		}
		res.Duration = time.Since(start)
		if s.observer != nil {
			s.observer.ObserveAnalysis(res.Analyzer, artifact, res.Err, res.Duration)
		}
		if res.Err != nil {
			s.logger.Warn("Analysis failed", "run_id", runID, "analyzer", res.Analyzer, "path", c.Path, "error", res.Err)
		}
	}()

	_, res.Err = c.Analyzer.Analyze(artifact)
	return res
}

func (s *Scanner) persist(run *Run) error {
	if err := s.store.SaveRun(run.Record()); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	for _, res := range run.Results {
		if err := s.store.SaveResult(db.NewResult(run.ID, res.Analyzer, res.Ecosystem, res.Artifact, res.Err)); err != nil {
			return fmt.Errorf("failed to save result for %s: %w", res.Artifact.Path, err)
		}
	}
	return nil
}
