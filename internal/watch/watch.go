// Package watch re-analyzes manifests as they change on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"manifestscan/internal/analyzer"
	"manifestscan/internal/scan"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits after the last relevant
// event before analyzing the batch.
const DefaultDebounce = 300 * time.Millisecond

// Config configures a Watcher.
type Config struct {
	Root        string
	Scanner     *scan.Scanner
	Registry    *analyzer.Registry
	SkipDirs    []string
	MaxFileSize int64
	Debounce    time.Duration
	// OnRun receives every finished batch.
	OnRun  func(*scan.Run)
	Logger *slog.Logger
}

// Watcher watches a tree and feeds changed manifests to a scanner. Batches
// are analyzed one at a time on the Run goroutine.
type Watcher struct {
	cfg     Config
	skip    map[string]bool
	fs      *fsnotify.Watcher
	logger  *slog.Logger
	pending map[string]bool
}

// New starts watching cfg.Root and every directory below it.
func New(cfg Config) (*Watcher, error) {
	if cfg.Scanner == nil || cfg.Registry == nil {
		return nil, errors.New("watch: scanner and registry are required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		cfg:     cfg,
		skip:    make(map[string]bool, len(cfg.SkipDirs)),
		fs:      fw,
		logger:  logger,
		pending: make(map[string]bool),
	}
	for _, d := range cfg.SkipDirs {
		w.skip[d] = true
	}

	if err := w.addTree(cfg.Root, nil); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", cfg.Root, err)
	}
	return w, nil
}

// addTree watches root and its subdirectories. Accepted manifests already
// present are passed to found.
func (w *Watcher) addTree(root string, found func(string)) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && w.skip[d.Name()] {
				return filepath.SkipDir
			}
			return w.fs.Add(path)
		}
		if found != nil && w.cfg.Registry.Accepts(path) {
			found(path)
		}
		return nil
	})
}

// Run processes events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(w.cfg.Debounce)
		} else {
			timer.Reset(w.cfg.Debounce)
		}
		fire = timer.C
	}

	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if w.handle(event) {
				schedule()
			}

		case <-fire:
			fire = nil
			w.flush(ctx)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", "error", err)

		case <-ctx.Done():
			return nil
		}
	}
}

// handle records the event and reports whether a batch is now pending.
func (w *Watcher) handle(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return false
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if w.skip[filepath.Base(event.Name)] {
				return false
			}
			before := len(w.pending)
			if err := w.addTree(event.Name, func(p string) { w.pending[p] = true }); err != nil {
				w.logger.Debug("Failed to watch new directory", "path", event.Name, "error", err)
			}
			return len(w.pending) > before
		}
	}

	if !w.cfg.Registry.Accepts(event.Name) {
		return false
	}
	w.pending[event.Name] = true
	return true
}

func (w *Watcher) flush(ctx context.Context) {
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		delete(w.pending, p)
		info, err := os.Stat(p)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if w.cfg.MaxFileSize > 0 && info.Size() > w.cfg.MaxFileSize {
			w.logger.Info("Skipping oversized manifest", "path", p, "size", info.Size())
			continue
		}
		paths = append(paths, p)
	}
	if len(paths) == 0 {
		return
	}
	sort.Strings(paths)

	w.logger.Debug("Analyzing changed manifests", "count", len(paths))
	run, err := w.cfg.Scanner.Analyze(ctx, w.cfg.Root, scan.Candidates(w.cfg.Registry, paths...))
	if err != nil {
		w.logger.Warn("Watch batch incomplete", "error", err)
	}
	if run != nil && w.cfg.OnRun != nil {
		w.cfg.OnRun(run)
	}
}

// Close stops watching. A blocked Run returns.
func (w *Watcher) Close() error {
	return w.fs.Close()
}
