package analyzer

import (
	"errors"
	"fmt"
)

// Registry is a fixed, ordered list of analyzers. Order is registration
// order and is the order results are reported in.
type Registry struct {
	analyzers []Analyzer
	byName    map[string]Analyzer
}

// NewRegistry panics on duplicate analyzer names.
func NewRegistry(analyzers ...Analyzer) *Registry {
	r := &Registry{byName: make(map[string]Analyzer, len(analyzers))}
	for _, a := range analyzers {
		if _, dup := r.byName[a.Name()]; dup {
			panic(fmt.Sprintf("analyzer: duplicate registration of %q", a.Name()))
		}
		r.byName[a.Name()] = a
		r.analyzers = append(r.analyzers, a)
	}
	return r
}

// Analyzers returns the registered analyzers in order.
func (r *Registry) Analyzers() []Analyzer {
	out := make([]Analyzer, len(r.analyzers))
	copy(out, r.analyzers)
	return out
}

func (r *Registry) Lookup(name string) (Analyzer, bool) {
	a, ok := r.byName[name]
	return a, ok
}

// For returns every analyzer that accepts path.
func (r *Registry) For(path string) []Analyzer {
	var out []Analyzer
	for _, a := range r.analyzers {
		if a.Accept(path) {
			out = append(out, a)
		}
	}
	return out
}

// Accepts reports whether any analyzer accepts path.
func (r *Registry) Accepts(path string) bool {
	for _, a := range r.analyzers {
		if a.Accept(path) {
			return true
		}
	}
	return false
}

// PrepareAll prepares every analyzer. If one fails, those already prepared
// are closed again.
func (r *Registry) PrepareAll() error {
	for i, a := range r.analyzers {
		if err := a.Prepare(); err != nil {
			for _, prepared := range r.analyzers[:i] {
				_ = prepared.Close()
			}
			return fmt.Errorf("prepare %s: %w", a.Name(), err)
		}
	}
	return nil
}

// CloseAll closes every analyzer and joins their errors.
func (r *Registry) CloseAll() error {
	var errs []error
	for _, a := range r.analyzers {
		if err := a.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", a.Name(), err))
		}
	}
	return errors.Join(errs...)
}
