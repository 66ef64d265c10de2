package db

import (
	"encoding/json"
	"errors"
	"fmt"
	"manifestscan/internal/dependency"
	"manifestscan/internal/evidence"
	"time"
)

// ErrNotFound is returned when a run id does not exist.
var ErrNotFound = errors.New("not found")

// Run is one persisted scan.
type Run struct {
	ID         string    `json:"id"`
	Root       string    `json:"root"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Total      int       `json:"total"`
	Failed     int       `json:"failed"`
}

// Result is the outcome of analyzing one artifact within a run.
type Result struct {
	ID           int64                             `json:"id"`
	RunID        string                            `json:"run_id"`
	Path         string                            `json:"path"`
	Analyzer     string                            `json:"analyzer"`
	Ecosystem    string                            `json:"ecosystem"`
	Name         string                            `json:"name"`
	Version      string                            `json:"version,omitempty"`
	DisplayLabel string                            `json:"display_label"`
	License      string                            `json:"license,omitempty"`
	Evidence     map[evidence.Type][]evidence.Fact `json:"evidence,omitempty"`
	Error        string                            `json:"error,omitempty"`
	CreatedAt    time.Time                         `json:"created_at"`
}

// Failed reports whether the artifact could not be analyzed.
func (r Result) Failed() bool {
	return r.Error != ""
}

// NewResult flattens an analyzed artifact into a storable record.
func NewResult(runID, analyzerName, ecosystem string, a *dependency.Artifact, err error) Result {
	r := Result{
		RunID:     runID,
		Analyzer:  analyzerName,
		Ecosystem: ecosystem,
		CreatedAt: time.Now().UTC(),
	}
	if a != nil {
		r.Path = a.Path
		r.License = a.License
		if a.Evidence != nil && a.Evidence.Total() > 0 {
			r.Evidence = a.Evidence.All()
		}
		if id := a.Identity; id != nil {
			r.Name = id.Name
			r.Version = id.Version
			r.DisplayLabel = id.DisplayLabel
			r.Ecosystem = id.Ecosystem
		}
	}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// Store interface defines the methods for persistent storage
type Store interface {
	Close() error
	SaveRun(run Run) error
	SaveResult(result Result) error
	GetRun(id string) (Run, error)
	ListRuns(limit int) ([]Run, error)
	ListResults(runID string) ([]Result, error)
}

func encodeEvidence(ev map[evidence.Type][]evidence.Fact) (string, error) {
	if len(ev) == 0 {
		return "", nil
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("failed to encode evidence: %w", err)
	}
	return string(b), nil
}

func decodeEvidence(s string) (map[evidence.Type][]evidence.Fact, error) {
	if s == "" {
		return nil, nil
	}
	var ev map[evidence.Type][]evidence.Fact
	if err := json.Unmarshal([]byte(s), &ev); err != nil {
		return nil, fmt.Errorf("failed to decode evidence: %w", err)
	}
	return ev, nil
}
