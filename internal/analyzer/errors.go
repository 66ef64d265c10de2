package analyzer

import (
	"errors"
	"fmt"
)

// Kind classifies why an artifact could not be analyzed.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindIO
	KindEncoding
	KindLifecycle
	KindInput
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindEncoding:
		return "encoding"
	case KindLifecycle:
		return "lifecycle"
	case KindInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

var (
	// ErrNotPrepared is returned when Analyze runs before Prepare.
	ErrNotPrepared = errors.New("analyzer not prepared")

	// ErrClosed is returned when Analyze runs after Close.
	ErrClosed = errors.New("analyzer closed")

	// ErrInvalidUTF8 is returned for manifests that are not valid text.
	ErrInvalidUTF8 = errors.New("manifest is not valid UTF-8")
)

// AnalysisError is the failure of a single artifact. It never describes
// more than one file.
type AnalysisError struct {
	Op       string
	Analyzer string
	Path     string
	Kind     Kind
	Err      error
}

// Error implements the error interface.
func (e *AnalysisError) Error() string {
	msg := fmt.Sprintf("%s: could not analyze %s", e.Op, e.Path)
	if e.Analyzer != "" {
		msg = fmt.Sprintf("%s: %s could not analyze %s", e.Op, e.Analyzer, e.Path)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", msg, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s (%s)", msg, e.Kind)
}

// Unwrap returns the underlying cause.
func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// GetKind returns the Kind of err, or KindUnknown if it is not an AnalysisError.
func GetKind(err error) Kind {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

// IsIO reports whether err is an artifact read failure.
func IsIO(err error) bool {
	return GetKind(err) == KindIO
}

// IsEncoding reports whether err is a manifest decoding failure.
func IsEncoding(err error) bool {
	return GetKind(err) == KindEncoding
}
