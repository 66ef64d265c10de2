package dependency

import (
	"path/filepath"

	"manifestscan/internal/evidence"
)

// Artifact is one discovered manifest under analysis. It is bound to a single
// file, handed to exactly one analyzer and never reused.
type Artifact struct {
	Path     string
	Evidence *evidence.Store
	License  string

	// Identity is nil until an analyzer finishes successfully.
	Identity *Identity
}

// NewArtifact binds a fresh artifact to path.
func NewArtifact(path string) *Artifact {
	return &Artifact{
		Path:     path,
		Evidence: evidence.NewStore(),
	}
}

// FileName returns the base name of the backing file.
func (a *Artifact) FileName() string {
	return filepath.Base(a.Path)
}

// SetLicense records the declared license. The first non-empty declaration
// wins; later calls report false and leave it unchanged.
func (a *Artifact) SetLicense(license string) bool {
	license = evidence.Normalize(license)
	if license == "" || a.License != "" {
		return false
	}
	a.License = license
	return true
}

// Analyzed reports whether an identity has been attached.
func (a *Artifact) Analyzed() bool {
	return a.Identity != nil
}
