package dependency

import "manifestscan/internal/evidence"

// Identity is the canonical key a downstream matcher looks a component up by.
type Identity struct {
	Name         string `json:"name"`
	Version      string `json:"version,omitempty"` // empty means the manifest declared none
	DisplayLabel string `json:"display_label"`
	Ecosystem    string `json:"ecosystem"`
	License      string `json:"license,omitempty"`
}

// HasVersion reports whether a version was resolved.
func (i Identity) HasVersion() bool {
	return i.Version != ""
}

// BuildIdentity combines resolved evidence with the analyzer's ecosystem tag.
// It never fails; an empty store yields an identity with an empty name.
func BuildIdentity(r evidence.Resolved, ecosystem, license string) Identity {
	name, _ := r.Value(evidence.Product)
	version, _ := r.Value(evidence.Version)

	return Identity{
		Name:         name,
		Version:      version,
		DisplayLabel: DisplayLabel(name, version),
		Ecosystem:    ecosystem,
		License:      license,
	}
}

// DisplayLabel renders "name:version", or just name when there is no version.
func DisplayLabel(name, version string) string {
	if version == "" {
		return name
	}
	return name + ":" + version
}
