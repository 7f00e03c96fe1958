// Package manifest implements package manifest loading.
package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"

	"go.trai.ch/bindle/internal/core/domain"
	"go.trai.ch/bindle/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.ManifestLoader = (*Loader)(nil)

// Loader reads package.json manifests from disk.
type Loader struct{}

// NewLoader creates a new manifest Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads the manifest in dir. Missing and unparsable manifests are both
// domain.ErrManifest: either way the package's subtree cannot be built.
func (l *Loader) Load(dir string) (*domain.Manifest, error) {
	path := filepath.Join(dir, domain.ManifestFileName)
	//nolint:gosec // Path is derived from a resolved package directory
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, zerr.With(domain.Mark(domain.ErrManifest, err), "path", path)
	}

	var m domain.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, zerr.With(domain.Mark(domain.ErrManifest, err), "path", path)
	}

	return &m, nil
}
