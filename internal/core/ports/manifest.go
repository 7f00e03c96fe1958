package ports

import "go.trai.ch/bindle/internal/core/domain"

// ManifestLoader reads and parses a package manifest from a directory.
type ManifestLoader interface {
	// Load reads the manifest in dir. A missing or unparsable manifest is
	// domain.ErrManifest.
	Load(dir string) (*domain.Manifest, error)
}
