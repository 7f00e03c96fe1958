package domain

import "path/filepath"

// Options is the recognized configuration surface.
type Options struct {
	// Root is the absolute project root directory.
	Root string

	// Destination is the output directory for compiled assets, relative to
	// Root unless absolute.
	Destination string

	// Paths are the base search-path directories for local/component
	// specifiers, relative to Root unless absolute.
	Paths []string

	// Entries are the entry packages to bundle. Empty means every dependency
	// declared by the root manifest.
	Entries []string

	// CacheExceptions lists package names that always recompile; "*" disables
	// caching entirely.
	CacheExceptions []string

	// CachePersist keeps the cache directory across restarts instead of
	// clearing it on startup.
	CachePersist bool

	// MapOverride is the path to a prebuilt dependency map to serve instead of
	// walking the package tree.
	MapOverride string

	// ServeOriginals serves original (unbundled) sources for debugging.
	ServeOriginals bool

	// IncludeSelf exposes the host project's own package as a servable module.
	IncludeSelf bool

	// Loader carries configuration overrides passed to the client runtime.
	Loader map[string]any
}

// AbsDestination returns the output directory as an absolute path.
func (o *Options) AbsDestination() string {
	return o.abs(o.Destination, DefaultCachePath())
}

// AbsPaths returns the base search paths as absolute paths.
func (o *Options) AbsPaths() []string {
	paths := make([]string, 0, len(o.Paths))
	for _, p := range o.Paths {
		paths = append(paths, o.abs(p, p))
	}
	return paths
}

func (o *Options) abs(p, fallback string) string {
	if p == "" {
		p = fallback
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(o.Root, p)
}
