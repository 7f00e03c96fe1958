package ports

import (
	"context"
	"time"
)

// CompileFunc produces compiled output for a module. It is invoked at most
// once per (id, content hash) across concurrent callers.
type CompileFunc func(ctx context.Context) ([]byte, error)

// ContentCache is a content-addressable store of compiled output. The key is
// (id, hash of source content), so source edits invalidate automatically;
// modification times are kept only for HTTP caching headers.
type ContentCache interface {
	// GetOrCompile returns the cached compiled content for (id, source), or
	// runs compile and stores its result. Concurrent first-time callers for
	// the same (id, hash) coalesce into one compilation; later callers wait on
	// the in-flight result. Packages excluded from caching always recompile.
	GetOrCompile(ctx context.Context, id string, source []byte, compile CompileFunc) ([]byte, error)

	// Precompile schedules a cache entry for a module ahead of request time.
	// It returns immediately; the compilation happens asynchronously and
	// coalesces with any request-driven compile of the same (id, hash).
	Precompile(ctx context.Context, id string, source []byte, compile CompileFunc)

	// Read returns the cached compiled content for (id, source) if present and
	// keyed by the same content hash.
	Read(id string, source []byte) ([]byte, bool)

	// Write stores compiled output for (id, source).
	Write(id string, source, compiled []byte) error

	// WriteFile stores a side artifact (e.g. a source map) under the cache
	// destination without indexing it.
	WriteFile(name string, content []byte) error

	// ReadFile returns a side artifact previously stored with WriteFile.
	ReadFile(name string) ([]byte, bool)

	// ModTime returns when the entry for id was last written.
	ModTime(id string) (time.Time, bool)

	// RemoveAll clears the destination directory and the in-memory index.
	RemoveAll() error
}
