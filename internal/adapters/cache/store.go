// Package cache implements the content-addressable store for compiled output.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	bfs "go.trai.ch/bindle/internal/adapters/fs"
	"go.trai.ch/bindle/internal/core/domain"
	"go.trai.ch/bindle/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/singleflight"
)

var _ ports.ContentCache = (*Store)(nil)

// indexFileName is the persisted cache index inside the destination directory.
const indexFileName = ".index.json"

// memoryEntries bounds the in-memory read-through layer.
const memoryEntries = 256

// entry is one indexed cache record. An entry exists only after its output
// file was written completely, so a failed compile is never visible here.
type entry struct {
	Hash    string    `json:"hash"`
	Path    string    `json:"path"`
	ModTime time.Time `json:"mtime"`
}

// Store is a content-addressable cache keyed by (id, hash of source content).
// Identical source always yields an identical key, so edits invalidate
// automatically without modification-time comparison.
type Store struct {
	dest       string
	persist    bool
	cacheAll   bool
	exceptions map[string]bool
	hasher     *bfs.Hasher

	mu     sync.RWMutex
	index  map[string]entry
	group  singleflight.Group
	memory *lru.Cache[string, []byte]
}

// NewStore creates a cache writing to dest. Exceptions are package names that
// always recompile; the single entry "*" disables caching entirely. With
// persist the on-disk index survives restarts, otherwise the destination is
// cleared on startup.
func NewStore(dest string, exceptions []string, persist bool, hasher *bfs.Hasher) (*Store, error) {
	s := &Store{
		dest:       filepath.Clean(dest),
		persist:    persist,
		cacheAll:   true,
		exceptions: make(map[string]bool),
		hasher:     hasher,
		index:      make(map[string]entry),
	}
	for _, name := range exceptions {
		if name == "*" {
			s.cacheAll = false
			continue
		}
		s.exceptions[name] = true
	}

	memory, err := lru.New[string, []byte](memoryEntries)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to create memory cache")
	}
	s.memory = memory

	if persist {
		if err := s.loadIndex(); err != nil {
			return nil, err
		}
	} else if err := s.RemoveAll(); err != nil {
		return nil, err
	}

	return s, nil
}

// Dest returns the destination directory.
func (s *Store) Dest() string {
	return s.dest
}

// GetOrCompile returns cached output for (id, source) or compiles it. At most
// one compilation per (id, hash) is in flight at a time; concurrent callers
// for the same key wait on that one result instead of repeating the work.
func (s *Store) GetOrCompile(ctx context.Context, id string, source []byte, compile ports.CompileFunc) ([]byte, error) {
	if !s.cacheable(id) {
		return compile(ctx)
	}

	hash := s.hasher.Sum(source)
	key := id + "@" + hash

	if content, ok := s.lookup(id, hash, key); ok {
		return content, nil
	}

	result, err, _ := s.group.Do(key, func() (any, error) {
		// A caller that lost the race may have populated the entry already.
		if content, ok := s.lookup(id, hash, key); ok {
			return content, nil
		}
		content, err := compile(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.write(id, hash, content); err != nil {
			return nil, err
		}
		s.memory.Add(key, content)
		return content, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil //nolint:forcetypeassert // Group values are always []byte
}

// Precompile schedules a cache entry ahead of request time.
func (s *Store) Precompile(ctx context.Context, id string, source []byte, compile ports.CompileFunc) {
	go func() {
		_, _ = s.GetOrCompile(ctx, id, source, compile)
	}()
}

// Read returns the cached compiled content for (id, source), if any.
func (s *Store) Read(id string, source []byte) ([]byte, bool) {
	if !s.cacheable(id) {
		return nil, false
	}
	hash := s.hasher.Sum(source)
	return s.lookup(id, hash, id+"@"+hash)
}

// Write stores compiled output for (id, source).
func (s *Store) Write(id string, source, compiled []byte) error {
	return s.write(id, s.hasher.Sum(source), compiled)
}

// WriteFile stores a side artifact under the destination without indexing it.
func (s *Store) WriteFile(name string, content []byte) error {
	path := filepath.Join(s.dest, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), domain.DirPerm); err != nil {
		return domain.Mark(domain.ErrCacheWriteFailed, err)
	}
	//nolint:gosec // Path is under the cache destination
	if err := os.WriteFile(path, content, domain.FilePerm); err != nil {
		return domain.Mark(domain.ErrCacheWriteFailed, err)
	}
	return nil
}

// ReadFile returns a side artifact previously stored with WriteFile.
func (s *Store) ReadFile(name string) ([]byte, bool) {
	path := filepath.Join(s.dest, filepath.FromSlash(name))
	//nolint:gosec // Path is under the cache destination
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return data, true
}

// ModTime returns when the entry for id was last written.
func (s *Store) ModTime(id string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.index[id]
	if !ok {
		return time.Time{}, false
	}
	return e.ModTime, true
}

// RemoveAll clears the destination directory and every in-memory entry.
func (s *Store) RemoveAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.RemoveAll(s.dest); err != nil {
		return zerr.Wrap(err, "failed to clear cache destination")
	}
	if err := os.MkdirAll(s.dest, domain.DirPerm); err != nil {
		return zerr.Wrap(err, "failed to recreate cache destination")
	}
	s.index = make(map[string]entry)
	s.memory.Purge()
	return nil
}

// lookup checks the memory layer first, then the index plus disk.
func (s *Store) lookup(id, hash, key string) ([]byte, bool) {
	if content, ok := s.memory.Get(key); ok {
		return content, true
	}

	s.mu.RLock()
	e, ok := s.index[id]
	s.mu.RUnlock()
	if !ok || e.Hash != hash {
		return nil, false
	}

	//nolint:gosec // Path is under the cache destination
	content, err := os.ReadFile(e.Path)
	if err != nil {
		return nil, false
	}
	s.memory.Add(key, content)
	return content, true
}

// write stores the output file and only then links it into the index.
func (s *Store) write(id, hash string, compiled []byte) error {
	path := filepath.Join(s.dest, filepath.FromSlash(id))
	if err := os.MkdirAll(filepath.Dir(path), domain.DirPerm); err != nil {
		return domain.Mark(domain.ErrCacheWriteFailed, err)
	}
	//nolint:gosec // Path is under the cache destination
	if err := os.WriteFile(path, compiled, domain.FilePerm); err != nil {
		return domain.Mark(domain.ErrCacheWriteFailed, err)
	}

	s.mu.Lock()
	s.index[id] = entry{Hash: hash, Path: path, ModTime: time.Now().UTC()}
	s.mu.Unlock()

	if s.persist {
		return s.saveIndex()
	}
	return nil
}

// cacheable reports whether the package owning id participates in caching.
func (s *Store) cacheable(id string) bool {
	if !s.cacheAll {
		return false
	}
	return !s.exceptions[packageName(id)]
}

// packageName extracts the owning package from an asset id, honoring scopes.
func packageName(id string) string {
	segments := strings.SplitN(strings.TrimPrefix(id, "/"), "/", 3)
	if strings.HasPrefix(segments[0], "@") && len(segments) > 1 {
		return segments[0] + "/" + segments[1]
	}
	return segments[0]
}

func (s *Store) loadIndex() error {
	//nolint:gosec // Path is under the cache destination
	data, err := os.ReadFile(filepath.Join(s.dest, indexFileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return domain.Mark(domain.ErrCacheReadFailed, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := json.Unmarshal(data, &s.index); err != nil {
		return domain.Mark(domain.ErrCacheReadFailed, err)
	}
	return nil
}

func (s *Store) saveIndex() error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.index, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return domain.Mark(domain.ErrCacheWriteFailed, err)
	}
	return s.WriteFile(indexFileName, data)
}
