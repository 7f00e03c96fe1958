// Package app implements the application layer for bindle.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.trai.ch/bindle/internal/adapters/fs"
	"go.trai.ch/bindle/internal/adapters/watcher"
	"go.trai.ch/bindle/internal/core/domain"
	"go.trai.ch/bindle/internal/core/ports"
	"go.trai.ch/bindle/internal/engine/builder"
	"go.trai.ch/bindle/internal/engine/compile"
	"go.trai.ch/zerr"
	"golang.org/x/sync/singleflight"
)

var tracer = otel.Tracer("bindle/app")

// App orchestrates the bundler: it owns the current build generation and
// serves assets from it. One generation is one immutable dependency map; file
// changes invalidate the generation as a whole and the next request rebuilds
// it.
type App struct {
	opts     *domain.Options
	builder  *builder.Builder
	compiler *compile.Compiler
	cache    ports.ContentCache
	locator  *fs.Locator
	hasher   *fs.Hasher
	watch    ports.Watcher
	logger   ports.Logger

	mu      sync.RWMutex
	gen     *builder.Result
	genTime time.Time
	group   singleflight.Group
}

// New creates a new App instance.
func New(
	opts *domain.Options,
	b *builder.Builder,
	compiler *compile.Compiler,
	cache ports.ContentCache,
	locator *fs.Locator,
	hasher *fs.Hasher,
	watch ports.Watcher,
	logger ports.Logger,
) *App {
	return &App{
		opts:     opts,
		builder:  b,
		compiler: compiler,
		cache:    cache,
		locator:  locator,
		hasher:   hasher,
		watch:    watch,
		logger:   logger,
	}
}

// Map returns the current build generation, building it on first use.
// Concurrent callers during a rebuild coalesce onto one walk.
func (a *App) Map(ctx context.Context) (*builder.Result, error) {
	a.mu.RLock()
	gen := a.gen
	a.mu.RUnlock()
	if gen != nil {
		return gen, nil
	}

	result, err, _ := a.group.Do("map", func() (any, error) {
		ctx, span := tracer.Start(ctx, "app.map")
		defer span.End()

		res, err := a.builder.Build(ctx, a.opts)
		if err != nil {
			return nil, err
		}

		a.mu.Lock()
		a.gen = res
		a.genTime = time.Now()
		a.mu.Unlock()

		a.logger.Info(fmt.Sprintf("dependency map built: %d modules", len(res.System.Dependencies)))
		go a.warm(context.WithoutCancel(ctx), res)
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*builder.Result), nil
}

// Invalidate drops the current generation so the next request rebuilds it.
func (a *App) Invalidate() {
	a.mu.Lock()
	a.gen = nil
	a.mu.Unlock()
}

// warm schedules ahead-of-request compilation for every package in the tree.
func (a *App) warm(ctx context.Context, res *builder.Result) {
	for node := range res.Root.Walk() {
		if node == res.Root && !a.opts.IncludeSelf {
			continue
		}
		a.compiler.Precompile(ctx, node, res.System)
	}
}

// Watch starts watching the project for changes, invalidating the generation
// when files settle after a burst of events. It returns once the watcher is
// running.
func (a *App) Watch(ctx context.Context) error {
	if err := a.watch.Start(ctx, a.opts.Root); err != nil {
		return zerr.Wrap(err, "failed to start file watcher")
	}

	debouncer := watcher.NewDebouncer(watcher.DefaultDebounceWindow, func(paths []string) {
		a.logger.Info(fmt.Sprintf("%d files changed, invalidating dependency map", len(paths)))
		a.Invalidate()
	})

	go func() {
		for event := range a.watch.Events() {
			debouncer.Add(event.Path)
		}
		// The stream closed; deliver whatever the window was still holding.
		debouncer.Flush()
	}()
	return nil
}

// Build compiles the whole project into the destination directory: every
// module of every package, plus the loader runtime and the serialized map.
func (a *App) Build(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "app.build")
	defer span.End()

	res, err := a.Map(ctx)
	if err != nil {
		return err
	}
	if err := a.compiler.CompileAll(ctx, res.Root, res.System); err != nil {
		return domain.Mark(domain.ErrBuildFailed, err)
	}

	mapJSON, err := a.dependencyMapJSON(res)
	if err != nil {
		return err
	}
	if err := a.cache.WriteFile(domain.DependencyMapAssetName, mapJSON); err != nil {
		return err
	}
	return a.cache.WriteFile(domain.LoaderAssetName, loaderJS)
}

// Clean removes the cache destination and the internal metadata directory.
func (a *App) Clean(_ context.Context) error {
	if err := a.cache.RemoveAll(); err != nil {
		return err
	}
	internal := filepath.Join(a.opts.Root, domain.BindleDirName)
	if err := os.RemoveAll(internal); err != nil {
		return zerr.With(domain.Mark(domain.ErrFileSystem, err), "dir", internal)
	}
	a.logger.Info("removed compiled output and metadata")
	return nil
}

// dependencyMapJSON serializes the servable dependency map, or loads the
// configured override file in its place.
func (a *App) dependencyMapJSON(res *builder.Result) ([]byte, error) {
	if a.opts.MapOverride != "" {
		//nolint:gosec // Path comes from project configuration
		data, err := os.ReadFile(a.opts.MapOverride)
		if err != nil {
			err = domain.Mark(domain.ErrMapOverrideFailed, err)
			return nil, zerr.With(err, "path", a.opts.MapOverride)
		}
		return data, nil
	}
	data, err := json.MarshalIndent(res.Root, "", "  ")
	if err != nil {
		return nil, zerr.Wrap(err, "failed to serialize dependency map")
	}
	return data, nil
}

