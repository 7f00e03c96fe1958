package app

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.trai.ch/bindle/internal/core/domain"
	"go.trai.ch/bindle/internal/engine/builder"
	"go.trai.ch/bindle/internal/engine/compile"
	"go.trai.ch/zerr"
)

// loaderJS is the client runtime served as loader.js and prepended to main
// assets.
//
//go:embed loader.js
var loaderJS []byte

// ReadAsset is the single read boundary: it maps an asset id to servable
// bytes plus caching metadata. isMain marks the page entry request, which
// additionally carries the runtime configuration and loads itself.
func (a *App) ReadAsset(ctx context.Context, id string, isMain bool) (*domain.Asset, error) {
	ctx, span := tracer.Start(ctx, "app.read_asset")
	defer span.End()

	id = strings.TrimPrefix(path.Clean("/"+id), "/")
	if id == "" || id == domain.LoaderAssetName {
		return a.asset(domain.LoaderAssetName, loaderJS, a.generationTime()), nil
	}

	res, err := a.Map(ctx)
	if err != nil {
		return nil, err
	}

	if id == domain.DependencyMapAssetName {
		data, err := a.dependencyMapJSON(res)
		if err != nil {
			return nil, err
		}
		return a.asset(id, data, a.generationTime()), nil
	}

	parsed := domain.ParseID(id, res.System)
	if res.System.Knows(parsed.Name) {
		return a.readModule(ctx, res, parsed, isMain)
	}
	return a.readComponent(ctx, res, id, isMain)
}

// readModule serves a file of a resolved package.
func (a *App) readModule(
	ctx context.Context,
	res *builder.Result,
	parsed domain.ParsedID,
	isMain bool,
) (*domain.Asset, error) {
	node := res.Root.Find(parsed.Name, parsed.Version)
	if node == nil {
		err := zerr.With(domain.Mark(domain.ErrModuleNotFound, nil), "module", parsed.Name)
		return nil, zerr.With(err, "version", parsed.Version)
	}

	rel, ok := compile.ResolveEntry(node, parsed.Entry)
	if !ok {
		err := zerr.With(domain.Mark(domain.ErrModuleNotFound, nil), "module", parsed.Name)
		return nil, zerr.With(err, "entry", parsed.Entry)
	}
	id := compile.ModuleID(node, rel)

	if a.opts.ServeOriginals {
		//nolint:gosec // Path comes from the build's resolved file set
		raw, err := os.ReadFile(filepath.Join(node.Dir, filepath.FromSlash(rel)))
		if err != nil {
			return nil, zerr.With(domain.Mark(domain.ErrFileSystem, err), "id", id)
		}
		return a.asset(id, raw, a.generationTime()), nil
	}

	content, err := a.compiler.CompileModule(ctx, node, rel, res.System)
	if err != nil {
		return nil, err
	}
	if isMain && !domain.IsStyleID(rel) {
		content = a.wrapMain(res, id, content)
	}
	return a.asset(id, content, a.modTime(id)), nil
}

// readComponent serves a local file outside any package: the configured
// search paths are tried first, then the project root.
func (a *App) readComponent(
	ctx context.Context,
	res *builder.Result,
	id string,
	isMain bool,
) (*domain.Asset, error) {
	rel := filepath.FromSlash(id)
	dir, found := "", false
	for _, base := range append(a.opts.AbsPaths(), a.opts.Root) {
		resolved, folder, err := a.locator.ResolveFile(base, rel)
		if err != nil {
			continue
		}
		dir, found = base, true
		// Normalize the id to the file form the entry resolved to.
		if folder {
			id = path.Join(id, domain.IndexFileName)
		} else if !strings.EqualFold(path.Ext(id), filepath.Ext(resolved)) {
			id += ".js"
		}
		break
	}
	if !found {
		return nil, zerr.With(domain.Mark(domain.ErrModuleNotFound, nil), "id", id)
	}

	content, err := a.compiler.CompileComponent(ctx, dir, id, id, res.Root, res.System)
	if err != nil {
		return nil, err
	}
	if isMain && !domain.IsStyleID(id) {
		content = a.wrapMain(res, id, content)
	}
	return a.asset(id, content, a.modTime(id)), nil
}

// wrapMain turns a compiled module into a self-sufficient page entry: the
// embedded loader runtime first, then the runtime configuration, the module
// definition, and the import that starts execution. The import names the
// entry id without its extension; the loader re-appends it on resolution.
func (a *App) wrapMain(res *builder.Result, id string, compiled []byte) []byte {
	cfg := map[string]any{"dependencies": res.System}
	for key, value := range a.opts.Loader {
		cfg[key] = value
	}
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		a.logger.Error(zerr.Wrap(err, "failed to serialize loader configuration"))
		cfgJSON = []byte("{}")
	}

	var buf bytes.Buffer
	buf.Grow(len(loaderJS) + len(compiled) + len(cfgJSON) + 64)
	buf.Write(loaderJS)
	buf.WriteString("require.config(")
	buf.Write(cfgJSON)
	buf.WriteString(");\n")
	buf.Write(compiled)
	buf.WriteString("require(")
	buf.WriteString(strconv.Quote(strings.TrimSuffix(id, ".js")))
	buf.WriteString(");\n")
	return buf.Bytes()
}

// asset assembles the servable form with its caching metadata.
func (a *App) asset(id string, content []byte, modified time.Time) *domain.Asset {
	return &domain.Asset{
		Content:      content,
		ContentType:  domain.ContentType(id),
		ETag:         a.hasher.Sum(content),
		LastModified: modified,
	}
}

func (a *App) generationTime() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.genTime.IsZero() {
		return time.Now()
	}
	return a.genTime
}

func (a *App) modTime(id string) time.Time {
	if t, ok := a.cache.ModTime(id); ok {
		return t
	}
	return a.generationTime()
}
