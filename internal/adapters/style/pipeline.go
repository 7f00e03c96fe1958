package style

import (
	"context"
	"encoding/json"
	"os"
	"path"
	"path/filepath"

	"go.trai.ch/bindle/internal/core/domain"
	"go.trai.ch/bindle/internal/core/ports"
	"go.trai.ch/zerr"
)

// Pipeline compiles a stylesheet: import flattening, then vendor prefixing,
// with source maps composed across both passes. The flattened intermediate is
// cached separately from the prefixed output, so a prefixing-rule change does
// not require re-flattening.
type Pipeline struct {
	flattener *Flattener
	prefixer  *Prefixer
	cache     ports.ContentCache
	root      string
}

// NewPipeline creates a Pipeline resolving imports against roots, with root
// as the base for source map paths.
func NewPipeline(scanner ports.StyleScanner, roots []string, root string, cache ports.ContentCache) *Pipeline {
	return &Pipeline{
		flattener: NewFlattener(scanner, roots),
		prefixer:  NewPrefixer(),
		cache:     cache,
		root:      root,
	}
}

// Compile produces the prefixed stylesheet and its source map for the entry
// file, served under id.
func (p *Pipeline) Compile(ctx context.Context, id, entry string) (css, sourceMap []byte, err error) {
	//nolint:gosec // Entry was resolved through the module resolver
	source, err := os.ReadFile(entry)
	if err != nil {
		return nil, nil, zerr.With(domain.Mark(domain.ErrFileSystem, err), "path", entry)
	}

	flat, flatJSON, err := p.flatten(ctx, id, entry, source)
	if err != nil {
		return nil, nil, err
	}

	// The final key carries the rules version so prefix-table changes
	// invalidate the prefixed output but not the intermediate.
	finalKey := append([]byte(RulesVersion+"\x00"), flatJSON...)

	css, err = p.cache.GetOrCompile(ctx, id, finalKey, func(_ context.Context) ([]byte, error) {
		out, mapBytes, err := p.prefix(id, flat)
		if err != nil {
			return nil, err
		}
		if err := p.cache.WriteFile(id+".map", mapBytes); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return nil, nil, err
	}

	sourceMap, ok := p.cache.ReadFile(id + ".map")
	if !ok {
		// Cache-excluded compile; regenerate the map directly.
		_, sourceMap, err = p.prefix(id, flat)
		if err != nil {
			return nil, nil, err
		}
	}
	return css, sourceMap, nil
}

// flatten returns the flattened intermediate, from cache when the entry
// content is unchanged.
func (p *Pipeline) flatten(ctx context.Context, id, entry string, source []byte) (*Flat, []byte, error) {
	flatJSON, err := p.cache.GetOrCompile(ctx, id+".flat", source, func(_ context.Context) ([]byte, error) {
		flat, err := p.flattener.Flatten(entry)
		if err != nil {
			return nil, err
		}
		return json.Marshal(flat)
	})
	if err != nil {
		return nil, nil, err
	}

	var flat Flat
	if err := json.Unmarshal(flatJSON, &flat); err != nil {
		return nil, nil, zerr.Wrap(err, "failed to decode flattened intermediate")
	}
	return &flat, flatJSON, nil
}

// prefix runs the second pass and renders the composed source map.
func (p *Pipeline) prefix(id string, flat *Flat) (css, sourceMap []byte, err error) {
	prefixed := p.prefixer.Prefix(flat.Lines)

	m := NewSourceMap(path.Base(id), p.relSources(flat.Sources), prefixed.Compose(flat.Origins))
	sourceMap, err = m.Marshal()
	if err != nil {
		return nil, nil, zerr.Wrap(err, "failed to marshal source map")
	}

	out := prefixed.CSS() + "\n/*# sourceMappingURL=" + path.Base(id) + ".map */\n"
	return []byte(out), sourceMap, nil
}

// relSources rewrites absolute source paths relative to the project root so
// maps reference the original, unbundled files.
func (p *Pipeline) relSources(sources []string) []string {
	rel := make([]string, len(sources))
	for i, s := range sources {
		if r, err := filepath.Rel(p.root, s); err == nil {
			rel[i] = filepath.ToSlash(r)
		} else {
			rel[i] = filepath.ToSlash(s)
		}
	}
	return rel
}
