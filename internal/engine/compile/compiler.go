// Package compile implements the compilation engine: turning resolved module
// files into servable assets, scripts wrapped as loader registrations and
// stylesheets flattened and prefixed.
package compile

import (
	"bytes"
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel"
	"go.trai.ch/bindle/internal/adapters/style"
	"go.trai.ch/bindle/internal/core/domain"
	"go.trai.ch/bindle/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("bindle/compile")

// compileConcurrency bounds the parallel fan-out of a full compile.
const compileConcurrency = 8

// Compiler turns module files into servable assets. Output is content
// addressed: the cache key is the source hash, so unchanged files are never
// compiled twice and repeated compiles are byte identical.
type Compiler struct {
	cache   ports.ContentCache
	styles  *style.Pipeline
	scripts ports.ScriptScanner
	logger  ports.Logger
	root    string
}

// NewCompiler creates a Compiler. Source map paths are rendered relative to
// root.
func NewCompiler(
	cache ports.ContentCache,
	styles *style.Pipeline,
	scripts ports.ScriptScanner,
	logger ports.Logger,
	root string,
) *Compiler {
	return &Compiler{
		cache:   cache,
		styles:  styles,
		scripts: scripts,
		logger:  logger,
		root:    root,
	}
}

// ModuleID returns the servable asset id of a file inside a package:
// <name>/<version>/<file>, bare <name>/<file> for unversioned packages.
func ModuleID(node *domain.PackageNode, rel string) string {
	return domain.OutputPath(node.Name, node.Version, rel, false)
}

// CompileModule compiles one file of a package and returns the servable
// bytes. Scripts are wrapped as loader registrations with their specifiers
// rewritten to resolved ids; stylesheets run through the style pipeline.
// Results are cached by content hash and concurrent callers coalesce.
func (c *Compiler) CompileModule(
	ctx context.Context,
	node *domain.PackageNode,
	rel string,
	system *domain.SystemMap,
) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "compile.module")
	defer span.End()

	id := ModuleID(node, rel)
	if domain.IsStyleID(rel) {
		css, _, err := c.styles.Compile(ctx, id, filepath.Join(node.Dir, filepath.FromSlash(rel)))
		return css, err
	}

	source, err := c.readSource(node, rel)
	if err != nil {
		return nil, err
	}
	return c.cache.GetOrCompile(ctx, id, source, func(_ context.Context) ([]byte, error) {
		if err := c.writeScriptMap(id, filepath.Join(node.Dir, filepath.FromSlash(rel)), source); err != nil {
			return nil, err
		}
		return c.wrapScript(node, rel, id, source, system), nil
	})
}

// CompileAll compiles every reachable file of every package in the tree,
// fanning out across packages and files. The root package is included only
// when it was scanned into the build.
func (c *Compiler) CompileAll(ctx context.Context, root *domain.PackageNode, system *domain.SystemMap) error {
	ctx, span := tracer.Start(ctx, "compile.all")
	defer span.End()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(compileConcurrency)
	for node := range root.Walk() {
		for _, rel := range node.FileList() {
			g.Go(func() error {
				_, err := c.CompileModule(gctx, node, rel, system)
				return err
			})
		}
	}
	return g.Wait()
}

// Precompile schedules compilation of every file of one package without
// blocking; request-driven compiles of the same content coalesce with it.
func (c *Compiler) Precompile(ctx context.Context, node *domain.PackageNode, system *domain.SystemMap) {
	for _, rel := range node.FileList() {
		if domain.IsStyleID(rel) {
			continue
		}
		source, err := c.readSource(node, rel)
		if err != nil {
			c.logger.Error(err)
			continue
		}
		id := ModuleID(node, rel)
		c.cache.Precompile(ctx, id, source, func(_ context.Context) ([]byte, error) {
			if err := c.writeScriptMap(id, filepath.Join(node.Dir, filepath.FromSlash(rel)), source); err != nil {
				return nil, err
			}
			return c.wrapScript(node, rel, id, source, system), nil
		})
	}
}

// CompileComponent compiles a local (non-package) script or stylesheet served
// under id. Relative specifiers resolve against the id's own path; bare
// specifiers resolve through the root package position.
func (c *Compiler) CompileComponent(
	ctx context.Context,
	dir, rel, id string,
	root *domain.PackageNode,
	system *domain.SystemMap,
) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "compile.component")
	defer span.End()

	resolved := filepath.Join(dir, filepath.FromSlash(rel))
	if domain.IsStyleID(id) {
		css, _, err := c.styles.Compile(ctx, id, resolved)
		return css, err
	}

	//nolint:gosec // Path was resolved through the component search paths
	source, err := os.ReadFile(resolved)
	if err != nil {
		return nil, zerr.With(domain.Mark(domain.ErrFileSystem, err), "path", resolved)
	}
	return c.cache.GetOrCompile(ctx, id, source, func(_ context.Context) ([]byte, error) {
		if err := c.writeScriptMap(id, resolved, source); err != nil {
			return nil, err
		}
		return c.wrapComponent(root, id, source, system), nil
	})
}

// wrapComponent wraps a local script. Relative specifiers become ids rooted at
// the component's own location; everything else resolves as from the root
// package.
func (c *Compiler) wrapComponent(
	root *domain.PackageNode,
	id string,
	source []byte,
	system *domain.SystemMap,
) []byte {
	specifiers := c.scripts.Scan(source)
	rewrites := make(map[string]string, len(specifiers))
	resolved := make([]string, 0, len(specifiers))
	for _, spec := range specifiers {
		var target string
		ok := true
		if isRelative(spec) {
			target = path.Join(path.Dir(id), spec)
			if path.Ext(target) == "" {
				target += ".js"
			}
		} else {
			target, ok = c.resolveSpecifier(root, id, spec, system)
		}
		if !ok {
			c.logger.Warn("unresolved specifier " + spec + " in " + id)
			resolved = append(resolved, spec)
			continue
		}
		if target == "" {
			rewrites[spec] = domain.EmptyModuleID
			continue
		}
		rewrites[spec] = target
		resolved = append(resolved, target)
	}

	def := &domain.Definition{
		ID:         id,
		Specifiers: resolved,
		Source:     string(rewriteSpecifiers(source, rewrites)),
	}
	return Define(def)
}

// ResolveEntry maps a requested entry onto the package's recorded file set,
// defaulting to the package main. The returned path is the asset-relative file
// the entry compiles to.
func ResolveEntry(node *domain.PackageNode, entry string) (string, bool) {
	if entry == "" {
		entry = node.Main
	}
	return resolveFileForm(node, normalizeRel(entry))
}

// writeScriptMap emits the map sibling of a wrapped script. The registration
// header shifts every source line down by one, so the map is an identity map
// offset by a single line, with sources referencing the original file
// relative to the project root.
func (c *Compiler) writeScriptMap(id, source string, content []byte) error {
	lines := bytes.Count(content, []byte("\n")) + 1
	origins := make([]style.Origin, 0, lines+1)
	origins = append(origins, style.Origin{Source: -1})
	for line := 0; line < lines; line++ {
		origins = append(origins, style.Origin{Source: 0, Line: line})
	}

	rel := filepath.ToSlash(source)
	if r, err := filepath.Rel(c.root, source); err == nil {
		rel = filepath.ToSlash(r)
	}
	m := style.NewSourceMap(path.Base(id), []string{rel}, origins)
	mapBytes, err := m.Marshal()
	if err != nil {
		return zerr.Wrap(err, "failed to marshal source map")
	}
	return c.cache.WriteFile(id+".map", mapBytes)
}

func (c *Compiler) readSource(node *domain.PackageNode, rel string) ([]byte, error) {
	resolved := filepath.Join(node.Dir, filepath.FromSlash(rel))
	//nolint:gosec // Path comes from the build's resolved file set
	source, err := os.ReadFile(resolved)
	if err != nil {
		return nil, zerr.With(domain.Mark(domain.ErrFileSystem, err), "path", resolved)
	}
	return source, nil
}

// wrapScript wraps script source as a loader registration: its specifiers are
// resolved against the package position and rewritten in place, and the
// rewritten source becomes the factory body.
func (c *Compiler) wrapScript(
	node *domain.PackageNode,
	rel, id string,
	source []byte,
	system *domain.SystemMap,
) []byte {
	specifiers := c.scripts.Scan(source)
	rewrites := make(map[string]string, len(specifiers))
	resolved := make([]string, 0, len(specifiers))
	for _, spec := range specifiers {
		target, ok := c.resolveSpecifier(node, rel, spec, system)
		if !ok {
			// Unknown at build time (conditional or optional require); the
			// literal passes through for the runtime to report.
			c.logger.Warn("unresolved specifier " + spec + " in " + id)
			resolved = append(resolved, spec)
			continue
		}
		if target == "" {
			// Disabled by a browser override; dropped from the dependency
			// list, the literal rewrites to the runtime's empty module.
			rewrites[spec] = domain.EmptyModuleID
			continue
		}
		rewrites[spec] = target
		resolved = append(resolved, target)
	}

	def := &domain.Definition{
		ID:         id,
		Specifiers: resolved,
		Source:     string(rewriteSpecifiers(source, rewrites)),
	}
	return Define(def)
}

// resolveSpecifier maps one specifier, as written in a file of node, to the
// asset id it loads. The empty id with ok=true means the specifier is
// disabled. ok=false means it cannot be resolved statically.
func (c *Compiler) resolveSpecifier(
	node *domain.PackageNode,
	rel, spec string,
	system *domain.SystemMap,
) (string, bool) {
	if isRelative(spec) {
		target := path.Join(path.Dir(rel), spec)
		return c.resolveWithin(node, target)
	}

	effective, keep := node.Browser.Apply(spec)
	if !keep {
		return "", true
	}
	if isRelative(effective) {
		return c.resolveWithin(node, normalizeRel(effective))
	}

	name, entry := splitBareSpecifier(effective)
	dep := node.Dependencies[name]
	if dep == nil && system != nil {
		if found, ok := system.Lookup(name, ""); ok {
			// A position elsewhere in the tree (hoisted store layout).
			return c.resolveLocation(name, found, entry)
		}
		return "", false
	}
	if dep == nil {
		return "", false
	}
	if entry == "" {
		entry = dep.Main
	}
	file, ok := resolveFileForm(dep, normalizeRel(entry))
	if !ok {
		return "", false
	}
	return ModuleID(dep, file), true
}

// resolveWithin resolves a package-relative target to its file id inside node.
// Overrides are keyed by the resolved extension form, so a target without an
// extension is checked in both forms.
func (c *Compiler) resolveWithin(node *domain.PackageNode, target string) (string, bool) {
	forms := []string{target}
	if path.Ext(target) == "" {
		forms = append(forms, target+".js")
	}
	for _, form := range forms {
		effective, keep := node.Browser.Apply(form)
		if !keep {
			return "", true
		}
		if effective == form {
			continue
		}
		if !isRelative(effective) {
			// Shimmed to a package; the caller resolves bare names.
			return "", false
		}
		target = normalizeRel(effective)
		break
	}
	file, ok := resolveFileForm(node, target)
	if !ok {
		return "", false
	}
	return ModuleID(node, file), true
}

// resolveLocation builds an id from a flattened-map location when the package
// node is not a direct dependency at this position.
func (c *Compiler) resolveLocation(key string, loc domain.Location, entry string) (string, bool) {
	if entry == "" {
		entry = loc.Main
	}
	return path.Join(key, normalizeRel(entry)), true
}

// resolveFileForm maps a target onto the build's recorded file set: direct
// match, the .js form, or the folder module's index file. Resolution never
// touches the filesystem here; the builder already decided every form.
func resolveFileForm(node *domain.PackageNode, target string) (string, bool) {
	if node.Files[target] {
		return target, true
	}
	if node.Files[target+".js"] {
		return target + ".js", true
	}
	if node.Folder[target] {
		return path.Join(target, domain.IndexFileName), true
	}
	return "", false
}

func isRelative(specifier string) bool {
	return specifier == "." || specifier == ".." ||
		strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../")
}

func normalizeRel(rel string) string {
	return path.Clean(strings.TrimPrefix(rel, "./"))
}

// splitBareSpecifier splits a bare specifier into package name and optional
// entry, honoring scopes.
func splitBareSpecifier(specifier string) (name, entry string) {
	segments := strings.SplitN(specifier, "/", 3)
	if strings.HasPrefix(specifier, "@") && len(segments) > 1 {
		name = segments[0] + "/" + segments[1]
		if len(segments) > 2 {
			entry = segments[2]
		}
		return name, entry
	}
	name = segments[0]
	if len(segments) > 1 {
		entry = strings.Join(segments[1:], "/")
	}
	return name, entry
}
