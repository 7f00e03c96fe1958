// Package builder implements the dependency map construction engine: the
// recursive package-tree walk that discovers every source file each entry
// package transitively needs.
package builder

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"go.opentelemetry.io/otel"
	"go.trai.ch/bindle/internal/adapters/fs"
	"go.trai.ch/bindle/internal/core/domain"
	"go.trai.ch/bindle/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("bindle/builder")

// Builder walks package manifests into a dependency map.
type Builder struct {
	manifests ports.ManifestLoader
	scripts   ports.ScriptScanner
	styles    ports.StyleScanner
	locator   *fs.Locator
	logger    ports.Logger
}

// New creates a Builder.
func New(
	manifests ports.ManifestLoader,
	scripts ports.ScriptScanner,
	styles ports.StyleScanner,
	locator *fs.Locator,
	logger ports.Logger,
) *Builder {
	return &Builder{
		manifests: manifests,
		scripts:   scripts,
		styles:    styles,
		locator:   locator,
		logger:    logger,
	}
}

// Result is a finished build: the dependency tree, its flattened projection
// and any version conflicts found while verifying the lock table. Conflicts
// are reported, never fatal; the resolved graph is used as walked.
type Result struct {
	Root      *domain.PackageNode
	System    *domain.SystemMap
	Conflicts []error
}

// state is the mutable working set of one build generation.
type state struct {
	root        string
	searchPaths []string
	mu          sync.Mutex
	memo        map[string]*memoEntry
	lock        map[string]map[string]string
}

// memoEntry memoizes the walk per package directory, which uniquely
// identifies a (name, version, dir) position. The node pointer exists before
// population finishes so manifest cycles terminate instead of deadlocking.
type memoEntry struct {
	node *domain.PackageNode
	done chan struct{}
	err  error

	// scanMu serializes file-set additions, including extra entries
	// discovered by importers after the node is populated.
	scanMu sync.Mutex
}

// Build constructs the dependency map for the project described by opts.
// Entry packages default to every dependency declared by the root manifest.
func (b *Builder) Build(ctx context.Context, opts *domain.Options) (*Result, error) {
	ctx, span := tracer.Start(ctx, "builder.build")
	defer span.End()

	st := &state{
		root:        opts.Root,
		searchPaths: opts.AbsPaths(),
		memo:        make(map[string]*memoEntry),
		lock:        make(map[string]map[string]string),
	}

	rootManifest, err := b.manifests.Load(opts.Root)
	if err != nil {
		return nil, err
	}

	root := &domain.PackageNode{
		Name:         rootManifest.Name,
		Version:      rootManifest.Version,
		Dir:          opts.Root,
		Main:         rootManifest.EntryMain(),
		Style:        rootManifest.Style,
		Browser:      b.normalizeOverrides(rootManifest.Browser, rootManifest.Name),
		Dependencies: make(map[string]*domain.PackageNode),
		Folder:       make(map[string]bool),
		Files:        make(map[string]bool),
	}
	if root.Name == "" {
		root.Name = filepath.Base(opts.Root)
	}

	e := &memoEntry{node: root, done: make(chan struct{})}
	st.mu.Lock()
	st.memo[opts.Root] = e
	st.lock[root.Key()] = entryRanges(rootManifest, opts.Entries)
	st.mu.Unlock()

	ancestry := map[string]bool{opts.Root: true}
	e.err = b.scanPackage(ctx, st, e, ancestry, opts.IncludeSelf)
	close(e.done)
	if e.err != nil {
		return nil, e.err
	}

	st.mu.Lock()
	root.Lock = st.lock
	st.mu.Unlock()

	conflicts := b.verifyLock(rootManifest, root)
	for _, c := range conflicts {
		b.logger.Warn(c.Error())
	}

	return &Result{
		Root:      root,
		System:    domain.Flatten(root),
		Conflicts: conflicts,
	}, nil
}

// entryRanges returns the declared range table restricted to the requested
// entry packages (all of them when entries is empty).
func entryRanges(m *domain.Manifest, entries []string) map[string]string {
	if len(entries) == 0 {
		return m.Dependencies
	}
	restricted := make(map[string]string, len(entries))
	for _, name := range entries {
		if declared, ok := m.Dependencies[name]; ok {
			restricted[name] = declared
		} else {
			restricted[name] = ""
		}
	}
	return restricted
}

// walk resolves name from fromDir and returns its populated node, memoized
// per directory. When the directory is an ancestor of the current branch (a
// manifest cycle) the partially built node is returned as is.
func (b *Builder) walk(
	ctx context.Context,
	st *state,
	name, fromDir string,
	ancestry map[string]bool,
) (*domain.PackageNode, error) {
	dir, err := b.locator.LocatePackage(name, fromDir, st.root, st.searchPaths)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	if e, ok := st.memo[dir]; ok {
		st.mu.Unlock()
		if ancestry[dir] {
			return e.node, nil
		}
		<-e.done
		return e.node, e.err
	}
	e := &memoEntry{
		node: &domain.PackageNode{Dir: dir},
		done: make(chan struct{}),
	}
	st.memo[dir] = e
	st.mu.Unlock()

	e.err = b.populate(ctx, st, e, name, branch(ancestry, dir))
	close(e.done)
	return e.node, e.err
}

// populate fills a node from its manifest and scans its reachable files.
func (b *Builder) populate(
	ctx context.Context,
	st *state,
	e *memoEntry,
	name string,
	ancestry map[string]bool,
) error {
	node := e.node

	m, err := b.manifests.Load(node.Dir)
	if err != nil {
		return err
	}

	node.Name = m.Name
	if node.Name == "" {
		node.Name = name
	}
	node.Version = m.Version
	node.Main = m.EntryMain()
	node.Style = m.Style
	node.Browser = b.normalizeOverrides(m.Browser, node.Name)
	node.Dependencies = make(map[string]*domain.PackageNode)
	node.Folder = make(map[string]bool)
	node.Files = make(map[string]bool)

	st.mu.Lock()
	st.lock[node.Key()] = m.Dependencies
	st.mu.Unlock()

	return b.scanPackage(ctx, st, e, ancestry, true)
}

// scanPackage scans the node's own entry files (when scanFiles is set) and
// walks its dependencies: declared dependencies, dependencies discovered only
// through scanning, and bare browser shim targets. Independent subtrees fan
// out concurrently and join here.
func (b *Builder) scanPackage(
	ctx context.Context,
	st *state,
	e *memoEntry,
	ancestry map[string]bool,
	scanFiles bool,
) error {
	node := e.node

	wanted := make(map[string][]string) // dep name -> extra entries
	if scanFiles {
		entries := append([]string{node.Main}, node.Style...)
		if err := b.scanEntries(e, entries, wanted); err != nil {
			return err
		}
	}

	st.mu.Lock()
	declared := st.lock[node.Key()]
	st.mu.Unlock()
	for depName := range declared {
		if _, ok := wanted[depName]; !ok {
			wanted[depName] = nil
		}
	}
	for specifier, rule := range node.Browser {
		if rule.Disabled || isRelative(specifier) || isRelative(rule.Target) {
			continue
		}
		depName, _ := splitBareSpecifier(rule.Target)
		if _, ok := wanted[depName]; !ok {
			wanted[depName] = nil
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for depName, extra := range wanted {
		effective, keep := node.Browser.Apply(depName)
		if !keep || effective != depName {
			// Disabled outright, or shimmed away; the shim target is walked
			// under its own name.
			continue
		}
		g.Go(func() error {
			dep, err := b.walk(gctx, st, depName, node.Dir, ancestry)
			if err != nil {
				return err
			}
			e.scanMu.Lock()
			node.Dependencies[depName] = dep
			e.scanMu.Unlock()
			return b.scanExtraEntries(gctx, st, dep, ancestry, extra)
		})
	}
	return g.Wait()
}

// scanExtraEntries adds entries an importer references inside a dependency
// (e.g. require("pkg/lib/util.js")) to that dependency's file set. The scan
// re-invokes the same procedure for packages those entries reach, so the
// closure stays complete across package boundaries.
func (b *Builder) scanExtraEntries(
	ctx context.Context,
	st *state,
	dep *domain.PackageNode,
	ancestry map[string]bool,
	entries []string,
) error {
	if len(entries) == 0 {
		return nil
	}
	st.mu.Lock()
	depEntry := st.memo[dep.Dir]
	st.mu.Unlock()
	if depEntry == nil {
		return nil
	}

	wanted := make(map[string][]string)
	if err := b.scanEntries(depEntry, entries, wanted); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for depName, extra := range wanted {
		effective, keep := dep.Browser.Apply(depName)
		if !keep || effective != depName {
			continue
		}
		g.Go(func() error {
			nested, err := b.walk(gctx, st, depName, dep.Dir, branch(ancestry, dep.Dir))
			if err != nil {
				return err
			}
			depEntry.scanMu.Lock()
			if dep.Dependencies[depName] == nil {
				dep.Dependencies[depName] = nested
			}
			depEntry.scanMu.Unlock()
			return b.scanExtraEntries(gctx, st, nested, ancestry, extra)
		})
	}
	return g.Wait()
}

// scanEntries runs the reachability scan from the given entries, staying
// within the node's package boundary. Cross-package specifiers are collected
// into wanted (when non-nil) for the caller to walk.
func (b *Builder) scanEntries(e *memoEntry, entries []string, wanted map[string][]string) error {
	e.scanMu.Lock()
	defer e.scanMu.Unlock()

	node := e.node
	queue := make([]string, 0, len(entries))
	for _, entry := range entries {
		queue = append(queue, normalizeRel(entry))
	}

	seen := make(map[string]bool)
	for len(queue) > 0 {
		rel := queue[0]
		queue = queue[1:]
		if seen[rel] {
			continue
		}
		seen[rel] = true

		effective, keep := node.Browser.Apply(rel)
		if !keep {
			continue
		}
		if effective != rel {
			if !isRelative(effective) {
				// Shimmed to another package; walked as a dependency.
				continue
			}
			rel = normalizeRel(effective)
		}

		resolved, folder, err := b.locator.ResolveFile(node.Dir, filepath.FromSlash(rel))
		if err != nil {
			if domain.IsStyleID(rel) {
				// Style imports may live under a search root instead of the
				// package; the style pipeline resolves those at compile time.
				b.logger.Warn("style import outside package: " + rel)
				continue
			}
			return zerr.With(err, "package", node.Name)
		}
		if folder {
			node.Folder[rel] = true
			rel = path.Join(rel, domain.IndexFileName)
		} else if !strings.EqualFold(path.Ext(rel), path.Ext(resolved)) {
			rel += ".js"
		}
		// Overrides are keyed by the resolved extension form; a specifier that
		// omits the extension only matches after resolution.
		effective, keep = node.Browser.Apply(rel)
		if !keep {
			continue
		}
		if effective != rel {
			if isRelative(effective) {
				queue = append(queue, normalizeRel(effective))
			}
			continue
		}
		if node.Files[rel] {
			continue
		}
		node.Files[rel] = true

		specifiers, err := b.scanFile(resolved)
		if err != nil {
			return err
		}
		for _, spec := range specifiers {
			if domain.IsStyleID(rel) {
				// Stylesheet imports are paths relative to the importing
				// file, with or without a leading ./ marker.
				if path.Ext(spec) == "" {
					spec += ".css"
				}
				queue = append(queue, path.Join(path.Dir(rel), spec))
				continue
			}
			if isRelative(spec) {
				queue = append(queue, path.Join(path.Dir(rel), spec))
				continue
			}
			effective, keep := node.Browser.Apply(spec)
			if !keep {
				continue
			}
			if isRelative(effective) {
				queue = append(queue, normalizeRel(effective))
				continue
			}
			if wanted != nil {
				depName, depEntry := splitBareSpecifier(effective)
				if depEntry != "" {
					wanted[depName] = append(wanted[depName], depEntry)
				} else if _, ok := wanted[depName]; !ok {
					wanted[depName] = nil
				}
			}
		}
	}
	return nil
}

// scanFile extracts specifiers from one source file, picking the scanner by
// extension. Other file kinds carry no dependencies.
func (b *Builder) scanFile(resolved string) ([]string, error) {
	//nolint:gosec // Path was resolved within a package boundary
	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, zerr.With(domain.Mark(domain.ErrFileSystem, err), "path", resolved)
	}
	switch strings.ToLower(filepath.Ext(resolved)) {
	case ".js":
		return b.scripts.Scan(data), nil
	case ".css":
		return b.styles.Imports(data), nil
	default:
		return nil, nil
	}
}

// normalizeOverrides cleans relative override keys to package-relative paths
// and drops entries that shim a specifier to itself or to the package's own
// name, so they cannot introduce a self-dependency cycle.
func (b *Builder) normalizeOverrides(overrides domain.Overrides, name string) domain.Overrides {
	if len(overrides) == 0 {
		return overrides
	}
	pruned := make(domain.Overrides, len(overrides))
	for specifier, rule := range overrides {
		if !rule.Disabled && (rule.Target == specifier || rule.Target == name) {
			b.logger.Warn("dropping self-referencing browser shim for " + specifier)
			continue
		}
		if isRelative(specifier) {
			specifier = normalizeRel(specifier)
		}
		pruned[specifier] = rule
	}
	return pruned
}

// verifyLock checks every range the top-level manifest declares against the
// version that actually resolved.
func (b *Builder) verifyLock(m *domain.Manifest, root *domain.PackageNode) []error {
	var conflicts []error
	for name, declared := range m.Dependencies {
		dep, ok := root.Dependencies[name]
		if !ok || dep.Version == "" {
			continue
		}
		constraint, err := semver.NewConstraint(declared)
		if err != nil {
			// Not a semver range (tarball, git URL); nothing to verify.
			continue
		}
		version, err := semver.NewVersion(dep.Version)
		if err != nil {
			continue
		}
		if !constraint.Check(version) {
			conflict := zerr.With(domain.Mark(domain.ErrVersionConflict, nil), "package", name)
			conflict = zerr.With(conflict, "declared", declared)
			conflict = zerr.With(conflict, "resolved", dep.Version)
			conflicts = append(conflicts, conflict)
		}
	}
	return conflicts
}

// branch copies the ancestry set extended by dir.
func branch(ancestry map[string]bool, dir string) map[string]bool {
	next := make(map[string]bool, len(ancestry)+1)
	for k := range ancestry {
		next[k] = true
	}
	next[dir] = true
	return next
}

func isRelative(specifier string) bool {
	return specifier == "." || specifier == ".." ||
		strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../")
}

// normalizeRel cleans a package-relative path to its canonical slash form.
func normalizeRel(rel string) string {
	return path.Clean(strings.TrimPrefix(filepath.ToSlash(rel), "./"))
}

// splitBareSpecifier splits a bare specifier into its package name and the
// optional entry inside that package, honoring scopes.
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
