package domain

import (
	"iter"
	"sort"
)

// PackageNode is one resolved package at one version, at one position in the
// dependency tree. Nodes are constructed once per build generation and are
// immutable afterwards.
type PackageNode struct {
	// Name is the package identifier, possibly scoped (@scope/name).
	Name string `json:"name"`

	// Version is the resolved semantic version. Empty for local packages.
	Version string `json:"version,omitempty"`

	// Dir is the absolute location on disk, owned exclusively by this node.
	// It is internal only and stripped from the servable form.
	Dir string `json:"-"`

	// Main is the default entry file, relative to Dir.
	Main string `json:"main"`

	// Style lists declared stylesheet entries, relative to Dir.
	Style []string `json:"style,omitempty"`

	// Dependencies maps a dependency name to the node resolved from this
	// node's manifest. Versions are pinned per tree position, not globally
	// deduplicated.
	Dependencies map[string]*PackageNode `json:"dependencies,omitempty"`

	// Browser is the package's override table.
	Browser Overrides `json:"browser,omitempty"`

	// Folder is the set of relative paths that are folder-style modules,
	// decided once at build time so later resolution never probes a directory.
	Folder map[string]bool `json:"folder,omitempty"`

	// Files is the transitive closure of source files reachable from Main and
	// the declared style entries, filtered by Browser overrides.
	Files map[string]bool `json:"files,omitempty"`

	// Lock is the flattened name@version -> declared-range table, populated on
	// the root node only and checked against the top-level manifest.
	Lock map[string]map[string]string `json:"lock,omitempty"`
}

// Key identifies a node by its (name, version) pair, the granularity at which
// the builder memoizes its walk.
func (p *PackageNode) Key() string {
	if p.Version == "" {
		return p.Name
	}
	return p.Name + "@" + p.Version
}

// depNames returns the dependency names in a stable order.
func (p *PackageNode) depNames() []string {
	names := make([]string, 0, len(p.Dependencies))
	for name := range p.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Walk yields this node and every node below it in level order: the current
// node first, then its direct dependencies, then theirs. Dependency order
// within a level is stable (sorted by name). A node reachable through several
// positions is yielded once per distinct (name, version) pair, at its
// shallowest position.
func (p *PackageNode) Walk() iter.Seq[*PackageNode] {
	return func(yield func(*PackageNode) bool) {
		seen := map[string]bool{p.Key(): true}
		queue := []*PackageNode{p}
		for len(queue) > 0 {
			node := queue[0]
			queue = queue[1:]
			if !yield(node) {
				return
			}
			for _, name := range node.depNames() {
				dep := node.Dependencies[name]
				if seen[dep.Key()] {
					continue
				}
				seen[dep.Key()] = true
				queue = append(queue, dep)
			}
		}
	}
}

// Find locates a node by name and, when version is non-empty, exact version.
// The search is nearest-scope-wins: the level-order walk guarantees a
// shallower position beats any deeper one carrying the same name.
func (p *PackageNode) Find(name, version string) *PackageNode {
	for node := range p.Walk() {
		if node.Name != name {
			continue
		}
		if version == "" || node.Version == version {
			return node
		}
	}
	return nil
}

// FindAll returns every version of name present anywhere in the tree, in a
// stable order (walk order, one node per distinct version).
func (p *PackageNode) FindAll(name string) []*PackageNode {
	var nodes []*PackageNode
	versions := make(map[string]bool)
	for node := range p.Walk() {
		if node.Name != name || versions[node.Version] {
			continue
		}
		versions[node.Version] = true
		nodes = append(nodes, node)
	}
	return nodes
}

// FileList returns the file set as a sorted slice.
func (p *PackageNode) FileList() []string {
	files := make([]string, 0, len(p.Files))
	for f := range p.Files {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}
