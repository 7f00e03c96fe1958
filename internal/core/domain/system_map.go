package domain

import "sort"

// Location is the resolved position of one name@version pair.
type Location struct {
	Dir  string `json:"-"`
	Main string `json:"main"`
}

// SystemMap is the flattened projection of a dependency tree: every module
// name, every version of it present anywhere in the tree, and an O(1) lookup
// from name@version (bare name for unversioned packages) to its location.
// It is derived deterministically from the same DependencyMap and rebuilt only
// when the map changes.
type SystemMap struct {
	Modules      map[string][]string `json:"modules"`
	Dependencies map[string]Location `json:"dependencies"`
}

// Flatten derives the SystemMap from a dependency tree root in a single
// traversal.
func Flatten(root *PackageNode) *SystemMap {
	m := &SystemMap{
		Modules:      make(map[string][]string),
		Dependencies: make(map[string]Location),
	}
	for node := range root.Walk() {
		key := node.Key()
		if _, dup := m.Dependencies[key]; dup {
			continue
		}
		m.Modules[node.Name] = append(m.Modules[node.Name], node.Version)
		m.Dependencies[key] = Location{Dir: node.Dir, Main: node.Main}
	}
	for name := range m.Modules {
		sort.Strings(m.Modules[name])
	}
	return m
}

// Knows reports whether name is a module present in the map.
func (m *SystemMap) Knows(name string) bool {
	_, ok := m.Modules[name]
	return ok
}

// Lookup returns the location of name at version (empty version means the
// bare-name entry, falling back to the single present version).
func (m *SystemMap) Lookup(name, version string) (Location, bool) {
	key := name
	if version != "" {
		key = name + "@" + version
	}
	if loc, ok := m.Dependencies[key]; ok {
		return loc, true
	}
	if version == "" {
		if versions := m.Modules[name]; len(versions) == 1 && versions[0] != "" {
			loc, ok := m.Dependencies[name+"@"+versions[0]]
			return loc, ok
		}
	}
	return Location{}, false
}
