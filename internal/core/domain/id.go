package domain

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ParsedID is a request or reference id split into its parts:
// <name>[/<version>][/<entry>], where a scoped name (@scope/name) spans the
// first two segments.
type ParsedID struct {
	Name    string
	Version string
	Entry   string
}

// String reassembles the id.
func (p ParsedID) String() string {
	parts := []string{p.Name}
	if p.Version != "" {
		parts = append(parts, p.Version)
	}
	if p.Entry != "" {
		parts = append(parts, p.Entry)
	}
	return strings.Join(parts, "/")
}

// ParseID splits an asset id against the known-module registry. If the first
// segments name a known module, an optional semantic-version segment follows
// and the rest is the entry path. An unknown name means the whole id is a
// local/component specifier with empty version and entry.
func ParseID(id string, system *SystemMap) ParsedID {
	id = strings.TrimPrefix(id, "/")
	segments := strings.Split(id, "/")

	name := segments[0]
	rest := segments[1:]
	if strings.HasPrefix(name, "@") && len(segments) > 1 {
		name = segments[0] + "/" + segments[1]
		rest = segments[2:]
	}

	if system == nil || !system.Knows(name) {
		return ParsedID{Name: id}
	}

	parsed := ParsedID{Name: name}
	if len(rest) > 0 && isVersion(rest[0]) {
		parsed.Version = rest[0]
		rest = rest[1:]
	}
	parsed.Entry = strings.Join(rest, "/")
	return parsed
}

// isVersion reports whether a segment is a well-formed semantic version.
func isVersion(segment string) bool {
	_, err := semver.StrictNewVersion(segment)
	return err == nil
}
