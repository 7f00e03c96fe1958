// Package fs implements filesystem location and hashing for packages and
// module files.
package fs

import (
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/bindle/internal/core/domain"
	"go.trai.ch/zerr"
)

// Locator resolves package directories and module files on disk.
type Locator struct{}

// NewLocator creates a new Locator.
func NewLocator() *Locator {
	return &Locator{}
}

// LocatePackage resolves a dependency name to a directory. Search paths are
// tried first, in order; then the package store (node_modules) of the
// requiring package's directory and of each ancestor up to root, nearest
// first, mirroring conventional package-store shadowing.
func (l *Locator) LocatePackage(name, from, root string, searchPaths []string) (string, error) {
	for _, base := range searchPaths {
		candidate := filepath.Join(base, name)
		if isDir(candidate) {
			return candidate, nil
		}
	}

	dir := from
	for {
		candidate := filepath.Join(dir, domain.PackageStoreDirName, name)
		if isDir(candidate) {
			return candidate, nil
		}
		if dir == root || dir == filepath.Dir(dir) {
			break
		}
		dir = filepath.Dir(dir)
	}

	err := zerr.With(domain.Mark(domain.ErrFileSystem, nil), "package", name)
	return "", zerr.With(err, "from", from)
}

// ResolveFile resolves an entry path relative to a package directory: direct
// match first, then with the .js extension appended, then the implicit index
// file of a folder-style module. The folder result records how the entry
// resolved so later lookups never probe the directory again.
func (l *Locator) ResolveFile(dir, entry string) (path string, folder bool, err error) {
	direct := filepath.Join(dir, entry)
	if isFile(direct) {
		if err := l.CheckCase(dir, entry); err != nil {
			return "", false, err
		}
		return direct, false, nil
	}

	withExt := direct + ".js"
	if isFile(withExt) {
		if err := l.CheckCase(dir, entry+".js"); err != nil {
			return "", false, err
		}
		return withExt, false, nil
	}

	index := filepath.Join(direct, domain.IndexFileName)
	if isFile(index) {
		rel := entry + "/" + domain.IndexFileName
		if err := l.CheckCase(dir, rel); err != nil {
			return "", false, err
		}
		return index, true, nil
	}

	err = zerr.With(domain.Mark(domain.ErrFileSystem, nil), "entry", entry)
	return "", false, zerr.With(err, "dir", dir)
}

// CheckCase verifies that every component of rel matches the on-disk name
// exactly. On a case-insensitive filesystem a stat with the wrong case
// succeeds by accident; such a resolution is domain.ErrCaseSensitivity, never
// silently accepted.
func (l *Locator) CheckCase(dir, rel string) error {
	current := dir
	for _, component := range strings.Split(filepath.ToSlash(rel), "/") {
		if component == "" || component == "." {
			continue
		}
		if component == ".." {
			current = filepath.Dir(current)
			continue
		}
		entries, err := os.ReadDir(current)
		if err != nil {
			return zerr.With(domain.Mark(domain.ErrFileSystem, err), "dir", current)
		}
		exact := false
		folded := ""
		for _, e := range entries {
			if e.Name() == component {
				exact = true
				break
			}
			if strings.EqualFold(e.Name(), component) {
				folded = e.Name()
			}
		}
		if !exact {
			if folded != "" {
				err := zerr.With(domain.Mark(domain.ErrCaseSensitivity, nil), "specifier", component)
				return zerr.With(err, "on_disk", folded)
			}
			return zerr.With(domain.Mark(domain.ErrFileSystem, nil), "entry", component)
		}
		current = filepath.Join(current, component)
	}
	return nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
