package fs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/bindle/internal/adapters/fs"
	"go.trai.ch/bindle/internal/core/domain"
)

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLocatePackage(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "node_modules", "outer")

	writeFile(t, filepath.Join(root, "node_modules", "yen", "package.json"), "{}")
	writeFile(t, filepath.Join(nested, "node_modules", "yen", "package.json"), "{}")

	locator := fs.NewLocator()

	t.Run("nearest store wins", func(t *testing.T) {
		dir, err := locator.LocatePackage("yen", nested, root, nil)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(nested, "node_modules", "yen"), dir)
	})

	t.Run("falls back to ancestor store", func(t *testing.T) {
		from := filepath.Join(root, "node_modules", "crox")
		writeFile(t, filepath.Join(from, "package.json"), "{}")
		dir, err := locator.LocatePackage("yen", from, root, nil)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, "node_modules", "yen"), dir)
	})

	t.Run("search paths take precedence", func(t *testing.T) {
		extra := t.TempDir()
		writeFile(t, filepath.Join(extra, "yen", "package.json"), "{}")
		dir, err := locator.LocatePackage("yen", nested, root, []string{extra})
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(extra, "yen"), dir)
	})

	t.Run("missing package", func(t *testing.T) {
		_, err := locator.LocatePackage("missing", root, root, nil)
		require.ErrorIs(t, err, domain.ErrFileSystem)
	})
}

func TestResolveFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "index.js"), "")
	writeFile(t, filepath.Join(dir, "lib", "util.js"), "")
	writeFile(t, filepath.Join(dir, "lib", "folder", "index.js"), "")

	locator := fs.NewLocator()

	t.Run("direct match", func(t *testing.T) {
		resolved, folder, err := locator.ResolveFile(dir, "index.js")
		require.NoError(t, err)
		assert.False(t, folder)
		assert.Equal(t, filepath.Join(dir, "index.js"), resolved)
	})

	t.Run("js extension appended", func(t *testing.T) {
		resolved, folder, err := locator.ResolveFile(dir, filepath.Join("lib", "util"))
		require.NoError(t, err)
		assert.False(t, folder)
		assert.Equal(t, filepath.Join(dir, "lib", "util.js"), resolved)
	})

	t.Run("folder module", func(t *testing.T) {
		resolved, folder, err := locator.ResolveFile(dir, filepath.Join("lib", "folder"))
		require.NoError(t, err)
		assert.True(t, folder)
		assert.Equal(t, filepath.Join(dir, "lib", "folder", "index.js"), resolved)
	})

	t.Run("missing entry", func(t *testing.T) {
		_, _, err := locator.ResolveFile(dir, "nope.js")
		require.ErrorIs(t, err, domain.ErrFileSystem)
	})
}

func TestCheckCase(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "lib", "Util.js"), "")

	locator := fs.NewLocator()

	require.NoError(t, locator.CheckCase(dir, "lib/Util.js"))

	err := locator.CheckCase(dir, "lib/util.js")
	require.Error(t, err)
	// On any filesystem the wrong-case lookup must surface as a case error,
	// never succeed silently.
	assert.ErrorIs(t, err, domain.ErrCaseSensitivity)
}
