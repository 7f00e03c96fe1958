package builder_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/bindle/internal/adapters/fs"
	"go.trai.ch/bindle/internal/adapters/logger"
	"go.trai.ch/bindle/internal/adapters/manifest"
	"go.trai.ch/bindle/internal/adapters/scan"
	"go.trai.ch/bindle/internal/core/domain"
	"go.trai.ch/bindle/internal/engine/builder"
)

func newBuilder(t *testing.T) *builder.Builder {
	t.Helper()
	log := logger.New()
	log.SetOutput(io.Discard)
	return builder.New(manifest.NewLoader(), scan.NewScript(), scan.NewStyle(), fs.NewLocator(), log)
}

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// fixture lays out a project with one top-level dependency carrying a nested
// duplicate at another version, a browser shim and a folder-style module.
func fixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "package.json"), `{
		"name": "site",
		"version": "1.0.0",
		"main": "app.js",
		"style": "styles/main.css",
		"browser": {"noisy": false},
		"dependencies": {"yen": "^1.2.0", "crox": "~2.0.0", "noisy": "^1.0.0"}
	}`)
	writeFile(t, filepath.Join(root, "app.js"),
		"var util = require('./util');\nvar yen = require('yen');\nvar extra = require('yen/lib/extra');\nvar crox = require('crox');\nrequire('noisy');\n")
	writeFile(t, filepath.Join(root, "util.js"), "module.exports = 1;\n")
	writeFile(t, filepath.Join(root, "styles", "main.css"), "@import \"base.css\";\nbody { margin: 0; }\n")
	writeFile(t, filepath.Join(root, "styles", "base.css"), "html { font-size: 14px; }\n")

	yen := filepath.Join(root, "node_modules", "yen")
	writeFile(t, filepath.Join(yen, "package.json"), `{
		"name": "yen",
		"version": "1.2.4",
		"main": "index.js",
		"browser": {"stream": "readable-stream"}
	}`)
	writeFile(t, filepath.Join(yen, "index.js"),
		"var core = require('./lib/core');\nvar events = require('./lib/events');\nvar s = require('stream');\n")
	writeFile(t, filepath.Join(yen, "lib", "core.js"), "module.exports = {};\n")
	writeFile(t, filepath.Join(yen, "lib", "events", "index.js"), "module.exports = {};\n")
	writeFile(t, filepath.Join(yen, "lib", "extra.js"),
		"var helper = require('punt/helper.js');\nmodule.exports = 'extra';\n")

	punt := filepath.Join(root, "node_modules", "punt")
	writeFile(t, filepath.Join(punt, "package.json"), `{
		"name": "punt", "version": "0.1.0", "main": "index.js"
	}`)
	writeFile(t, filepath.Join(punt, "index.js"), "module.exports = {};\n")
	writeFile(t, filepath.Join(punt, "helper.js"), "var deep = require('./deep');\nmodule.exports = deep;\n")
	writeFile(t, filepath.Join(punt, "deep.js"), "module.exports = 0;\n")

	rs := filepath.Join(root, "node_modules", "readable-stream")
	writeFile(t, filepath.Join(rs, "package.json"), `{
		"name": "readable-stream",
		"version": "2.3.6",
		"main": "readable.js"
	}`)
	writeFile(t, filepath.Join(rs, "readable.js"), "module.exports = {};\n")

	crox := filepath.Join(root, "node_modules", "crox")
	writeFile(t, filepath.Join(crox, "package.json"), `{
		"name": "crox",
		"version": "2.0.3",
		"main": "index.js",
		"dependencies": {"yen": "~1.0.0"}
	}`)
	writeFile(t, filepath.Join(crox, "index.js"), "var yen = require('yen');\n")
	writeFile(t, filepath.Join(crox, "node_modules", "yen", "package.json"), `{
		"name": "yen",
		"version": "1.0.2",
		"main": "index.js"
	}`)
	writeFile(t, filepath.Join(crox, "node_modules", "yen", "index.js"), "module.exports = {};\n")

	noisy := filepath.Join(root, "node_modules", "noisy")
	writeFile(t, filepath.Join(noisy, "package.json"), `{
		"name": "noisy", "version": "1.0.0", "main": "index.js"
	}`)
	writeFile(t, filepath.Join(noisy, "index.js"), "module.exports = {};\n")

	return root
}

func TestBuild(t *testing.T) {
	root := fixture(t)
	b := newBuilder(t)

	res, err := b.Build(context.Background(), &domain.Options{Root: root, IncludeSelf: true})
	require.NoError(t, err)
	require.NotNil(t, res.Root)
	assert.Empty(t, res.Conflicts)

	t.Run("root files", func(t *testing.T) {
		assert.Equal(t, "site", res.Root.Name)
		assert.True(t, res.Root.Files["app.js"])
		assert.True(t, res.Root.Files["util.js"])
	})

	t.Run("style entries follow imports", func(t *testing.T) {
		assert.True(t, res.Root.Files["styles/main.css"])
		assert.True(t, res.Root.Files["styles/base.css"])
	})

	t.Run("dependency files and folder modules", func(t *testing.T) {
		yen := res.Root.Dependencies["yen"]
		require.NotNil(t, yen)
		assert.Equal(t, "1.2.4", yen.Version)
		assert.True(t, yen.Files["index.js"])
		assert.True(t, yen.Files["lib/core.js"])
		assert.True(t, yen.Files["lib/events/index.js"])
		assert.True(t, yen.Folder["lib/events"])
	})

	t.Run("extra entries from importers", func(t *testing.T) {
		yen := res.Root.Dependencies["yen"]
		require.NotNil(t, yen)
		assert.True(t, yen.Files["lib/extra.js"])
	})

	t.Run("extra entries cross package boundaries", func(t *testing.T) {
		yen := res.Root.Dependencies["yen"]
		require.NotNil(t, yen)
		// lib/extra.js is reached only through the root importer, and what it
		// requires in turn gets the full scan.
		punt := yen.Dependencies["punt"]
		require.NotNil(t, punt)
		assert.True(t, punt.Files["helper.js"])
		assert.True(t, punt.Files["deep.js"])
	})

	t.Run("browser shim walks the target, never the alias", func(t *testing.T) {
		yen := res.Root.Dependencies["yen"]
		require.NotNil(t, yen)
		assert.Nil(t, yen.Dependencies["stream"])
		rs := yen.Dependencies["readable-stream"]
		require.NotNil(t, rs)
		assert.True(t, rs.Files["readable.js"])
	})

	t.Run("disabled dependency is excluded", func(t *testing.T) {
		assert.Nil(t, res.Root.Dependencies["noisy"])
	})

	t.Run("nested version pins per tree position", func(t *testing.T) {
		crox := res.Root.Dependencies["crox"]
		require.NotNil(t, crox)
		nested := crox.Dependencies["yen"]
		require.NotNil(t, nested)
		assert.Equal(t, "1.0.2", nested.Version)

		versions := res.Root.FindAll("yen")
		assert.Len(t, versions, 2)
	})

	t.Run("system map projection", func(t *testing.T) {
		require.NotNil(t, res.System)
		loc, ok := res.System.Lookup("yen", "1.2.4")
		require.True(t, ok)
		assert.Equal(t, "index.js", loc.Main)
		assert.ElementsMatch(t, []string{"1.0.2", "1.2.4"}, res.System.Modules["yen"])
	})

	t.Run("lock table on root only", func(t *testing.T) {
		require.NotNil(t, res.Root.Lock)
		assert.Contains(t, res.Root.Lock, "site@1.0.0")
		assert.Contains(t, res.Root.Lock, "crox@2.0.3")
		for _, dep := range res.Root.Dependencies {
			assert.Nil(t, dep.Lock)
		}
	})
}

func TestBuildWithoutSelf(t *testing.T) {
	root := fixture(t)
	b := newBuilder(t)

	res, err := b.Build(context.Background(), &domain.Options{Root: root})
	require.NoError(t, err)

	// Root sources are not scanned, but declared dependencies are still walked.
	assert.Empty(t, res.Root.Files)
	require.NotNil(t, res.Root.Dependencies["yen"])
	require.NotNil(t, res.Root.Dependencies["crox"])
	assert.True(t, res.Root.Dependencies["yen"].Files["index.js"])
}

func TestBuildEntryRestriction(t *testing.T) {
	root := fixture(t)
	b := newBuilder(t)

	res, err := b.Build(context.Background(), &domain.Options{Root: root, Entries: []string{"yen"}})
	require.NoError(t, err)

	require.NotNil(t, res.Root.Dependencies["yen"])
	assert.Nil(t, res.Root.Dependencies["crox"])
}

func TestBuildVersionConflict(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "package.json"), `{
		"name": "site", "version": "1.0.0", "main": "app.js",
		"dependencies": {"yen": "^2.0.0"}
	}`)
	writeFile(t, filepath.Join(root, "app.js"), "require('yen');\n")
	writeFile(t, filepath.Join(root, "node_modules", "yen", "package.json"), `{
		"name": "yen", "version": "1.2.4", "main": "index.js"
	}`)
	writeFile(t, filepath.Join(root, "node_modules", "yen", "index.js"), "")

	res, err := newBuilder(t).Build(context.Background(), &domain.Options{Root: root, IncludeSelf: true})
	require.NoError(t, err)

	// A range mismatch is reported, never fatal; the walked tree stands.
	require.Len(t, res.Conflicts, 1)
	assert.ErrorIs(t, res.Conflicts[0], domain.ErrVersionConflict)
	require.NotNil(t, res.Root.Dependencies["yen"])
	assert.Equal(t, "1.2.4", res.Root.Dependencies["yen"].Version)
}

func TestBuildManifestCycle(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "package.json"), `{
		"name": "site", "version": "1.0.0", "main": "app.js",
		"dependencies": {"ping": "1.0.0"}
	}`)
	writeFile(t, filepath.Join(root, "app.js"), "require('ping');\n")
	writeFile(t, filepath.Join(root, "node_modules", "ping", "package.json"), `{
		"name": "ping", "version": "1.0.0", "main": "index.js",
		"dependencies": {"pong": "1.0.0"}
	}`)
	writeFile(t, filepath.Join(root, "node_modules", "ping", "index.js"), "require('pong');\n")
	writeFile(t, filepath.Join(root, "node_modules", "pong", "package.json"), `{
		"name": "pong", "version": "1.0.0", "main": "index.js",
		"dependencies": {"ping": "1.0.0"}
	}`)
	writeFile(t, filepath.Join(root, "node_modules", "pong", "index.js"), "require('ping');\n")

	res, err := newBuilder(t).Build(context.Background(), &domain.Options{Root: root, IncludeSelf: true})
	require.NoError(t, err)

	ping := res.Root.Dependencies["ping"]
	require.NotNil(t, ping)
	pong := ping.Dependencies["pong"]
	require.NotNil(t, pong)
	assert.Same(t, ping, pong.Dependencies["ping"])
}

func TestBuildSearchPaths(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "package.json"), `{
		"name": "site", "version": "1.0.0", "main": "app.js",
		"dependencies": {}
	}`)
	writeFile(t, filepath.Join(root, "app.js"), "require('widget');\n")
	writeFile(t, filepath.Join(root, "components", "widget", "package.json"), `{
		"name": "widget", "main": "index.js"
	}`)
	writeFile(t, filepath.Join(root, "components", "widget", "index.js"), "module.exports = {};\n")

	res, err := newBuilder(t).Build(context.Background(), &domain.Options{
		Root:        root,
		Paths:       []string{"components"},
		IncludeSelf: true,
	})
	require.NoError(t, err)

	widget := res.Root.Dependencies["widget"]
	require.NotNil(t, widget)
	assert.Empty(t, widget.Version)
	assert.True(t, widget.Files["index.js"])
}

func TestBuildMissingManifest(t *testing.T) {
	root := t.TempDir()
	_, err := newBuilder(t).Build(context.Background(), &domain.Options{Root: root})
	require.ErrorIs(t, err, domain.ErrManifest)
}

func TestBuildRelativeOverride(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "package.json"), `{
		"name": "site", "version": "1.0.0", "main": "app.js",
		"browser": {"./heavy.js": "./light.js", "./debug.js": false},
		"dependencies": {}
	}`)
	writeFile(t, filepath.Join(root, "app.js"), "require('./heavy');\nrequire('./debug');\n")
	writeFile(t, filepath.Join(root, "heavy.js"), "module.exports = 'heavy';\n")
	writeFile(t, filepath.Join(root, "light.js"), "module.exports = 'light';\n")
	writeFile(t, filepath.Join(root, "debug.js"), "module.exports = 'debug';\n")

	res, err := newBuilder(t).Build(context.Background(), &domain.Options{Root: root, IncludeSelf: true})
	require.NoError(t, err)

	assert.True(t, res.Root.Files["light.js"])
	assert.False(t, res.Root.Files["heavy.js"])
	assert.False(t, res.Root.Files["debug.js"])
}
