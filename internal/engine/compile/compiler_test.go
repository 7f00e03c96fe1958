package compile_test

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/bindle/internal/adapters/cache"
	"go.trai.ch/bindle/internal/adapters/fs"
	"go.trai.ch/bindle/internal/adapters/logger"
	"go.trai.ch/bindle/internal/adapters/scan"
	"go.trai.ch/bindle/internal/adapters/style"
	"go.trai.ch/bindle/internal/core/domain"
	"go.trai.ch/bindle/internal/engine/compile"
)

func newCompiler(t *testing.T, root string) (*compile.Compiler, *cache.Store) {
	t.Helper()
	store, err := cache.NewStore(t.TempDir(), nil, false, fs.NewHasher())
	require.NoError(t, err)
	log := logger.New()
	log.SetOutput(io.Discard)
	pipeline := style.NewPipeline(scan.NewStyle(), nil, root, store)
	return compile.NewCompiler(store, pipeline, scan.NewScript(), log, root), store
}

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// yenNode is a resolved dependency used as a rewrite target across tests.
func yenNode(dir string) *domain.PackageNode {
	return &domain.PackageNode{
		Name:    "yen",
		Version: "1.2.4",
		Dir:     dir,
		Main:    "index.js",
		Files:   map[string]bool{"index.js": true, "lib/core.js": true},
	}
}

func TestModuleID(t *testing.T) {
	assert.Equal(t, "yen/1.2.4/index.js", compile.ModuleID(yenNode(""), "index.js"))
	local := &domain.PackageNode{Name: "widget"}
	assert.Equal(t, "widget/index.js", compile.ModuleID(local, "index.js"))
}

func TestDefine(t *testing.T) {
	def := &domain.Definition{
		ID:         "yen/1.2.4/index.js",
		Specifiers: []string{"yen/1.2.4/lib/core.js", "@empty"},
		Source:     "var core = require('yen/1.2.4/lib/core.js');\nmodule.exports = core;\n",
	}
	g := goldie.New(t)
	g.Assert(t, "define_basic", compile.Define(def))
}

func TestCompileModule(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "index.js"),
		"var util = require('./util');\n"+
			"var yen = require('yen');\n"+
			"var gone = require('gone');\n"+
			"var mystery = require('mystery');\n"+
			"var label = 'yen rocks';\n")
	writeFile(t, filepath.Join(dir, "util.js"), "module.exports = 1;\n")

	node := &domain.PackageNode{
		Name:    "crox",
		Version: "2.0.0",
		Dir:     dir,
		Main:    "index.js",
		Browser: domain.Overrides{"gone": {Disabled: true}},
		Dependencies: map[string]*domain.PackageNode{
			"yen": yenNode(filepath.Join(dir, "node_modules", "yen")),
		},
		Files: map[string]bool{"index.js": true, "util.js": true},
	}

	c, store := newCompiler(t, dir)
	out, err := c.CompileModule(context.Background(), node, "index.js", domain.Flatten(node))
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "wrap_script", out)

	t.Run("repeat compile is byte identical", func(t *testing.T) {
		again, err := c.CompileModule(context.Background(), node, "index.js", domain.Flatten(node))
		require.NoError(t, err)
		assert.Equal(t, out, again)
	})

	t.Run("result is cached by content", func(t *testing.T) {
		source, err := os.ReadFile(filepath.Join(dir, "index.js"))
		require.NoError(t, err)
		cached, ok := store.Read("crox/2.0.0/index.js", source)
		require.True(t, ok)
		assert.Equal(t, out, cached)
	})

	t.Run("map sibling references the original source", func(t *testing.T) {
		mapBytes, ok := store.ReadFile("crox/2.0.0/index.js.map")
		require.True(t, ok)
		var m struct {
			Version  int      `json:"version"`
			Sources  []string `json:"sources"`
			Mappings string   `json:"mappings"`
		}
		require.NoError(t, json.Unmarshal(mapBytes, &m))
		assert.Equal(t, 3, m.Version)
		assert.Equal(t, []string{"index.js"}, m.Sources)
		assert.NotEmpty(t, m.Mappings)
	})
}

func TestCompileModuleStylesheet(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "styles", "main.css"),
		"@import \"./base.css\";\n.app {\n  display: flex;\n}\n")
	writeFile(t, filepath.Join(dir, "styles", "base.css"), "html {\n  margin: 0;\n}\n")

	node := &domain.PackageNode{
		Name:  "site",
		Dir:   dir,
		Main:  "index.js",
		Style: []string{"styles/main.css"},
		Files: map[string]bool{"styles/main.css": true, "styles/base.css": true},
	}

	c, _ := newCompiler(t, dir)
	out, err := c.CompileModule(context.Background(), node, "styles/main.css", nil)
	require.NoError(t, err)

	css := string(out)
	assert.Contains(t, css, "margin: 0")
	assert.Contains(t, css, "display: flex")
	// Flattened output carries the prefixed form of flex display.
	assert.Contains(t, css, "-webkit-")
	assert.NotContains(t, css, "@import")
}

func TestCompileComponent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "components", "widget", "index.js"),
		"var state = require('./state');\nvar yen = require('yen');\n")

	rootNode := &domain.PackageNode{
		Name: "site",
		Dir:  root,
		Main: "index.js",
		Dependencies: map[string]*domain.PackageNode{
			"yen": yenNode(filepath.Join(root, "node_modules", "yen")),
		},
		Files: map[string]bool{},
	}

	c, _ := newCompiler(t, root)
	out, err := c.CompileComponent(
		context.Background(),
		filepath.Join(root, "components"),
		"widget/index.js",
		"components/widget/index.js",
		rootNode,
		domain.Flatten(rootNode),
	)
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "wrap_component", out)
}

func TestCompileAll(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "index.js"), "var core = require('./lib/core');\n")
	writeFile(t, filepath.Join(dir, "lib", "core.js"), "module.exports = {};\n")

	node := yenNode(dir)
	c, store := newCompiler(t, dir)
	require.NoError(t, c.CompileAll(context.Background(), node, domain.Flatten(node)))

	for _, rel := range []string{"index.js", "lib/core.js"} {
		source, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
		require.NoError(t, err)
		_, ok := store.Read(compile.ModuleID(node, rel), source)
		assert.True(t, ok, rel)
	}
}

func TestResolveEntry(t *testing.T) {
	node := &domain.PackageNode{
		Name:   "yen",
		Main:   "index.js",
		Files:  map[string]bool{"index.js": true, "lib/extra.js": true, "lib/widgets/index.js": true},
		Folder: map[string]bool{"lib/widgets": true},
	}

	tests := []struct {
		name  string
		entry string
		want  string
		ok    bool
	}{
		{"default main", "", "index.js", true},
		{"direct file", "lib/extra.js", "lib/extra.js", true},
		{"extension appended", "lib/extra", "lib/extra.js", true},
		{"folder module", "./lib/widgets", "lib/widgets/index.js", true},
		{"unknown entry", "lib/nope", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := compile.ResolveEntry(node, tt.entry)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
