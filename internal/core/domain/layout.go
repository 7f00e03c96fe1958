// Package domain contains the core domain models for the dependency graph
// and compilation pipeline.
package domain

import (
	"path"
	"path/filepath"
	"strings"
)

const (
	// BindleDirName is the name of the internal metadata directory.
	BindleDirName = ".bindle"

	// CacheDirName is the name of the compiled-output cache directory.
	CacheDirName = "cache"

	// ConfigFileName is the name of the project configuration file.
	ConfigFileName = "bindle.yaml"

	// ManifestFileName is the name of a package manifest.
	ManifestFileName = "package.json"

	// PackageStoreDirName is the directory packages are installed into.
	PackageStoreDirName = "node_modules"

	// IndexFileName is the implicit entry of a folder-style module.
	IndexFileName = "index.js"

	// LoaderAssetName is the id under which the client runtime is served.
	LoaderAssetName = "loader.js"

	// DependencyMapAssetName is the id under which the serialized map is served.
	DependencyMapAssetName = "dependenciesMap.json"

	// EmptyModuleID is the runtime's built-in empty module, substituted for
	// specifiers a browser override disables.
	EmptyModuleID = "@empty"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644
)

// DefaultCachePath returns the default destination directory for compiled output.
func DefaultCachePath() string {
	return filepath.Join(BindleDirName, CacheDirName)
}

// OutputPath returns the cache-relative output location for a compiled entry of
// a package: <name>/<version>/<entry>. Folder-style entries compile to
// <entry>/index.js rather than <entry>.js.
func OutputPath(name, version, entry string, folder bool) string {
	if entry == "" {
		entry = IndexFileName
	}
	if folder {
		entry = path.Join(entry, IndexFileName)
	}
	if version == "" {
		return path.Join(name, entry)
	}
	return path.Join(name, version, entry)
}

// ContentType returns the Content-Type header value for an asset id, decided by
// its extension.
func ContentType(id string) string {
	switch strings.ToLower(path.Ext(id)) {
	case ".js":
		return "application/javascript"
	case ".css":
		return "text/css"
	case ".json", ".map":
		return "application/json"
	case ".html":
		return "text/html"
	case ".svg":
		return "image/svg+xml"
	default:
		return "application/octet-stream"
	}
}

// IsStyleID reports whether an asset id names a stylesheet.
func IsStyleID(id string) bool {
	return strings.ToLower(path.Ext(id)) == ".css"
}
