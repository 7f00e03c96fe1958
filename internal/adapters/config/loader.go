// Package config provides the configuration loader for bindle.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/bindle/internal/core/domain"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// Loader reads bindle.yaml from a project directory.
type Loader struct {
	Filename string
}

// NewLoader creates a Loader for the default config file name.
func NewLoader() *Loader {
	return &Loader{Filename: domain.ConfigFileName}
}

// optionsDTO mirrors the YAML structure of the configuration file.
type optionsDTO struct {
	Destination string         `yaml:"destination"`
	Paths       []string       `yaml:"paths"`
	Entries     []string       `yaml:"entries"`
	Cache       cacheDTO       `yaml:"cache"`
	MapOverride string         `yaml:"dependencyMap"`
	Originals   bool           `yaml:"serveOriginals"`
	IncludeSelf *bool          `yaml:"includeSelf"`
	Loader      map[string]any `yaml:"loader"`
}

type cacheDTO struct {
	Exceptions []string `yaml:"exceptions"`
	Persist    bool     `yaml:"persist"`
}

// Load reads the configuration from the given working directory. A missing
// file yields defaults; any other read or parse failure is an error.
func (l *Loader) Load(cwd string) (*domain.Options, error) {
	root, err := filepath.Abs(cwd)
	if err != nil {
		return nil, domain.Mark(domain.ErrConfigReadFailed, err)
	}

	opts := &domain.Options{
		Root:        root,
		IncludeSelf: true,
	}

	path := filepath.Join(root, l.Filename)
	data, err := os.ReadFile(path) //nolint:gosec // Path is the project config file
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return opts, nil
		}
		return nil, zerr.With(domain.Mark(domain.ErrConfigReadFailed, err), "path", path)
	}

	var dto optionsDTO
	if err := yaml.Unmarshal(data, &dto); err != nil {
		return nil, zerr.With(domain.Mark(domain.ErrConfigParseFailed, err), "path", path)
	}

	opts.Destination = dto.Destination
	opts.Paths = dto.Paths
	opts.Entries = dto.Entries
	opts.CacheExceptions = dto.Cache.Exceptions
	opts.CachePersist = dto.Cache.Persist
	opts.MapOverride = dto.MapOverride
	opts.ServeOriginals = dto.Originals
	if dto.IncludeSelf != nil {
		opts.IncludeSelf = *dto.IncludeSelf
	}
	opts.Loader = dto.Loader
	return opts, nil
}
