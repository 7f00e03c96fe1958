package domain

import "go.trai.ch/zerr"

// Sentinel errors for the bundler. Callers branch on these with errors.Is;
// adapters pair a sentinel with its cause through Mark and attach context
// with zerr.With.
var (
	// ErrManifest indicates a package manifest is missing or malformed.
	ErrManifest = zerr.New("invalid package manifest")

	// ErrFileSystem indicates a file or package could not be found or read.
	ErrFileSystem = zerr.New("file system resolution failed")

	// ErrModuleNotFound indicates a requested asset id names no known module.
	ErrModuleNotFound = zerr.New("module not found")

	// ErrCaseSensitivity indicates a specifier resolved only because the
	// filesystem ignores case; the build refuses it so the project stays
	// portable to case-sensitive systems.
	ErrCaseSensitivity = zerr.New("specifier case does not match file on disk")

	// ErrVersionConflict indicates a resolved version violates the range the
	// top-level manifest declares.
	ErrVersionConflict = zerr.New("resolved version violates declared range")

	// ErrStyleImport indicates a stylesheet @import target could not be
	// resolved.
	ErrStyleImport = zerr.New("unresolvable style import")

	// ErrBuildFailed indicates a full project compile did not complete.
	ErrBuildFailed = zerr.New("project build failed")

	// ErrCacheReadFailed indicates the content cache could not be read.
	ErrCacheReadFailed = zerr.New("cache read failed")

	// ErrCacheWriteFailed indicates compiled output could not be persisted.
	ErrCacheWriteFailed = zerr.New("cache write failed")

	// ErrConfigReadFailed indicates the project configuration file could not
	// be read.
	ErrConfigReadFailed = zerr.New("failed to read configuration file")

	// ErrConfigParseFailed indicates the project configuration file could not
	// be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse configuration file")

	// ErrMapOverrideFailed indicates the configured dependency map override
	// file could not be loaded.
	ErrMapOverrideFailed = zerr.New("failed to load dependency map override")
)

// Mark puts sentinel into the error chain of cause so errors.Is matches
// either one. zerr keeps a single cause per error, so attaching metadata to
// a sentinel directly would detach it from the chain; Mark is the sanctioned
// way to raise a sentinel, with or without an underlying cause.
func Mark(sentinel, cause error) error {
	if cause == nil {
		return zerr.Wrap(sentinel, "")
	}
	return &marked{sentinel: sentinel, cause: cause}
}

type marked struct {
	sentinel error
	cause    error
}

func (m *marked) Error() string {
	return m.sentinel.Error() + ": " + m.cause.Error()
}

func (m *marked) Unwrap() []error {
	return []error{m.sentinel, m.cause}
}
