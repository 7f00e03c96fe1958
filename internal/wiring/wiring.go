// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/bindle/internal/adapters/cache"
	_ "go.trai.ch/bindle/internal/adapters/config"
	_ "go.trai.ch/bindle/internal/adapters/fs"
	_ "go.trai.ch/bindle/internal/adapters/logger"
	_ "go.trai.ch/bindle/internal/adapters/manifest"
	_ "go.trai.ch/bindle/internal/adapters/scan"
	_ "go.trai.ch/bindle/internal/adapters/style"
	_ "go.trai.ch/bindle/internal/adapters/watcher"
	// Register app and engine nodes.
	_ "go.trai.ch/bindle/internal/app"
	_ "go.trai.ch/bindle/internal/engine/builder"
	_ "go.trai.ch/bindle/internal/engine/compile"
)
