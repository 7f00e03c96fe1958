package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/bindle/internal/adapters/cache"
	"go.trai.ch/bindle/internal/adapters/config"
	"go.trai.ch/bindle/internal/adapters/fs"
	"go.trai.ch/bindle/internal/adapters/logger"
	"go.trai.ch/bindle/internal/adapters/watcher"
	"go.trai.ch/bindle/internal/core/domain"
	"go.trai.ch/bindle/internal/core/ports"
	"go.trai.ch/bindle/internal/engine/builder"
	"go.trai.ch/bindle/internal/engine/compile"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

// Components contains all the initialized application components. This struct
// provides controlled access to components needed by the CLI layer.
type Components struct {
	App     *App
	Logger  ports.Logger
	Options *domain.Options
}

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.OptionsNodeID,
			builder.NodeID,
			compile.NodeID,
			cache.NodeID,
			fs.LocatorNodeID,
			fs.HasherNodeID,
			watcher.NodeID,
			logger.NodeID,
		},
		Run: runAppNode,
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
			config.OptionsNodeID,
		},
		Run: func(ctx context.Context) (*Components, error) {
			application, err := graft.Dep[*App](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			opts, err := graft.Dep[*domain.Options](ctx)
			if err != nil {
				return nil, err
			}
			return &Components{App: application, Logger: log, Options: opts}, nil
		},
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	opts, err := graft.Dep[*domain.Options](ctx)
	if err != nil {
		return nil, err
	}
	b, err := graft.Dep[*builder.Builder](ctx)
	if err != nil {
		return nil, err
	}
	compiler, err := graft.Dep[*compile.Compiler](ctx)
	if err != nil {
		return nil, err
	}
	store, err := graft.Dep[ports.ContentCache](ctx)
	if err != nil {
		return nil, err
	}
	locator, err := graft.Dep[*fs.Locator](ctx)
	if err != nil {
		return nil, err
	}
	hasher, err := graft.Dep[*fs.Hasher](ctx)
	if err != nil {
		return nil, err
	}
	watch, err := graft.Dep[ports.Watcher](ctx)
	if err != nil {
		return nil, err
	}
	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}
	return New(opts, b, compiler, store, locator, hasher, watch, log), nil
}
