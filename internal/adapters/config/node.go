package config

import (
	"context"
	"os"

	"github.com/grindlemire/graft"
	"go.trai.ch/bindle/internal/core/domain"
)

const (
	// NodeID is the unique identifier for the config loader Graft node.
	NodeID graft.ID = "adapter.config"
	// OptionsNodeID is the unique identifier for the loaded options Graft node.
	OptionsNodeID graft.ID = "adapter.config.options"
)

func init() {
	graft.Register(graft.Node[*Loader]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (*Loader, error) {
			return NewLoader(), nil
		},
	})

	graft.Register(graft.Node[*domain.Options]{
		ID:        OptionsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{NodeID},
		Run: func(ctx context.Context) (*domain.Options, error) {
			loader, err := graft.Dep[*Loader](ctx)
			if err != nil {
				return nil, err
			}
			cwd, err := os.Getwd()
			if err != nil {
				return nil, err
			}
			return loader.Load(cwd)
		},
	})
}
