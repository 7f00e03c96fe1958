package compile

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/bindle/internal/adapters/cache"
	"go.trai.ch/bindle/internal/adapters/config"
	"go.trai.ch/bindle/internal/adapters/logger"
	"go.trai.ch/bindle/internal/adapters/scan"
	"go.trai.ch/bindle/internal/adapters/style"
	"go.trai.ch/bindle/internal/core/domain"
	"go.trai.ch/bindle/internal/core/ports"
)

// NodeID is the unique identifier for the compiler Graft node.
const NodeID graft.ID = "engine.compile"

func init() {
	graft.Register(graft.Node[*Compiler]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			cache.NodeID,
			style.NodeID,
			scan.ScriptNodeID,
			logger.NodeID,
			config.OptionsNodeID,
		},
		Run: func(ctx context.Context) (*Compiler, error) {
			store, err := graft.Dep[ports.ContentCache](ctx)
			if err != nil {
				return nil, err
			}
			styles, err := graft.Dep[*style.Pipeline](ctx)
			if err != nil {
				return nil, err
			}
			scripts, err := graft.Dep[ports.ScriptScanner](ctx)
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
			return NewCompiler(store, styles, scripts, log, opts.Root), nil
		},
	})
}
