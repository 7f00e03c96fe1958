package style

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/bindle/internal/adapters/cache"
	"go.trai.ch/bindle/internal/adapters/config"
	"go.trai.ch/bindle/internal/adapters/scan"
	"go.trai.ch/bindle/internal/core/domain"
	"go.trai.ch/bindle/internal/core/ports"
)

// NodeID is the unique identifier for the stylesheet pipeline Graft node.
const NodeID graft.ID = "adapter.style"

func init() {
	graft.Register(graft.Node[*Pipeline]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{scan.StyleNodeID, config.OptionsNodeID, cache.NodeID},
		Run: func(ctx context.Context) (*Pipeline, error) {
			scanner, err := graft.Dep[ports.StyleScanner](ctx)
			if err != nil {
				return nil, err
			}
			opts, err := graft.Dep[*domain.Options](ctx)
			if err != nil {
				return nil, err
			}
			store, err := graft.Dep[ports.ContentCache](ctx)
			if err != nil {
				return nil, err
			}
			return NewPipeline(scanner, opts.AbsPaths(), opts.Root, store), nil
		},
	})
}
