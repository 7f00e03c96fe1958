package cache

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/bindle/internal/adapters/config"
	"go.trai.ch/bindle/internal/adapters/fs"
	"go.trai.ch/bindle/internal/core/domain"
	"go.trai.ch/bindle/internal/core/ports"
)

// NodeID is the unique identifier for the content cache Graft node.
const NodeID graft.ID = "adapter.cache"

func init() {
	graft.Register(graft.Node[ports.ContentCache]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.OptionsNodeID, fs.HasherNodeID},
		Run: func(ctx context.Context) (ports.ContentCache, error) {
			opts, err := graft.Dep[*domain.Options](ctx)
			if err != nil {
				return nil, err
			}
			hasher, err := graft.Dep[*fs.Hasher](ctx)
			if err != nil {
				return nil, err
			}
			return NewStore(opts.AbsDestination(), opts.CacheExceptions, opts.CachePersist, hasher)
		},
	})
}
