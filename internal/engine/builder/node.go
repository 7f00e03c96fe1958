package builder

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/bindle/internal/adapters/fs"
	"go.trai.ch/bindle/internal/adapters/logger"
	"go.trai.ch/bindle/internal/adapters/manifest"
	"go.trai.ch/bindle/internal/adapters/scan"
	"go.trai.ch/bindle/internal/core/ports"
)

// NodeID is the unique identifier for the dependency map builder Graft node.
const NodeID graft.ID = "engine.builder"

func init() {
	graft.Register(graft.Node[*Builder]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			manifest.NodeID,
			scan.ScriptNodeID,
			scan.StyleNodeID,
			fs.LocatorNodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Builder, error) {
			manifests, err := graft.Dep[ports.ManifestLoader](ctx)
			if err != nil {
				return nil, err
			}
			scripts, err := graft.Dep[ports.ScriptScanner](ctx)
			if err != nil {
				return nil, err
			}
			styles, err := graft.Dep[ports.StyleScanner](ctx)
			if err != nil {
				return nil, err
			}
			locator, err := graft.Dep[*fs.Locator](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return New(manifests, scripts, styles, locator, log), nil
		},
	})
}
