package scan

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/bindle/internal/core/ports"
)

const (
	// ScriptNodeID is the unique identifier for the script scanner Graft node.
	ScriptNodeID graft.ID = "adapter.scan.script"
	// StyleNodeID is the unique identifier for the style scanner Graft node.
	StyleNodeID graft.ID = "adapter.scan.style"
)

func init() {
	graft.Register(graft.Node[ports.ScriptScanner]{
		ID:        ScriptNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.ScriptScanner, error) {
			return NewScript(), nil
		},
	})

	graft.Register(graft.Node[ports.StyleScanner]{
		ID:        StyleNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.StyleScanner, error) {
			return NewStyle(), nil
		},
	})
}
