package console

import (
	"context"
	"os"

	"github.com/grindlemire/graft"
	"go.trai.ch/anvil/internal/core/ports"
)

const NodeID graft.ID = "adapter.console_reporter"

func init() {
	graft.Register(graft.Node[ports.ProgressReporter]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(ctx context.Context) (ports.ProgressReporter, error) {
			return New(os.Stderr, true), nil
		},
	})
}
