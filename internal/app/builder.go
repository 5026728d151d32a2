package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/anvil/internal/core/ports"
)

// Components contains all the initialized application components needed
// by the CLI layer.
type Components struct {
	App    *App
	Logger ports.Logger
}

// NewApp bootstraps the full Graft dependency graph and returns the
// assembled Components, or the first initialization error encountered.
func NewApp(ctx context.Context) (*Components, error) {
	components, _, err := graft.ExecuteFor[*Components](ctx)
	return components, err
}
