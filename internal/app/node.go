package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/anvil/internal/adapters/cas"         //nolint:depguard // Wired in app layer
	"go.trai.ch/anvil/internal/adapters/config"       //nolint:depguard // Wired in app layer
	"go.trai.ch/anvil/internal/adapters/console"      //nolint:depguard // Wired in app layer
	"go.trai.ch/anvil/internal/adapters/environment"  //nolint:depguard // Wired in app layer
	"go.trai.ch/anvil/internal/adapters/fs"           //nolint:depguard // Wired in app layer
	"go.trai.ch/anvil/internal/adapters/logger"       //nolint:depguard // Wired in app layer
	"go.trai.ch/anvil/internal/adapters/shell"        //nolint:depguard // Wired in app layer
	"go.trai.ch/anvil/internal/adapters/telemetry"    //nolint:depguard // Wired in app layer
	"go.trai.ch/anvil/internal/core/ports"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			shell.NodeID,
			logger.NodeID,
			cas.NodeID,
			environment.NodeID,
			fs.VerifierNodeID,
			telemetry.TracerNodeID,
			console.NodeID,
		},
		Run: runAppNode,
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
		},
		Run: runComponentsNode,
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	loader, err := graft.Dep[ports.ConfigLoader](ctx)
	if err != nil {
		return nil, err
	}
	runner, err := graft.Dep[ports.CommandRunner](ctx)
	if err != nil {
		return nil, err
	}
	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}
	store, err := graft.Dep[ports.BuildInfoStore](ctx)
	if err != nil {
		return nil, err
	}
	envFactory, err := graft.Dep[ports.EnvironmentFactory](ctx)
	if err != nil {
		return nil, err
	}
	verifier, err := graft.Dep[ports.Verifier](ctx)
	if err != nil {
		return nil, err
	}
	tracer, err := graft.Dep[ports.Tracer](ctx)
	if err != nil {
		return nil, err
	}
	reporter, err := graft.Dep[ports.ProgressReporter](ctx)
	if err != nil {
		return nil, err
	}

	return New(loader, runner, log, store, envFactory, verifier, tracer, reporter), nil
}

func runComponentsNode(ctx context.Context) (*Components, error) {
	a, err := graft.Dep[*App](ctx)
	if err != nil {
		return nil, err
	}
	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}
	return &Components{App: a, Logger: log}, nil
}
