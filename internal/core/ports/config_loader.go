package ports

import "go.trai.ch/anvil/internal/core/domain"

// ConfigLoader reads a build graph definition from a working directory.
//
//go:generate go run go.uber.org/mock/mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load reads the build definition rooted at cwd and returns the
	// resulting DAG.
	Load(cwd string) (*domain.DAG, error)
}
