package ports

import "go.trai.ch/anvil/internal/core/domain"

// BuildInfoStore records the last known build outcome for each target,
// independent of the flat digest cache the executor consults for
// rebuild decisions.
//
//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type BuildInfoStore interface {
	// Get retrieves the build info for a given target name.
	// Returns nil, nil if not found.
	Get(targetName string) (*domain.BuildInfo, error)

	// Put stores the build info.
	Put(info domain.BuildInfo) error
}
