// Package ports defines the core interfaces for the application.
package ports

// EnvironmentFactory resolves a target's declared environment overrides
// into a process environment ("KEY=VALUE" strings) for the command
// runner, e.g. merging them over the host's inherited PATH.
//
//go:generate go run go.uber.org/mock/mockgen -source=environment.go -destination=mocks/mock_environment.go -package=mocks
type EnvironmentFactory interface {
	// BuildEnvironment returns the process environment a target's command
	// should run with, given its declared overrides.
	BuildEnvironment(overrides map[string]string) []string
}
