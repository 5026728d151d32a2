// Package ports defines the interfaces the core engine depends on,
// implemented by adapters under internal/adapters.
package ports

import "context"

// CommandResult is the outcome of running a single command.
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
}

// Success reports whether the command completed with exit code zero and
// without timing out.
func (r CommandResult) Success() bool {
	return r.ExitCode == 0 && !r.TimedOut
}

// CommandOptions configures a single command invocation.
type CommandOptions struct {
	// WorkingDir is the directory the command runs in; empty means the
	// engine process's own working directory.
	WorkingDir string
	// TimeoutSeconds, when non-zero, bounds how long the command may run.
	TimeoutSeconds int
	// CaptureOutput buffers stdout/stderr into the CommandResult instead
	// of streaming them to the logger.
	CaptureOutput bool
	// InheritEnvironment includes the engine process's own environment
	// variables alongside Env.
	InheritEnvironment bool
	// Env holds additional "KEY=VALUE" environment entries, applied on
	// top of the inherited environment (if any).
	Env []string
}

// CommandRunner runs a target's command line.
//
//go:generate go run go.uber.org/mock/mockgen -source=command_runner.go -destination=mocks/mock_command_runner.go -package=mocks
type CommandRunner interface {
	// Run executes command with the given options and returns its result.
	// A non-zero exit code is reported through CommandResult, not as an
	// error; Run only returns an error when the command could not be
	// started or its execution context was canceled.
	Run(ctx context.Context, command string, opts CommandOptions) (CommandResult, error)

	// RunSimple executes command with default options and reports only
	// whether it succeeded.
	RunSimple(ctx context.Context, command string) (bool, error)
}
