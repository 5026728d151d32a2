// Package shell provides the command runner adapter.
package shell

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.trai.ch/anvil/internal/adapters/telemetry"
	"go.trai.ch/anvil/internal/core/ports"
	"go.trai.ch/zerr"
)

// Runner implements ports.CommandRunner by invoking a target's command
// through "sh -c", merging the engine process's environment (when
// InheritEnvironment is set) with any overrides the caller supplies. Stdout/stderr are streamed to the
// configured logger line by line unless CaptureOutput is set, in which
// case they are buffered into the returned CommandResult instead. The
// streaming path batches output through a telemetry.BatchProcessor rather
// than logging every write syscall's worth of bytes, so a command that
// writes output in small, frequent chunks doesn't produce one log call per
// chunk.
type Runner struct {
	logger ports.Logger
}

// NewRunner creates a Runner that streams uncaptured output to logger.
func NewRunner(logger ports.Logger) *Runner {
	return &Runner{logger: logger}
}

// Run executes command with the given options.
func (r *Runner) Run(ctx context.Context, command string, opts ports.CommandOptions) (ports.CommandResult, error) {
	if strings.TrimSpace(command) == "" {
		return ports.CommandResult{ExitCode: 0}, nil
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if opts.TimeoutSeconds > 0 {
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(opts.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, "sh", "-c", command) //nolint:gosec // command is the target's own build command
	if opts.WorkingDir != "" {
		cmd.Dir = opts.WorkingDir
	}
	cmd.Env = resolveEnvironment(opts.InheritEnvironment, opts.Env)

	var stdoutBuf, stderrBuf bytes.Buffer
	var stdoutBatch, stderrBatch *telemetry.BatchProcessor
	if opts.CaptureOutput {
		cmd.Stdout = &stdoutBuf
		cmd.Stderr = &stderrBuf
	} else {
		stdoutWriter := &logWriter{logger: r.logger, isError: false}
		stderrWriter := &logWriter{logger: r.logger, isError: true}
		stdoutBatch = telemetry.NewBatchProcessor(telemetry.DefaultSizeLimit, telemetry.DefaultTimeLimit, stdoutWriter.flush)
		stderrBatch = telemetry.NewBatchProcessor(telemetry.DefaultSizeLimit, telemetry.DefaultTimeLimit, stderrWriter.flush)
		cmd.Stdout = stdoutBatch
		cmd.Stderr = stderrBatch
	}

	err := cmd.Run()
	if stdoutBatch != nil {
		_ = stdoutBatch.Close()
		_ = stderrBatch.Close()
	}

	result := ports.CommandResult{
		Stdout:   stdoutBuf.String(),
		Stderr:   stderrBuf.String(),
		TimedOut: runCtx.Err() == context.DeadlineExceeded,
	}

	if err != nil {
		var exitErr *exec.ExitError
		if ok := asExitError(err, &exitErr); ok {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		if result.TimedOut {
			result.ExitCode = -1
			return result, nil
		}
		return result, zerr.With(zerr.Wrap(err, "failed to start command"), "command", command)
	}

	return result, nil
}

// RunSimple executes command with default options and reports only
// success.
func (r *Runner) RunSimple(ctx context.Context, command string) (bool, error) {
	result, err := r.Run(ctx, command, ports.CommandOptions{InheritEnvironment: true})
	if err != nil {
		return false, err
	}
	return result.Success(), nil
}

func asExitError(err error, target **exec.ExitError) bool {
	exitErr, ok := err.(*exec.ExitError)
	if ok {
		*target = exitErr
	}
	return ok
}

// resolveEnvironment merges the engine process's environment (when
// inherit is true) with the caller-supplied overrides, overrides taking
// precedence on key collisions.
func resolveEnvironment(inherit bool, overrides []string) []string {
	envMap := make(map[string]string)
	if inherit {
		for _, entry := range os.Environ() {
			if k, v, ok := strings.Cut(entry, "="); ok {
				envMap[k] = v
			}
		}
	}
	for _, entry := range overrides {
		if k, v, ok := strings.Cut(entry, "="); ok {
			envMap[k] = v
		}
	}

	result := make([]string, 0, len(envMap))
	for k, v := range envMap {
		result = append(result, k+"="+v)
	}
	return result
}

type logWriter struct {
	logger  ports.Logger
	isError bool
}

// flush logs one batch of output flushed by a BatchProcessor, splitting it
// on newlines so each build-command line becomes its own log record.
func (w *logWriter) flush(p []byte) {
	lines := strings.Split(strings.TrimSuffix(string(p), "\n"), "\n")
	for _, line := range lines {
		if line == "" {
			continue
		}
		if w.isError {
			w.logger.Error(zerr.New(line))
		} else {
			w.logger.Info(line)
		}
	}
}
