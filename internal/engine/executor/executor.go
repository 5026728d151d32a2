// Package executor drives the actual building of a DAG of targets: it
// decides which targets are out of date, runs their commands with
// bounded parallelism, and updates the persistent cache as each target
// finishes.
//
// The scheduling loop uses one mutex guarding completed/failed/claimed
// maps and a count of running targets, plus a condition variable workers
// wait on, rather than a
// channel-and-errgroup scheduler, matching the condition-variable-driven
// design the target execution model requires.
package executor

import (
	"context"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.trai.ch/anvil/internal/core/cache"
	"go.trai.ch/anvil/internal/core/domain"
	"go.trai.ch/anvil/internal/core/fingerprint"
	"go.trai.ch/anvil/internal/core/ports"
	"go.trai.ch/zerr"
)

// Config configures an Executor.
type Config struct {
	// NumThreads is the number of targets that may build concurrently.
	NumThreads int
	// DryRun, when true, reports what would run without running it and
	// never writes to the cache.
	DryRun bool
	// Verbose is carried in the configuration but is not read by the
	// Executor; it does not change what is logged or reported.
	Verbose bool
	// StopOnError, when true, stops scheduling new targets after the
	// first failure; already-running targets are allowed to finish, and
	// every target not yet started, dependents included, is reported as
	// skipped. When false, dependents of a failed target are still
	// attempted.
	StopOnError bool
	// ColorOutput is carried in the configuration but is not read by the
	// Executor; console coloring is set on the progress reporter itself.
	ColorOutput bool
}

// DefaultConfig returns the executor's zero-value-safe defaults, matching
// original_source/include/mimir/executor.h's ExecutorConfig defaults.
func DefaultConfig() Config {
	return Config{
		NumThreads:  1,
		StopOnError: true,
		ColorOutput: true,
	}
}

// Stats summarizes a completed build run.
type Stats struct {
	TotalTargets    int
	BuiltTargets    int
	SkippedTargets  int
	FailedTargets   int
	ElapsedDuration time.Duration
}

// Executor builds a DAG of targets against a persistent cache.
type Executor struct {
	config           Config
	runner           ports.CommandRunner
	envFactory       ports.EnvironmentFactory
	verifier         ports.Verifier
	progressCallback ports.ProgressCallback
	cancelled        atomic.Bool
	outputMu         sync.Mutex
}

// New creates an Executor with the given configuration and command runner.
func New(config Config, runner ports.CommandRunner) *Executor {
	if config.NumThreads < 1 {
		config.NumThreads = 1
	}
	return &Executor{config: config, runner: runner}
}

// SetProgressCallback installs a callback invoked on every target status
// transition.
func (e *Executor) SetProgressCallback(cb ports.ProgressCallback) {
	e.progressCallback = cb
}

// SetEnvironmentFactory installs an EnvironmentFactory used to resolve a
// target's Environment overrides into a process environment. Without
// one, targets run with their Environment map merged over nothing but
// InheritEnvironment.
func (e *Executor) SetEnvironmentFactory(f ports.EnvironmentFactory) {
	e.envFactory = f
}

// targetEnv resolves a target's environment overrides via the installed
// EnvironmentFactory, falling back to a plain sorted KEY=VALUE slice.
func (e *Executor) targetEnv(overrides map[string]string) []string {
	if e.envFactory != nil {
		return e.envFactory.BuildEnvironment(overrides)
	}
	return envSlice(overrides)
}

// SetVerifier installs a Verifier used to check declared outputs exist
// on disk when deciding whether a target is out of date. Without one,
// the executor falls back to statting each output itself.
func (e *Executor) SetVerifier(v ports.Verifier) {
	e.verifier = v
}

// Cancel requests that the current or next Run stop scheduling new work.
// Already-running targets are allowed to finish.
func (e *Executor) Cancel() {
	e.cancelled.Store(true)
}

// IsCancelled reports whether Cancel has been called since the last
// ResetCancelled.
func (e *Executor) IsCancelled() bool {
	return e.cancelled.Load()
}

// ResetCancelled clears the cancellation flag.
func (e *Executor) ResetCancelled() {
	e.cancelled.Store(false)
}

// Run builds every target the requested names transitively depend on (or
// every target in dag, if names is empty), in topological order, with up
// to config.NumThreads targets building concurrently.
func (e *Executor) Run(ctx context.Context, dag *domain.DAG, c *cache.Cache, root string, names []string) (Stats, error) {
	start := time.Now()

	order, err := e.buildOrder(dag, names)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{TotalTargets: len(order)}
	if len(order) == 0 {
		stats.ElapsedDuration = time.Since(start)
		return stats, nil
	}

	state := newRunState(order)

	if e.config.NumThreads <= 1 {
		e.runSingleThreaded(ctx, dag, c, root, state, &stats)
	} else {
		e.runMultiThreaded(ctx, dag, c, root, state, &stats)
	}

	stats.ElapsedDuration = time.Since(start)
	return stats, state.firstErr()
}

// ExecuteTarget builds a single target directly, bypassing dependency
// scheduling entirely. Callers are responsible for having already built
// any dependencies; this is useful for ad-hoc single-target rebuilds and
// for tests that exercise the up-to-date/out-of-date decision in
// isolation.
func (e *Executor) ExecuteTarget(ctx context.Context, target *domain.Target, c *cache.Cache, root string) (built bool, err error) {
	digest, outOfDate, err := e.isOutOfDate(root, target, c)
	if err != nil {
		return false, err
	}
	if !outOfDate {
		e.report(target.Name.String(), domain.TargetStatusCached)
		return false, nil
	}
	if e.config.DryRun {
		e.report(target.Name.String(), "WOULD-BUILD")
		return false, nil
	}

	e.report(target.Name.String(), domain.TargetStatusRunning)
	opts := ports.CommandOptions{
		WorkingDir:         joinWorkingDir(root, target.WorkingDir.String()),
		InheritEnvironment: true,
		Env:                e.targetEnv(target.Environment),
	}
	result, runErr := e.runner.Run(ctx, target.Command, opts)
	if runErr != nil || !result.Success() {
		if runErr == nil {
			runErr = zerr.With(zerr.New("command failed"), "exit_code", result.ExitCode)
		}
		e.report(target.Name.String(), domain.TargetStatusFailed)
		return false, zerr.With(runErr, "target", target.Name.String())
	}

	c.Set(target.Name.String(), digest)
	e.report(target.Name.String(), domain.TargetStatusCompleted)
	return true, nil
}

// buildOrder computes the topological execution order restricted to the
// transitive dependency closure of names (or the whole DAG when names is
// empty).
func (e *Executor) buildOrder(dag *domain.DAG, names []string) ([]domain.InternedString, error) {
	full, err := dag.TopologicalSort()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return full, nil
	}

	wanted := make(map[domain.InternedString]bool)
	var visit func(domain.InternedString) error
	visit = func(name domain.InternedString) error {
		if wanted[name] {
			return nil
		}
		if !dag.HasTarget(name) {
			return zerr.With(domain.ErrTargetNotFound, "target", name.String())
		}
		wanted[name] = true
		for _, dep := range dag.Dependencies(name) {
			if err := visit(dep); err != nil {
				return err
			}
		}
		return nil
	}
	for _, n := range names {
		if err := visit(domain.NewInternedString(n)); err != nil {
			return nil, err
		}
	}

	filtered := make([]domain.InternedString, 0, len(wanted))
	for _, name := range full {
		if wanted[name] {
			filtered = append(filtered, name)
		}
	}
	return filtered, nil
}

// runState tracks the shared scheduling bookkeeping a single Run uses,
// guarded by one mutex and its condition variable.
type runState struct {
	mu        sync.Mutex
	cond      *sync.Cond
	order     []domain.InternedString
	completed map[domain.InternedString]bool
	failed    map[domain.InternedString]bool
	claimed   map[domain.InternedString]bool
	active    int
	errs      []error
}

func newRunState(order []domain.InternedString) *runState {
	s := &runState{
		order:     order,
		completed: make(map[domain.InternedString]bool, len(order)),
		failed:    make(map[domain.InternedString]bool, len(order)),
		claimed:   make(map[domain.InternedString]bool, len(order)),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *runState) firstErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var joined error
	for _, e := range s.errs {
		joined = zerr.Wrap(e, "build failed")
		break
	}
	return joined
}

// claimNext finds the next unclaimed, ready target (all dependencies
// completed) in topological order and marks it claimed. It returns the
// zero value and false when nothing is currently claimable.
func (s *runState) claimNext(dag *domain.DAG) (domain.InternedString, bool) {
	for _, name := range s.order {
		if s.claimed[name] {
			continue
		}
		ready := true
		for _, dep := range dag.Dependencies(name) {
			if !s.completed[dep] {
				ready = false
				break
			}
		}
		if ready {
			s.claimed[name] = true
			return name, true
		}
	}
	return domain.InternedString{}, false
}

func (s *runState) remainingUnclaimed() bool {
	for _, name := range s.order {
		if !s.claimed[name] {
			return true
		}
	}
	return false
}

func (e *Executor) runSingleThreaded(ctx context.Context, dag *domain.DAG, c *cache.Cache, root string, state *runState, stats *Stats) {
	for _, name := range state.order {
		if e.shouldStop(state) {
			e.markSkipped(state, name, stats)
			continue
		}
		e.executeOne(ctx, dag, c, root, name, state, stats)
	}
}

func (e *Executor) runMultiThreaded(ctx context.Context, dag *domain.DAG, c *cache.Cache, root string, state *runState, stats *Stats) {
	var wg sync.WaitGroup
	for i := 0; i < e.config.NumThreads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.worker(ctx, dag, c, root, state, stats)
		}()
	}
	wg.Wait()
}

// worker repeatedly claims the next ready target and executes it until no
// more targets remain, waiting on the condition variable when nothing is
// currently ready but other work is still in flight.
func (e *Executor) worker(ctx context.Context, dag *domain.DAG, c *cache.Cache, root string, state *runState, stats *Stats) {
	for {
		state.mu.Lock()
		if e.IsCancelled() || (e.config.StopOnError && len(state.failed) > 0) {
			for {
				name, ok := state.claimNextLocked(dag)
				if !ok {
					break
				}
				state.mu.Unlock()
				e.markSkipped(state, name, stats)
				state.mu.Lock()
			}
			state.mu.Unlock()
			return
		}

		name, ok := state.claimNextLocked(dag)
		if !ok {
			if state.active == 0 {
				state.mu.Unlock()
				return
			}
			state.cond.Wait()
			state.mu.Unlock()
			continue
		}
		state.active++
		state.mu.Unlock()

		e.executeOne(ctx, dag, c, root, name, state, stats)

		state.mu.Lock()
		state.active--
		state.cond.Broadcast()
		state.mu.Unlock()
	}
}

// claimNextLocked is claimNext called with state.mu already held.
func (s *runState) claimNextLocked(dag *domain.DAG) (domain.InternedString, bool) {
	return s.claimNext(dag)
}

func (e *Executor) shouldStop(state *runState) bool {
	if e.IsCancelled() {
		return true
	}
	if !e.config.StopOnError {
		return false
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	return len(state.failed) > 0
}

func (e *Executor) markSkipped(state *runState, name domain.InternedString, stats *Stats) {
	state.mu.Lock()
	state.completed[name] = true
	stats.SkippedTargets++
	state.mu.Unlock()
	e.report(name.String(), domain.TargetStatusSkipped)
}

// executeOne decides whether name is out of date, runs it if so, and
// records the outcome. It always marks the target completed, even on
// failure, so dependents are still attempted (Open Question 1: dependents
// of a failed target are not blocked from being scheduled themselves).
func (e *Executor) executeOne(ctx context.Context, dag *domain.DAG, c *cache.Cache, root string, name domain.InternedString, state *runState, stats *Stats) {
	target := dag.GetTarget(name)
	if target == nil {
		return
	}

	digest, outOfDate, err := e.isOutOfDate(root, target, c)
	if err != nil {
		e.finish(state, stats, name, false, err)
		return
	}

	if !outOfDate {
		e.report(name.String(), domain.TargetStatusCached)
		state.mu.Lock()
		state.completed[name] = true
		state.mu.Unlock()
		return
	}

	if e.config.DryRun {
		e.report(name.String(), "WOULD-BUILD")
		state.mu.Lock()
		state.completed[name] = true
		state.mu.Unlock()
		return
	}

	e.report(name.String(), domain.TargetStatusRunning)

	opts := ports.CommandOptions{
		WorkingDir:         joinWorkingDir(root, target.WorkingDir.String()),
		InheritEnvironment: true,
		Env:                e.targetEnv(target.Environment),
	}
	result, err := e.runner.Run(ctx, target.Command, opts)
	if err != nil || !result.Success() {
		if err == nil {
			err = zerr.With(zerr.New("command failed"), "exit_code", result.ExitCode)
		}
		e.finish(state, stats, name, false, zerr.With(err, "target", name.String()))
		return
	}

	c.Set(name.String(), digest)
	e.finish(state, stats, name, true, nil)
}

func (e *Executor) finish(state *runState, stats *Stats, name domain.InternedString, success bool, err error) {
	state.mu.Lock()
	state.completed[name] = true
	if success {
		stats.BuiltTargets++
	} else {
		state.failed[name] = true
		state.errs = append(state.errs, err)
		stats.FailedTargets++
	}
	state.mu.Unlock()

	if success {
		e.report(name.String(), domain.TargetStatusCompleted)
	} else {
		e.report(name.String(), domain.TargetStatusFailed)
	}
}

// isOutOfDate reports whether target needs rebuilding: its freshly
// computed fingerprint differs from what the cache has on record, or any
// of its declared outputs is missing.
func (e *Executor) isOutOfDate(root string, target *domain.Target, c *cache.Cache) (digest string, outOfDate bool, err error) {
	inputs := make([]string, len(target.Inputs))
	for i, in := range target.Inputs {
		inputs[i] = in.String()
	}
	digest, err = fingerprint.HashTarget(root, target.Command, inputs)
	if err != nil {
		return "", false, err
	}

	if c.NeedsRebuild(target.Name.String(), digest) {
		return digest, true, nil
	}

	outputsExist, err := e.verifyOutputs(root, target)
	if err != nil {
		return digest, false, err
	}
	if !outputsExist {
		return digest, true, nil
	}

	return digest, false, nil
}

// verifyOutputs reports whether every one of target's declared outputs
// exists on disk, via the installed Verifier when one is set, falling
// back to statting each output directly otherwise.
func (e *Executor) verifyOutputs(root string, target *domain.Target) (bool, error) {
	outputs := make([]string, len(target.Outputs))
	for i, o := range target.Outputs {
		outputs[i] = o.String()
	}

	if e.verifier != nil {
		return e.verifier.VerifyOutputs(root, outputs)
	}

	for _, output := range outputs {
		if _, statErr := os.Stat(joinWorkingDir(root, output)); statErr != nil {
			return false, nil
		}
	}
	return true, nil
}

func envSlice(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}

func joinWorkingDir(root, dir string) string {
	if dir == "" {
		return root
	}
	if dir[0] == '/' {
		return dir
	}
	return root + string(os.PathSeparator) + dir
}

func (e *Executor) report(name string, status domain.TargetStatus) {
	e.reportRaw(name, string(status))
}

func (e *Executor) reportRaw(name, status string) {
	e.outputMu.Lock()
	defer e.outputMu.Unlock()
	if e.progressCallback != nil {
		e.progressCallback(name, 0, 0, status)
	}
}
