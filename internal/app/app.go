// Package app implements the application layer: it wires a config
// loader, a persistent digest cache, the executor, and a build info
// store into the single Run entry point the CLI calls.
package app

import (
	"context"
	"path/filepath"
	"runtime"
	"time"

	"go.trai.ch/anvil/internal/core/cache"
	"go.trai.ch/anvil/internal/core/domain"
	"go.trai.ch/anvil/internal/core/fingerprint"
	"go.trai.ch/anvil/internal/core/ports"
	"go.trai.ch/anvil/internal/engine/executor"
	"go.trai.ch/zerr"
)

const cacheFileName = ".anvil_cache"

// RunOptions configures a single build invocation.
type RunOptions struct {
	// Force rebuilds every requested target regardless of cache state.
	Force bool
	// DryRun reports what would run without running it.
	DryRun bool
	// Parallelism caps how many targets build concurrently. Zero means
	// runtime.NumCPU().
	Parallelism int
	// StopOnError stops scheduling new targets after the first failure.
	StopOnError bool
}

// App is the main application logic: load a graph, run it, report and
// persist the outcome.
type App struct {
	configLoader ports.ConfigLoader
	runner       ports.CommandRunner
	logger       ports.Logger
	store        ports.BuildInfoStore
	envFactory   ports.EnvironmentFactory
	verifier     ports.Verifier
	tracer       ports.Tracer
	reporter     ports.ProgressReporter
}

// New creates an App from its adapters.
func New(
	loader ports.ConfigLoader,
	runner ports.CommandRunner,
	logger ports.Logger,
	store ports.BuildInfoStore,
	envFactory ports.EnvironmentFactory,
	verifier ports.Verifier,
	tracer ports.Tracer,
	reporter ports.ProgressReporter,
) *App {
	return &App{
		configLoader: loader,
		runner:       runner,
		logger:       logger,
		store:        store,
		envFactory:   envFactory,
		verifier:     verifier,
		tracer:       tracer,
		reporter:     reporter,
	}
}

// LoadGraph loads the build graph rooted at the current working
// directory without running anything, for inspection tooling.
func (a *App) LoadGraph() (*domain.DAG, error) {
	root, err := filepath.Abs(".")
	if err != nil {
		return nil, zerr.Wrap(err, "failed to resolve working directory")
	}
	dag, err := a.configLoader.Load(root)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}
	return dag, nil
}

// Run loads the build graph rooted at the current working directory and
// builds targetNames (and their transitive dependencies).
func (a *App) Run(ctx context.Context, targetNames []string, opts RunOptions) (executor.Stats, error) {
	if len(targetNames) == 0 {
		return executor.Stats{}, domain.ErrNoTargetsSpecified
	}

	root, err := filepath.Abs(".")
	if err != nil {
		return executor.Stats{}, zerr.Wrap(err, "failed to resolve working directory")
	}

	dag, err := a.configLoader.Load(root)
	if err != nil {
		return executor.Stats{}, zerr.Wrap(err, "failed to load configuration")
	}

	ctx, span := a.tracer.Start(ctx, "anvil.run")
	defer span.End()
	a.tracer.EmitPlan(ctx, targetNames)

	digestCache := cache.New(filepath.Join(root, cacheFileName))
	if err := digestCache.Load(); err != nil {
		return executor.Stats{}, zerr.Wrap(err, "failed to load cache")
	}

	if opts.Force {
		for _, name := range targetNames {
			digestCache.Remove(name)
		}
	}

	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}

	ex := executor.New(executor.Config{
		NumThreads:  parallelism,
		DryRun:      opts.DryRun,
		StopOnError: opts.StopOnError,
	}, a.runner)
	ex.SetEnvironmentFactory(a.envFactory)
	ex.SetVerifier(a.verifier)
	ex.SetProgressCallback(a.reporter.Report)

	stats, runErr := ex.Run(ctx, dag, digestCache, root, targetNames)
	if runErr != nil {
		span.RecordError(runErr)
	}

	if !opts.DryRun {
		if saveErr := digestCache.Save(); saveErr != nil {
			a.logger.Error(zerr.Wrap(saveErr, "failed to persist cache"))
		}
		a.recordBuildInfo(dag, digestCache, root)
	}

	if runErr != nil {
		return stats, zerr.Wrap(runErr, "build execution failed")
	}
	return stats, nil
}

// recordBuildInfo updates the build info store for every target in the
// DAG that has an entry in the digest cache, whether it was built in this
// run or was already up to date. Best-effort: a target with no cache
// entry (it has never built successfully) is simply skipped.
func (a *App) recordBuildInfo(dag *domain.DAG, c *cache.Cache, root string) {
	for _, t := range dag.AllTargets() {
		digest, ok := c.Get(t.Name.String())
		if !ok {
			continue
		}
		info := domain.BuildInfo{
			TargetName:   t.Name.String(),
			InputDigest:  digest,
			OutputDigest: hashOutputs(root, t),
			Timestamp:    time.Now(),
		}
		if err := a.store.Put(info); err != nil {
			a.logger.Warn("failed to record build info for " + t.Name.String())
		}
	}
}

func hashOutputs(root string, t *domain.Target) string {
	var combined string
	for _, output := range t.Outputs {
		h, err := fingerprint.HashFile(resolveOutputPath(root, t, output.String()))
		if err != nil {
			continue
		}
		combined += h
	}
	return combined
}

func resolveOutputPath(root string, t *domain.Target, output string) string {
	dir := t.WorkingDir.String()
	base := root
	if dir != "" {
		if filepath.IsAbs(dir) {
			base = dir
		} else {
			base = filepath.Join(root, dir)
		}
	}
	if filepath.IsAbs(output) {
		return output
	}
	return filepath.Join(base, output)
}
