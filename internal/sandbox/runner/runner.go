// Package runner drives the per-job workflow: provision an environment,
// optionally compile, execute under the resource limiter, assemble the
// result and tear the environment down unconditionally.
package runner

import (
	"context"
	"time"

	"execbox/internal/sandbox/engine"
	"execbox/internal/sandbox/limiter"
	"execbox/internal/sandbox/observer"
	"execbox/internal/sandbox/result"
	"execbox/internal/sandbox/runtime"
	"execbox/internal/sandbox/spec"
	"execbox/pkg/utils/logger"

	"go.uber.org/zap"
)

const defaultCompileWallTimeMs = 10_000

// Config holds runner settings shared across jobs.
type Config struct {
	// OutputByteLimit caps each captured stream and feeds the combined
	// output watchdog when a language does not override it.
	OutputByteLimit int64
	// PollInterval is the limiter sampling interval.
	PollInterval time.Duration
}

// Runner executes admitted jobs. It holds no per-job state and is safe
// for concurrent use.
type Runner struct {
	eng      engine.Engine
	registry *runtime.Registry
	watchdog *limiter.Watchdog
	cfg      Config
	metrics  observer.MetricsRecorder
}

// New creates a runner backed by the given engine and registry.
func New(eng engine.Engine, registry *runtime.Registry, cfg Config) *Runner {
	return NewWithObserver(eng, registry, cfg, observer.NoopMetricsRecorder{})
}

// NewWithObserver creates a runner with metrics hooks.
func NewWithObserver(eng engine.Engine, registry *runtime.Registry, cfg Config, metrics observer.MetricsRecorder) *Runner {
	if metrics == nil {
		metrics = observer.NoopMetricsRecorder{}
	}
	return &Runner{
		eng:      eng,
		registry: registry,
		watchdog: limiter.NewWatchdog(cfg.PollInterval),
		cfg:      cfg,
		metrics:  metrics,
	}
}

// Execute runs one job to completion. Failures not attributable to the
// submitted code surface as InternalError results, never as panics or
// errors: by the time a job reaches the runner it owns an execution slot
// and must produce exactly one result.
func (r *Runner) Execute(ctx context.Context, jobID string, req spec.ExecutionRequest) result.ExecutionResult {
	res := r.execute(ctx, jobID, req)
	r.metrics.ObserveExecution(ctx, req.Language, res.Status, res.WallTimeMs, res.PeakMemoryBytes)
	return res
}

func (r *Runner) execute(ctx context.Context, jobID string, req spec.ExecutionRequest) result.ExecutionResult {
	lang, err := r.registry.Resolve(req.Language)
	if err != nil {
		// Admission already validated the language; hitting this means
		// the registry and admission checks diverged.
		logger.Error(ctx, "runner resolved unknown language",
			zap.String("job_id", jobID), zap.String("language", req.Language), zap.Error(err))
		return result.InternalFailure()
	}

	limits := lang.Limits.Merge(spec.ResourceLimit{OutputBytes: r.cfg.OutputByteLimit})

	env, err := r.eng.Provision(ctx, jobID, limits)
	if err != nil {
		logger.Error(ctx, "provision environment failed",
			zap.String("job_id", jobID), zap.Error(err))
		return result.InternalFailure()
	}
	defer func() {
		if err := env.Teardown(); err != nil {
			logger.Error(ctx, "environment teardown failed",
				zap.String("job_id", jobID), zap.Error(err))
		}
	}()

	if err := env.WriteFile(lang.SourceFile, []byte(req.SourceCode)); err != nil {
		logger.Error(ctx, "write source failed", zap.String("job_id", jobID), zap.Error(err))
		return result.InternalFailure()
	}
	// Always present so the program reads EOF instead of a missing file.
	if err := env.WriteFile(engine.StdinFile, []byte(req.Stdin)); err != nil {
		logger.Error(ctx, "write stdin failed", zap.String("job_id", jobID), zap.Error(err))
		return result.InternalFailure()
	}

	if lang.CompileEnabled {
		if res, ok := r.compile(ctx, env, lang, limits); !ok {
			return res
		}
	}

	return r.run(ctx, env, lang, limits)
}

// compile runs the compile step inside the same boundary under its own
// shorter timeout. It returns ok=false with the terminal result when the
// job must short-circuit.
func (r *Runner) compile(ctx context.Context, env *engine.Environment, lang runtime.LanguageSpec, limits spec.ResourceLimit) (result.ExecutionResult, bool) {
	cmd, err := runtime.BuildCommand(lang.CompileCmdTpl, lang)
	if err != nil {
		logger.Error(ctx, "build compile command failed", zap.String("job_id", env.ID), zap.Error(err))
		return result.InternalFailure(), false
	}

	compileLimits := limits
	compileLimits.WallTimeMs = lang.CompileWallTimeMs
	if compileLimits.WallTimeMs <= 0 {
		compileLimits.WallTimeMs = defaultCompileWallTimeMs
	}
	compileLimits.CPUTimeMs = compileLimits.WallTimeMs

	runSpec := spec.RunSpec{
		Cmd:        cmd,
		Env:        lang.Env,
		StderrPath: engine.CompileLogFile,
		Limits:     compileLimits,
	}

	ws, breach, err := r.runStage(ctx, env, runSpec)
	if err != nil {
		logger.Error(ctx, "start compile failed", zap.String("job_id", env.ID), zap.Error(err))
		return result.InternalFailure(), false
	}

	diag, diagTruncated, readErr := env.ReadOutput(engine.CompileLogFile, limits.OutputBytes)
	if readErr != nil {
		logger.Warn(ctx, "read compile log failed", zap.String("job_id", env.ID), zap.Error(readErr))
	}

	if breach != nil || ws.ExitCode != 0 || ws.ForceKilled {
		res := result.CompileFailure(result.RawOutcome{
			ExitCode:        ws.ExitCode,
			Stderr:          diag,
			StderrTruncated: diagTruncated,
			WallTimeMs:      ws.WallTimeMs,
			CPUTimeMs:       ws.CPUTimeMs,
			PeakMemoryBytes: ws.PeakMemoryBytes,
		})
		if breach != nil {
			res.LimitDimension = string(breach.Dimension)
			res.ExitCode = nil
		}
		return res, false
	}
	return result.ExecutionResult{}, true
}

func (r *Runner) run(ctx context.Context, env *engine.Environment, lang runtime.LanguageSpec, limits spec.ResourceLimit) result.ExecutionResult {
	cmd, err := runtime.BuildCommand(lang.RunCmdTpl, lang)
	if err != nil {
		logger.Error(ctx, "build run command failed", zap.String("job_id", env.ID), zap.Error(err))
		return result.InternalFailure()
	}

	runSpec := spec.RunSpec{
		Cmd:        cmd,
		Env:        lang.Env,
		StdinPath:  engine.StdinFile,
		StdoutPath: engine.StdoutFile,
		StderrPath: engine.StderrFile,
		Limits:     limits,
	}

	ws, breach, err := r.runStage(ctx, env, runSpec)
	if err != nil {
		logger.Error(ctx, "start run failed", zap.String("job_id", env.ID), zap.Error(err))
		return result.InternalFailure()
	}

	stdout, stdoutTruncated, outErr := env.ReadOutput(engine.StdoutFile, limits.OutputBytes)
	if outErr != nil {
		logger.Warn(ctx, "read stdout failed", zap.String("job_id", env.ID), zap.Error(outErr))
	}
	stderr, stderrTruncated, errErr := env.ReadOutput(engine.StderrFile, limits.OutputBytes)
	if errErr != nil {
		logger.Warn(ctx, "read stderr failed", zap.String("job_id", env.ID), zap.Error(errErr))
	}

	return result.Assemble(result.RawOutcome{
		ExitCode:        ws.ExitCode,
		ForceKilled:     ws.ForceKilled,
		OomKilled:       ws.OomKilled,
		Stdout:          stdout,
		Stderr:          stderr,
		StdoutTruncated: stdoutTruncated,
		StderrTruncated: stderrTruncated,
		WallTimeMs:      ws.WallTimeMs,
		CPUTimeMs:       ws.CPUTimeMs,
		PeakMemoryBytes: ws.PeakMemoryBytes,
	}, breach)
}

// runStage starts one sandboxed command and watches it until exit. The
// returned breach, when non-nil, already implies the process tree was
// terminated.
func (r *Runner) runStage(ctx context.Context, env *engine.Environment, runSpec spec.RunSpec) (engine.WaitStatus, *limiter.Breach, error) {
	proc, err := r.eng.Start(ctx, env, runSpec)
	if err != nil {
		return engine.WaitStatus{}, nil, err
	}

	exited := make(chan struct{})
	watchDone := make(chan struct{})
	var breach *limiter.Breach
	go func() {
		breach = r.watchdog.Watch(ctx, proc, env, limiterLimits(runSpec.Limits), exited)
		close(watchDone)
	}()

	ws := proc.Wait()
	close(exited)
	<-watchDone
	return ws, breach, nil
}

func limiterLimits(l spec.ResourceLimit) limiter.Limits {
	return limiter.Limits{
		CPUTimeMs:   l.CPUTimeMs,
		WallTimeMs:  l.WallTimeMs,
		MemoryBytes: l.MemoryBytes,
		OutputBytes: l.OutputBytes,
	}
}
