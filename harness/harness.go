package harness

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/weiihann/stackbench/config"
	"github.com/weiihann/stackbench/hostmetrics"
	"github.com/weiihann/stackbench/process"
	"github.com/weiihann/stackbench/readiness"
	"github.com/weiihann/stackbench/sampler"
	"golang.org/x/sync/errgroup"
	"k8s.io/utils/clock"
)

// Config holds the timing and output parameters shared by all runs.
type Config struct {
	OutputDir string
	// Interval is the sampling tick.
	Interval time.Duration
	// ReadyTimeout bounds the wait for the subject to become ready.
	ReadyTimeout time.Duration
	// KillTimeout bounds the wait for a killed process to be reaped.
	KillTimeout time.Duration
	// LoadGrace is how long the load generator may outlive the target
	// duration before it is killed.
	LoadGrace time.Duration
	// Cooldown is the settle delay between targets.
	Cooldown time.Duration
}

// Runner orchestrates the processes of one target at a time.
type Runner struct {
	cfg     Config
	spawner process.Spawner
	ready   readiness.Checker
	source  hostmetrics.Source
	logger  *slog.Logger

	// RunID tags every result produced by this runner.
	RunID string
	// Clock drives timeouts and sampling. Defaults to the wall clock.
	Clock clock.Clock
	// Observer, if set, receives every sample as it is recorded.
	Observer func(target config.Target, s sampler.Sample)
}

// NewRunner creates a Runner. The metric source is owned by the runner
// and shared by its sequential runs.
func NewRunner(
	cfg Config,
	spawner process.Spawner,
	ready readiness.Checker,
	source hostmetrics.Source,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		cfg:     cfg,
		spawner: spawner,
		ready:   ready,
		source:  source,
		logger:  logger,
		Clock:   clock.RealClock{},
	}
}

// SubjectLogPath returns where the subject's output is written.
func SubjectLogPath(dir string, target config.Target) string {
	return filepath.Join(dir, target.Slug()+"_subject.log")
}

// LoadLogPath returns where the load generator's output is written.
func LoadLogPath(dir string, target config.Target) string {
	return filepath.Join(dir, filepath.Base(target.LoadCommand)+"_"+target.Slug()+".log")
}

// Run executes one target and always returns a Result. Failures local to
// the target are reported through the result, with any samples already
// collected preserved.
func (r *Runner) Run(ctx context.Context, target config.Target) *Result {
	logger := r.logger.With(slog.String("target", target.Name))

	res := &Result{
		RunID:     r.RunID,
		Target:    target,
		StartedAt: r.Clock.Now(),
	}

	logger.InfoContext(ctx, "starting target",
		slog.String("command", target.Command),
		slog.String("dir", target.Dir),
		slog.Duration("duration", target.RunDuration()),
	)

	err := r.run(ctx, logger, target, res)
	res.FinishedAt = r.Clock.Now()

	if err != nil {
		res.Status = StatusFailed
		res.Err = err
		res.Reason = err.Error()

		logger.ErrorContext(ctx, "target failed",
			slog.String("error", err.Error()),
			slog.Int("samples", len(res.Series)),
		)

		return res
	}

	res.Status = StatusCompleted

	logger.InfoContext(ctx, "target completed",
		slog.Int("samples", len(res.Series)),
		slog.Duration("wall_time", res.FinishedAt.Sub(res.StartedAt)),
	)

	return res
}

func (r *Runner) run(
	ctx context.Context,
	logger *slog.Logger,
	target config.Target,
	res *Result,
) error {
	loadArgs, err := target.LoadArguments()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSpawn, err)
	}

	if err := os.MkdirAll(r.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("%w: create output dir: %w", ErrSpawn, err)
	}

	subjectLog, err := os.Create(SubjectLogPath(r.cfg.OutputDir, target))
	if err != nil {
		return fmt.Errorf("%w: create subject log: %w", ErrSpawn, err)
	}
	defer subjectLog.Close()

	if err := Build(ctx, logger, target, subjectLog); err != nil {
		return fmt.Errorf("%w: %w", ErrSpawn, err)
	}

	subject, err := r.spawner.Spawn(ctx, process.Spec{
		Name:    target.Name,
		Command: target.Command,
		Args:    target.SubjectArgs(),
		Dir:     target.Dir,
		Env:     slices.Clone(target.Env),
		Stdout:  subjectLog,
		Stderr:  subjectLog,
	})
	if err != nil {
		return fmt.Errorf("%w: subject: %w", ErrSpawn, err)
	}

	res.SubjectSpawned = true

	logger.InfoContext(ctx, "subject started", slog.Int("pid", subject.PID()))

	var load process.Handle

	defer func() { r.teardown(logger, subject, load) }()

	if err := r.awaitReady(ctx, logger, target, subject); err != nil {
		return err
	}

	loadLogPath := LoadLogPath(r.cfg.OutputDir, target)

	loadLog, err := os.Create(loadLogPath)
	if err != nil {
		return fmt.Errorf("%w: create load log: %w", ErrSpawn, err)
	}
	defer loadLog.Close()

	res.LoadLog = loadLogPath

	load, err = r.spawner.Spawn(ctx, process.Spec{
		Name:    target.LoadCommand,
		Command: target.LoadCommand,
		Args:    loadArgs,
		Stdout:  loadLog,
		Stderr:  loadLog,
	})
	if err != nil {
		return fmt.Errorf("%w: load generator: %w", ErrSpawn, err)
	}

	logger.InfoContext(ctx, "load generator started",
		slog.Int("pid", load.PID()),
		slog.String("log", loadLogPath),
	)

	series, err := r.runAndSample(ctx, logger, target, subject, load)
	res.Series = series

	return err
}

func (r *Runner) awaitReady(
	ctx context.Context,
	logger *slog.Logger,
	target config.Target,
	subject process.Handle,
) error {
	readyCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if r.cfg.ReadyTimeout > 0 {
		readyCtx, cancel = context.WithTimeout(readyCtx, r.cfg.ReadyTimeout)
		defer cancel()
	}

	// A subject that dies while starting up ends the wait early.
	go func() {
		select {
		case <-subject.Done():
			cancel()
		case <-readyCtx.Done():
		}
	}()

	start := r.Clock.Now()
	err := r.ready.AwaitReady(readyCtx, target)

	switch {
	case subject.Exited():
		return fmt.Errorf("%w: during startup: %v", ErrPrematureExit, subject.Wait())
	case err == nil:
		logger.InfoContext(ctx, "subject ready",
			slog.Duration("waited", r.Clock.Since(start)),
		)

		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		return fmt.Errorf("%w: %w", ErrReadyTimeout, err)
	}
}

type exitKind int

const (
	exitLoad exitKind = iota
	exitSubject
	exitOverrun
	exitCancelled
)

// runAndSample samples while the load generator runs. The sampler stops
// when the load generator exits, the subject dies, ctx is cancelled or
// the target duration is reached, whichever comes first.
func (r *Runner) runAndSample(
	ctx context.Context,
	logger *slog.Logger,
	target config.Target,
	subject, load process.Handle,
) (sampler.Series, error) {
	opts := []sampler.Option{
		sampler.WithClock(r.Clock),
		sampler.WithLogger(logger),
		sampler.WithObserver(func(s sampler.Sample) {
			logger.Debug("sample",
				slog.Int("tick", s.Tick),
				slog.Int64("elapsed_s", s.ElapsedSeconds),
				slog.Float64("cpu", s.CPUPercent),
				slog.Float64("mem", s.MemPercent),
			)
		}),
	}
	if r.Observer != nil {
		opts = append(opts, sampler.WithObserver(func(s sampler.Sample) {
			r.Observer(target, s)
		}))
	}

	smp := sampler.NewFullCapture(r.source, r.cfg.Interval, target.RunDuration(), opts...)

	var (
		series sampler.Series
		kind   exitKind
	)

	stop := make(chan struct{})
	sampled := make(chan struct{})
	start := r.Clock.Now()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(sampled)
		series = smp.Run(gctx, stop)

		return nil
	})

	g.Go(func() error {
		defer close(stop)
		kind = r.watch(gctx, subject, load, sampled)
		if kind == exitCancelled {
			return gctx.Err()
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		return series, err
	}

	switch kind {
	case exitSubject:
		return series, fmt.Errorf("%w: after %s: %v",
			ErrPrematureExit, r.Clock.Since(start).Round(time.Millisecond), subject.Wait())

	case exitOverrun:
		logger.Warn("load generator outlived its duration, terminating",
			slog.Duration("grace", r.cfg.LoadGrace),
		)

		return series, nil

	default:
		if err := load.Wait(); err != nil {
			return series, fmt.Errorf("%w: %w", ErrLoadFailed, err)
		}

		logger.InfoContext(ctx, "load generator finished",
			slog.Duration("elapsed", r.Clock.Since(start).Round(time.Millisecond)),
		)

		return series, nil
	}
}

// watch blocks until the sampling window has to end and reports why.
func (r *Runner) watch(
	ctx context.Context,
	subject, load process.Handle,
	sampled <-chan struct{},
) exitKind {
	select {
	case <-load.Done():
		return exitLoad
	case <-subject.Done():
		return r.subjectExit(load)
	case <-ctx.Done():
		return exitCancelled
	case <-sampled:
	}

	grace := r.Clock.NewTimer(r.cfg.LoadGrace)
	defer grace.Stop()

	select {
	case <-load.Done():
		return exitLoad
	case <-subject.Done():
		return r.subjectExit(load)
	case <-ctx.Done():
		return exitCancelled
	case <-grace.C():
		return exitOverrun
	}
}

// subjectExit treats a subject that exited together with the load
// generator as a normal finish.
func (r *Runner) subjectExit(load process.Handle) exitKind {
	if load.Exited() {
		return exitLoad
	}

	return exitSubject
}

// teardown kills the load generator if it is still running, then the
// subject. The subject is never killed while the load generator may
// still have requests in flight.
func (r *Runner) teardown(logger *slog.Logger, subject, load process.Handle) {
	if load != nil {
		if err := r.terminate(load); err != nil {
			logger.Warn("failed to terminate load generator",
				slog.String("error", err.Error()),
			)
		}
	}

	if err := r.terminate(subject); err != nil {
		logger.Warn("failed to terminate subject",
			slog.String("error", err.Error()),
		)

		return
	}

	logger.Info("subject terminated", slog.Int("pid", subject.PID()))
}

// terminate kills h and waits for it to be reaped.
func (r *Runner) terminate(h process.Handle) error {
	if err := h.Terminate(); err != nil {
		return fmt.Errorf("%w: %w", ErrTermination, err)
	}

	timer := r.Clock.NewTimer(r.cfg.KillTimeout)
	defer timer.Stop()

	select {
	case <-h.Done():
		return nil
	case <-timer.C():
		return fmt.Errorf("%w: pid %d still running after %s",
			ErrTermination, h.PID(), r.cfg.KillTimeout)
	}
}

// Cooldown waits the settle delay so ports and I/O from the previous
// target quiesce before the next one starts.
func (r *Runner) Cooldown(ctx context.Context) error {
	if r.cfg.Cooldown <= 0 {
		return nil
	}

	r.logger.InfoContext(ctx, "cooling down", slog.Duration("delay", r.cfg.Cooldown))

	select {
	case <-r.Clock.After(r.cfg.Cooldown):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
