package sampler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/weiihann/stackbench/hostmetrics"
	"k8s.io/utils/clock"
)

// Observer is called synchronously with every recorded sample.
type Observer func(Sample)

// Option configures a Sampler.
type Option func(*Sampler)

// WithClock overrides the wall clock, mostly for tests.
func WithClock(c clock.Clock) Option {
	return func(s *Sampler) { s.clock = c }
}

// WithLogger sets the logger used for metric availability warnings.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sampler) { s.logger = l }
}

// WithObserver registers an incremental consumer of samples.
func WithObserver(o Observer) Option {
	return func(s *Sampler) { s.observers = append(s.observers, o) }
}

// Sampler drives the tick loop over a single Source.
type Sampler struct {
	src       hostmetrics.Source
	interval  time.Duration
	limit     time.Duration
	store     store
	clock     clock.Clock
	logger    *slog.Logger
	observers []Observer

	metricsDown bool
}

// NewFullCapture creates a Sampler that keeps every sample and stops on
// its own once limit has elapsed. A zero limit disables the cap.
func NewFullCapture(
	src hostmetrics.Source,
	interval, limit time.Duration,
	opts ...Option,
) *Sampler {
	return newSampler(src, interval, limit, &capture{}, opts)
}

// NewWindowed creates a Sampler that runs until stopped and keeps only
// the capacity most recent samples.
func NewWindowed(
	src hostmetrics.Source,
	interval time.Duration,
	capacity int,
	opts ...Option,
) *Sampler {
	return newSampler(src, interval, 0, NewRing(capacity), opts)
}

func newSampler(
	src hostmetrics.Source,
	interval, limit time.Duration,
	st store,
	opts []Option,
) *Sampler {
	s := &Sampler{
		src:      src,
		interval: interval,
		limit:    limit,
		store:    st,
		clock:    clock.RealClock{},
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Run samples until stop is closed, ctx is cancelled or the limit is
// reached, and returns the recorded series. Stop is honoured at tick
// boundaries: closing it during a sleep wakes the loop, which records one
// last sample before returning.
func (s *Sampler) Run(ctx context.Context, stop <-chan struct{}) Series {
	start := s.clock.Now()

	for tick := 0; ; tick++ {
		tickStart := s.clock.Now()
		elapsed := tickStart.Sub(start)

		s.record(ctx, tick, elapsed)

		if closed(stop) || ctx.Err() != nil {
			break
		}

		if s.limit > 0 && elapsed >= s.limit {
			break
		}

		wait := s.interval - s.clock.Since(tickStart)
		if wait < 0 {
			wait = 0
		}

		timer := s.clock.NewTimer(wait)
		select {
		case <-timer.C():
		case <-stop:
			timer.Stop()
		case <-ctx.Done():
			timer.Stop()

			return s.store.Snapshot()
		}
	}

	return s.store.Snapshot()
}

// Snapshot returns the samples recorded so far.
func (s *Sampler) Snapshot() Series {
	return s.store.Snapshot()
}

func (s *Sampler) record(ctx context.Context, tick int, elapsed time.Duration) {
	err := s.src.Refresh(ctx)
	switch {
	case err != nil && !s.metricsDown:
		s.metricsDown = true
		level := slog.LevelWarn
		if !errors.Is(err, hostmetrics.ErrMetricUnavailable) {
			level = slog.LevelError
		}
		s.logger.Log(ctx, level, "metrics unavailable, reusing last values",
			slog.Int("tick", tick),
			slog.String("error", err.Error()),
		)
	case err == nil && s.metricsDown:
		s.metricsDown = false
		s.logger.InfoContext(ctx, "metrics available again",
			slog.Int("tick", tick),
		)
	}

	sample := Sample{
		Tick:           tick,
		Elapsed:        elapsed,
		ElapsedSeconds: roundSeconds(elapsed),
		CPUPercent:     s.src.CPUPercent(),
		MemPercent:     s.src.MemPercent(),
	}

	s.store.Add(sample)

	for _, o := range s.observers {
		o(sample)
	}
}

func closed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
