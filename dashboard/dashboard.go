package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/weiihann/stackbench/hostmetrics"
	"github.com/weiihann/stackbench/sampler"
	"golang.org/x/sync/errgroup"
)

// Defaults for the monitor command.
const (
	DefaultInterval = 250 * time.Millisecond
	DefaultCapacity = 100
)

// Options configures Run.
type Options struct {
	Interval time.Duration
	Capacity int
	Logger   *slog.Logger
	// Program options, e.g. tea.WithOutput for tests.
	Program []tea.ProgramOption
}

// Run shows the dashboard until the user quits or ctx is cancelled. A
// windowed sampler feeds the view; it stops when the program exits.
func Run(ctx context.Context, src hostmetrics.Source, opts Options) error {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	// Cancelled once the program exits so a pending Send never blocks.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var p *tea.Program

	smp := sampler.NewWindowed(src, opts.Interval, opts.Capacity,
		sampler.WithLogger(opts.Logger),
		sampler.WithObserver(func(s sampler.Sample) {
			p.Send(SampleMsg(s))
		}),
	)

	progOpts := append([]tea.ProgramOption{tea.WithContext(runCtx)}, opts.Program...)
	p = tea.NewProgram(NewModel(smp, opts.Capacity, opts.Interval), progOpts...)

	stop := make(chan struct{})
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		smp.Run(gctx, stop)
		return nil
	})

	g.Go(func() error {
		defer cancel()
		defer close(stop)

		if _, err := p.Run(); err != nil && ctx.Err() == nil {
			return fmt.Errorf("dashboard: %w", err)
		}

		return nil
	})

	return g.Wait()
}
