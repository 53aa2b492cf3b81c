// Package coordinator runs benchmark targets strictly one after another
// and hands each result to the configured renderers.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hashicorp/go-multierror"
	"github.com/weiihann/stackbench/config"
	"github.com/weiihann/stackbench/harness"
	"github.com/weiihann/stackbench/sampler"
)

// Runner executes a single target. *harness.Runner satisfies it.
type Runner interface {
	Run(ctx context.Context, target config.Target) *harness.Result
	Cooldown(ctx context.Context) error
}

// Renderer consumes finished results.
type Renderer interface {
	Render(ctx context.Context, res *harness.Result) error
}

// Feed is implemented by renderers that also want samples as they are
// taken.
type Feed interface {
	Observe(target config.Target, s sampler.Sample)
}

// Coordinator owns the sequential execution of a target list.
type Coordinator struct {
	runner    Runner
	logger    *slog.Logger
	renderers []Renderer
}

// New creates a Coordinator.
func New(runner Runner, logger *slog.Logger, renderers ...Renderer) *Coordinator {
	return &Coordinator{
		runner:    runner,
		logger:    logger,
		renderers: renderers,
	}
}

// Observe forwards a sample to every renderer that implements Feed. It is
// meant to be installed as the runner's sample observer.
func (c *Coordinator) Observe(target config.Target, s sampler.Sample) {
	for _, r := range c.renderers {
		if f, ok := r.(Feed); ok {
			f.Observe(target, s)
		}
	}
}

// Run executes targets in order. A failed target never stops the run;
// its error is aggregated into the returned error. Cancelling ctx stops
// the run after the current target has been torn down.
func (c *Coordinator) Run(ctx context.Context, targets []config.Target) ([]*harness.Result, error) {
	var (
		results  []*harness.Result
		errs     *multierror.Error
		cooldown bool
	)

	for i, target := range targets {
		if err := ctx.Err(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("run aborted before %s: %w", target.Name, err))
			break
		}

		if cooldown {
			if err := c.runner.Cooldown(ctx); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("cooldown before %s: %w", target.Name, err))
				break
			}
		}

		c.logger.InfoContext(ctx, "running target",
			slog.String("target", target.Name),
			slog.Int("index", i+1),
			slog.Int("total", len(targets)),
		)

		res := c.runner.Run(ctx, target)
		results = append(results, res)
		cooldown = res.SubjectSpawned

		c.render(ctx, res)

		if res.Failed() {
			errs = multierror.Append(errs, fmt.Errorf("target %s: %w", target.Name, res.Err))
		}
	}

	return results, errs.ErrorOrNil()
}

// render hands res to every renderer. Rendering still happens after an
// interrupt so partial series reach disk.
func (c *Coordinator) render(ctx context.Context, res *harness.Result) {
	ctx = context.WithoutCancel(ctx)

	for _, r := range c.renderers {
		if err := r.Render(ctx, res); err != nil {
			c.logger.WarnContext(ctx, "renderer failed",
				slog.String("target", res.Target.Name),
				slog.String("renderer", fmt.Sprintf("%T", r)),
				slog.String("error", err.Error()),
			)
		}
	}
}
