// Package readiness decides when a freshly spawned subject is ready to
// receive load.
package readiness

import (
	"context"
	"time"

	"github.com/weiihann/stackbench/config"
	"k8s.io/utils/clock"
)

// Checker blocks until the target's subject is ready or ctx ends.
type Checker interface {
	AwaitReady(ctx context.Context, target config.Target) error
}

// Func adapts a function to Checker.
type Func func(ctx context.Context, target config.Target) error

// AwaitReady implements Checker.
func (f Func) AwaitReady(ctx context.Context, target config.Target) error {
	return f(ctx, target)
}

// Immediate treats every subject as ready as soon as it is spawned.
var Immediate = Func(func(context.Context, config.Target) error { return nil })

// Delay waits a fixed settle time.
type Delay struct {
	Wait  time.Duration
	Clock clock.Clock
}

// AwaitReady implements Checker.
func (d Delay) AwaitReady(ctx context.Context, _ config.Target) error {
	c := d.Clock
	if c == nil {
		c = clock.RealClock{}
	}

	select {
	case <-c.After(d.Wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PerTarget uses Probe for targets that declare a ready_url and
// Fallback for the rest.
type PerTarget struct {
	Probe    Checker
	Fallback Checker
}

// AwaitReady implements Checker.
func (p PerTarget) AwaitReady(ctx context.Context, target config.Target) error {
	if target.ReadyURL != "" {
		return p.Probe.AwaitReady(ctx, target)
	}

	return p.Fallback.AwaitReady(ctx, target)
}
