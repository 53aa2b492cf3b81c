package readiness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/avast/retry-go"
	"github.com/weiihann/stackbench/config"
)

// Probe polls the target's ready_url until the subject answers with a
// status below 500.
type Probe struct {
	Client   *http.Client
	Attempts uint
	Every    time.Duration
	Logger   *slog.Logger
}

// NewProbe creates a Probe that tries up to attempts times, every
// interval apart.
func NewProbe(attempts uint, every time.Duration, logger *slog.Logger) *Probe {
	return &Probe{
		Client:   &http.Client{Timeout: every + time.Second},
		Attempts: attempts,
		Every:    every,
		Logger:   logger,
	}
}

// AwaitReady implements Checker.
func (p *Probe) AwaitReady(ctx context.Context, target config.Target) error {
	if target.ReadyURL == "" {
		return fmt.Errorf("target %s has no ready_url to probe", target.Name)
	}

	err := retry.Do(
		func() error { return p.check(ctx, target.ReadyURL) },
		retry.Context(ctx),
		retry.Attempts(p.Attempts),
		retry.Delay(p.Every),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			p.Logger.DebugContext(ctx, "subject not ready",
				slog.String("target", target.Name),
				slog.Uint64("attempt", uint64(n+1)),
				slog.String("error", err.Error()),
			)
		}),
	)
	if err != nil {
		return fmt.Errorf("probe %s: %w", target.ReadyURL, err)
	}

	return nil
}

func (p *Probe) check(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return retry.Unrecoverable(err)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	return nil
}
