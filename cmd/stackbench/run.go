package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/weiihann/stackbench/chart"
	"github.com/weiihann/stackbench/config"
	"github.com/weiihann/stackbench/coordinator"
	"github.com/weiihann/stackbench/harness"
	"github.com/weiihann/stackbench/hostmetrics"
	"github.com/weiihann/stackbench/process"
	"github.com/weiihann/stackbench/readiness"
	"github.com/weiihann/stackbench/report"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Benchmark every target in the targets file",
		Long: `Run each target in order: start the subject, wait for readiness, run
the load generator while sampling host utilization, then tear down and
cool down before the next target. Exits non-zero if any target failed
unless --allow-failures is given.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := config.NewViper(cmd.Flags())
			if err != nil {
				return err
			}

			settings, err := config.SettingsFromViper(v)
			if err != nil {
				return err
			}

			logger := newLogger(os.Stderr, settings.LogLevel)

			return runBenchmark(cmd.Context(), logger, settings, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.String("targets", "targets.toml",
		"Path to the targets file")
	flags.StringSlice("only", nil,
		"Run only these targets (e.g. go,node)")
	flags.String("out", "results",
		"Directory for charts, logs and series files")
	flags.Duration("interval", time.Second,
		"Sampling interval")
	flags.Duration("cooldown", 5*time.Second,
		"Settle delay between targets")
	flags.String("ready", config.ReadyProbe,
		"Readiness mode: probe, prompt, delay, none")
	flags.Duration("ready-timeout", 60*time.Second,
		"Give up on a subject that is not ready after this long")
	flags.Duration("ready-delay", 5*time.Second,
		"Settle time in delay mode, and for targets without ready_url in probe mode")
	flags.Duration("probe-every", 500*time.Millisecond,
		"Interval between readiness probes")
	flags.Duration("kill-timeout", 5*time.Second,
		"How long to wait for a killed process to exit")
	flags.Duration("load-grace", 5*time.Second,
		"How long the load generator may overrun the target duration")
	flags.Bool("no-chart", false,
		"Skip PNG chart rendering")
	flags.Bool("json", false,
		"Output results as JSON instead of a table")
	flags.Bool("allow-failures", false,
		"Exit zero even if some targets failed")

	return cmd
}

func runBenchmark(
	ctx context.Context,
	logger *slog.Logger,
	s config.Settings,
	in io.Reader,
	out io.Writer,
) error {
	file, err := config.Load(s.TargetsFile)
	if err != nil {
		return err
	}

	targets, err := file.Select(s.Only)
	if err != nil {
		return err
	}

	runID := uuid.NewString()

	logger.InfoContext(ctx, "starting benchmark",
		slog.String("run_id", runID),
		slog.String("targets_file", s.TargetsFile),
		slog.Int("targets", len(targets)),
		slog.Duration("interval", s.Interval),
		slog.String("ready", s.ReadyMode),
		slog.String("out", s.OutputDir),
	)

	if err := os.MkdirAll(s.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	runner := harness.NewRunner(harness.Config{
		OutputDir:    s.OutputDir,
		Interval:     s.Interval,
		ReadyTimeout: s.ReadyTimeout,
		KillTimeout:  s.KillTimeout,
		LoadGrace:    s.LoadGrace,
		Cooldown:     s.Cooldown,
	}, process.Exec{}, newChecker(s, in, logger), hostmetrics.NewHost(ctx), logger)
	runner.RunID = runID

	renderers := []coordinator.Renderer{
		report.SeriesWriter{Dir: s.OutputDir},
		report.NewProgress(os.Stderr),
	}
	if !s.NoChart {
		renderers = append(renderers, chart.New(s.OutputDir))
	}

	coord := coordinator.New(runner, logger, renderers...)
	runner.Observer = coord.Observe

	results, runErr := coord.Run(ctx, targets)

	if len(results) > 0 {
		if err := writeSummary(out, filepath.Join(s.OutputDir, "summary.md"), results, s.JSON); err != nil {
			return err
		}
	}

	if runErr == nil {
		logger.InfoContext(ctx, "benchmark complete", slog.String("run_id", runID))

		return nil
	}

	if ctx.Err() != nil {
		return fmt.Errorf("benchmark interrupted: %w", ctx.Err())
	}

	if s.AllowFailures {
		logger.WarnContext(ctx, "benchmark finished with failures",
			slog.String("error", runErr.Error()),
		)

		return nil
	}

	return fmt.Errorf("benchmark finished with failures: %w", runErr)
}

func newChecker(s config.Settings, in io.Reader, logger *slog.Logger) readiness.Checker {
	delay := readiness.Delay{Wait: s.ReadyDelay}

	switch s.ReadyMode {
	case config.ReadyProbe:
		attempts := uint(s.ReadyTimeout/s.ProbeEvery) + 1

		return readiness.PerTarget{
			Probe:    readiness.NewProbe(attempts, s.ProbeEvery, logger),
			Fallback: delay,
		}
	case config.ReadyPrompt:
		return readiness.NewPrompt(in, os.Stderr)
	case config.ReadyDelay:
		return delay
	default:
		return readiness.Immediate
	}
}

func writeSummary(out io.Writer, path string, results []*harness.Result, asJSON bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create summary: %w", err)
	}
	defer f.Close()

	if err := report.Generate(f, results); err != nil {
		return fmt.Errorf("generate summary: %w", err)
	}

	if asJSON {
		if err := report.GenerateJSON(out, results); err != nil {
			return fmt.Errorf("generate JSON report: %w", err)
		}

		return nil
	}

	if err := report.Generate(out, results); err != nil {
		return fmt.Errorf("generate report: %w", err)
	}

	return nil
}
