package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/weiihann/stackbench/config"
	"github.com/weiihann/stackbench/dashboard"
	"github.com/weiihann/stackbench/hostmetrics"
)

func newMonitorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Show live host CPU and RAM utilization",
		Long: `Open a terminal dashboard with a rolling window of host CPU and RAM
samples. Press q to quit.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := config.NewViper(cmd.Flags())
			if err != nil {
				return err
			}

			var level slog.Level
			if err := level.UnmarshalText([]byte(v.GetString("log-level"))); err != nil {
				return fmt.Errorf("log level: %w", err)
			}

			// The dashboard owns the terminal, so logs go to a file or nowhere.
			var logOut io.Writer = io.Discard
			if path := v.GetString("log-file"); path != "" {
				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("open log file: %w", err)
				}
				defer f.Close()

				logOut = f
			}

			ctx := cmd.Context()

			return dashboard.Run(ctx, hostmetrics.NewHost(ctx), dashboard.Options{
				Interval: v.GetDuration("interval"),
				Capacity: v.GetInt("window"),
				Logger:   newLogger(logOut, level),
			})
		},
	}

	flags := cmd.Flags()
	flags.Duration("interval", dashboard.DefaultInterval,
		"Sampling interval")
	flags.Int("window", dashboard.DefaultCapacity,
		"Number of samples kept on screen")
	flags.String("log-file", "",
		"Write logs to this file while the dashboard runs")

	return cmd
}
