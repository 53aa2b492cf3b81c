// Package main provides the CLI entry point for stackbench, a load-test
// orchestrator that benchmarks web server stacks one at a time while
// sampling host CPU and memory utilization.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/weiihann/stackbench/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:   "stackbench",
		Short: "Benchmark web server stacks under load",
		Long: `Stackbench runs a list of server targets strictly one after another.
For each target it starts the server, waits until it is ready, drives it
with a load generator (wrk by default) and samples host CPU and RAM
utilization for the duration of the load, then writes charts, series
files and a summary table.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return config.LoadDotEnv(envFile)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&envFile, "env-file", ".env",
		"Environment file with STACKBENCH_* overrides")
	flags.String("log-level", "info",
		"Log level: debug, info, warn, error")

	root.AddCommand(newRunCmd(), newMonitorCmd(), newTargetsCmd())

	return root
}
