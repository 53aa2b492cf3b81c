// Package report formats benchmark results into summary tables and
// per-target series files.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/weiihann/stackbench/harness"
)

// Generate writes a markdown summary table for the given results.
func Generate(w io.Writer, results []*harness.Result) error {
	if len(results) == 0 {
		return fmt.Errorf("no results to report")
	}

	failed := 0
	for _, r := range results {
		if r.Failed() {
			failed++
		}
	}

	fmt.Fprintln(w, "## Benchmark Results")
	fmt.Fprintln(w)

	if id := results[0].RunID; id != "" {
		fmt.Fprintf(w, "Run: `%s`\n\n", id)
	}

	if failed == 0 {
		fmt.Fprintf(w, "Targets: **all %d completed**\n", len(results))
	} else {
		fmt.Fprintf(w, "Targets: **%d of %d FAILED**\n", failed, len(results))
	}

	fmt.Fprintln(w)

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Target", "Stack", "Status", "Samples", "Window", "Wall Time", "Load Log", "Reason"})

	for _, r := range results {
		window := "-"
		if last, ok := r.Series.Last(); ok {
			window = formatMs(last.Elapsed.Milliseconds())
		}

		t.AppendRow(table.Row{
			r.Target.Name,
			orDash(r.Target.Stack),
			string(r.Status),
			len(r.Series),
			window,
			formatMs(wallTime(r).Milliseconds()),
			formatBytes(logSize(r.LoadLog)),
			orDash(r.Reason),
		})
	}

	fmt.Fprintln(w, t.RenderMarkdown())

	return nil
}

// GenerateJSON writes results as JSON to w.
func GenerateJSON(w io.Writer, results []*harness.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(results)
}

func wallTime(r *harness.Result) time.Duration {
	if r.FinishedAt.Before(r.StartedAt) {
		return 0
	}

	return r.FinishedAt.Sub(r.StartedAt)
}

func logSize(path string) uint64 {
	if path == "" {
		return 0
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0
	}

	return uint64(info.Size())
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}

	return s
}

func formatMs(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}

	return fmt.Sprintf("%.2fs", float64(ms)/1000)
}

func formatBytes(b uint64) string {
	if b == 0 {
		return "-"
	}

	units := []string{"B", "KB", "MB", "GB", "TB"}
	size := float64(b)
	unit := 0

	for size >= 1024 && unit < len(units)-1 {
		size /= 1024
		unit++
	}

	formatted := fmt.Sprintf("%.1f", size)
	formatted = strings.TrimRight(formatted, "0")
	formatted = strings.TrimRight(formatted, ".")

	return formatted + " " + units[unit]
}
