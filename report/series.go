package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/weiihann/stackbench/config"
	"github.com/weiihann/stackbench/harness"
	"github.com/weiihann/stackbench/sampler"
)

// SeriesWriter persists each result, including its full sample series,
// as <dir>/<slug>_series.json.
type SeriesWriter struct {
	Dir string
}

// SeriesPath returns the series file for target.
func SeriesPath(dir string, target config.Target) string {
	return filepath.Join(dir, target.Slug()+"_series.json")
}

// Render implements coordinator.Renderer.
func (s SeriesWriter) Render(_ context.Context, res *harness.Result) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	out := *res
	if out.Series == nil {
		out.Series = sampler.Series{}
	}

	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode series for %s: %w", res.Target.Name, err)
	}

	path := SeriesPath(s.Dir, res.Target)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}
