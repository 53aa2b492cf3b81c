// Package chart draws the CPU and RAM utilization of a run as a PNG
// line chart.
package chart

import (
	"context"
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/weiihann/stackbench/config"
	"github.com/weiihann/stackbench/harness"
	"github.com/weiihann/stackbench/sampler"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var (
	cpuColor = color.RGBA{R: 220, G: 30, B: 30, A: 255}
	memColor = color.RGBA{R: 30, G: 60, B: 220, A: 255}
)

// Renderer writes <dir>/<slug>_cpu_ram.png for every result that has
// at least one sample.
type Renderer struct {
	Dir    string
	Width  vg.Length
	Height vg.Length
}

// New returns a Renderer with the default 1024x768 canvas.
func New(dir string) *Renderer {
	return &Renderer{
		Dir:    dir,
		Width:  10.24 * vg.Inch,
		Height: 7.68 * vg.Inch,
	}
}

// Path returns the chart file for target.
func Path(dir string, target config.Target) string {
	return filepath.Join(dir, target.Slug()+"_cpu_ram.png")
}

// Render implements coordinator.Renderer.
func (r *Renderer) Render(_ context.Context, res *harness.Result) error {
	if len(res.Series) == 0 {
		return nil
	}

	p, err := Plot(res.Target, res.Series)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	path := Path(r.Dir, res.Target)
	if err := p.Save(r.Width, r.Height, path); err != nil {
		return fmt.Errorf("save chart %s: %w", path, err)
	}

	return nil
}

// Plot builds the chart for one series: seconds on X, percent on Y.
func Plot(target config.Target, series sampler.Series) (*plot.Plot, error) {
	p := plot.New()

	p.Title.Text = "CPU and RAM usage: " + target.Name
	if target.Stack != "" {
		p.Title.Text += " (" + target.Stack + ")"
	}

	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Usage (%)"

	cpu, mem := points(series)

	cpuLine, err := plotter.NewLine(cpu)
	if err != nil {
		return nil, fmt.Errorf("cpu line: %w", err)
	}
	cpuLine.Color = cpuColor
	cpuLine.Width = vg.Points(1.5)

	memLine, err := plotter.NewLine(mem)
	if err != nil {
		return nil, fmt.Errorf("ram line: %w", err)
	}
	memLine.Color = memColor
	memLine.Width = vg.Points(1.5)

	p.Add(plotter.NewGrid(), cpuLine, memLine)
	p.Legend.Add("CPU", cpuLine)
	p.Legend.Add("RAM", memLine)
	p.Legend.Top = true

	p.Y.Min = 0
	p.Y.Max = 100

	return p, nil
}

func points(series sampler.Series) (cpu, mem plotter.XYs) {
	cpu = make(plotter.XYs, len(series))
	mem = make(plotter.XYs, len(series))

	for i, s := range series {
		x := s.Elapsed.Seconds()
		cpu[i] = plotter.XY{X: x, Y: s.CPUPercent}
		mem[i] = plotter.XY{X: x, Y: s.MemPercent}
	}

	return cpu, mem
}
