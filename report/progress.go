package report

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/weiihann/stackbench/config"
	"github.com/weiihann/stackbench/harness"
	"github.com/weiihann/stackbench/sampler"
)

// Progress prints one line per sample while a target runs and a status
// line once it finishes.
type Progress struct {
	mu sync.Mutex
	w  io.Writer

	ok   *color.Color
	fail *color.Color
	dim  *color.Color
}

// NewProgress creates a Progress writing to w.
func NewProgress(w io.Writer) *Progress {
	return &Progress{
		w:    w,
		ok:   color.New(color.FgGreen, color.Bold),
		fail: color.New(color.FgRed, color.Bold),
		dim:  color.New(color.Faint),
	}
}

// Observe implements coordinator.Feed.
func (p *Progress) Observe(target config.Target, s sampler.Sample) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.dim.Fprintf(p.w, "[%s] ", target.Name)
	fmt.Fprintf(p.w, "%4ds  cpu %5.1f%%  mem %5.1f%%\n", s.ElapsedSeconds, s.CPUPercent, s.MemPercent)
}

// Render implements coordinator.Renderer.
func (p *Progress) Render(_ context.Context, res *harness.Result) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if res.Failed() {
		p.fail.Fprintf(p.w, "FAIL ")
		fmt.Fprintf(p.w, "%s (%d samples): %s\n", res.Target.Name, len(res.Series), res.Reason)

		return nil
	}

	p.ok.Fprintf(p.w, "OK   ")
	fmt.Fprintf(p.w, "%s (%d samples)\n", res.Target.Name, len(res.Series))

	return nil
}
