// Package sampler polls a hostmetrics.Source on a fixed, drift-corrected
// cadence and records the readings as a time series.
package sampler

import (
	"math"
	"sync"
	"time"
)

// Sample is one reading taken at a tick boundary.
type Sample struct {
	Tick           int           `json:"tick"`
	Elapsed        time.Duration `json:"elapsed_ns"`
	ElapsedSeconds int64         `json:"elapsed_seconds"`
	CPUPercent     float64       `json:"cpu_percent"`
	MemPercent     float64       `json:"mem_percent"`
}

// Series is an ordered sequence of samples, oldest first.
type Series []Sample

// Last returns the most recent sample and whether the series is non-empty.
func (s Series) Last() (Sample, bool) {
	if len(s) == 0 {
		return Sample{}, false
	}

	return s[len(s)-1], true
}

func roundSeconds(d time.Duration) int64 {
	return int64(math.Round(d.Seconds()))
}

// store holds the samples of one sampler run.
type store interface {
	Add(s Sample)
	Len() int
	Snapshot() Series
}

// capture keeps every sample. It is used for finite benchmark runs where
// the wall-clock limit bounds its growth.
type capture struct {
	mu      sync.Mutex
	samples Series
}

func (c *capture) Add(s Sample) {
	c.mu.Lock()
	c.samples = append(c.samples, s)
	c.mu.Unlock()
}

func (c *capture) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.samples)
}

func (c *capture) Snapshot() Series {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(Series, len(c.samples))
	copy(out, c.samples)

	return out
}
