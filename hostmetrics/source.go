// Package hostmetrics reads host-wide CPU and memory utilization.
package hostmetrics

import (
	"context"
	"errors"
	"math"
)

// ErrMetricUnavailable is returned by Refresh when the OS could not be
// queried. The previously cached values stay in place.
var ErrMetricUnavailable = errors.New("metric unavailable")

// Source is a stateful handle over host utilization counters. Readers
// return the values cached by the last Refresh.
type Source interface {
	// Refresh re-reads the counters from the OS. It may block briefly.
	Refresh(ctx context.Context) error
	// CPUPercent is the average busy share of all logical CPUs since
	// the previous refresh, in 0..100.
	CPUPercent() float64
	// MemPercent is used/total memory, in 0..100.
	MemPercent() float64
}

func clampPercent(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
