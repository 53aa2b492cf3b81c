package hostmetrics

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

type (
	timesFunc  func(ctx context.Context) (cpu.TimesStat, error)
	memoryFunc func(ctx context.Context) (float64, error)
)

// Host is a Source backed by gopsutil. CPU utilization is derived from
// the delta of aggregate CPU times between two refreshes.
type Host struct {
	mu sync.RWMutex

	times  timesFunc
	memory memoryFunc

	last    cpu.TimesStat
	hasLast bool
	cpuPct  float64
	memPct  float64
}

// NewHost creates a Host and primes the CPU counters so the first
// Refresh reports utilization over a real interval.
func NewHost(ctx context.Context) *Host {
	h := &Host{
		times:  aggregateTimes,
		memory: usedMemoryPercent,
	}

	// Priming failures surface again on the first Refresh.
	_ = h.Refresh(ctx)

	return h
}

// Refresh implements Source.
func (h *Host) Refresh(ctx context.Context) error {
	var result *multierror.Error

	times, timesErr := h.times(ctx)
	memPct, memErr := h.memory(ctx)

	h.mu.Lock()
	defer h.mu.Unlock()

	if timesErr != nil {
		result = multierror.Append(result,
			fmt.Errorf("%w: cpu times: %v", ErrMetricUnavailable, timesErr))
	} else {
		if h.hasLast {
			h.cpuPct = busyPercent(h.last, times)
		}
		h.last = times
		h.hasLast = true
	}

	if memErr != nil {
		result = multierror.Append(result,
			fmt.Errorf("%w: virtual memory: %v", ErrMetricUnavailable, memErr))
	} else {
		h.memPct = clampPercent(memPct)
	}

	return result.ErrorOrNil()
}

// CPUPercent implements Source.
func (h *Host) CPUPercent() float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.cpuPct
}

// MemPercent implements Source.
func (h *Host) MemPercent() float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.memPct
}

func aggregateTimes(ctx context.Context) (cpu.TimesStat, error) {
	stats, err := cpu.TimesWithContext(ctx, false)
	if err != nil {
		return cpu.TimesStat{}, err
	}

	if len(stats) == 0 {
		return cpu.TimesStat{}, fmt.Errorf("no cpu times reported")
	}

	return stats[0], nil
}

func usedMemoryPercent(ctx context.Context) (float64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, err
	}

	if vm.Total == 0 {
		return 0, fmt.Errorf("total memory reported as zero")
	}

	return float64(vm.Used) / float64(vm.Total) * 100, nil
}

// busyPercent returns the share of non-idle time between two aggregate
// CPU time snapshots. Guest time is already included in user time.
func busyPercent(prev, cur cpu.TimesStat) float64 {
	total := totalTime(cur) - totalTime(prev)
	if total <= 0 {
		return 0
	}

	idle := (cur.Idle + cur.Iowait) - (prev.Idle + prev.Iowait)

	return clampPercent((total - idle) / total * 100)
}

func totalTime(t cpu.TimesStat) float64 {
	return t.User + t.System + t.Idle + t.Nice + t.Iowait +
		t.Irq + t.Softirq + t.Steal
}
