// Package harness runs one benchmark target end to end: it spawns the
// subject and the load generator, samples host utilization while load
// runs, and tears everything down in a fixed order.
package harness

import (
	"errors"
	"time"

	"github.com/weiihann/stackbench/config"
	"github.com/weiihann/stackbench/sampler"
)

// Error kinds reported through Result.Err.
var (
	// ErrSpawn means the build, subject or load generator could not be
	// started. Only the affected target fails.
	ErrSpawn = errors.New("spawn failure")
	// ErrReadyTimeout means the subject never became ready.
	ErrReadyTimeout = errors.New("subject not ready")
	// ErrPrematureExit means the subject exited while load was running.
	ErrPrematureExit = errors.New("subject exited before load generator finished")
	// ErrLoadFailed means the load generator exited unsuccessfully.
	ErrLoadFailed = errors.New("load generator failed")
	// ErrTermination means a process could not be killed. It is logged,
	// never turned into a failed result.
	ErrTermination = errors.New("termination failure")
)

// Status is the final state of a run.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Result is the outcome of one target run. It is not modified after Run
// returns it.
type Result struct {
	RunID      string         `json:"run_id"`
	Target     config.Target  `json:"target"`
	Status     Status         `json:"status"`
	Reason     string         `json:"reason,omitempty"`
	Series     sampler.Series `json:"series"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	LoadLog    string         `json:"load_log,omitempty"`

	// Err carries the failure kind for errors.Is checks.
	Err error `json:"-"`
	// SubjectSpawned reports whether a subject process was started, and
	// so whether the host needs a cooldown before the next target.
	SubjectSpawned bool `json:"-"`
}

// Failed reports whether the run ended in StatusFailed.
func (r *Result) Failed() bool {
	return r.Status == StatusFailed
}
