// Package process spawns and terminates the external programs a benchmark
// run depends on.
package process

import (
	"context"
	"io"
)

// Spec describes a program to launch.
type Spec struct {
	Name    string
	Command string
	Args    []string
	Dir     string
	// Env is appended to the inherited environment.
	Env    []string
	Stdout io.Writer
	Stderr io.Writer
}

// Handle is a reference to one spawned process. It must not be reused
// once the process has exited.
type Handle interface {
	PID() int
	// Done is closed once the process has exited and been reaped.
	Done() <-chan struct{}
	// Wait blocks until exit and returns the exit error, if any. It can
	// be called any number of times.
	Wait() error
	// Exited reports whether the process has already exited.
	Exited() bool
	// Terminate kills the process. Calling it on an exited process, or
	// more than once, is a no-op.
	Terminate() error
}

// Spawner launches processes.
type Spawner interface {
	Spawn(ctx context.Context, spec Spec) (Handle, error)
}
