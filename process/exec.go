package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// Exec is the Spawner backed by os/exec.
type Exec struct{}

// Spawn implements Spawner. The returned handle is reaped in the
// background; ctx only bounds the start itself.
func (Exec) Spawn(ctx context.Context, spec Spec) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if spec.Dir != "" {
		info, err := os.Stat(spec.Dir)
		if err != nil {
			return nil, fmt.Errorf("working dir %s: %w", spec.Dir, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("working dir %s: not a directory", spec.Dir)
		}
	}

	cmd := exec.Command(spec.Command, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Stdout = spec.Stdout
	cmd.Stderr = spec.Stderr
	cmd.SysProcAttr = newProcAttr()

	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", spec.Name, err)
	}

	h := &execHandle{
		cmd:  cmd,
		done: make(chan struct{}),
	}
	go h.reap()

	return h, nil
}

type execHandle struct {
	cmd  *exec.Cmd
	done chan struct{}
	err  error
}

func (h *execHandle) reap() {
	h.err = h.cmd.Wait()
	close(h.done)
}

func (h *execHandle) PID() int {
	return h.cmd.Process.Pid
}

func (h *execHandle) Done() <-chan struct{} {
	return h.done
}

func (h *execHandle) Wait() error {
	<-h.done

	return h.err
}

func (h *execHandle) Exited() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

func (h *execHandle) Terminate() error {
	if h.Exited() {
		return nil
	}

	err := kill(h.cmd.Process)
	if err == nil || errors.Is(err, os.ErrProcessDone) || h.Exited() {
		return nil
	}

	return fmt.Errorf("kill pid %d: %w", h.cmd.Process.Pid, err)
}
