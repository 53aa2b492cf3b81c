//go:build unix

package process

import (
	"errors"
	"os"
	"syscall"
)

// newProcAttr puts the child in its own process group so wrappers such
// as `go run` or `cargo run` are killed together with the server they
// started.
func newProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

func kill(p *os.Process) error {
	err := syscall.Kill(-p.Pid, syscall.SIGKILL)
	if errors.Is(err, syscall.ESRCH) {
		return p.Kill()
	}

	return err
}
