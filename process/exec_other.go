//go:build !unix

package process

import (
	"os"
	"syscall"
)

func newProcAttr() *syscall.SysProcAttr {
	return nil
}

func kill(p *os.Process) error {
	return p.Kill()
}
