package readiness

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/weiihann/stackbench/config"
)

// Prompt waits for the operator to press Enter. A single goroutine reads
// the input so an abandoned prompt does not swallow the next line.
type Prompt struct {
	out io.Writer

	once  sync.Once
	in    io.Reader
	lines chan error
}

// NewPrompt reads confirmations from in and writes prompts to out.
func NewPrompt(in io.Reader, out io.Writer) *Prompt {
	return &Prompt{in: in, out: out}
}

// AwaitReady implements Checker.
func (p *Prompt) AwaitReady(ctx context.Context, target config.Target) error {
	p.once.Do(p.start)

	color.New(color.FgCyan, color.Bold).Fprintf(p.out,
		"Press Enter to start recording and load for %s... ", target.Name)

	select {
	case err, ok := <-p.lines:
		if !ok {
			return io.ErrUnexpectedEOF
		}

		return err
	case <-ctx.Done():
		fmt.Fprintln(p.out)

		return ctx.Err()
	}
}

func (p *Prompt) start() {
	p.lines = make(chan error)

	go func() {
		defer close(p.lines)

		r := bufio.NewReader(p.in)
		for {
			_, err := r.ReadString('\n')
			if err != nil {
				if err != io.EOF {
					p.lines <- err
				}

				return
			}
			p.lines <- nil
		}
	}()
}
