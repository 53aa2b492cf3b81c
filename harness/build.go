package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"

	"github.com/weiihann/stackbench/config"
)

// Build runs the target's optional build command in its working
// directory. Compiling ahead of the run keeps toolchain work out of the
// sampled window.
func Build(
	ctx context.Context,
	logger *slog.Logger,
	target config.Target,
	output io.Writer,
) error {
	if len(target.Build) == 0 {
		return nil
	}

	logger.InfoContext(ctx, "building subject",
		slog.String("command", target.Build[0]),
		slog.String("dir", target.Dir),
	)

	cmd := exec.CommandContext(ctx, target.Build[0], target.Build[1:]...)
	cmd.Dir = target.Dir
	cmd.Stdout = output
	cmd.Stderr = output

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("build %s: %w", target.Name, err)
	}

	logger.InfoContext(ctx, "subject built")

	return nil
}
