package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"syscall"
	"time"
)

// localShell runs command lines handed to the local executor.
const localShell = "sh"

// runLocal executes a command line via the local shell, streaming output
// to the given writers. It returns the exit code. Context cancellation
// sends SIGTERM, escalating to SIGKILL after waitDelay.
func runLocal(ctx context.Context, command string, stdout, stderr io.Writer) (int, error) {
	cmd := exec.CommandContext(ctx, localShell, "-c", command)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = 10 * time.Second

	if err := cmd.Start(); err != nil {
		return -1, fmt.Errorf("runner: start %q: %w", command, err)
	}

	err := cmd.Wait()
	if err == nil {
		return 0, nil
	}
	if ctx.Err() != nil {
		return -1, ctx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, fmt.Errorf("runner: wait for %q: %w", command, err)
}
