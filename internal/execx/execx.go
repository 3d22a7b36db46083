package execx

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Runner abstracts command execution so packages can be unit-tested without
// touching the real wg binary.
type Runner interface {
	Output(ctx context.Context, name string, args ...string) (string, error)
}

// OSRunner executes commands on the host via os/exec.
type OSRunner struct {
	// Timeout bounds a single invocation. Zero means only the caller's context applies.
	Timeout time.Duration
}

func NewOSRunner(timeout time.Duration) *OSRunner {
	return &OSRunner{Timeout: timeout}
}

// Output runs the command and returns its stdout. The process is waited for
// before returning, also when the context expires.
func (r *OSRunner) Output(ctx context.Context, name string, args ...string) (string, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("%s: %w", name, ctxErr)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("%s: %s: %w", name, msg, err)
		}
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return stdout.String(), nil
}

// FuncRunner adapts a function to Runner.
type FuncRunner func(ctx context.Context, name string, args ...string) (string, error)

func (f FuncRunner) Output(ctx context.Context, name string, args ...string) (string, error) {
	return f(ctx, name, args...)
}
