// Package runner executes external commands with a bounded timeout.
//
// Failures are reported as values, never as errors: a non-zero exit,
// a timeout, or an unstartable command all produce a Result with
// Success=false and whatever diagnostic text was captured. Retry policy
// belongs to callers.
package runner

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// DefaultTimeout bounds a single command invocation.
const DefaultTimeout = 30 * time.Second

// Result is the outcome of one command invocation.
type Result struct {
	Success bool   `json:"success"`
	Output  string `json:"output"`
}

// Runner runs a shell command and reports the outcome as a value.
type Runner interface {
	Run(ctx context.Context, command string) Result
}

// ShellRunner executes commands through the host shell, one process per
// call.
type ShellRunner struct {
	// Timeout overrides DefaultTimeout when positive.
	Timeout time.Duration
}

func (r *ShellRunner) Run(ctx context.Context, command string) Result {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)

	// The shell gets its own process group so cancellation reaches every
	// child it spawned, not just the shell itself. Without this, Wait
	// would block on the captured pipes until the last child exits.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	// If a child escaped the group and still holds the pipes, abandon
	// them after a short grace instead of waiting it out.
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		// Prefer what the command wrote to stderr, fall back to the
		// error itself (covers timeouts and exec failures).
		output := strings.TrimSpace(stderr.String())
		if output == "" {
			output = err.Error()
		}
		return Result{Success: false, Output: output}
	}

	return Result{Success: true, Output: strings.TrimSpace(stdout.String())}
}
