// Package hostexec runs external commands on the local host.
//
// Every collaborator kitt drives (the download tool, the model daemon,
// the native packagers) is invoked through this package. It owns the
// mapping from process outcomes to the typed errors the rest of the
// code branches on; callers never inspect *exec.ExitError themselves.
package hostexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CommandSpec is one fully resolved external command. Exactly one of
// Argv or Shell must be set: Argv is executed directly, Shell is run
// through "bash -c".
type CommandSpec struct {
	Argv  []string
	Shell string
	// Dir is the working directory. Empty inherits the caller's.
	Dir string
	// Timeout bounds the command. Zero means no limit beyond ctx.
	Timeout time.Duration
	// OKExit decides whether an exit code counts as success.
	// Nil means only zero succeeds.
	OKExit func(code int) bool
}

// Display returns a human-readable form of the command for logs and
// error messages.
func (s CommandSpec) Display() string {
	if s.Shell != "" {
		return s.Shell
	}
	return strings.Join(s.Argv, " ")
}

func (s CommandSpec) ok(code int) bool {
	if s.OKExit != nil {
		return s.OKExit(code)
	}
	return code == 0
}

// Result is the outcome of a finished command.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Elapsed  time.Duration
}

// ChunkFunc receives one unit of streamed output. It is called in
// arrival order, before the next unit is read from the pipe.
type ChunkFunc func(text string)

// Runner executes CommandSpecs. The chat session and the installer
// take this interface so tests can substitute fakes.
type Runner interface {
	// Run executes spec to completion with buffered output.
	Run(ctx context.Context, spec CommandSpec) (Result, error)
	// Stream executes spec, forwarding stdout chunks to onChunk as
	// they arrive. The returned Result holds the accumulated output,
	// including anything already forwarded.
	Stream(ctx context.Context, spec CommandSpec, onChunk ChunkFunc) (Result, error)
}

var (
	// ErrNotFound means the executable is not on PATH.
	ErrNotFound = errors.New("executable not found")
	// ErrTimeout means the command exceeded its Timeout and was killed.
	ErrTimeout = errors.New("command timed out")
)

// CommandError reports a non-zero exit not accepted by the spec's
// exit predicate. It keeps the exit code and captured output so the
// original cause survives unmodified up the stack.
type CommandError struct {
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
}

func (e *CommandError) Error() string {
	diag := strings.TrimSpace(e.Stderr)
	if diag == "" {
		diag = strings.TrimSpace(e.Stdout)
	}
	if diag == "" {
		return fmt.Sprintf("%s: exit %d", e.Command, e.ExitCode)
	}
	return fmt.Sprintf("%s: exit %d: %s", e.Command, e.ExitCode, diag)
}

// Local runs commands on the local host via os/exec.
type Local struct {
	// waitDelay forces pipe teardown if a killed child's descendants
	// keep the pipes open. Defaults to 5s.
	waitDelay time.Duration
}

// NewLocal returns a Runner executing commands locally.
func NewLocal() *Local {
	return &Local{waitDelay: 5 * time.Second}
}

var _ Runner = (*Local)(nil)

func (l *Local) command(ctx context.Context, spec CommandSpec) *exec.Cmd {
	var cmd *exec.Cmd
	if spec.Shell != "" {
		cmd = exec.CommandContext(ctx, "bash", "-c", spec.Shell)
	} else {
		cmd = exec.CommandContext(ctx, spec.Argv[0], spec.Argv[1:]...)
	}
	cmd.Dir = spec.Dir
	cmd.WaitDelay = l.waitDelay
	return cmd
}

// Run executes spec with fully buffered stdout/stderr.
func (l *Local) Run(ctx context.Context, spec CommandSpec) (Result, error) {
	runCtx := ctx
	var cancel context.CancelFunc
	if spec.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	cmd := l.command(runCtx, spec)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := Result{
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
		Elapsed: time.Since(start),
	}
	return finish(ctx, runCtx, spec, cmd, res, err)
}

// Stream executes spec, forwarding stdout to onChunk in arrival order.
// Stderr is buffered for diagnostics. The stream is lazy, finite, and
// consumed exactly once; by the time Stream returns the process has
// exited (or been killed on timeout/cancellation).
func (l *Local) Stream(ctx context.Context, spec CommandSpec, onChunk ChunkFunc) (Result, error) {
	runCtx := ctx
	var cancel context.CancelFunc
	if spec.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	cmd := l.command(runCtx, spec)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	pipe, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, fmt.Errorf("stdout pipe: %w", err)
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		res := Result{Elapsed: time.Since(start)}
		return finish(ctx, runCtx, spec, cmd, res, err)
	}

	// Forward each chunk before reading the next one, so the consumer
	// observes exactly the pipe's arrival order with no coalescing.
	var accumulated strings.Builder
	buf := make([]byte, 512)
	for {
		n, readErr := pipe.Read(buf)
		if n > 0 {
			text := string(buf[:n])
			accumulated.WriteString(text)
			if onChunk != nil {
				onChunk(text)
			}
		}
		if readErr != nil {
			break // io.EOF, or the pipe closed on kill
		}
	}

	waitErr := cmd.Wait()
	res := Result{
		Stdout:  accumulated.String(),
		Stderr:  stderr.String(),
		Elapsed: time.Since(start),
	}
	return finish(ctx, runCtx, spec, cmd, res, waitErr)
}

// finish maps an os/exec outcome onto the error taxonomy.
func finish(ctx, runCtx context.Context, spec CommandSpec, cmd *exec.Cmd, res Result, err error) (Result, error) {
	// Timeout and cancellation beat exit-status interpretation: the
	// child was killed, so its exit code is an artifact.
	if runCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		if cmd.ProcessState != nil {
			res.ExitCode = cmd.ProcessState.ExitCode()
		}
		return res, fmt.Errorf("%s after %s: %w", spec.Display(), spec.Timeout, ErrTimeout)
	}
	if ctx.Err() != nil {
		return res, ctx.Err()
	}

	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.As(err, &exitErr):
			res.ExitCode = exitErr.ExitCode()
		case errors.Is(err, exec.ErrNotFound):
			return res, fmt.Errorf("%s: %w", spec.Display(), ErrNotFound)
		default:
			return res, fmt.Errorf("%s: %w", spec.Display(), err)
		}
	}

	if !spec.ok(res.ExitCode) {
		return res, &CommandError{
			Command:  spec.Display(),
			ExitCode: res.ExitCode,
			Stdout:   res.Stdout,
			Stderr:   res.Stderr,
		}
	}
	return res, nil
}

// Probe runs a shell line and reports only whether it exited zero.
// Idempotency checks and health checks are phrased this way.
func Probe(ctx context.Context, r Runner, shell string) bool {
	res, err := r.Run(ctx, CommandSpec{Shell: shell})
	return err == nil && res.ExitCode == 0
}

// Output runs a shell line and returns its stdout. A non-zero exit
// yields the typed error from Run.
func Output(ctx context.Context, r Runner, shell string) (string, error) {
	res, err := r.Run(ctx, CommandSpec{Shell: shell})
	if err != nil {
		return res.Stdout, err
	}
	return res.Stdout, nil
}
