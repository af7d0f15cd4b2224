// Package executor runs a single external command synchronously and reports
// the outcome as data. Failures (missing binary, non-zero exit, timeout) are
// never returned as errors to the caller; they are encoded in the Result so
// the maintenance task can log them and keep going.
package executor

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"
	"time"
)

// TimedOutExitCode is the sentinel exit code recorded when a command is
// forcibly terminated after exceeding its timeout.
const TimedOutExitCode = -2

// SpawnFailureExitCode is the sentinel exit code recorded when the command
// could not be launched at all.
const SpawnFailureExitCode = -1

// DefaultOutputLimit caps captured stdout/stderr per stream (bytes).
const DefaultOutputLimit = 64 * 1024

// Spec describes one command invocation.
type Spec struct {
	// Name is the logical step name used in logs ("prune", "kill", ...).
	Name string
	// Command is the executable; Args its fixed argument list.
	Command string
	Args    []string
	// Timeout caps the run. Zero means no limit.
	Timeout time.Duration
	// Elevated marks the invocation as requiring elevated privilege.
	// It is recorded on the result for logging; the executor does not
	// escalate by itself.
	Elevated bool
}

// Outcome classifies a Result.
type Outcome int

const (
	OK Outcome = iota
	NonZeroExit
	TimedOut
	SpawnFailure
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case NonZeroExit:
		return "non_zero_exit"
	case TimedOut:
		return "timed_out"
	case SpawnFailure:
		return "spawn_failure"
	default:
		return "unknown"
	}
}

// Result is the outcome record of one executed command.
type Result struct {
	Name     string
	Command  string
	Args     []string
	ExitCode int
	Stdout   string
	Stderr   string
	Started  time.Time
	Duration time.Duration
	TimedOut bool
	Elevated bool
}

// Outcome classifies the result into the error taxonomy.
func (r Result) Outcome() Outcome {
	switch {
	case r.TimedOut:
		return TimedOut
	case r.ExitCode == SpawnFailureExitCode:
		return SpawnFailure
	case r.ExitCode != 0:
		return NonZeroExit
	default:
		return OK
	}
}

// Failed reports whether the command did not complete successfully.
func (r Result) Failed() bool { return r.Outcome() != OK }

// Runner executes one command and blocks until it finishes.
type Runner interface {
	Run(ctx context.Context, spec Spec) Result
}

// OSRunner runs commands as real OS processes.
type OSRunner struct {
	// OutputLimit caps captured output per stream. Zero means DefaultOutputLimit.
	OutputLimit int
}

var _ Runner = (*OSRunner)(nil)

// Run spawns the process, waits for exit or timeout, and captures bounded
// stdout/stderr. Exactly one OS process is created per call.
func (r *OSRunner) Run(ctx context.Context, spec Spec) Result {
	limit := r.OutputLimit
	if limit <= 0 {
		limit = DefaultOutputLimit
	}

	res := Result{
		Name:     spec.Name,
		Command:  spec.Command,
		Args:     spec.Args,
		Started:  time.Now(),
		Elevated: spec.Elevated,
	}

	runCtx := ctx
	if runCtx == nil {
		runCtx = context.Background()
	}
	var cancel context.CancelFunc
	if spec.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, spec.Timeout)
		defer cancel()
	}

	stdout := newCappedBuffer(limit)
	stderr := newCappedBuffer(limit)

	cmd := exec.CommandContext(runCtx, spec.Command, spec.Args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	// Give the process a short grace window between context cancellation and
	// the hard kill, so well-behaved commands can flush output.
	cmd.WaitDelay = 3 * time.Second

	err := cmd.Run()
	res.Duration = time.Since(res.Started)
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()

	switch {
	case err == nil:
		res.ExitCode = 0
	case runCtx.Err() == context.DeadlineExceeded:
		res.TimedOut = true
		res.ExitCode = TimedOutExitCode
		res.Stderr = appendReason(res.Stderr, "command timed out after "+spec.Timeout.String())
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			// Could not launch at all (binary missing, permission denied, ...).
			res.ExitCode = SpawnFailureExitCode
			res.Stderr = appendReason(res.Stderr, err.Error())
		}
	}
	return res
}

func appendReason(existing, reason string) string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return existing
	}
	if existing == "" {
		return reason
	}
	return existing + "\n" + reason
}

// cappedBuffer keeps at most limit bytes and silently discards the rest,
// so a chatty command cannot grow memory without bound.
type cappedBuffer struct {
	limit     int
	buf       []byte
	truncated bool
}

var _ io.Writer = (*cappedBuffer)(nil)

func newCappedBuffer(limit int) *cappedBuffer {
	return &cappedBuffer{limit: limit}
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	room := b.limit - len(b.buf)
	if room > 0 {
		if len(p) < room {
			b.buf = append(b.buf, p...)
		} else {
			b.buf = append(b.buf, p[:room]...)
			b.truncated = true
		}
	} else if len(p) > 0 {
		b.truncated = true
	}
	// Always report full consumption so the child never blocks on a full pipe.
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	s := strings.TrimSpace(string(b.buf))
	if b.truncated {
		if s != "" {
			s += "\n"
		}
		s += "[output truncated]"
	}
	return s
}
