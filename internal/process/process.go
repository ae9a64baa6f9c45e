// Package process runs external commands and reports their outcome in a
// uniform shape. Every other package talks to the outside world through the
// Runner interface so tests can script tool behaviour.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
)

// ErrNotFound reports that an executable could not be located on PATH.
var ErrNotFound = errors.New("process: executable not found")

// Command describes one external invocation.
type Command struct {
	Name string
	Args []string
	// Dir is the working directory for the child process. Empty means the
	// caller's working directory; the current process never changes its own.
	Dir string
	// Env is appended to the inherited environment.
	Env map[string]string
}

// String renders the command line for logs and diagnostics.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Outcome is the result of a finished invocation. Stdout and Stderr are only
// meaningful as a whole when ExitCode is zero.
type Outcome struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Succeeded reports a zero exit status.
func (o Outcome) Succeeded() bool {
	return o.ExitCode == 0
}

// Combined joins stdout and stderr for diagnostics.
func (o Outcome) Combined() string {
	stdout := strings.TrimRight(o.Stdout, "\n")
	stderr := strings.TrimRight(o.Stderr, "\n")
	switch {
	case stdout == "":
		return stderr
	case stderr == "":
		return stdout
	default:
		return stdout + "\n" + stderr
	}
}

// Runner executes commands. Run returns an error only when the command could
// not be started or was interrupted; a non-zero exit is reported through
// Outcome.ExitCode with a nil error.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Outcome, error)
	LookPath(name string) (string, error)
}

// Option customizes an ExecRunner.
type Option func(*ExecRunner)

// WithTee mirrors child stdout and stderr to w while still capturing them.
// Writes to w are serialized.
func WithTee(w io.Writer) Option {
	return func(r *ExecRunner) {
		if w != nil {
			r.tee = &lockedWriter{w: w}
		}
	}
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// ExecRunner implements Runner with os/exec.
type ExecRunner struct {
	tee io.Writer
}

// NewExecRunner builds a runner backed by real processes.
func NewExecRunner(opts ...Option) *ExecRunner {
	r := &ExecRunner{}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// LookPath implements Runner.
func (r *ExecRunner) LookPath(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return path, nil
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, c Command) (Outcome, error) {
	if strings.TrimSpace(c.Name) == "" {
		return Outcome{ExitCode: -1}, fmt.Errorf("process: command name is required")
	}
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), envPairs(c.Env)...)
	}
	var stdout, stderr bytes.Buffer
	if r.tee != nil {
		cmd.Stdout = io.MultiWriter(&stdout, r.tee)
		cmd.Stderr = io.MultiWriter(&stderr, r.tee)
	} else {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}
	err := cmd.Run()
	outcome := Outcome{Stdout: stdout.String(), Stderr: stderr.String()}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return outcome, nil
	case ctx.Err() != nil:
		outcome.ExitCode = -1
		return outcome, fmt.Errorf("process: %s interrupted: %w", c.Name, ctx.Err())
	case errors.As(err, &exitErr):
		outcome.ExitCode = exitErr.ExitCode()
		return outcome, nil
	case errors.Is(err, exec.ErrNotFound):
		outcome.ExitCode = -1
		return outcome, fmt.Errorf("%w: %s", ErrNotFound, c.Name)
	default:
		outcome.ExitCode = -1
		return outcome, fmt.Errorf("process: start %s: %w", c.Name, err)
	}
}

func envPairs(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+env[k])
	}
	return pairs
}
