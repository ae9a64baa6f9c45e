// Package processtest provides a scripted process.Runner for tests.
package processtest

import (
	"context"
	"fmt"
	"strings"

	"github.com/kingrea/lattice-deploy/internal/process"
)

// Handler produces the outcome for a matched command.
type Handler func(cmd process.Command) (process.Outcome, error)

type route struct {
	prefix  string
	handler Handler
}

// Fake records every command and answers from registered routes. Routes
// match on the rendered command line prefix; the most recently registered
// match wins so tests can override defaults.
type Fake struct {
	routes  []route
	missing map[string]bool
	Calls   []process.Command
}

// New returns a Fake with no routes. Unmatched commands exit 127.
func New() *Fake {
	return &Fake{missing: map[string]bool{}}
}

// On installs a handler for commands starting with prefix.
func (f *Fake) On(prefix string, h Handler) *Fake {
	f.routes = append(f.routes, route{prefix: prefix, handler: h})
	return f
}

// Respond installs a fixed outcome for commands starting with prefix.
func (f *Fake) Respond(prefix string, outcome process.Outcome) *Fake {
	return f.On(prefix, func(process.Command) (process.Outcome, error) {
		return outcome, nil
	})
}

// Missing marks executables that LookPath should not find.
func (f *Fake) Missing(names ...string) *Fake {
	for _, name := range names {
		f.missing[name] = true
	}
	return f
}

// LookPath implements process.Runner.
func (f *Fake) LookPath(name string) (string, error) {
	if f.missing[name] {
		return "", fmt.Errorf("%w: %s", process.ErrNotFound, name)
	}
	return "/usr/local/bin/" + name, nil
}

// Run implements process.Runner.
func (f *Fake) Run(_ context.Context, cmd process.Command) (process.Outcome, error) {
	f.Calls = append(f.Calls, cmd)
	if f.missing[cmd.Name] {
		return process.Outcome{ExitCode: -1}, fmt.Errorf("%w: %s", process.ErrNotFound, cmd.Name)
	}
	line := cmd.String()
	for i := len(f.routes) - 1; i >= 0; i-- {
		if strings.HasPrefix(line, f.routes[i].prefix) {
			return f.routes[i].handler(cmd)
		}
	}
	return process.Outcome{ExitCode: 127, Stderr: "unexpected command: " + line}, nil
}

// Count returns how many recorded calls start with prefix.
func (f *Fake) Count(prefix string) int {
	n := 0
	for _, cmd := range f.Calls {
		if strings.HasPrefix(cmd.String(), prefix) {
			n++
		}
	}
	return n
}

// OK is a zero-exit outcome with the given stdout.
func OK(stdout string) process.Outcome {
	return process.Outcome{Stdout: stdout}
}

// Fail is a non-zero outcome with the given stderr.
func Fail(code int, stderr string) process.Outcome {
	return process.Outcome{ExitCode: code, Stderr: stderr}
}
