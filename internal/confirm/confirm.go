// Package confirm implements the human-in-the-loop gate used while a new
// signing identity waits for out-of-band funding.
package confirm

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrAborted reports that the operator declined to continue.
var ErrAborted = errors.New("confirm: aborted by operator")

// Request describes what the operator is asked to do.
type Request struct {
	Identity string
	Address  string
	Network  string
	// Hint is an optional instruction line, e.g. a faucet URL.
	Hint string
}

// Message renders the plain-text instruction.
func (r Request) Message() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Fund identity %q on %s before continuing.\n", r.Identity, r.Network)
	fmt.Fprintf(&b, "Address: %s\n", r.Address)
	if hint := strings.TrimSpace(r.Hint); hint != "" {
		fmt.Fprintf(&b, "%s\n", hint)
	}
	return b.String()
}

// Provider blocks until the operator confirms. There is no timeout.
type Provider interface {
	Confirm(ctx context.Context, req Request) error
}

// Auto confirms immediately. Used for pre-funded identities and tests.
type Auto struct {
	out io.Writer
}

// NewAuto returns an auto-confirmer that notes the skipped wait on out
// (which may be nil).
func NewAuto(out io.Writer) *Auto {
	return &Auto{out: out}
}

// Confirm implements Provider.
func (a *Auto) Confirm(_ context.Context, req Request) error {
	if a != nil && a.out != nil {
		fmt.Fprintf(a.out, "Identity %q marked as pre-funded; not waiting for confirmation.\n", req.Identity)
	}
	return nil
}

// Line reads a single line from in after printing the request to out.
// It serves non-interactive stdin where a full-screen prompt is unavailable.
type Line struct {
	in  *bufio.Reader
	out io.Writer
}

// NewLine builds a line-based confirmer.
func NewLine(in io.Reader, out io.Writer) *Line {
	return &Line{in: bufio.NewReader(in), out: out}
}

// Confirm implements Provider. End of input counts as an abort, as does
// cancellation of ctx while the read is pending.
func (l *Line) Confirm(ctx context.Context, req Request) error {
	if l.out != nil {
		fmt.Fprint(l.out, req.Message())
		fmt.Fprint(l.out, "Press Enter to continue once funded: ")
	}
	type reply struct {
		line string
		err  error
	}
	replies := make(chan reply, 1)
	go func() {
		line, err := l.in.ReadString('\n')
		replies <- reply{line: line, err: err}
	}()

	var r reply
	select {
	case <-ctx.Done():
		return ErrAborted
	case r = <-replies:
	}
	if r.err != nil {
		if !errors.Is(r.err, io.EOF) {
			return fmt.Errorf("confirm: read input: %w", r.err)
		}
		if r.line == "" {
			return ErrAborted
		}
	}
	switch strings.ToLower(strings.TrimSpace(r.line)) {
	case "q", "quit", "n", "no":
		return ErrAborted
	}
	return nil
}
