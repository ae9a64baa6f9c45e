// Package console prints pipeline progress for humans.
package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/lattice-deploy/internal/pipeline"
)

// Styles groups the lipgloss styles used for each line kind.
type Styles struct {
	Progress lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	Failure  lipgloss.Style
	Detail   lipgloss.Style
	Output   lipgloss.Style
}

// DefaultStyles returns the colored palette.
func DefaultStyles() Styles {
	return Styles{
		Progress: lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")),
		Success:  lipgloss.NewStyle().Foreground(lipgloss.Color("#4FD18B")),
		Warning:  lipgloss.NewStyle().Foreground(lipgloss.Color("#F5C542")),
		Failure:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B")),
		Detail:   lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA")),
		Output:   lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).PaddingLeft(4),
	}
}

// Plain returns unstyled output (NO_COLOR, tests, pipes).
func Plain() Styles {
	s := lipgloss.NewStyle()
	return Styles{Progress: s, Success: s, Warning: s, Failure: s, Detail: s, Output: s.PaddingLeft(4)}
}

// Reporter implements pipeline.Reporter on an io.Writer.
type Reporter struct {
	out    io.Writer
	styles Styles
}

var _ pipeline.Reporter = (*Reporter)(nil)

// New builds a reporter writing to out.
func New(out io.Writer, styles Styles) *Reporter {
	return &Reporter{out: out, styles: styles}
}

// StageStarted implements pipeline.Reporter.
func (r *Reporter) StageStarted(info pipeline.Info) {
	fmt.Fprintln(r.out, r.styles.Progress.Render("→ "+info.Label()+"..."))
}

// StageSucceeded implements pipeline.Reporter.
func (r *Reporter) StageSucceeded(info pipeline.Info, message string) {
	line := r.styles.Success.Render("✓ " + info.Label())
	if msg := strings.TrimSpace(message); msg != "" {
		line += " " + r.styles.Detail.Render(msg)
	}
	fmt.Fprintln(r.out, line)
}

// StageWarned implements pipeline.Reporter.
func (r *Reporter) StageWarned(info pipeline.Info, warning string) {
	fmt.Fprintln(r.out, r.styles.Warning.Render("! "+info.Label()+": "+strings.TrimSpace(warning)))
}

// StageFailed implements pipeline.Reporter.
func (r *Reporter) StageFailed(info pipeline.Info, err error, output string) {
	msg := "failed"
	if err != nil {
		msg = err.Error()
	}
	fmt.Fprintln(r.out, r.styles.Failure.Render("✗ "+info.Label()+": "+msg))
	if out := strings.TrimRight(output, "\n"); strings.TrimSpace(out) != "" {
		fmt.Fprintln(r.out, r.styles.Output.Render(out))
	}
}
