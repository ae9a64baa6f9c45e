// Package summary renders the final deployment report.
package summary

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/lattice-deploy/internal/logbook"
	"github.com/kingrea/lattice-deploy/internal/pipeline"
)

const stageID = "summary"

// Summary is the data shown after a successful deploy.
type Summary struct {
	RemoteID       string
	SigningAddress string
	Network        string
	ExplorerURL    string
	// Deployments is the number of recorded deploys to Network, zero when
	// unknown.
	Deployments int
}

// ExplorerURL expands {network} and {id} in template. An empty template
// yields an empty link.
func ExplorerURL(template, network, id string) string {
	if strings.TrimSpace(template) == "" {
		return ""
	}
	return strings.NewReplacer("{network}", network, "{id}", id).Replace(template)
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4FD18B"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Width(16)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

// Render assembles the report.
func Render(s Summary) string {
	rows := [][2]string{
		{"Contract ID", s.RemoteID},
		{"Deployer", s.SigningAddress},
		{"Network", s.Network},
	}
	if s.ExplorerURL != "" {
		rows = append(rows, [2]string{"Explorer", s.ExplorerURL})
	}
	if s.Deployments > 0 {
		rows = append(rows, [2]string{"Deployments", fmt.Sprintf("%d on %s", s.Deployments, s.Network)})
	}
	lines := []string{titleStyle.Render("Deployment complete"), ""}
	for _, row := range rows {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(row[0]), valueStyle.Render(row[1])))
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

// Stage prints the summary to out.
type Stage struct {
	out      io.Writer
	template string
	history  *logbook.Logbook
}

// Option customizes the summary stage.
type Option func(*Stage)

// WithHistory adds the recorded deployment count to the report.
func WithHistory(lb *logbook.Logbook) Option {
	return func(s *Stage) {
		s.history = lb
	}
}

// New builds the summary stage. template is the explorer URL template.
func New(out io.Writer, template string, opts ...Option) *Stage {
	s := &Stage{out: out, template: template}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Info implements pipeline.Stage.
func (s *Stage) Info() pipeline.Info {
	return pipeline.Info{
		ID:       stageID,
		Name:     "Summarize",
		Requires: []pipeline.Field{pipeline.FieldRemoteID, pipeline.FieldSigningAddress},
	}
}

// Run implements pipeline.Stage.
func (s *Stage) Run(_ context.Context, in pipeline.Inputs) pipeline.Result {
	network := in.Value(pipeline.FieldTargetNetwork)
	id := in.Value(pipeline.FieldRemoteID)
	report := Summary{
		RemoteID:       id,
		SigningAddress: in.Value(pipeline.FieldSigningAddress),
		Network:        network,
		ExplorerURL:    ExplorerURL(s.template, network, id),
	}
	if n, err := s.history.Count(network); err == nil {
		report.Deployments = n
	}
	if s.out != nil {
		fmt.Fprintln(s.out, Render(report))
	}
	return pipeline.Success("")
}
