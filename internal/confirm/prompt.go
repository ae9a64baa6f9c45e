package confirm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type keyMap struct {
	Continue key.Binding
	Abort    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Continue: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "continue")),
		Abort:    key.NewBinding(key.WithKeys("ctrl+c", "q", "esc"), key.WithHelp("q", "abort")),
	}
}

var (
	promptTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	promptBody  = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	promptAddr  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F5C542"))
	promptHelp  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	promptBox   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

type promptModel struct {
	req       Request
	keys      keyMap
	spinner   spinner.Model
	confirmed bool
	aborted   bool
}

func newPromptModel(req Request) promptModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return promptModel{req: req, keys: defaultKeyMap(), spinner: s}
}

func (m promptModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Continue):
			m.confirmed = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Abort):
			m.aborted = true
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m promptModel) View() string {
	if m.confirmed || m.aborted {
		return ""
	}
	lines := []string{
		promptTitle.Render(fmt.Sprintf("Fund %q on %s", m.req.Identity, m.req.Network)),
		promptBody.Render("Address:") + " " + promptAddr.Render(m.req.Address),
	}
	if hint := strings.TrimSpace(m.req.Hint); hint != "" {
		lines = append(lines, promptBody.Render(hint))
	}
	lines = append(lines,
		"",
		m.spinner.View()+" waiting for funding",
		promptHelp.Render(fmt.Sprintf("%s %s • %s %s",
			m.keys.Continue.Help().Key, m.keys.Continue.Help().Desc,
			m.keys.Abort.Help().Key, m.keys.Abort.Help().Desc)),
	)
	return promptBox.Render(strings.Join(lines, "\n")) + "\n"
}

// Prompt is the interactive terminal confirmer.
type Prompt struct {
	in  io.Reader
	out io.Writer
}

// NewPrompt builds a terminal confirmer reading keys from in.
func NewPrompt(in io.Reader, out io.Writer) *Prompt {
	return &Prompt{in: in, out: out}
}

// Confirm implements Provider.
func (p *Prompt) Confirm(ctx context.Context, req Request) error {
	program := tea.NewProgram(
		newPromptModel(req),
		tea.WithInput(p.in),
		tea.WithOutput(p.out),
		tea.WithContext(ctx),
	)
	final, err := program.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) {
			return ErrAborted
		}
		return fmt.Errorf("confirm: run prompt: %w", err)
	}
	m, ok := final.(promptModel)
	if !ok || !m.confirmed {
		return ErrAborted
	}
	return nil
}
