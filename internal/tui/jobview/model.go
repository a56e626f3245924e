// Package jobview renders the progress of a GEO optimization job, either as
// an interactive bubbletea program or as plain log lines.
package jobview

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/umerkhan95/sitefeed/internal/core/styles"
	"github.com/umerkhan95/sitefeed/internal/geo"
)

const maxBarWidth = 60

// updateMsg carries one poller update into the program.
type updateMsg geo.Update

// closedMsg is sent when the update channel is closed.
type closedMsg struct{}

func waitForUpdate(ch <-chan geo.Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return updateMsg(u)
	}
}

// Model is the bubbletea model for a single optimization run.
type Model struct {
	url     string
	updates <-chan geo.Update
	cancel  func()

	spinner spinner.Model
	bar     progress.Model

	last    geo.Update
	done    bool
	aborted bool
}

// New creates a view over updates. cancel is called when the user quits
// before the job reaches a terminal state.
func New(url string, updates <-chan geo.Update, cancel func()) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(styles.ColorPrimary)

	bar := progress.New(
		progress.WithGradient(string(styles.ColorPrimary), string(styles.ColorSuccess)),
		progress.WithWidth(40),
	)

	return Model{
		url:     url,
		updates: updates,
		cancel:  cancel,
		spinner: s,
		bar:     bar,
		last:    geo.Update{State: geo.StateIdle},
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForUpdate(m.updates))
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.aborted = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.bar.Width = min(max(msg.Width-4, 10), maxBarWidth)
		return m, nil

	case updateMsg:
		m.last = geo.Update(msg)
		if m.last.State.Terminal() {
			m.done = true
			return m, tea.Quit
		}
		return m, waitForUpdate(m.updates)

	case closedMsg:
		m.done = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(styles.HeaderStyle.Render("Optimizing " + m.url))
	b.WriteString("\n\n")

	switch m.last.State {
	case geo.StateIdle, geo.StateSubmitting:
		b.WriteString(m.spinner.View() + " Submitting job...\n")
		return b.String()
	}

	step := m.last.Step
	for i, s := range geo.Steps {
		switch {
		case i < step || (i == step && m.last.State == geo.StateSucceeded):
			b.WriteString(styles.StepDoneStyle.Render("✓ " + s.Label))
		case i == step && m.last.State == geo.StateFailed:
			b.WriteString(styles.ErrorStyle.Render("✗ " + s.Label))
		case i == step:
			b.WriteString(m.spinner.View() + styles.StepActiveStyle.Render(s.Label))
		default:
			b.WriteString(styles.StepPendingStyle.Render("· " + s.Label))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styles.MutedStyle.Render(StepCaption(step)))
	b.WriteString("\n")
	b.WriteString(m.bar.ViewAs(Fraction(step)))
	b.WriteString("\n")

	switch m.last.State {
	case geo.StateFailed:
		b.WriteString("\n" + styles.ErrorStyle.Render("Error: "+errText(m.last.Err)) + "\n")
	case geo.StateSucceeded:
		b.WriteString("\n" + styles.SuccessStyle.Render("Optimization complete") + "\n")
	}

	return b.String()
}

// Result returns the last update seen and whether the user quit early.
func (m Model) Result() (geo.Update, bool) {
	return m.last, m.aborted
}

// StepCaption renders "Step i of N" for a zero-based step index.
func StepCaption(step int) string {
	return fmt.Sprintf("Step %d of %d", step+1, len(geo.Steps))
}

// Fraction is the progress bar fill for a zero-based step index.
func Fraction(step int) float64 {
	return min(max(float64(step+1)/float64(len(geo.Steps)), 0), 1)
}

func errText(err error) string {
	if err == nil {
		return geo.DefaultFailureMessage
	}
	return err.Error()
}
