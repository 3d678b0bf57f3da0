// Package picker lets the user choose a model, either with an interactive
// bubbletea list or with a numbered menu read line by line.
package picker

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// ErrCancelled is returned when the user leaves the picker without choosing.
var ErrCancelled = errors.New("model selection cancelled")

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	itemStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	helpTextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Model is the bubbletea model of the interactive picker.
type Model struct {
	models    []string
	cursor    int
	chosen    string
	cancelled bool
}

// New creates a picker over models with the cursor on the first entry.
func New(models []string) Model {
	return Model{models: models}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch s := key.String(); s {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.models)-1 {
			m.cursor++
		}
	case "enter":
		if len(m.models) > 0 {
			m.chosen = m.models[m.cursor]
		}
		return m, tea.Quit
	case "q", "esc", "ctrl+c":
		m.cancelled = true
		return m, tea.Quit
	default:
		// Number keys jump straight to an entry.
		if n, err := strconv.Atoi(s); err == nil && n >= 1 && n <= len(m.models) {
			m.cursor = n - 1
			m.chosen = m.models[m.cursor]
			return m, tea.Quit
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if m.chosen != "" || m.cancelled {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Available models:"))
	sb.WriteString("\n")
	for i, name := range m.models {
		line := fmt.Sprintf("%d. %s", i+1, name)
		if i == m.cursor {
			sb.WriteString(cursorStyle.Render("> " + line))
		} else {
			sb.WriteString(itemStyle.Render("  " + line))
		}
		sb.WriteString("\n")
	}
	sb.WriteString(helpTextStyle.Render("↑/k ↓/j move • 1-9 pick • enter select • q quit"))
	sb.WriteString("\n")
	return sb.String()
}

// Chosen returns the selected model, empty until a choice is made.
func (m Model) Chosen() string {
	return m.chosen
}

// Run shows the interactive picker on the terminal.
func Run(models []string) (string, error) {
	if len(models) == 0 {
		return "", errors.New("no models configured")
	}

	final, err := tea.NewProgram(New(models), tea.WithInput(os.Stdin), tea.WithOutput(os.Stderr)).Run()
	if err != nil {
		return "", fmt.Errorf("model picker: %w", err)
	}

	m, ok := final.(Model)
	if !ok || m.chosen == "" {
		return "", ErrCancelled
	}
	return m.chosen, nil
}

// IsInteractive reports whether stdin and stderr are both terminals.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stderr.Fd()))
}

// LineReader yields the next input line; ok is false once input is exhausted.
type LineReader func() (line string, ok bool)

// Menu prints a numbered model list and reads choices until a valid one is
// entered. It returns ErrCancelled when input ends first.
func Menu(out io.Writer, next LineReader, models []string) (string, error) {
	if len(models) == 0 {
		return "", errors.New("no models configured")
	}

	fmt.Fprintln(out, "\nAvailable models:")
	for i, name := range models {
		fmt.Fprintf(out, "%d. %s\n", i+1, name)
	}

	for {
		fmt.Fprintf(out, "\nSelect model (1-%d): ", len(models))
		line, ok := next()
		if !ok {
			return "", ErrCancelled
		}
		if n, err := strconv.Atoi(strings.TrimSpace(line)); err == nil && n >= 1 && n <= len(models) {
			return models[n-1], nil
		}
		fmt.Fprintln(out, "Invalid selection. Please try again.")
	}
}
