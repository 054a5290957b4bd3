package components

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/ebookctl/internal/tui/styles"
)

const pathModalWidth = 52

// PathModal asks for the directory of a new book. Paths submitted during
// the session can be recalled with up/down.
type PathModal struct {
	visible bool
	title   string
	input   textinput.Model
	history []string
	recall  int // index into history while browsing it, len(history) otherwise
}

// NewPathModal creates a hidden path modal
func NewPathModal() PathModal {
	ti := textinput.New()
	ti.Placeholder = "/path/to/scans"
	ti.CharLimit = 1024
	ti.Width = pathModalWidth - 4
	ti.Prompt = ""
	ti.TextStyle = lipgloss.NewStyle().Foreground(styles.White)
	ti.PlaceholderStyle = styles.DimStyle

	return PathModal{input: ti}
}

// Show opens the modal with an empty input
func (m *PathModal) Show(title string) {
	m.visible = true
	m.title = title
	m.recall = len(m.history)
	m.input.SetValue("")
	m.input.Focus()
}

// Hide dismisses the modal
func (m *PathModal) Hide() {
	m.visible = false
	m.input.Blur()
}

func (m PathModal) IsVisible() bool {
	return m.visible
}

// Value returns the entered path with a leading ~ expanded
func (m PathModal) Value() string {
	return ExpandHome(strings.TrimSpace(m.input.Value()))
}

// Remember adds path to the recall history, skipping blanks and repeats of the last entry
func (m *PathModal) Remember(path string) {
	if path == "" {
		return
	}
	if n := len(m.history); n > 0 && m.history[n-1] == path {
		return
	}
	m.history = append(m.history, path)
}

// Update handles input events, returns (modal, cmd, submitted)
func (m PathModal) Update(msg tea.Msg) (PathModal, tea.Cmd, bool) {
	if !m.visible {
		return m, nil, false
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "enter":
			return m, nil, true
		case "esc":
			m.Hide()
			return m, nil, false
		case "up":
			if m.recall > 0 {
				m.recall--
				m.input.SetValue(m.history[m.recall])
				m.input.CursorEnd()
			}
			return m, nil, false
		case "down":
			if m.recall < len(m.history) {
				m.recall++
				value := ""
				if m.recall < len(m.history) {
					value = m.history[m.recall]
				}
				m.input.SetValue(value)
				m.input.CursorEnd()
			}
			return m, nil, false
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd, false
}

func (m PathModal) View() string {
	if !m.visible {
		return ""
	}

	row := lipgloss.NewStyle().
		Width(pathModalWidth).
		Background(styles.SlateDark)

	hint := "enter add · esc cancel"
	if len(m.history) > 0 {
		hint = "enter add · ↑↓ recent · esc cancel"
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		row.Foreground(styles.White).Bold(true).Render(m.title),
		"",
		row.Render(m.input.View()),
		"",
		row.Foreground(styles.DimGray).Render(hint),
	)

	return styles.ModalStyle.Render(content)
}

// ExpandHome replaces a leading ~ with the user's home directory
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
