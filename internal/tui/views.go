package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/ebookctl/internal/domain"
	"github.com/mmcdole/ebookctl/internal/library"
	"github.com/mmcdole/ebookctl/internal/tui/styles"
)

// View renders the application
func (m Model) View() string {
	if !m.Ready {
		return "Loading..."
	}
	if m.State == StateHelp {
		return m.renderHelp()
	}

	bodyHeight := m.Height - ChromeHeight
	if bodyHeight < 3 {
		bodyHeight = 3
	}

	list := lipgloss.NewStyle().
		Width(m.listWidth()).
		Height(bodyHeight).
		Render(m.renderList(bodyHeight))
	detail := lipgloss.NewStyle().
		Width(m.detailWidth()).
		Height(bodyHeight).
		Render(m.renderDetail())

	view := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, list, detail),
		m.renderProgress(),
		m.renderFooter(),
	)

	switch m.State {
	case StateAdding:
		view = lipgloss.Place(m.Width, m.Height,
			lipgloss.Center, lipgloss.Center,
			m.PathModal.View())
	case StateConfirmDelete:
		view = lipgloss.Place(m.Width, m.Height,
			lipgloss.Center, lipgloss.Center,
			m.renderConfirmDelete())
	}
	return view
}

// renderList renders the book list with batch checkboxes
func (m Model) renderList(height int) string {
	width := m.listWidth() - 2
	var lines []string

	header := styles.TitleStyle.Render("Books")
	if n := len(m.store.SelectedIDs()); n > 0 {
		header += styles.AccentStyle.Render(fmt.Sprintf("  %d selected", n))
	}
	lines = append(lines, header)

	if m.State == StateFiltering || m.FilterInput.Value() != "" {
		lines = append(lines, m.FilterInput.View())
	}

	books := m.visibleBooks()
	if len(books) == 0 {
		lines = append(lines, styles.DimStyle.Render("No books. Press a to add one."))
		return styles.ListPanelStyle.Render(strings.Join(lines, "\n"))
	}

	// Two lines per book; keep the cursor in view
	rows := (height - len(lines)) / 2
	if rows < 1 {
		rows = 1
	}
	start := 0
	if m.Cursor >= rows {
		start = m.Cursor - rows + 1
	}
	end := start + rows
	if end > len(books) {
		end = len(books)
	}

	for i := start; i < end; i++ {
		lines = append(lines, m.renderBookItem(books[i], i == m.Cursor, width)...)
	}
	return styles.ListPanelStyle.Render(strings.Join(lines, "\n"))
}

// renderBookItem renders the title and meta lines of one book
func (m Model) renderBookItem(book domain.Book, selected bool, width int) []string {
	box := styles.Checkbox(m.store.IsBatchSelected(book.ID))
	status := styles.RenderStatus(book.Status)
	titleWidth := width - lipgloss.Width(box) - lipgloss.Width(status) - 2

	title := styles.Pad(styles.Truncate(book.Title, titleWidth), titleWidth)
	meta := styles.Truncate(book.Meta(), width-4)

	if selected {
		title = styles.SelectedItemStyle.Render(title)
		meta = styles.SelectedItemStyle.Render(meta)
	} else {
		title = styles.NormalItemStyle.Render(title)
		meta = styles.DimStyle.Render(meta)
	}
	return []string{
		box + " " + title + " " + status,
		"    " + meta,
	}
}

// renderDetail renders the selected book, its settings form, preview and outputs
func (m Model) renderDetail() string {
	if m.Detail == nil {
		return styles.DetailPanelStyle.Render(styles.DimStyle.Render("Select a book."))
	}
	book := m.Detail.Book
	width := m.detailWidth() - 4

	sections := []string{
		styles.TitleStyle.Render(styles.Truncate(book.Title, width)) + "  " + styles.RenderStatus(book.Status),
		styles.SubtitleStyle.Render(styles.Truncate(book.Meta(), width)),
		styles.DimStyle.Render(styles.Truncate(book.SourcePath, width)),
		"",
		styles.TitleStyle.Render("Settings"),
		m.Form.View(),
		"",
		styles.TitleStyle.Render("Preview"),
		renderPreview(m.Detail.Preview, width),
	}

	if len(m.Detail.Artifacts) > 0 {
		sections = append(sections, "", styles.TitleStyle.Render("Output"),
			m.renderArtifacts(m.Detail.Artifacts))
	}
	return styles.DetailPanelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func renderPreview(p domain.Preview, width int) string {
	if p.IsEmpty() {
		return styles.DimStyle.Render("No source images.")
	}
	line := func(label string, files []string) string {
		if len(files) == 0 {
			return styles.FieldLabelStyle.Render(label) + styles.DimStyle.Render("-")
		}
		return styles.FieldLabelStyle.Render(label) +
			styles.Truncate(strings.Join(files, ", "), width-14)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		line("First pages", p.Front),
		line("Last pages", p.Back),
	)
}

func (m Model) renderArtifacts(artifacts []library.Artifact) string {
	rows := make([]string, len(artifacts))
	for i, a := range artifacts {
		if i == m.ArtifactCursor {
			rows[i] = styles.AccentStyle.Render("› " + a.Name)
		} else {
			rows[i] = styles.DimStyle.Render("  " + a.Name)
		}
	}
	return strings.Join(rows, "\n")
}

// renderProgress renders the live job line, or an empty line
func (m Model) renderProgress() string {
	p := m.store.Progress()
	if !p.Visible {
		return ""
	}
	text := styles.AccentStyle.Render(p.Text())
	if p.Status == domain.StatusQueued {
		return text
	}
	return m.ProgressBar.ViewAs(p.Fraction()) + "  " + text
}

// renderFooter renders a single-line minimal footer
func (m Model) renderFooter() string {
	var left string
	if msg := m.store.Message(); msg.Text != "" {
		if msg.IsError {
			left = styles.ErrorStyle.Render(msg.Text)
		} else {
			left = styles.DimStyle.Render(msg.Text)
		}
	} else if m.Loading {
		left = styles.DimStyle.Render("Working...")
	}

	var center string
	switch m.State {
	case StateEditing:
		center = hint("↑/↓", "field") + "  " + hint("←/→", "change") + "  " + hint("enter", "save") + "  " + hint("esc", "cancel")
	case StateFiltering:
		center = hint("enter", "apply") + "  " + hint("esc", "clear")
	}

	right := hint("?", "help")

	gap := m.Width - lipgloss.Width(left) - lipgloss.Width(center) - lipgloss.Width(right)
	if gap < 2 {
		return left + " " + right
	}
	leftPad := gap / 2
	return left + strings.Repeat(" ", leftPad) + center + strings.Repeat(" ", gap-leftPad) + right
}

func hint(k, desc string) string {
	return styles.HelpKeyStyle.Render(k) + styles.HelpDescStyle.Render(" "+desc)
}

func (m Model) renderConfirmDelete() string {
	title := ""
	if m.pendingDelete != nil {
		title = m.pendingDelete.Title
	}
	content := lipgloss.JoinVertical(lipgloss.Left,
		styles.ModalTitleStyle.Render("Delete book?"),
		styles.SubtitleStyle.Render(title),
		"",
		hint("y", "delete")+"  "+hint("n", "keep"),
	)
	return styles.ModalStyle.Render(content)
}

// renderHelp renders the help screen
func (m Model) renderHelp() string {
	help := `
NAVIGATION                      JOBS
  j/k        Up/down               p      Run selected book now
  g/Home     First book            s      Schedule selected book
  G/End      Last book             P      Run batch now
  /          Filter titles         S      Schedule batch
  Tab        Next output file      c      Cancel running job
                                   u      Toggle resume

BOOKS                           OTHER
  Space      Toggle batch          r      Refresh
  C          Clear batch           q      Quit
  a          Add book              ?      This help
  x          Delete book           Esc    Close / Cancel
  e          Edit settings
  o/Enter    Open output file
`
	return lipgloss.Place(m.Width, m.Height,
		lipgloss.Center, lipgloss.Center,
		styles.ModalStyle.Render(help))
}
