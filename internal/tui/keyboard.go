package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/ebookctl/internal/domain"
	"github.com/mmcdole/ebookctl/internal/settings"
	"github.com/mmcdole/ebookctl/internal/tui/components"
)

// handleKeyMsg handles keyboard input
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Handle state-specific keys
	switch m.State {
	case StateHelp:
		if key.Matches(msg, Keys.Escape, Keys.Help, Keys.Quit) {
			m.State = StateBrowsing
		}
		return m, nil

	case StateConfirmDelete:
		switch {
		case key.Matches(msg, Keys.Confirm):
			book := m.pendingDelete
			m.pendingDelete = nil
			m.State = StateBrowsing
			if book == nil {
				return m, nil
			}
			m.Loading = true
			return m, DeleteBookCmd(m.library, book.ID)
		case key.Matches(msg, Keys.Deny):
			m.pendingDelete = nil
			m.State = StateBrowsing
		}
		return m, nil

	case StateAdding:
		var cmd tea.Cmd
		var submitted bool
		m.PathModal, cmd, submitted = m.PathModal.Update(msg)
		if submitted {
			path := m.PathModal.Value()
			m.PathModal.Remember(path)
			m.PathModal.Hide()
			m.State = StateBrowsing
			m.Loading = true
			return m, AddBookCmd(m.library, path)
		}
		if !m.PathModal.IsVisible() {
			m.State = StateBrowsing
		}
		return m, cmd

	case StateFiltering:
		switch msg.String() {
		case "esc":
			m.FilterInput.SetValue("")
			m.FilterInput.Blur()
			m.State = StateBrowsing
			m.syncCursor()
			return m, nil
		case "enter":
			m.FilterInput.Blur()
			m.State = StateBrowsing
			return m.selectCursor()
		}
		var cmd tea.Cmd
		m.FilterInput, cmd = m.FilterInput.Update(msg)
		m.Cursor = 0
		return m, cmd

	case StateEditing:
		var cmd tea.Cmd
		var action components.FormAction
		m.Form, cmd, action = m.Form.Update(msg)
		switch action {
		case components.FormSubmit:
			m.Form.StopEditing()
			m.State = StateBrowsing
			m.Loading = true
			return m, SaveSettingsCmd(m.projector, m.Form.Form())
		case components.FormCancel:
			m.Form.StopEditing()
			m.State = StateBrowsing
			m.resetForm()
			return m, nil
		}
		return m, cmd
	}

	// Global keys
	switch {
	case key.Matches(msg, Keys.Quit):
		m.channel.Close()
		return m, tea.Quit

	case key.Matches(msg, Keys.Help):
		m.State = StateHelp
		return m, nil

	case key.Matches(msg, Keys.Escape):
		if m.FilterInput.Value() != "" {
			m.FilterInput.SetValue("")
			m.syncCursor()
		}
		return m, nil

	case key.Matches(msg, Keys.Up):
		return m.moveCursor(-1)

	case key.Matches(msg, Keys.Down):
		return m.moveCursor(1)

	case key.Matches(msg, Keys.Home):
		m.Cursor = 0
		return m.selectCursor()

	case key.Matches(msg, Keys.End):
		m.Cursor = len(m.visibleBooks()) - 1
		return m.selectCursor()

	case key.Matches(msg, Keys.ToggleBatch):
		if book, ok := m.cursorBook(); ok {
			m.store.ToggleBatchSelection(book.ID)
		}
		return m, nil

	case key.Matches(msg, Keys.ClearBatch):
		m.store.ClearBatchSelection()
		return m, nil

	case key.Matches(msg, Keys.Filter):
		m.State = StateFiltering
		cmd := m.FilterInput.Focus()
		return m, cmd

	case key.Matches(msg, Keys.Add):
		m.PathModal.Show("Add book from directory")
		m.State = StateAdding
		return m, nil

	case key.Matches(msg, Keys.Delete):
		if book, ok := m.cursorBook(); ok {
			m.pendingDelete = &book
			m.State = StateConfirmDelete
		}
		return m, nil

	case key.Matches(msg, Keys.EditSettings):
		if m.Detail == nil {
			m.store.SetMessage(domain.Message(domain.ErrNoBookSelected), true)
			return m, m.clearStatusLater()
		}
		m.Form.StartEditing()
		m.State = StateEditing
		return m, nil

	case key.Matches(msg, Keys.ToggleResume):
		m.Form.ToggleResume()
		return m, nil

	case key.Matches(msg, Keys.NextFile):
		if m.Detail != nil && len(m.Detail.Artifacts) > 0 {
			m.ArtifactCursor = (m.ArtifactCursor + 1) % len(m.Detail.Artifacts)
		}
		return m, nil

	case key.Matches(msg, Keys.Open):
		return m.openArtifact()

	case key.Matches(msg, Keys.Refresh):
		m.Loading = true
		return m, RefreshCmd(m.library, m.store.SelectedID())

	case key.Matches(msg, Keys.RunNow):
		m.Loading = true
		return m, RunNowCmd(m.jobs, m.Form.Form())

	case key.Matches(msg, Keys.Schedule):
		m.Loading = true
		return m, ScheduleCmd(m.jobs, m.Form.Form())

	case key.Matches(msg, Keys.RunBatch):
		m.Loading = true
		return m, RunSelectedCmd(m.jobs)

	case key.Matches(msg, Keys.ScheduleBatch):
		m.Loading = true
		return m, ScheduleSelectedCmd(m.jobs)

	case key.Matches(msg, Keys.CancelJob):
		jobID, _, ok := m.channel.ActiveJob()
		if !ok {
			m.store.SetMessage("No job is running.", true)
			return m, m.clearStatusLater()
		}
		m.Loading = true
		return m, CancelJobCmd(m.jobs, jobID)
	}

	return m, nil
}

// moveCursor moves the cursor by delta and loads the book under it
func (m Model) moveCursor(delta int) (tea.Model, tea.Cmd) {
	n := len(m.visibleBooks())
	if n == 0 {
		return m, nil
	}
	next := m.Cursor + delta
	if next < 0 || next >= n {
		return m, nil
	}
	m.Cursor = next
	return m.selectCursor()
}

// selectCursor makes the book under the cursor the selected book
func (m Model) selectCursor() (tea.Model, tea.Cmd) {
	book, ok := m.cursorBook()
	if !ok || book.ID == m.store.SelectedID() {
		return m, nil
	}
	m.store.SetSelected(book.ID)
	m.Loading = true
	return m, SelectBookCmd(m.library, book.ID)
}

// openArtifact opens the highlighted output file of a finished book
func (m Model) openArtifact() (tea.Model, tea.Cmd) {
	if m.Detail == nil || len(m.Detail.Artifacts) == 0 {
		m.store.SetMessage("No output files yet.", true)
		return m, m.clearStatusLater()
	}
	if m.opener == nil {
		m.store.SetMessage("No viewer configured.", true)
		return m, m.clearStatusLater()
	}
	return m, OpenArtifactCmd(m.opener, m.Detail.Artifacts[m.ArtifactCursor])
}

// resetForm reprojects the form from the shown book, keeping the resume flag
func (m *Model) resetForm() {
	resume := m.Form.Form().Resume
	form := settings.Project(domain.Book{})
	if m.Detail != nil {
		form = settings.Project(m.Detail.Book)
	}
	form.Resume = resume
	m.Form.SetForm(form)
}
