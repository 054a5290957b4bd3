package tui

import (
	"log/slog"
	"time"

	progressbar "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/ebookctl/internal/domain"
	"github.com/mmcdole/ebookctl/internal/jobs"
	"github.com/mmcdole/ebookctl/internal/library"
	"github.com/mmcdole/ebookctl/internal/progress"
	"github.com/mmcdole/ebookctl/internal/settings"
	"github.com/mmcdole/ebookctl/internal/state"
	"github.com/mmcdole/ebookctl/internal/tui/components"
	"github.com/mmcdole/ebookctl/internal/tui/styles"
)

// ApplicationState represents the current state of the application
type ApplicationState int

const (
	StateBrowsing ApplicationState = iota
	StateFiltering
	StateEditing
	StateAdding
	StateConfirmDelete
	StateHelp
)

// Layout proportions
const (
	ListColumnPercent = 40
	MinColumnWidth    = 24

	// Vertical layout: progress line + footer line
	ChromeHeight = 2
)

// Status line durations
const (
	statusTTL = 4 * time.Second
	errorTTL  = 8 * time.Second
)

// Deps are the services the model drives
type Deps struct {
	Store    *state.Store
	Library  *library.Service
	Settings *settings.Projector
	Jobs     *jobs.Orchestrator
	Channel  *progress.Channel
	Opener   Opener
	Logger   *slog.Logger
}

// Model is the main Bubble Tea model for the application
type Model struct {
	// Application state
	State ApplicationState
	Ready bool

	// Services
	store     *state.Store
	library   *library.Service
	projector *settings.Projector
	jobs      *jobs.Orchestrator
	channel   *progress.Channel
	opener    Opener
	logger    *slog.Logger

	// UI Components
	Form        components.SettingsForm
	PathModal   components.PathModal
	FilterInput textinput.Model
	ProgressBar progressbar.Model

	// Data
	Detail         *library.Detail
	Cursor         int
	ArtifactCursor int
	pendingDelete  *domain.Book

	// Dimensions
	Width  int
	Height int

	Loading bool
}

// NewModel creates a new application model
func NewModel(deps Deps) Model {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	filter := textinput.New()
	filter.Prompt = "/"
	filter.PromptStyle = styles.FilterPromptStyle
	filter.TextStyle = styles.FilterStyle
	filter.Placeholder = "filter titles"
	filter.PlaceholderStyle = styles.DimStyle

	bar := progressbar.New(progressbar.WithSolidFill(string(styles.Amber)), progressbar.WithoutPercentage())

	return Model{
		State:       StateBrowsing,
		store:       deps.Store,
		library:     deps.Library,
		projector:   deps.Settings,
		jobs:        deps.Jobs,
		channel:     deps.Channel,
		opener:      deps.Opener,
		logger:      logger,
		Form:        components.NewSettingsForm(),
		PathModal:   components.NewPathModal(),
		FilterInput: filter,
		ProgressBar: bar,
	}
}

// Init loads the catalog and starts listening for progress events
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		RefreshCmd(m.library, ""),
		ListenCmd(m.jobs, m.channel),
	)
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Ready = true
		m.updateLayout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case DetailLoadedMsg:
		m.Loading = false
		m.applyDetail(msg.Detail)
		return m, m.clearStatusLater()

	case BookAddedMsg:
		m.Loading = false
		if msg.Book != nil {
			return m, tea.Batch(RefreshCmd(m.library, msg.Book.ID), m.clearStatusLater())
		}
		return m, m.clearStatusLater()

	case BookDeletedMsg:
		m.Loading = false
		if m.Detail != nil && m.Detail.Book.ID == msg.BookID {
			m.Detail = nil
		}
		m.syncCursor()
		return m, tea.Batch(RefreshCmd(m.library, ""), m.clearStatusLater())

	case SettingsSavedMsg:
		m.Loading = false
		if msg.Book != nil && m.Detail != nil && m.Detail.Book.ID == msg.Book.ID {
			m.Detail.Book = *msg.Book
		}
		return m, m.clearStatusLater()

	case JobCreatedMsg:
		m.Loading = false
		return m, tea.Batch(RefreshCmd(m.library, msg.Outcome.BookID), m.clearStatusLater())

	case BatchDoneMsg:
		m.Loading = false
		return m, tea.Batch(RefreshCmd(m.library, m.store.SelectedID()), m.clearStatusLater())

	case JobCancelledMsg:
		m.Loading = false
		m.syncCursor()
		return m, m.clearStatusLater()

	case EventHandledMsg:
		if msg.Detail != nil {
			m.applyDetail(msg.Detail)
		}
		if msg.Err != nil {
			m.logger.Warn("progress event failed", "kind", msg.Event.Kind, "job", msg.Event.JobID, "error", msg.Err)
		}
		return m, ListenCmd(m.jobs, m.channel)

	case ArtifactOpenedMsg:
		m.store.SetMessage("Opened "+msg.Name+".", false)
		return m, m.clearStatusLater()

	case ErrMsg:
		m.Loading = false
		if !domain.IsUserCondition(msg.Err) {
			m.logger.Error(msg.Context, "error", msg.Err)
		}
		if !msg.Reported {
			m.store.SetMessage(domain.Message(msg.Err), true)
		}
		return m, m.clearStatusLater()

	case StatusMsg:
		m.store.SetMessage(msg.Message, msg.IsError)
		return m, m.clearStatusLater()

	case ClearStatusMsg:
		if cur := m.store.Message(); cur.Text == msg.Text {
			m.store.SetMessage("", false)
		}
		return m, nil
	}

	return m, nil
}

// applyDetail shows detail if it is still the selected book
func (m *Model) applyDetail(detail *library.Detail) {
	if detail == nil {
		if m.store.SelectedID() == "" {
			m.Detail = nil
		}
		m.syncCursor()
		return
	}
	if detail.Book.ID != m.store.SelectedID() {
		return
	}

	sameBook := m.Detail != nil && m.Detail.Book.ID == detail.Book.ID
	m.Detail = detail
	if !sameBook {
		m.ArtifactCursor = 0
	}
	if m.ArtifactCursor >= len(detail.Artifacts) {
		m.ArtifactCursor = 0
	}
	if m.State != StateEditing {
		form := settings.Project(detail.Book)
		form.Resume = sameBook && m.Form.Form().Resume
		m.Form.SetForm(form)
	}
	m.syncCursor()
}

// visibleBooks returns the list with the filter applied
func (m Model) visibleBooks() []domain.Book {
	return m.store.Filter(m.FilterInput.Value())
}

// syncCursor moves the cursor onto the selected book when it is visible
func (m *Model) syncCursor() {
	books := m.visibleBooks()
	if selected := m.store.SelectedID(); selected != "" {
		for i, b := range books {
			if b.ID == selected {
				m.Cursor = i
				return
			}
		}
	}
	if m.Cursor >= len(books) {
		m.Cursor = len(books) - 1
	}
	if m.Cursor < 0 {
		m.Cursor = 0
	}
}

// cursorBook returns the book under the cursor
func (m Model) cursorBook() (domain.Book, bool) {
	books := m.visibleBooks()
	if m.Cursor < 0 || m.Cursor >= len(books) {
		return domain.Book{}, false
	}
	return books[m.Cursor], true
}

// clearStatusLater schedules the current status line for removal
func (m Model) clearStatusLater() tea.Cmd {
	cur := m.store.Message()
	if cur.Text == "" {
		return nil
	}
	ttl := statusTTL
	if cur.IsError {
		ttl = errorTTL
	}
	return ClearStatusCmd(cur.Text, ttl)
}

// updateLayout sizes components for the window
func (m *Model) updateLayout() {
	w := m.detailWidth() - 8
	if w < 10 {
		w = 10
	}
	m.ProgressBar.Width = w
	m.FilterInput.Width = m.listWidth() - 4
}

func (m Model) listWidth() int {
	w := m.Width * ListColumnPercent / 100
	if w < MinColumnWidth {
		w = MinColumnWidth
	}
	return w
}

func (m Model) detailWidth() int {
	w := m.Width - m.listWidth()
	if w < MinColumnWidth {
		w = MinColumnWidth
	}
	return w
}
