package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the application
type KeyMap struct {
	// Navigation
	Up       key.Binding
	Down     key.Binding
	Home     key.Binding
	End      key.Binding
	NextFile key.Binding

	// Selection
	ToggleBatch key.Binding
	ClearBatch  key.Binding
	Filter      key.Binding

	// Books
	Add          key.Binding
	Delete       key.Binding
	EditSettings key.Binding
	ToggleResume key.Binding
	Open         key.Binding
	Refresh      key.Binding

	// Jobs
	RunNow        key.Binding
	Schedule      key.Binding
	RunBatch      key.Binding
	ScheduleBatch key.Binding
	CancelJob     key.Binding

	// Application
	Quit   key.Binding
	Help   key.Binding
	Escape key.Binding

	// Confirmations
	Confirm key.Binding
	Deny    key.Binding
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		// Navigation
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Home: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "go to top"),
		),
		End: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "go to bottom"),
		),
		NextFile: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next output file"),
		),

		// Selection
		ToggleBatch: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "toggle batch"),
		),
		ClearBatch: key.NewBinding(
			key.WithKeys("C"),
			key.WithHelp("C", "clear batch"),
		),
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "filter"),
		),

		// Books
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add book"),
		),
		Delete: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "delete book"),
		),
		EditSettings: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit settings"),
		),
		ToggleResume: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "toggle resume"),
		),
		Open: key.NewBinding(
			key.WithKeys("o", "enter"),
			key.WithHelp("o", "open output"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),

		// Jobs
		RunNow: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "run now"),
		),
		Schedule: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "schedule"),
		),
		RunBatch: key.NewBinding(
			key.WithKeys("P"),
			key.WithHelp("P", "run batch"),
		),
		ScheduleBatch: key.NewBinding(
			key.WithKeys("S"),
			key.WithHelp("S", "schedule batch"),
		),
		CancelJob: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "cancel job"),
		),

		// Application
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel/clear"),
		),

		// Confirmations
		Confirm: key.NewBinding(
			key.WithKeys("y", "Y"),
			key.WithHelp("y", "confirm"),
		),
		Deny: key.NewBinding(
			key.WithKeys("n", "N", "esc"),
			key.WithHelp("n/esc", "cancel"),
		),
	}
}

// Keys is the global key bindings instance
var Keys = DefaultKeyMap()
