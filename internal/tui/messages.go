package tui

import (
	"github.com/mmcdole/ebookctl/internal/domain"
	"github.com/mmcdole/ebookctl/internal/jobs"
	"github.com/mmcdole/ebookctl/internal/library"
	"github.com/mmcdole/ebookctl/internal/progress"
)

// DetailLoadedMsg is sent when the book list or the selected book was reloaded.
// Detail is nil when nothing is selected.
type DetailLoadedMsg struct {
	Detail *library.Detail
}

// BookAddedMsg is sent after a book was registered
type BookAddedMsg struct {
	Book *domain.Book
}

// BookDeletedMsg is sent after a book was removed
type BookDeletedMsg struct {
	BookID string
}

// SettingsSavedMsg is sent after the settings form was stored on the server
type SettingsSavedMsg struct {
	Book *domain.Book
}

// JobCreatedMsg is sent after a single-book run or schedule
type JobCreatedMsg struct {
	Outcome jobs.Outcome
}

// BatchDoneMsg is sent after a batch run or schedule
type BatchDoneMsg struct {
	Result jobs.BatchResult
}

// JobCancelledMsg is sent after the active job was cancelled
type JobCancelledMsg struct {
	Job *domain.Job
}

// EventHandledMsg is sent after one progress channel event was applied.
// Detail is set when a completion reloaded the job's book.
type EventHandledMsg struct {
	Event  progress.Event
	Detail *library.Detail
	Err    error
}

// ArtifactOpenedMsg is sent after an artifact was handed to the viewer
type ArtifactOpenedMsg struct {
	Name string
}

// ErrMsg is sent when an error occurs
type ErrMsg struct {
	Err      error
	Context  string
	Reported bool // status line already shows the failure
}

func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// StatusMsg is sent to update the status bar
type StatusMsg struct {
	Message string
	IsError bool
}

// ClearStatusMsg clears the status line if it still shows Text
type ClearStatusMsg struct {
	Text string
}
