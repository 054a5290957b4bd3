package domain

import (
	"fmt"
	"strings"
	"time"
)

// BookStatus is the processing state reported by the server
type BookStatus string

const (
	StatusPending   BookStatus = "pending"
	StatusRunning   BookStatus = "running"
	StatusDone      BookStatus = "done"
	StatusFailed    BookStatus = "failed"
	StatusCancelled BookStatus = "cancelled"
)

// StatusQueued is a display-only marker for jobs acknowledged without starting.
// The server never reports it.
const StatusQueued BookStatus = "queued"

// IsTerminal returns true for statuses that end a job's lifecycle
func (s BookStatus) IsTerminal() bool {
	return s == StatusDone || s == StatusFailed || s == StatusCancelled
}

// Normalize maps unknown server statuses to pending
func (s BookStatus) Normalize() BookStatus {
	switch s {
	case StatusPending, StatusRunning, StatusDone, StatusFailed, StatusCancelled:
		return s
	default:
		return StatusPending
	}
}

// Book is a unit of work tracked by the server
type Book struct {
	ID           string     // Opaque server identifier
	Title        string     // Display name
	SourcePath   string     // Origin directory, owned by the server
	Status       BookStatus // Last status fetched
	CurrentStage string     // Pipeline step last reported

	// Configurable fields
	OCRLanguage  string
	OptimizeMode string
	ErrorPolicy  string
	FrontCover   *int // Page index, nil when unset
	BackCover    *int // Page index, nil when unset
}

// Settings returns the configurable fields of the book
func (b Book) Settings() BookSettings {
	return BookSettings{
		OCRLanguage:  b.OCRLanguage,
		OptimizeMode: b.OptimizeMode,
		ErrorPolicy:  b.ErrorPolicy,
		FrontCover:   copyInt(b.FrontCover),
		BackCover:    copyInt(b.BackCover),
	}
}

// Meta returns the secondary line shown under a book title
func (b Book) Meta() string {
	stage := b.CurrentStage
	if stage == "" {
		stage = "-"
	}
	return fmt.Sprintf("%s | stage: %s", b.ID, stage)
}

// BookSettings is the PATCH payload for a book's configurable fields.
// Nil page indices are sent as explicit nulls and clear the value.
type BookSettings struct {
	OCRLanguage  string `json:"ocr_language"`
	OptimizeMode string `json:"optimize_mode"`
	ErrorPolicy  string `json:"error_policy"`
	FrontCover   *int   `json:"front_cover"`
	BackCover    *int   `json:"back_cover"`
}

// Preview lists the first and last source images of a book
type Preview struct {
	Front []string `json:"front"`
	Back  []string `json:"back"`
}

// IsEmpty reports whether the preview has no files
func (p Preview) IsEmpty() bool {
	return len(p.Front) == 0 && len(p.Back) == 0
}

// Artifact names exposed by the output endpoint once a book is done
const (
	ArtifactPDF    = "book.pdf"
	ArtifactText   = "book.txt"
	ArtifactReport = "report.json"
)

// ArtifactNames returns the well-known output files in display order
func ArtifactNames() []string {
	return []string{ArtifactPDF, ArtifactText, ArtifactReport}
}

// Job is one execution attempt of processing a book
type Job struct {
	ID           string
	BookID       string
	Status       BookStatus
	ScheduledAt  string
	StartedAt    string
	FinishedAt   string
	ErrorMessage string
	Resume       bool
}

// JobRequest asks the server to create a job.
// ScheduledAt is required when RunNow is false.
type JobRequest struct {
	BookID      string
	RunNow      bool
	ScheduledAt *time.Time
	Resume      bool
}

// JobCreated is the server acknowledgment of a job creation
type JobCreated struct {
	Job     Job
	Started bool // false means queued for later
}

// FormatSchedule renders a schedule instant the way the server expects it
func FormatSchedule(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// BookTitles extracts titles for fuzzy matching
func BookTitles(books []Book) []string {
	titles := make([]string, len(books))
	for i, b := range books {
		titles[i] = strings.ToLower(b.Title)
	}
	return titles
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}
