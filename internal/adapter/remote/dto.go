package remote

import (
	"github.com/mmcdole/ebookctl/internal/domain"
)

// bookDTO is the wire shape of a book in list, detail and patch responses
type bookDTO struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	SourcePath   string `json:"source_path"`
	Status       string `json:"status"`
	CurrentStage string `json:"current_stage"`
	OCRLanguage  string `json:"ocr_language"`
	OptimizeMode string `json:"optimize_mode"`
	ErrorPolicy  string `json:"error_policy"`
	FrontCover   *int   `json:"front_cover"`
	BackCover    *int   `json:"back_cover"`
}

func (d bookDTO) toDomain() domain.Book {
	return domain.Book{
		ID:           d.ID,
		Title:        d.Title,
		SourcePath:   d.SourcePath,
		Status:       domain.BookStatus(d.Status).Normalize(),
		CurrentStage: d.CurrentStage,
		OCRLanguage:  d.OCRLanguage,
		OptimizeMode: d.OptimizeMode,
		ErrorPolicy:  d.ErrorPolicy,
		FrontCover:   d.FrontCover,
		BackCover:    d.BackCover,
	}
}

type createBookRequest struct {
	Path string `json:"path"`
}

type jobDTO struct {
	ID           string  `json:"id"`
	BookID       string  `json:"book_id"`
	Status       string  `json:"status"`
	ScheduledAt  *string `json:"scheduled_at"`
	StartedAt    *string `json:"started_at"`
	FinishedAt   *string `json:"finished_at"`
	ErrorMessage *string `json:"error_message"`
	Resume       bool    `json:"resume"`
}

func (d jobDTO) toDomain() domain.Job {
	return domain.Job{
		ID:           d.ID,
		BookID:       d.BookID,
		Status:       domain.BookStatus(d.Status).Normalize(),
		ScheduledAt:  deref(d.ScheduledAt),
		StartedAt:    deref(d.StartedAt),
		FinishedAt:   deref(d.FinishedAt),
		ErrorMessage: deref(d.ErrorMessage),
		Resume:       d.Resume,
	}
}

type createJobRequest struct {
	BookID      string  `json:"book_id"`
	RunNow      bool    `json:"run_now"`
	ScheduledAt *string `json:"scheduled_at"`
	Resume      bool    `json:"resume"`
}

type retryJobRequest struct {
	RunNow bool `json:"run_now"`
}

type jobCreateResponse struct {
	Job     jobDTO `json:"job"`
	Started bool   `json:"started"`
}

func (r jobCreateResponse) toDomain() *domain.JobCreated {
	return &domain.JobCreated{Job: r.Job.toDomain(), Started: r.Started}
}

// errorBody is the error payload; detail may be a string or a validation list
type errorBody struct {
	Detail any `json:"detail"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
