// Package settings maps a book's configurable fields to an editable form
// and back.
package settings

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mmcdole/ebookctl/internal/domain"
	"github.com/mmcdole/ebookctl/internal/state"
)

// Form defaults for books that have never been configured
const (
	DefaultLanguage     = "kor+eng"
	DefaultOptimizeMode = "basic"
	DefaultErrorPolicy  = "skip"
)

// Option catalogs offered by the form
var (
	Languages     = []string{"kor+eng", "kor", "eng", "jpn", "chi_sim"}
	OptimizeModes = []string{"basic", "balanced", "max"}
	ErrorPolicies = []string{"skip", "abort"}
)

// Form is the editable text representation of a book's settings
type Form struct {
	OCRLanguage  string
	OptimizeMode string
	ErrorPolicy  string
	FrontCover   string // page index, "" when unset
	BackCover    string
	Resume       bool // not a book field; sent with the next job
}

// Project fills a form from book, substituting defaults for empty fields
func Project(book domain.Book) Form {
	return Form{
		OCRLanguage:  orDefault(book.OCRLanguage, DefaultLanguage),
		OptimizeMode: orDefault(book.OptimizeMode, DefaultOptimizeMode),
		ErrorPolicy:  orDefault(book.ErrorPolicy, DefaultErrorPolicy),
		FrontCover:   formatPage(book.FrontCover),
		BackCover:    formatPage(book.BackCover),
	}
}

// Serialize converts a form to the update payload.
// Page fields that do not start with a number become nil, never zero.
func Serialize(f Form) domain.BookSettings {
	return domain.BookSettings{
		OCRLanguage:  f.OCRLanguage,
		OptimizeMode: f.OptimizeMode,
		ErrorPolicy:  f.ErrorPolicy,
		FrontCover:   parsePage(f.FrontCover),
		BackCover:    parsePage(f.BackCover),
	}
}

// Cycle returns the option after current in options, wrapping around.
// Unknown values restart at the first option.
func Cycle(options []string, current string) string {
	if len(options) == 0 {
		return current
	}
	for i, o := range options {
		if o == current {
			return options[(i+1)%len(options)]
		}
	}
	return options[0]
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func formatPage(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

// parsePage reads an optional sign and leading decimal digits, ignoring any
// trailing text ("12abc" is 12, "abc" is unset)
func parsePage(s string) *int {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return nil
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return nil
	}
	return &n
}

// Projector persists forms for the selected book
type Projector struct {
	client domain.BookClient
	store  *state.Store
	logger *slog.Logger
}

// NewProjector creates a new settings projector
func NewProjector(client domain.BookClient, store *state.Store, logger *slog.Logger) *Projector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Projector{
		client: client,
		store:  store,
		logger: logger,
	}
}

// Save patches the selected book with form and stores the server's copy
func (p *Projector) Save(ctx context.Context, form Form) (*domain.Book, error) {
	bookID := p.store.SelectedID()
	if bookID == "" {
		return nil, domain.ErrNoBookSelected
	}
	return p.SaveFor(ctx, bookID, form)
}

// SaveFor patches bookID with form regardless of the current selection
func (p *Projector) SaveFor(ctx context.Context, bookID string, form Form) (*domain.Book, error) {
	updated, err := p.client.UpdateBookSettings(ctx, bookID, Serialize(form))
	if err != nil {
		p.logger.Error("failed to save settings", "book", bookID, "error", err)
		return nil, fmt.Errorf("save settings for %s: %w", bookID, err)
	}
	if updated == nil {
		// Empty response; keep what we sent
		book, ok := p.store.Book(bookID)
		if !ok {
			book = domain.Book{ID: bookID}
		}
		applySettings(&book, Serialize(form))
		updated = &book
	}

	p.store.Upsert(*updated)
	p.store.SetMessage("Settings saved.", false)
	p.logger.Info("settings saved", "book", updated.ID)
	return updated, nil
}

func applySettings(b *domain.Book, s domain.BookSettings) {
	b.OCRLanguage = s.OCRLanguage
	b.OptimizeMode = s.OptimizeMode
	b.ErrorPolicy = s.ErrorPolicy
	b.FrontCover = s.FrontCover
	b.BackCover = s.BackCover
}
