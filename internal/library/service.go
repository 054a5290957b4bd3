// Package library keeps the Entity Store in step with the server's book
// catalog. It is the only writer of fetched books into the store.
package library

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mmcdole/ebookctl/internal/domain"
	"github.com/mmcdole/ebookctl/internal/state"
)

// Client is the part of the API the catalog needs
type Client interface {
	domain.BookClient
	OutputURL(bookID, name string) string
}

// Artifact is a downloadable output file of a finished book
type Artifact struct {
	Name string
	URL  string
}

// Detail is everything shown for the selected book
type Detail struct {
	Book      domain.Book
	Preview   domain.Preview
	Artifacts []Artifact // empty unless the book is done
}

// Service orchestrates catalog client + store operations.
type Service struct {
	client Client
	store  *state.Store
	logger *slog.Logger
}

// NewService creates a new catalog service.
func NewService(client Client, store *state.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{client: client, store: store, logger: logger}
}

// Refresh reloads the book list. preferBookID, when set, becomes the
// selection; the selected book is then reloaded with its preview.
// A failed list fetch leaves the store untouched.
func (s *Service) Refresh(ctx context.Context, preferBookID string) (*Detail, error) {
	books, err := s.client.ListBooks(ctx)
	if err != nil {
		s.logger.Error("failed to fetch books", "error", err)
		return nil, fmt.Errorf("list books: %w", err)
	}

	s.store.ReplaceAll(books)
	if preferBookID != "" {
		s.store.SetSelected(preferBookID)
	}
	s.logger.Debug("fetched books", "count", len(books), "selected", s.store.SelectedID())

	selected := s.store.SelectedID()
	if selected == "" {
		return nil, nil
	}
	return s.Select(ctx, selected)
}

// Select makes id the selected book and loads its full record and preview.
// Preview failures degrade to an empty preview.
func (s *Service) Select(ctx context.Context, id string) (*Detail, error) {
	s.store.SetSelected(id)

	book, err := s.client.GetBook(ctx, id)
	if err != nil {
		s.logger.Error("failed to fetch book", "book", id, "error", err)
		return nil, fmt.Errorf("get book %s: %w", id, err)
	}
	if book == nil {
		cached, ok := s.store.Book(id)
		if !ok {
			return nil, fmt.Errorf("get book %s: %w", id, domain.ErrBookNotFound)
		}
		book = &cached
	}
	s.store.Upsert(*book)

	detail := &Detail{Book: *book, Artifacts: s.Artifacts(*book)}

	preview, err := s.client.PreviewBook(ctx, id)
	switch {
	case err != nil:
		s.logger.Warn("preview unavailable", "book", id, "error", err)
	case preview != nil:
		detail.Preview = *preview
	}
	return detail, nil
}
