package library

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmcdole/ebookctl/internal/domain"
)

// AddBook registers path on the server, selects the new book and reloads
// the list
func (s *Service) AddBook(ctx context.Context, path string) (*domain.Book, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, domain.ErrEmptyPath
	}

	book, err := s.client.CreateBook(ctx, path)
	if err != nil {
		s.logger.Error("failed to add book", "path", path, "error", err)
		return nil, fmt.Errorf("add book: %w", err)
	}
	if book == nil {
		return nil, fmt.Errorf("add book: empty response")
	}

	s.logger.Info("book added", "book", book.ID, "path", path)
	s.store.SetMessage("Added: "+book.Title, false)

	if _, err := s.Refresh(ctx, book.ID); err != nil {
		return book, err
	}
	return book, nil
}

// DeleteBook removes id on the server and reloads the list
func (s *Service) DeleteBook(ctx context.Context, id string) error {
	if err := s.client.DeleteBook(ctx, id); err != nil {
		s.logger.Error("failed to delete book", "book", id, "error", err)
		return fmt.Errorf("delete book %s: %w", id, err)
	}
	s.logger.Info("book deleted", "book", id)

	title := id
	if b, ok := s.store.Book(id); ok && b.Title != "" {
		title = b.Title
	}
	if s.store.SelectedID() == id {
		s.store.ClearSelected()
	}
	s.store.SetMessage("Deleted: "+title, false)

	_, err := s.Refresh(ctx, "")
	return err
}
