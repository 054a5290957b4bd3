// Package state holds the in-memory view model: known books, the current
// selection, and the progress and status lines shown to the operator.
package state

import (
	"strings"
	"sync"

	"github.com/sahilm/fuzzy"

	"github.com/mmcdole/ebookctl/internal/domain"
)

// Message is the single-line status shown to the operator
type Message struct {
	Text    string
	IsError bool
}

// Store is the single source of truth for the view layer.
// Mutations come from one control goroutine; readers may take snapshots
// concurrently.
type Store struct {
	mu sync.RWMutex

	books []domain.Book
	index map[string]int // book id -> position in books

	selectedID  string
	batch       []string // insertion order
	batchLookup map[string]struct{}

	progress domain.ProgressView
	message  Message

	version uint64 // bumped on every mutation
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		index:       make(map[string]int),
		batchLookup: make(map[string]struct{}),
	}
}

// ReplaceAll sets the known books in server order.
// The selected book is cleared if it is no longer known; batch selection is
// left for PruneSelection.
func (s *Store) ReplaceAll(books []domain.Book) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.books = make([]domain.Book, 0, len(books))
	s.index = make(map[string]int, len(books))
	for _, b := range books {
		if i, ok := s.index[b.ID]; ok {
			s.books[i] = cloneBook(b)
			continue
		}
		s.index[b.ID] = len(s.books)
		s.books = append(s.books, cloneBook(b))
	}

	if _, ok := s.index[s.selectedID]; !ok {
		s.selectedID = ""
	}
	s.version++
}

// Upsert replaces the book with the same id in place, or appends it
func (s *Store) Upsert(book domain.Book) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i, ok := s.index[book.ID]; ok {
		s.books[i] = cloneBook(book)
	} else {
		s.index[book.ID] = len(s.books)
		s.books = append(s.books, cloneBook(book))
	}
	s.version++
}

// PruneSelection drops batch-selected ids that are no longer known and
// returns them in selection order
func (s *Store) PruneSelection() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []string
	kept := s.batch[:0]
	for _, id := range s.batch {
		if _, ok := s.index[id]; ok {
			kept = append(kept, id)
			continue
		}
		removed = append(removed, id)
		delete(s.batchLookup, id)
	}
	s.batch = kept

	if _, ok := s.index[s.selectedID]; !ok {
		s.selectedID = ""
	}
	if len(removed) > 0 {
		s.version++
	}
	return removed
}

func (s *Store) SetSelected(id string) {
	s.mu.Lock()
	s.selectedID = id
	s.version++
	s.mu.Unlock()
}

func (s *Store) ClearSelected() {
	s.mu.Lock()
	s.selectedID = ""
	s.version++
	s.mu.Unlock()
}

// ToggleBatchSelection flips batch membership of id and reports the new state
func (s *Store) ToggleBatchSelection(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version++

	if _, ok := s.batchLookup[id]; ok {
		delete(s.batchLookup, id)
		for i, v := range s.batch {
			if v == id {
				s.batch = append(s.batch[:i], s.batch[i+1:]...)
				break
			}
		}
		return false
	}
	s.batchLookup[id] = struct{}{}
	s.batch = append(s.batch, id)
	return true
}

// ClearBatchSelection empties the batch selection
func (s *Store) ClearBatchSelection() {
	s.mu.Lock()
	s.batch = nil
	s.batchLookup = make(map[string]struct{})
	s.version++
	s.mu.Unlock()
}

// Books returns a snapshot of the known books in server order
func (s *Store) Books() []domain.Book {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Book, len(s.books))
	for i, b := range s.books {
		out[i] = cloneBook(b)
	}
	return out
}

// Book returns the known book with id
func (s *Store) Book(id string) (domain.Book, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return domain.Book{}, false
	}
	return cloneBook(s.books[i]), true
}

// SelectedID returns the selected book id, or "" when none
func (s *Store) SelectedID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedID
}

// Selected returns the selected book if it is known
func (s *Store) Selected() (domain.Book, bool) {
	s.mu.RLock()
	id := s.selectedID
	s.mu.RUnlock()
	if id == "" {
		return domain.Book{}, false
	}
	return s.Book(id)
}

// SelectedIDs returns the batch selection in the order ids were added
func (s *Store) SelectedIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.batch...)
}

func (s *Store) IsBatchSelected(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.batchLookup[id]
	return ok
}

// Filter returns books whose titles fuzzy-match query, best match first.
// An empty query returns every book.
func (s *Store) Filter(query string) []domain.Book {
	books := s.Books()
	query = strings.TrimSpace(query)
	if query == "" {
		return books
	}

	matches := fuzzy.Find(strings.ToLower(query), domain.BookTitles(books))
	out := make([]domain.Book, len(matches))
	for i, m := range matches {
		out[i] = books[m.Index]
	}
	return out
}

func (s *Store) Progress() domain.ProgressView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.progress
}

func (s *Store) SetProgress(p domain.ProgressView) {
	s.mu.Lock()
	s.progress = p
	s.version++
	s.mu.Unlock()
}

// HideProgress hides the progress line, keeping its last values
func (s *Store) HideProgress() {
	s.mu.Lock()
	s.progress.Visible = false
	s.version++
	s.mu.Unlock()
}

func (s *Store) Message() Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.message
}

func (s *Store) SetMessage(text string, isError bool) {
	s.mu.Lock()
	s.message = Message{Text: text, IsError: isError}
	s.version++
	s.mu.Unlock()
}

// Version changes on every mutation; views compare it to decide a re-render
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

func cloneBook(b domain.Book) domain.Book {
	settings := b.Settings()
	b.FrontCover = settings.FrontCover
	b.BackCover = settings.BackCover
	return b
}
