package library

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/mmcdole/ebookctl/internal/domain"
)

// Artifacts returns the output files of book, which exist only once it is done
func (s *Service) Artifacts(book domain.Book) []Artifact {
	if book.Status != domain.StatusDone {
		return nil
	}
	names := domain.ArtifactNames()
	out := make([]Artifact, len(names))
	for i, name := range names {
		out[i] = Artifact{Name: name, URL: s.client.OutputURL(book.ID, name)}
	}
	return out
}

// Resolve finds a known book by exact id, else by the closest fuzzy title
// match. Ties between different books are reported as ambiguous.
func (s *Service) Resolve(ref string) (domain.Book, error) {
	ref = strings.TrimSpace(ref)
	if b, ok := s.store.Book(ref); ok {
		return b, nil
	}

	books := s.store.Books()
	titles := make([]string, len(books))
	for i, b := range books {
		titles[i] = b.Title
	}

	matches := fuzzy.RankFindFold(ref, titles)
	if len(matches) == 0 {
		return domain.Book{}, fmt.Errorf("%q: %w", ref, domain.ErrBookNotFound)
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})
	if len(matches) > 1 && matches[0].Distance == matches[1].Distance {
		return domain.Book{}, fmt.Errorf("%q matches both %q and %q", ref, matches[0].Target, matches[1].Target)
	}
	return books[matches[0].OriginalIndex], nil
}

// ResolveAll resolves every ref, preserving order and dropping duplicates
func (s *Service) ResolveAll(refs []string) ([]domain.Book, error) {
	seen := make(map[string]bool, len(refs))
	out := make([]domain.Book, 0, len(refs))
	for _, ref := range refs {
		b, err := s.Resolve(ref)
		if err != nil {
			return nil, err
		}
		if seen[b.ID] {
			continue
		}
		seen[b.ID] = true
		out = append(out, b)
	}
	return out, nil
}
