package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/ebookctl/internal/domain"
)

func books(ids ...string) []domain.Book {
	out := make([]domain.Book, len(ids))
	for i, id := range ids {
		out[i] = domain.Book{ID: id, Title: "Book " + id, Status: domain.StatusPending}
	}
	return out
}

func TestReplaceAllKeepsServerOrder(t *testing.T) {
	s := NewStore()
	s.ReplaceAll(books("c", "a", "b"))

	got := s.Books()
	require.Len(t, got, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{got[0].ID, got[1].ID, got[2].ID})
}

func TestReplaceAllClearsMissingSelection(t *testing.T) {
	s := NewStore()
	s.ReplaceAll(books("a", "b"))
	s.SetSelected("b")
	s.ToggleBatchSelection("b")

	s.ReplaceAll(books("a"))

	_, ok := s.Selected()
	assert.False(t, ok)
	assert.Empty(t, s.SelectedID())
	assert.Equal(t, []string{"b"}, s.SelectedIDs(), "batch selection is not pruned by ReplaceAll")
}

func TestUpsertReplacesInPlace(t *testing.T) {
	s := NewStore()
	s.ReplaceAll(books("a", "b", "c"))

	s.Upsert(domain.Book{ID: "b", Title: "Renamed", Status: domain.StatusDone})
	s.Upsert(domain.Book{ID: "d", Title: "New"})

	got := s.Books()
	require.Len(t, got, 4)
	assert.Equal(t, "b", got[1].ID)
	assert.Equal(t, "Renamed", got[1].Title)
	assert.Equal(t, domain.StatusDone, got[1].Status)
	assert.Equal(t, "d", got[3].ID)
}

func TestUpsertFullyReplaces(t *testing.T) {
	s := NewStore()
	page := 3
	s.Upsert(domain.Book{ID: "a", Title: "A", FrontCover: &page, CurrentStage: "ocr"})
	s.Upsert(domain.Book{ID: "a", Title: "A"})

	b, ok := s.Book("a")
	require.True(t, ok)
	assert.Nil(t, b.FrontCover)
	assert.Empty(t, b.CurrentStage)
}

func TestSnapshotsAreIsolated(t *testing.T) {
	s := NewStore()
	page := 1
	s.Upsert(domain.Book{ID: "a", FrontCover: &page})

	page = 9
	b, _ := s.Book("a")
	*b.FrontCover = 42

	again, _ := s.Book("a")
	assert.Equal(t, 1, *again.FrontCover)
}

func TestPruneSelection(t *testing.T) {
	s := NewStore()
	s.ReplaceAll(books("a", "b", "c"))
	s.ToggleBatchSelection("c")
	s.ToggleBatchSelection("a")
	s.ToggleBatchSelection("b")
	s.SetSelected("b")

	s.ReplaceAll(books("a"))
	removed := s.PruneSelection()

	assert.Equal(t, []string{"c", "b"}, removed)
	assert.Equal(t, []string{"a"}, s.SelectedIDs())
	assert.False(t, s.IsBatchSelected("b"))
	assert.Empty(t, s.SelectedID())
}

func TestPruneSelectionNothingToRemove(t *testing.T) {
	s := NewStore()
	s.ReplaceAll(books("a"))
	s.ToggleBatchSelection("a")
	before := s.Version()

	assert.Empty(t, s.PruneSelection())
	assert.Equal(t, before, s.Version())
}

func TestToggleBatchSelectionOrder(t *testing.T) {
	s := NewStore()
	assert.True(t, s.ToggleBatchSelection("b"))
	assert.True(t, s.ToggleBatchSelection("a"))
	assert.True(t, s.ToggleBatchSelection("c"))
	assert.False(t, s.ToggleBatchSelection("a"))
	assert.True(t, s.ToggleBatchSelection("a"))

	assert.Equal(t, []string{"b", "c", "a"}, s.SelectedIDs())

	s.ClearBatchSelection()
	assert.Empty(t, s.SelectedIDs())
	assert.False(t, s.IsBatchSelected("b"))
}

func TestFilter(t *testing.T) {
	s := NewStore()
	s.ReplaceAll([]domain.Book{
		{ID: "1", Title: "The Pragmatic Programmer"},
		{ID: "2", Title: "Go in Action"},
		{ID: "3", Title: "Programming Pearls"},
	})

	assert.Len(t, s.Filter(""), 3)

	got := s.Filter("PROG")
	ids := make([]string, len(got))
	for i, b := range got {
		ids[i] = b.ID
	}
	assert.ElementsMatch(t, []string{"1", "3"}, ids)

	assert.Empty(t, s.Filter("zzz"))
}

func TestProgressAndMessage(t *testing.T) {
	s := NewStore()
	s.SetProgress(domain.ProgressView{Visible: true, JobID: "j1", Status: domain.StatusRunning, StepName: "ocr", Percent: 40})
	s.SetMessage("Job started.", false)

	assert.Equal(t, "RUNNING | ocr | 40%", s.Progress().Text())
	assert.Equal(t, Message{Text: "Job started."}, s.Message())

	s.HideProgress()
	assert.False(t, s.Progress().Visible)
	assert.Equal(t, 40, s.Progress().Percent)
}

func TestVersionBumps(t *testing.T) {
	s := NewStore()
	v0 := s.Version()
	s.SetSelected("a")
	assert.Greater(t, s.Version(), v0)
}
