package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/ebookctl/internal/adapter"
	"github.com/mmcdole/ebookctl/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(adapter.APIConfig{
		URL:         srv.URL + "/",
		Timeout:     5 * time.Second,
		ReadRetries: 2,
		RetryDelay:  time.Millisecond,
	}, adapter.NullLogger())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestListBooks(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/books", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get(requestIDHeader))
		writeJSON(w, http.StatusOK, []map[string]any{
			{"id": "b1", "title": "First", "status": "done", "current_stage": "export", "front_cover": 2, "back_cover": nil},
			{"id": "b2", "title": "Second", "status": "archived"},
		})
	})

	books, err := client.ListBooks(context.Background())
	require.NoError(t, err)
	require.Len(t, books, 2)

	assert.Equal(t, "b1", books[0].ID)
	assert.Equal(t, domain.StatusDone, books[0].Status)
	assert.Equal(t, "export", books[0].CurrentStage)
	require.NotNil(t, books[0].FrontCover)
	assert.Equal(t, 2, *books[0].FrontCover)
	assert.Nil(t, books[0].BackCover)
	assert.Equal(t, domain.StatusPending, books[1].Status, "unknown status normalizes to pending")
}

func TestErrorDetailBecomesMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "Source path does not exist"})
	})

	_, err := client.CreateBook(context.Background(), "/nope")
	require.Error(t, err)

	var remote *domain.RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, http.StatusBadRequest, remote.StatusCode)
	assert.Equal(t, "Source path does not exist", err.Error())
}

func TestErrorWithoutDetailUsesStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte("not json"))
	})

	_, err := client.CancelJob(context.Background(), "j1")
	require.Error(t, err)
	assert.Equal(t, "HTTP 409", err.Error())
}

func TestNotFoundUnwrapsToSentinel(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Book not found"})
	})

	_, err := client.GetBook(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrBookNotFound)
	assert.Equal(t, "Book not found", domain.Message(err))
}

func TestDeleteBookNoContent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/books/b 1", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	assert.NoError(t, client.DeleteBook(context.Background(), "b 1"))
}

func TestEmptySuccessBodyIsNil(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	book, err := client.GetBook(context.Background(), "b1")
	require.NoError(t, err)
	assert.Nil(t, book)
}

func TestGetRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": "j1", "book_id": "b1", "status": "running"})
	})

	job, err := client.GetJob(context.Background(), "j1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRunning, job.Status)
	assert.EqualValues(t, 2, calls.Load())
}

func TestGetGivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.ListBooks(context.Background())
	require.Error(t, err)
	assert.Equal(t, "HTTP 502", err.Error())
	assert.EqualValues(t, 3, calls.Load())
}

func TestMutatingCallsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"detail": "boom"})
	})

	_, err := client.CreateJob(context.Background(), domain.JobRequest{BookID: "b1", RunNow: true})
	require.Error(t, err)
	assert.Equal(t, "boom", err.Error())
	assert.EqualValues(t, 1, calls.Load())
}

func TestTransportFailureIsOffline(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	client := NewClient(adapter.APIConfig{URL: srv.URL, Timeout: time.Second}, adapter.NullLogger())
	_, err := client.ListBooks(context.Background())
	require.Error(t, err)
	assert.True(t, IsOffline(err))

	var remote *domain.RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Zero(t, remote.StatusCode)
}

func TestCreateJobPayload(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/jobs", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusCreated, map[string]any{
			"job":     map[string]any{"id": "j9", "book_id": "b1", "status": "pending", "scheduled_at": "2026-01-02T17:00:00.000Z"},
			"started": false,
		})
	})

	at := time.Date(2026, 1, 3, 2, 0, 0, 0, time.FixedZone("KST", 9*3600))
	created, err := client.CreateJob(context.Background(), domain.JobRequest{BookID: "b1", ScheduledAt: &at})
	require.NoError(t, err)

	assert.Equal(t, "b1", got["book_id"])
	assert.Equal(t, false, got["run_now"])
	assert.Equal(t, false, got["resume"])
	assert.Equal(t, "2026-01-02T17:00:00.000Z", got["scheduled_at"])

	assert.False(t, created.Started)
	assert.Equal(t, "j9", created.Job.ID)
	assert.Equal(t, "2026-01-02T17:00:00.000Z", created.Job.ScheduledAt)
}

func TestCreateJobRunNowSendsNullSchedule(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusCreated, map[string]any{"job": map[string]any{"id": "j1"}, "started": true})
	})

	created, err := client.CreateJob(context.Background(), domain.JobRequest{BookID: "b1", RunNow: true, Resume: true})
	require.NoError(t, err)
	assert.True(t, created.Started)

	v, ok := got["scheduled_at"]
	assert.True(t, ok)
	assert.Nil(t, v)
	assert.Equal(t, true, got["resume"])
}

func TestUpdateBookSettingsSendsNulls(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, map[string]any{"id": "b1", "ocr_language": "eng", "front_cover": 0})
	})

	zero := 0
	book, err := client.UpdateBookSettings(context.Background(), "b1", domain.BookSettings{
		OCRLanguage:  "eng",
		OptimizeMode: "max",
		ErrorPolicy:  "abort",
		FrontCover:   &zero,
	})
	require.NoError(t, err)

	assert.EqualValues(t, 0, got["front_cover"])
	v, ok := got["back_cover"]
	assert.True(t, ok)
	assert.Nil(t, v)
	require.NotNil(t, book.FrontCover)
	assert.Equal(t, 0, *book.FrontCover)
}

func TestRetryJob(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/jobs/j1/retry", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, true, body["run_now"])
		writeJSON(w, http.StatusCreated, map[string]any{"job": map[string]any{"id": "j2", "book_id": "b1", "resume": true}, "started": true})
	})

	created, err := client.RetryJob(context.Background(), "j1", true)
	require.NoError(t, err)
	assert.Equal(t, "j2", created.Job.ID)
	assert.True(t, created.Job.Resume)
}

func TestDownloadOutput(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/output/b1/book.txt" {
			writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Output not found"})
			return
		}
		_, _ = w.Write([]byte("hello book"))
	})

	var buf bytes.Buffer
	n, err := client.DownloadOutput(context.Background(), "b1", domain.ArtifactText, &buf)
	require.NoError(t, err)
	assert.EqualValues(t, 10, n)
	assert.Equal(t, "hello book", buf.String())

	_, err = client.DownloadOutput(context.Background(), "b1", domain.ArtifactPDF, &buf)
	assert.EqualError(t, err, "Output not found")
}

func TestOutputURL(t *testing.T) {
	client := NewClient(adapter.APIConfig{URL: "http://localhost:8000/"}, nil)
	assert.Equal(t, "http://localhost:8000/api/output/b1/report.json", client.OutputURL("b1", domain.ArtifactReport))
}
