package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusNormalize(t *testing.T) {
	assert.Equal(t, StatusRunning, BookStatus("running").Normalize())
	assert.Equal(t, StatusPending, BookStatus("archived").Normalize())
	assert.Equal(t, StatusPending, BookStatus("").Normalize())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusRunning.IsTerminal())
}

func TestRemoteErrorUnwrap(t *testing.T) {
	notFound := &RemoteError{StatusCode: 404, Message: "Book not found"}
	assert.ErrorIs(t, fmt.Errorf("get: %w", notFound), ErrBookNotFound)

	offline := &RemoteError{Message: "down", Err: ErrServerOffline}
	assert.ErrorIs(t, offline, ErrServerOffline)
	assert.NotErrorIs(t, offline, ErrBookNotFound)

	assert.Equal(t, "HTTP 503", NewStatusError(503).Error())
}

func TestMessage(t *testing.T) {
	assert.Empty(t, Message(nil))
	assert.Equal(t, "Book is already running", Message(fmt.Errorf("create: %w", &RemoteError{StatusCode: 409, Message: "Book is already running"})))
	assert.Equal(t, "Select at least one book.", Message(ErrNothingSelected))
	assert.Equal(t, "Please enter a directory path.", Message(fmt.Errorf("add: %w", ErrEmptyPath)))
	assert.Equal(t, "WebSocket disconnected unexpectedly.", Message(fmt.Errorf("%w: eof", ErrChannelClosed)))
	assert.Equal(t, "plain", Message(errors.New("plain")))
}

func TestIsUserCondition(t *testing.T) {
	assert.True(t, IsUserCondition(ErrNoBookSelected))
	assert.True(t, IsUserCondition(fmt.Errorf("wrap: %w", ErrEmptyPath)))
	assert.False(t, IsUserCondition(ErrServerOffline))
}

func TestProgressViewText(t *testing.T) {
	assert.Equal(t, "QUEUED", ProgressView{Status: StatusQueued}.Text())
	assert.Equal(t, "RUNNING | - | 0%", ProgressView{Status: StatusRunning}.Text())
	assert.Equal(t, "DONE | complete | 100%", ProgressView{Status: StatusDone, StepName: "complete", Percent: 100}.Text())
	assert.Equal(t, 0.4, ProgressView{Percent: 40}.Fraction())
	assert.Equal(t, 1.0, ProgressView{Percent: 140}.Fraction())
}

func TestFormatSchedule(t *testing.T) {
	at := time.Date(2026, 1, 3, 2, 0, 0, 0, time.FixedZone("KST", 9*3600))
	assert.Equal(t, "2026-01-02T17:00:00.000Z", FormatSchedule(at))
}

func TestBookSettingsCopies(t *testing.T) {
	page := 4
	b := Book{FrontCover: &page}
	s := b.Settings()
	*s.FrontCover = 9
	assert.Equal(t, 4, *b.FrontCover)
	assert.Equal(t, "b1 | stage: -", Book{ID: "b1"}.Meta())
}

func TestJobRecordMarker(t *testing.T) {
	assert.Equal(t, "queued", JobRecord{}.Marker())
	assert.Equal(t, "started", JobRecord{Started: true}.Marker())
	assert.Equal(t, "failed", JobRecord{Started: true, Outcome: StatusFailed}.Marker())
}
