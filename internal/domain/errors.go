package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for domain operations
var (
	// ErrBookNotFound indicates the requested book does not exist
	ErrBookNotFound = errors.New("book not found")

	// ErrServerOffline indicates the ebookgen server is unreachable
	ErrServerOffline = errors.New("ebookgen server is unreachable")

	// ErrChannelClosed indicates the progress stream ended before completion
	ErrChannelClosed = errors.New("progress stream disconnected unexpectedly")
)

// User conditions. These are shown as messages and never logged as faults.
var (
	ErrNothingSelected = errors.New("nothing selected")
	ErrNoBookSelected  = errors.New("no book selected")
	ErrEmptyPath       = errors.New("empty path")
)

// userText is the operator-facing wording for each condition
var userText = map[error]string{
	ErrNothingSelected: "Select at least one book.",
	ErrNoBookSelected:  "Select a book first.",
	ErrEmptyPath:       "Please enter a directory path.",
	ErrChannelClosed:   "WebSocket disconnected unexpectedly.",
}

// RemoteError is a non-success response from the ebookgen API
type RemoteError struct {
	StatusCode int    // 0 for transport failures
	Message    string // detail field of the error body, or a generic status message
	Err        error  // underlying transport error, if any
}

func (e *RemoteError) Error() string {
	return e.Message
}

// Unwrap exposes sentinels so callers can use errors.Is
func (e *RemoteError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	if e.StatusCode == http.StatusNotFound {
		return ErrBookNotFound
	}
	return nil
}

// NewStatusError builds the generic error used when the body has no detail
func NewStatusError(code int) *RemoteError {
	return &RemoteError{StatusCode: code, Message: fmt.Sprintf("HTTP %d", code)}
}

// IsUserCondition reports whether err is a precondition the operator can fix
func IsUserCondition(err error) bool {
	return errors.Is(err, ErrNothingSelected) ||
		errors.Is(err, ErrNoBookSelected) ||
		errors.Is(err, ErrEmptyPath)
}

// Message converts err to the single-line text shown to the operator
func Message(err error) string {
	if err == nil {
		return ""
	}
	var remote *RemoteError
	if errors.As(err, &remote) {
		return remote.Message
	}
	for cond, text := range userText {
		if errors.Is(err, cond) {
			return text
		}
	}
	return err.Error()
}
