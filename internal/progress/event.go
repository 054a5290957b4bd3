package progress

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/mmcdole/ebookctl/internal/domain"
)

// Kind identifies a progress stream event
type Kind int

const (
	KindProgress Kind = iota
	KindCompletion
	KindError      // server-reported error frame, the stream ends after it
	KindDisconnect // stream ended before completion
	KindMalformed  // unreadable frame, the stream stays open
)

func (k Kind) String() string {
	switch k {
	case KindProgress:
		return "progress"
	case KindCompletion:
		return "completion"
	case KindError:
		return "error"
	case KindDisconnect:
		return "disconnect"
	case KindMalformed:
		return "malformed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is one decoded message from a job's progress stream
type Event struct {
	Kind       Kind
	Generation uint64 // subscription that produced the event
	JobID      string
	BookID     string
	Status     domain.BookStatus
	StepName   string
	Percent    int
	Message    string // KindError only
	Err        error  // KindDisconnect and KindMalformed only
}

// View converts a progress or completion event to the displayed line.
// Completion shows 100% for done and 0% otherwise.
func (e Event) View() domain.ProgressView {
	v := domain.ProgressView{
		Visible:  true,
		JobID:    e.JobID,
		Status:   e.Status,
		StepName: e.StepName,
		Percent:  e.Percent,
	}
	if e.Kind == KindCompletion {
		v.StepName = "complete"
		v.Percent = 0
		if e.Status == domain.StatusDone {
			v.Percent = 100
		}
	}
	return v
}

type wireFrame struct {
	Type     string  `json:"type"`
	JobID    string  `json:"job_id"`
	Status   string  `json:"status"`
	StepName string  `json:"step_name"`
	Percent  float64 `json:"percent"`
	Message  string  `json:"message"`
}

// decodeFrame parses a raw frame. Unknown types and completions without a
// terminal status are rejected.
func decodeFrame(data []byte) (Event, error) {
	var f wireFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return Event{}, fmt.Errorf("malformed frame: %w", err)
	}

	switch f.Type {
	case "progress":
		return Event{
			Kind:     KindProgress,
			JobID:    f.JobID,
			Status:   domain.BookStatus(f.Status),
			StepName: f.StepName,
			Percent:  clampPercent(f.Percent),
		}, nil
	case "completion":
		status := domain.BookStatus(f.Status)
		if !status.IsTerminal() {
			return Event{}, fmt.Errorf("completion with non-terminal status %q", f.Status)
		}
		return Event{Kind: KindCompletion, JobID: f.JobID, Status: status}, nil
	case "error":
		return Event{Kind: KindError, JobID: f.JobID, Message: f.Message}, nil
	default:
		return Event{}, fmt.Errorf("unknown frame type %q", f.Type)
	}
}

func clampPercent(p float64) int {
	switch {
	case math.IsNaN(p), p <= 0:
		return 0
	case p >= 100:
		return 100
	default:
		return int(math.Round(p))
	}
}
