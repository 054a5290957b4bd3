package domain

import "time"

// JobRecord is the local acknowledgment of a job created through this client
type JobRecord struct {
	JobID       string     `json:"job_id"`
	BookID      string     `json:"book_id"`
	RunNow      bool       `json:"run_now"`
	Started     bool       `json:"started"`
	Resume      bool       `json:"resume"`
	ScheduledAt string     `json:"scheduled_at,omitempty"`
	Outcome     BookStatus `json:"outcome,omitempty"` // last terminal status observed, empty if none
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Marker returns the short state shown for a record
func (r JobRecord) Marker() string {
	switch {
	case r.Outcome != "":
		return string(r.Outcome)
	case r.Started:
		return "started"
	default:
		return "queued"
	}
}

// JobLedger records job acknowledgments and observed outcomes (BoltDB + memory).
type JobLedger interface {
	Record(rec JobRecord) error
	SetOutcome(jobID string, status BookStatus) (JobRecord, error)
	Get(jobID string) (JobRecord, bool)
	List() ([]JobRecord, error)
	Close() error
}
