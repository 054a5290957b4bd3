// Package jobs creates processing jobs for books, routes started jobs to the
// progress channel and reconciles the store when they finish.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmcdole/ebookctl/internal/adapter"
	"github.com/mmcdole/ebookctl/internal/domain"
	"github.com/mmcdole/ebookctl/internal/library"
	"github.com/mmcdole/ebookctl/internal/progress"
	"github.com/mmcdole/ebookctl/internal/settings"
	"github.com/mmcdole/ebookctl/internal/state"
)

// Options tune scheduling and batch behavior
type Options struct {
	ScheduleHour int
	BatchMode    adapter.BatchMode
}

// DefaultOptions schedules at 02:00 and aborts batches on the first failure
func DefaultOptions() Options {
	return Options{ScheduleHour: 2, BatchMode: adapter.BatchModeAbort}
}

// Deps are the collaborators of an Orchestrator
type Deps struct {
	Jobs     domain.JobClient
	Settings *settings.Projector
	Library  *library.Service
	Channel  *progress.Channel
	Store    *state.Store
	Ledger   domain.JobLedger // optional
	Notifier domain.Notifier  // optional
}

// Outcome is the result of creating one job
type Outcome struct {
	BookID  string
	JobID   string
	Started bool // false means queued
	Err     error

	// Unfollowed marks a started job whose progress stream could not be opened
	Unfollowed bool
}

// Orchestrator drives job creation and completion handling
type Orchestrator struct {
	jobs     domain.JobClient
	settings *settings.Projector
	library  *library.Service
	channel  *progress.Channel
	store    *state.Store
	ledger   domain.JobLedger
	notifier domain.Notifier

	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

// NewOrchestrator creates a new job orchestrator
func NewOrchestrator(deps Deps, opts Options, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Notifier == nil {
		deps.Notifier = domain.NoOpNotifier{}
	}
	if opts.BatchMode == "" {
		opts.BatchMode = adapter.BatchModeAbort
	}
	return &Orchestrator{
		jobs:     deps.Jobs,
		settings: deps.Settings,
		library:  deps.Library,
		channel:  deps.Channel,
		store:    deps.Store,
		ledger:   deps.Ledger,
		notifier: deps.Notifier,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// NextScheduleInstant is the shared instant used for scheduled jobs
func (o *Orchestrator) NextScheduleInstant(now time.Time) time.Time {
	return NextInstant(now, o.opts.ScheduleHour)
}

// RunNow saves form for the selected book and starts a job for it
func (o *Orchestrator) RunNow(ctx context.Context, form settings.Form) (Outcome, error) {
	out, err := o.runSingle(ctx, form, nil)
	if err != nil || out.Unfollowed {
		return out, err
	}
	o.store.SetMessage("Job started.", false)
	return out, nil
}

// Schedule saves form for the selected book and schedules a job at the next
// schedule instant
func (o *Orchestrator) Schedule(ctx context.Context, form settings.Form) (Outcome, error) {
	at := o.NextScheduleInstant(o.now())
	out, err := o.runSingle(ctx, form, &at)
	if err != nil {
		return out, err
	}
	o.store.SetMessage(fmt.Sprintf("Job scheduled for next %s.", hourLabel(o.opts.ScheduleHour)), false)
	return out, nil
}

// runSingle persists settings before creating the job; a failed save never
// creates one
func (o *Orchestrator) runSingle(ctx context.Context, form settings.Form, at *time.Time) (Outcome, error) {
	bookID := o.store.SelectedID()
	if bookID == "" {
		return Outcome{}, o.fail(domain.ErrNoBookSelected)
	}
	out := Outcome{BookID: bookID}

	updated, err := o.settings.Save(ctx, form)
	if err != nil {
		out.Err = err
		return out, o.fail(err)
	}
	if updated != nil && updated.ID != "" {
		out.BookID = updated.ID
	}

	req := domain.JobRequest{
		BookID:      out.BookID,
		RunNow:      at == nil,
		ScheduledAt: at,
		Resume:      form.Resume,
	}
	out, err = o.create(ctx, req)
	if err != nil {
		return out, o.fail(err)
	}
	return out, nil
}

// create issues one job request and routes the acknowledgment
func (o *Orchestrator) create(ctx context.Context, req domain.JobRequest) (Outcome, error) {
	out := Outcome{BookID: req.BookID}

	created, err := o.jobs.CreateJob(ctx, req)
	if err != nil {
		o.logger.Error("failed to create job", "book", req.BookID, "runNow", req.RunNow, "error", err)
		out.Err = fmt.Errorf("create job for %s: %w", req.BookID, err)
		return out, out.Err
	}
	if created == nil {
		out.Err = fmt.Errorf("create job for %s: empty response", req.BookID)
		return out, out.Err
	}

	out.JobID = created.Job.ID
	out.Started = created.Started
	o.logger.Info("job created", "job", out.JobID, "book", req.BookID, "started", out.Started)

	o.record(domain.JobRecord{
		JobID:       created.Job.ID,
		BookID:      req.BookID,
		RunNow:      req.RunNow,
		Started:     created.Started,
		Resume:      req.Resume,
		ScheduledAt: scheduleText(req.ScheduledAt, created.Job.ScheduledAt),
	})

	out.Unfollowed = !o.route(ctx, created, req.BookID)
	return out, nil
}

// route opens the progress channel for started jobs and shows QUEUED for
// the rest. The job exists either way, so a failed subscribe is only a
// notice and reports false.
func (o *Orchestrator) route(ctx context.Context, created *domain.JobCreated, bookID string) bool {
	if !created.Started {
		o.store.SetProgress(domain.ProgressView{
			Visible: true,
			JobID:   created.Job.ID,
			Status:  domain.StatusQueued,
		})
		return true
	}

	o.store.SetProgress(domain.ProgressView{
		Visible: true,
		JobID:   created.Job.ID,
		Status:  created.Job.Status,
	})
	if err := o.channel.Open(ctx, created.Job.ID, bookID); err != nil {
		o.logger.Warn("failed to follow job", "job", created.Job.ID, "error", err)
		o.store.SetMessage(fmt.Sprintf("Job %s started; live progress unavailable: %s", created.Job.ID, domain.Message(err)), true)
		return false
	}
	return true
}

// Cancel cancels jobID on the server. A live stream for it stays open and
// reports the cancellation.
func (o *Orchestrator) Cancel(ctx context.Context, jobID string) (*domain.Job, error) {
	job, err := o.jobs.CancelJob(ctx, jobID)
	if err != nil {
		o.logger.Error("failed to cancel job", "job", jobID, "error", err)
		return nil, o.fail(fmt.Errorf("cancel job %s: %w", jobID, err))
	}
	if job != nil && job.Status.IsTerminal() {
		o.observe(ctx, jobID, job.Status)
	}
	o.store.SetMessage("Job cancelled.", false)

	if _, err := o.library.Refresh(ctx, ""); err != nil {
		o.logger.Warn("refresh after cancel failed", "error", err)
	}
	return job, nil
}

// Retry creates a new attempt of jobID, resuming from its last stage
func (o *Orchestrator) Retry(ctx context.Context, jobID string, runNow bool) (Outcome, error) {
	created, err := o.jobs.RetryJob(ctx, jobID, runNow)
	if err != nil {
		o.logger.Error("failed to retry job", "job", jobID, "error", err)
		return Outcome{}, o.fail(fmt.Errorf("retry job %s: %w", jobID, err))
	}
	if created == nil {
		return Outcome{}, o.fail(fmt.Errorf("retry job %s: empty response", jobID))
	}

	out := Outcome{BookID: created.Job.BookID, JobID: created.Job.ID, Started: created.Started}
	o.record(domain.JobRecord{
		JobID:   created.Job.ID,
		BookID:  created.Job.BookID,
		RunNow:  runNow,
		Started: created.Started,
		Resume:  created.Job.Resume,
	})
	if !o.route(ctx, created, created.Job.BookID) {
		out.Unfollowed = true
		return out, nil
	}

	if created.Started {
		o.store.SetMessage("Job started.", false)
	} else {
		o.store.SetMessage("Job queued.", false)
	}
	return out, nil
}

// fail surfaces err as the status line and returns it
func (o *Orchestrator) fail(err error) error {
	o.store.SetMessage(domain.Message(err), true)
	return err
}

func (o *Orchestrator) record(rec domain.JobRecord) {
	if o.ledger == nil {
		return
	}
	if err := o.ledger.Record(rec); err != nil {
		o.logger.Warn("failed to record job", "job", rec.JobID, "error", err)
	}
}

// observe stores a terminal outcome and publishes it
func (o *Orchestrator) observe(ctx context.Context, jobID string, status domain.BookStatus) {
	rec := domain.JobRecord{JobID: jobID, Outcome: status, UpdatedAt: o.now()}
	if o.ledger != nil {
		updated, err := o.ledger.SetOutcome(jobID, status)
		if err != nil {
			o.logger.Warn("failed to record outcome", "job", jobID, "error", err)
		} else {
			rec = updated
		}
	}
	if err := o.notifier.NotifyCompletion(ctx, rec); err != nil {
		o.logger.Warn("failed to notify completion", "job", jobID, "error", err)
	}
}

func scheduleText(at *time.Time, fromServer string) string {
	if fromServer != "" {
		return fromServer
	}
	if at == nil {
		return ""
	}
	return domain.FormatSchedule(*at)
}
