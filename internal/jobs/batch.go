package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/mmcdole/ebookctl/internal/adapter"
	"github.com/mmcdole/ebookctl/internal/domain"
)

// BatchResult collects per-book outcomes in selection order
type BatchResult struct {
	Outcomes    []Outcome
	ScheduledAt *time.Time // shared instant, nil for run-now batches
}

// Succeeded counts outcomes without an error
func (r BatchResult) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the outcomes that carry an error
func (r BatchResult) Failed() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}

func (r BatchResult) unfollowed() bool {
	for _, o := range r.Outcomes {
		if o.Unfollowed {
			return true
		}
	}
	return false
}

// BatchError reports a collect-mode batch in which some items failed
type BatchError struct {
	Failed int
	Total  int
	First  error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%d of %d jobs failed: %s", e.Failed, e.Total, domain.Message(e.First))
}

func (e *BatchError) Unwrap() error {
	return e.First
}

// RunSelectedNow starts a job for every batch-selected book, in selection order
func (o *Orchestrator) RunSelectedNow(ctx context.Context) (BatchResult, error) {
	res, err := o.runBatch(ctx, nil)
	if err != nil {
		return res, err
	}
	if res.unfollowed() {
		// keep the subscribe notice on the status line
		return res, nil
	}
	o.store.SetMessage(fmt.Sprintf("Started %d jobs.", len(res.Outcomes)), false)
	return res, nil
}

// ScheduleSelected schedules every batch-selected book at one shared instant
func (o *Orchestrator) ScheduleSelected(ctx context.Context) (BatchResult, error) {
	at := o.NextScheduleInstant(o.now())
	res, err := o.runBatch(ctx, &at)
	if err != nil {
		return res, err
	}
	o.store.SetMessage(fmt.Sprintf("Scheduled %d jobs.", len(res.Outcomes)), false)
	return res, nil
}

// RunBooks starts or schedules jobs for explicit book ids, bypassing the
// batch selection
func (o *Orchestrator) RunBooks(ctx context.Context, bookIDs []string, runNow, resume bool) (BatchResult, error) {
	var at *time.Time
	if !runNow {
		next := o.NextScheduleInstant(o.now())
		at = &next
	}
	return o.issue(ctx, bookIDs, at, resume)
}

// runBatch prunes the selection against the known books, then issues one
// request per id sequentially. Batch jobs never resume.
func (o *Orchestrator) runBatch(ctx context.Context, at *time.Time) (BatchResult, error) {
	if removed := o.store.PruneSelection(); len(removed) > 0 {
		o.logger.Debug("pruned selection", "removed", removed)
	}
	ids := o.store.SelectedIDs()
	if len(ids) == 0 {
		return BatchResult{ScheduledAt: at}, o.fail(domain.ErrNothingSelected)
	}
	return o.issue(ctx, ids, at, false)
}

func (o *Orchestrator) issue(ctx context.Context, ids []string, at *time.Time, resume bool) (BatchResult, error) {
	res := BatchResult{ScheduledAt: at}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return res, o.fail(err)
		}
		out, err := o.create(ctx, domain.JobRequest{
			BookID:      id,
			RunNow:      at == nil,
			ScheduledAt: at,
			Resume:      resume,
		})
		res.Outcomes = append(res.Outcomes, out)
		if err != nil && o.opts.BatchMode == adapter.BatchModeAbort {
			return res, o.fail(err)
		}
	}

	if failed := res.Failed(); len(failed) > 0 {
		berr := &BatchError{Failed: len(failed), Total: len(res.Outcomes), First: failed[0].Err}
		o.store.SetMessage(berr.Error(), true)
		return res, berr
	}
	return res, nil
}
