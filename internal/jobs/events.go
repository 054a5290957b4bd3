package jobs

import (
	"context"
	"fmt"

	"github.com/mmcdole/ebookctl/internal/domain"
	"github.com/mmcdole/ebookctl/internal/library"
	"github.com/mmcdole/ebookctl/internal/progress"
)

// MalformedFrameMessage is shown when the stream sends a frame it cannot read
const MalformedFrameMessage = "Received an unreadable progress update."

// HandleEvent applies one progress channel event. Events of superseded
// subscriptions are ignored. Completion returns the refreshed detail of the
// job's book.
func (o *Orchestrator) HandleEvent(ctx context.Context, ev progress.Event) (*library.Detail, error) {
	if !o.channel.IsCurrent(ev.Generation) {
		o.logger.Debug("dropping stale event", "kind", ev.Kind, "job", ev.JobID, "generation", ev.Generation)
		return nil, nil
	}

	switch ev.Kind {
	case progress.KindProgress:
		o.store.SetProgress(ev.View())
		return nil, nil

	case progress.KindCompletion:
		o.store.SetProgress(ev.View())
		o.observe(ctx, ev.JobID, ev.Status)
		defer o.channel.Release(ev.Generation)

		detail, err := o.library.Refresh(ctx, ev.BookID)
		if err != nil {
			return nil, o.fail(err)
		}
		return detail, nil

	case progress.KindError:
		msg := ev.Message
		if msg == "" {
			msg = domain.Message(domain.ErrChannelClosed)
		}
		o.store.SetMessage(msg, true)
		return nil, fmt.Errorf("job %s: %s", ev.JobID, msg)

	case progress.KindMalformed:
		o.logger.Debug("unreadable progress frame", "job", ev.JobID, "error", ev.Err)
		o.store.SetMessage(MalformedFrameMessage, true)
		return nil, nil

	case progress.KindDisconnect:
		err := ev.Err
		if err == nil {
			err = domain.ErrChannelClosed
		}
		return nil, o.fail(err)
	}
	return nil, nil
}

// Follow applies channel events until the live job finishes or the stream
// ends, and returns the terminal status. fn, if set, sees every applied
// event.
func (o *Orchestrator) Follow(ctx context.Context, fn func(progress.Event)) (domain.BookStatus, error) {
	if _, _, ok := o.channel.ActiveJob(); !ok && len(o.channel.Events()) == 0 {
		return "", fmt.Errorf("no job is being followed")
	}
	for {
		select {
		case <-ctx.Done():
			o.channel.Close()
			return "", ctx.Err()
		case ev := <-o.channel.Events():
			if !o.channel.IsCurrent(ev.Generation) {
				continue
			}
			if fn != nil {
				fn(ev)
			}
			_, err := o.HandleEvent(ctx, ev)
			switch ev.Kind {
			case progress.KindCompletion:
				return ev.Status, err
			case progress.KindError, progress.KindDisconnect:
				return "", err
			}
		}
	}
}
