// Package progress manages the single live subscription to a job's
// progress stream.
package progress

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/mmcdole/ebookctl/internal/domain"
)

const eventBuffer = 64

// State of the channel
type State int

const (
	StateIdle State = iota
	StateSubscribed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubscribed:
		return "subscribed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Channel holds at most one live subscription. Opening a new one tears down
// the previous; events from torn-down subscriptions are never delivered.
// Channel never touches application state; consumers read Events.
type Channel struct {
	subscriber domain.Subscriber
	logger     *slog.Logger
	events     chan Event

	mu         sync.Mutex
	state      State
	generation uint64
	active     *subscription
}

type subscription struct {
	gen    uint64
	jobID  string
	bookID string
	stream domain.Stream

	done chan struct{}
	once sync.Once
}

func (s *subscription) stop() {
	s.once.Do(func() {
		close(s.done)
		_ = s.stream.Close()
	})
}

// NewChannel creates an idle channel
func NewChannel(subscriber domain.Subscriber, logger *slog.Logger) *Channel {
	if logger == nil {
		logger = slog.Default()
	}
	return &Channel{
		subscriber: subscriber,
		logger:     logger,
		events:     make(chan Event, eventBuffer),
	}
}

// Events delivers decoded events from the live subscription
func (c *Channel) Events() <-chan Event {
	return c.events
}

// Open closes any live subscription and subscribes to jobID.
// ctx bounds the connection attempt only.
func (c *Channel) Open(ctx context.Context, jobID, bookID string) error {
	c.Close()

	stream, err := c.subscriber.Subscribe(ctx, jobID)
	if err != nil {
		c.logger.Error("failed to subscribe", "job", jobID, "error", err)
		return fmt.Errorf("subscribe to job %s: %w", jobID, err)
	}

	c.mu.Lock()
	if c.active != nil {
		// Another Open won the race while we were dialing
		c.active.stop()
	}
	c.generation++
	sub := &subscription{
		gen:    c.generation,
		jobID:  jobID,
		bookID: bookID,
		stream: stream,
		done:   make(chan struct{}),
	}
	c.active = sub
	c.state = StateSubscribed
	c.mu.Unlock()

	c.logger.Info("progress subscribed", "job", jobID, "book", bookID, "generation", sub.gen)
	go c.read(sub)
	return nil
}

// Close tears down the live subscription, if any. Safe to call repeatedly.
// The remote job is not affected.
func (c *Channel) Close() {
	c.mu.Lock()
	sub := c.active
	c.active = nil
	if sub != nil {
		c.generation++
	}
	c.state = StateClosed
	c.mu.Unlock()

	if sub != nil {
		sub.stop()
		c.logger.Debug("progress closed", "job", sub.jobID, "generation", sub.gen)
	}
}

// Release closes the channel only if gen is still the live generation
func (c *Channel) Release(gen uint64) {
	if c.IsCurrent(gen) {
		c.Close()
	}
}

// State returns the current channel state
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ActiveJob returns the job and book of the live subscription
func (c *Channel) ActiveJob() (jobID, bookID string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return "", "", false
	}
	return c.active.jobID, c.active.bookID, true
}

// IsCurrent reports whether events of generation gen should still be applied
func (c *Channel) IsCurrent(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen == c.generation
}

func (c *Channel) read(sub *subscription) {
	for {
		data, err := sub.stream.Next()
		if err != nil {
			select {
			case <-sub.done:
				return
			default:
			}
			if !errors.Is(err, io.EOF) {
				c.logger.Warn("progress stream failed", "job", sub.jobID, "error", err)
			}
			c.emit(sub, Event{
				Kind:   KindDisconnect,
				JobID:  sub.jobID,
				BookID: sub.bookID,
				Err:    fmt.Errorf("%w: %v", domain.ErrChannelClosed, err),
			})
			c.finish(sub)
			return
		}

		ev, err := decodeFrame(data)
		if err != nil {
			c.logger.Warn("unreadable progress frame", "job", sub.jobID, "error", err)
			if !c.emit(sub, Event{Kind: KindMalformed, JobID: sub.jobID, BookID: sub.bookID, Err: err}) {
				return
			}
			continue
		}
		ev.Generation = sub.gen
		ev.BookID = sub.bookID
		if ev.JobID == "" {
			ev.JobID = sub.jobID
		}

		if !c.emit(sub, ev) {
			return
		}

		switch ev.Kind {
		case KindCompletion:
			c.logger.Info("job completed", "job", ev.JobID, "status", ev.Status)
			c.finish(sub)
			return
		case KindError:
			c.logger.Warn("progress stream error", "job", sub.jobID, "message", ev.Message)
			c.finish(sub)
			return
		}
	}
}

// emit delivers ev unless sub was torn down
func (c *Channel) emit(sub *subscription, ev Event) bool {
	ev.Generation = sub.gen
	select {
	case <-sub.done:
		return false
	default:
	}
	select {
	case c.events <- ev:
		return true
	case <-sub.done:
		return false
	}
}

// finish marks a naturally ended subscription closed without bumping the
// generation, so its final event still applies
func (c *Channel) finish(sub *subscription) {
	c.mu.Lock()
	if c.active == sub {
		c.active = nil
		c.state = StateClosed
	}
	c.mu.Unlock()
	sub.stop()
}
