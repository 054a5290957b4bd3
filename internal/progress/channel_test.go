package progress

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/ebookctl/internal/adapter"
	"github.com/mmcdole/ebookctl/internal/adapter/remote/remotetest"
	"github.com/mmcdole/ebookctl/internal/domain"
)

func newTestChannel() (*Channel, *remotetest.Subscriber) {
	sub := remotetest.NewSubscriber()
	return NewChannel(sub, adapter.NullLogger()), sub
}

func nextEvent(t *testing.T, c *Channel) Event {
	t.Helper()
	select {
	case ev := <-c.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func noEvent(t *testing.T, c *Channel) {
	t.Helper()
	select {
	case ev := <-c.Events():
		t.Fatalf("unexpected event %v", ev.Kind)
	case <-time.After(50 * time.Millisecond):
	}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	assert.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
}

func TestCloseIsIdempotent(t *testing.T) {
	c, _ := newTestChannel()
	assert.Equal(t, StateIdle, c.State())

	c.Close()
	c.Close()
	assert.Equal(t, StateClosed, c.State())

	require.NoError(t, c.Open(context.Background(), "j1", "b1"))
	c.Close()
	c.Close()
	assert.Equal(t, StateClosed, c.State())
	_, _, ok := c.ActiveJob()
	assert.False(t, ok)
}

func TestProgressThenCompletion(t *testing.T) {
	c, sub := newTestChannel()
	require.NoError(t, c.Open(context.Background(), "j1", "b1"))
	assert.Equal(t, StateSubscribed, c.State())

	stream := sub.Last()
	stream.Send(`{"type":"progress","job_id":"j1","status":"running","step_name":"ocr","percent":60}`)
	stream.Send(`{"type":"completion","job_id":"j1","status":"done"}`)

	ev := nextEvent(t, c)
	assert.Equal(t, KindProgress, ev.Kind)
	assert.Equal(t, "b1", ev.BookID)
	assert.Equal(t, "RUNNING | ocr | 60%", ev.View().Text())
	assert.True(t, c.IsCurrent(ev.Generation))

	ev = nextEvent(t, c)
	assert.Equal(t, KindCompletion, ev.Kind)
	assert.Equal(t, domain.StatusDone, ev.Status)
	assert.Equal(t, "DONE | complete | 100%", ev.View().Text())
	assert.True(t, c.IsCurrent(ev.Generation), "natural completion keeps the generation current")

	eventually(t, func() bool { return c.State() == StateClosed })
	assert.True(t, stream.Closed())
}

func TestCompletionFailedShowsZero(t *testing.T) {
	ev := Event{Kind: KindCompletion, JobID: "j1", Status: domain.StatusFailed, Percent: 80}
	assert.Equal(t, "FAILED | complete | 0%", ev.View().Text())
	assert.Zero(t, ev.View().Fraction())
}

func TestOpenSupersedesPrevious(t *testing.T) {
	c, sub := newTestChannel()
	require.NoError(t, c.Open(context.Background(), "j1", "b1"))
	first := sub.Last()

	require.NoError(t, c.Open(context.Background(), "j2", "b2"))
	second := sub.Last()

	assert.True(t, first.Closed())
	assert.False(t, second.Closed())

	first.Send(`{"type":"completion","job_id":"j1","status":"done"}`)
	second.Send(`{"type":"progress","job_id":"j2","status":"running","step_name":"validate","percent":20}`)

	ev := nextEvent(t, c)
	assert.Equal(t, "j2", ev.JobID)
	assert.Equal(t, "b2", ev.BookID)
	noEvent(t, c)

	jobID, bookID, ok := c.ActiveJob()
	require.True(t, ok)
	assert.Equal(t, "j2", jobID)
	assert.Equal(t, "b2", bookID)
}

func TestDisconnectBeforeCompletion(t *testing.T) {
	c, sub := newTestChannel()
	require.NoError(t, c.Open(context.Background(), "j1", "b1"))

	stream := sub.Last()
	stream.Send(`{"type":"progress","job_id":"j1","status":"running","step_name":"assemble","percent":40}`)
	stream.End(errors.New("connection reset"))

	assert.Equal(t, KindProgress, nextEvent(t, c).Kind)

	ev := nextEvent(t, c)
	assert.Equal(t, KindDisconnect, ev.Kind)
	assert.ErrorIs(t, ev.Err, domain.ErrChannelClosed)
	assert.Equal(t, "WebSocket disconnected unexpectedly.", domain.Message(ev.Err))

	eventually(t, func() bool { return c.State() == StateClosed })
	noEvent(t, c)
}

func TestServerErrorFrameEndsStream(t *testing.T) {
	c, sub := newTestChannel()
	require.NoError(t, c.Open(context.Background(), "missing", "b1"))

	stream := sub.Last()
	stream.Send(`{"type":"error","message":"Job not found"}`)
	stream.End(errors.New("close 1008"))

	ev := nextEvent(t, c)
	assert.Equal(t, KindError, ev.Kind)
	assert.Equal(t, "Job not found", ev.Message)
	assert.Equal(t, "missing", ev.JobID)

	noEvent(t, c)
	eventually(t, func() bool { return c.State() == StateClosed })
}

func TestMalformedFramesAreReported(t *testing.T) {
	c, sub := newTestChannel()
	require.NoError(t, c.Open(context.Background(), "j1", "b1"))

	stream := sub.Last()
	stream.Send(`not json`)
	stream.Send(`{"type":"heartbeat"}`)
	stream.Send(`{"type":"completion","job_id":"j1","status":"running"}`)
	stream.Send(`{"type":"progress","job_id":"j1","status":"running","percent":250}`)

	for i := 0; i < 3; i++ {
		ev := nextEvent(t, c)
		require.Equal(t, KindMalformed, ev.Kind)
		assert.Equal(t, "j1", ev.JobID)
		assert.Equal(t, "b1", ev.BookID)
		assert.Error(t, ev.Err)
		assert.True(t, c.IsCurrent(ev.Generation))
	}

	ev := nextEvent(t, c)
	assert.Equal(t, KindProgress, ev.Kind)
	assert.Equal(t, 100, ev.Percent)
	assert.Equal(t, StateSubscribed, c.State())
}

func TestCloseDropsPendingEvents(t *testing.T) {
	c, sub := newTestChannel()
	require.NoError(t, c.Open(context.Background(), "j1", "b1"))

	sub.Last().Send(`{"type":"progress","job_id":"j1","status":"running","percent":10}`)
	ev := nextEvent(t, c)

	c.Close()
	assert.False(t, c.IsCurrent(ev.Generation))
}

func TestOpenFailure(t *testing.T) {
	c, sub := newTestChannel()
	sub.FailWith(&domain.RemoteError{Message: "ebookgen server is unreachable", Err: domain.ErrServerOffline})

	err := c.Open(context.Background(), "j1", "b1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrServerOffline)
	assert.Equal(t, StateClosed, c.State())
}

func TestEventDefaultsJobID(t *testing.T) {
	c, sub := newTestChannel()
	require.NoError(t, c.Open(context.Background(), "j7", "b7"))

	sub.Last().Send(`{"type":"progress","status":"pending"}`)
	ev := nextEvent(t, c)
	assert.Equal(t, "j7", ev.JobID)
	assert.Equal(t, "PENDING | - | 0%", ev.View().Text())
}
