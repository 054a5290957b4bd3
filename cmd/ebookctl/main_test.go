package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/ebookctl/internal/adapter"
	"github.com/mmcdole/ebookctl/internal/adapter/remote/remotetest"
	"github.com/mmcdole/ebookctl/internal/domain"
	"github.com/mmcdole/ebookctl/internal/jobs"
	"github.com/mmcdole/ebookctl/internal/library"
	"github.com/mmcdole/ebookctl/internal/progress"
	"github.com/mmcdole/ebookctl/internal/settings"
	"github.com/mmcdole/ebookctl/internal/state"
	ledgerstore "github.com/mmcdole/ebookctl/internal/store"
)

func noColor(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

func TestStatusText(t *testing.T) {
	noColor(t)

	assert.Equal(t, "DONE", statusText("done"))
	assert.Equal(t, "QUEUED", statusText("queued"))
	assert.Equal(t, "STARTED", statusText("started"))
	assert.Equal(t, "WHATEVER", statusText("whatever"))
}

func TestOrDash(t *testing.T) {
	assert.Equal(t, "-", orDash(""))
	assert.Equal(t, "x", orDash("x"))
}

func TestLocalTime(t *testing.T) {
	assert.Equal(t, "-", localTime(""))
	assert.Equal(t, "not a time", localTime("not a time"))
	assert.Len(t, localTime("2026-03-01T02:00:00Z"), len("2006-01-02 15:04"))
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tt := range tests {
		got, err := confirm(strings.NewReader(tt.input), "")
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
	}
}

func TestSkipsApp(t *testing.T) {
	assert.True(t, skipsApp(versionCmd))
	assert.True(t, skipsApp(configureCmd))
	assert.True(t, skipsApp(cacheClearCmd))
	assert.False(t, skipsApp(listCmd))
	assert.False(t, skipsApp(runCmd))
}

func TestErrorText(t *testing.T) {
	wrapped := errors.Join(errors.New("batch"), domain.ErrNothingSelected)
	assert.Equal(t, domain.Message(domain.ErrNothingSelected), errorText(wrapped))

	offline := &domain.RemoteError{Message: "Cannot reach server", Err: domain.ErrServerOffline}
	assert.Equal(t, "Cannot reach server", errorText(offline))

	assert.Equal(t, "boom", errorText(errors.New("boom")))
}

func newSettingsTestCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "settings"}
	addSettingsFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestApplySettingsFlags(t *testing.T) {
	base := settings.Project(domain.Book{ID: "a"})

	t.Run("no flags leaves form alone", func(t *testing.T) {
		form, changed, err := applySettingsFlags(newSettingsTestCmd(t), base)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, base, form)
	})

	t.Run("named fields change", func(t *testing.T) {
		cmd := newSettingsTestCmd(t, "--language", "eng", "--front-cover", " 12 ")
		form, changed, err := applySettingsFlags(cmd, base)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, "eng", form.OCRLanguage)
		assert.Equal(t, "12", form.FrontCover)
		assert.Equal(t, base.OptimizeMode, form.OptimizeMode)
	})

	t.Run("empty cover clears", func(t *testing.T) {
		start := base
		start.BackCover = "40"
		form, changed, err := applySettingsFlags(newSettingsTestCmd(t, "--back-cover", ""), start)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Empty(t, form.BackCover)
	})

	t.Run("unknown option rejected", func(t *testing.T) {
		_, _, err := applySettingsFlags(newSettingsTestCmd(t, "--optimize", "ultra"), base)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--optimize")
	})

	t.Run("non-numeric cover rejected", func(t *testing.T) {
		_, _, err := applySettingsFlags(newSettingsTestCmd(t, "--front-cover", "abc"), base)
		require.Error(t, err)
	})
}

func TestWriteBooks(t *testing.T) {
	noColor(t)

	var buf bytes.Buffer
	writeBooks(&buf, []domain.Book{
		{ID: "a", Title: "Alpha", Status: domain.StatusDone, SourcePath: "/scans/alpha"},
		{ID: "b", Title: "Beta", Status: domain.StatusPending},
	})

	out := buf.String()
	assert.Contains(t, out, "Alpha")
	assert.Contains(t, out, "/scans/alpha")
	assert.Contains(t, out, "DONE")
	assert.Contains(t, out, "PENDING")
}

func TestRefreshOutcomes(t *testing.T) {
	ctx := context.Background()
	fake := remotetest.NewFake(domain.Book{ID: "a", Title: "Alpha"})

	ledger, err := ledgerstore.NewJobLedger("", "")
	require.NoError(t, err)
	defer ledger.Close()

	for i := 0; i < 3; i++ {
		created, err := fake.CreateJob(ctx, domain.JobRequest{BookID: "a"})
		require.NoError(t, err)
		require.NoError(t, ledger.Record(domain.JobRecord{JobID: created.Job.ID, BookID: "a"}))
	}
	_, err = fake.CancelJob(ctx, "job-1")
	require.NoError(t, err)
	_, err = ledger.SetOutcome("job-3", domain.StatusDone)
	require.NoError(t, err)
	fake.FailWith("GetJob:job-2", errors.New("boom"))

	require.NoError(t, refreshOutcomes(ctx, fake, ledger, adapter.NullLogger()))

	rec, ok := ledger.Get("job-1")
	require.True(t, ok)
	assert.Equal(t, domain.StatusCancelled, rec.Outcome)

	rec, ok = ledger.Get("job-2")
	require.True(t, ok)
	assert.Empty(t, rec.Outcome)

	// Recorded outcomes are not asked about again
	for _, c := range fake.Calls() {
		if c.Method == "GetJob" {
			assert.NotEqual(t, "job-3", c.ID)
		}
	}
}

func newTestApp(t *testing.T) (*App, *remotetest.Subscriber) {
	t.Helper()
	logger := adapter.NullLogger()

	fake := remotetest.NewFake(
		domain.Book{ID: "a", Title: "Alpha"},
		domain.Book{ID: "b", Title: "Beta"},
	)
	sub := remotetest.NewSubscriber()
	ledger, err := ledgerstore.NewJobLedger("", "")
	require.NoError(t, err)

	store := state.NewStore()
	channel := progress.NewChannel(sub, logger)
	catalog := library.NewService(fake, store, logger)
	projector := settings.NewProjector(fake, store, logger)
	orch := jobs.NewOrchestrator(jobs.Deps{
		Jobs:     fake,
		Settings: projector,
		Library:  catalog,
		Channel:  channel,
		Store:    store,
		Ledger:   ledger,
		Notifier: domain.NoOpNotifier{},
	}, jobs.Options{ScheduleHour: 2, BatchMode: adapter.BatchModeAbort}, logger)

	app := &App{
		Logger:        logger,
		Store:         store,
		Library:       catalog,
		Settings:      projector,
		Jobs:          orch,
		Channel:       channel,
		Ledger:        ledger,
		closeNotifier: func() {},
	}
	t.Cleanup(app.Close)
	return app, sub
}

func TestFollowAfterFastCompletion(t *testing.T) {
	app, sub := newTestApp(t)
	ctx := context.Background()

	res, err := app.Jobs.RunBooks(ctx, []string{"a"}, true, false)
	require.NoError(t, err)

	// The stream finishes before follow starts reading
	sub.Last().Send(`{"type":"completion","status":"done"}`)
	require.Eventually(t, func() bool {
		_, _, ok := app.Channel.ActiveJob()
		return !ok
	}, 2*time.Second, 5*time.Millisecond)

	assert.NoError(t, follow(ctx, app, lastStarted(res.Outcomes)))
}

func TestFollowFailedJobExitsWithError(t *testing.T) {
	app, sub := newTestApp(t)
	ctx := context.Background()

	res, err := app.Jobs.RunBooks(ctx, []string{"a", "b"}, true, false)
	require.NoError(t, err)
	last := lastStarted(res.Outcomes)
	require.NotNil(t, last)
	assert.Equal(t, "b", last.BookID)

	sub.Last().Send(`{"type":"completion","status":"failed"}`)
	err = follow(ctx, app, last)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed")
}

func TestFollowWithoutStream(t *testing.T) {
	app, sub := newTestApp(t)
	ctx := context.Background()

	assert.NoError(t, follow(ctx, app, nil))

	sub.FailWith(errors.New("ws dial refused"))
	res, err := app.Jobs.RunBooks(ctx, []string{"a"}, true, false)
	require.NoError(t, err)
	last := lastStarted(res.Outcomes)
	require.NotNil(t, last)
	assert.True(t, last.Unfollowed)
	assert.NoError(t, follow(ctx, app, last))
}
