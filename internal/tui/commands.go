package tui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/ebookctl/internal/jobs"
	"github.com/mmcdole/ebookctl/internal/library"
	"github.com/mmcdole/ebookctl/internal/progress"
	"github.com/mmcdole/ebookctl/internal/settings"
)

// requestTimeout bounds every command that talks to the server
const requestTimeout = 30 * time.Second

// RefreshCmd reloads the book list, selecting preferBookID when set
func RefreshCmd(svc *library.Service, preferBookID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		detail, err := svc.Refresh(ctx, preferBookID)
		if err != nil {
			return ErrMsg{Err: err, Context: "loading books"}
		}
		return DetailLoadedMsg{Detail: detail}
	}
}

// SelectBookCmd makes id the selected book and loads its detail
func SelectBookCmd(svc *library.Service, id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		detail, err := svc.Select(ctx, id)
		if err != nil {
			return ErrMsg{Err: err, Context: "loading book"}
		}
		return DetailLoadedMsg{Detail: detail}
	}
}

// AddBookCmd registers a source directory
func AddBookCmd(svc *library.Service, path string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		book, err := svc.AddBook(ctx, path)
		if err != nil {
			return ErrMsg{Err: err, Context: "adding book"}
		}
		return BookAddedMsg{Book: book}
	}
}

// DeleteBookCmd removes a book
func DeleteBookCmd(svc *library.Service, id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		if err := svc.DeleteBook(ctx, id); err != nil {
			return ErrMsg{Err: err, Context: "deleting book"}
		}
		return BookDeletedMsg{BookID: id}
	}
}

// SaveSettingsCmd stores the form on the selected book
func SaveSettingsCmd(p *settings.Projector, form settings.Form) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		book, err := p.Save(ctx, form)
		if err != nil {
			return ErrMsg{Err: err, Context: "saving settings"}
		}
		return SettingsSavedMsg{Book: book}
	}
}

// RunNowCmd saves the form and starts a job for the selected book
func RunNowCmd(o *jobs.Orchestrator, form settings.Form) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		out, err := o.RunNow(ctx, form)
		if err != nil {
			return ErrMsg{Err: err, Context: "starting job", Reported: true}
		}
		return JobCreatedMsg{Outcome: out}
	}
}

// ScheduleCmd saves the form and schedules the selected book for the next run window
func ScheduleCmd(o *jobs.Orchestrator, form settings.Form) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		out, err := o.Schedule(ctx, form)
		if err != nil {
			return ErrMsg{Err: err, Context: "scheduling job", Reported: true}
		}
		return JobCreatedMsg{Outcome: out}
	}
}

// RunSelectedCmd starts jobs for every batch-selected book
func RunSelectedCmd(o *jobs.Orchestrator) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		res, err := o.RunSelectedNow(ctx)
		return batchMsg(res, err, "starting jobs")
	}
}

// ScheduleSelectedCmd schedules every batch-selected book
func ScheduleSelectedCmd(o *jobs.Orchestrator) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		res, err := o.ScheduleSelected(ctx)
		return batchMsg(res, err, "scheduling jobs")
	}
}

// batchMsg keeps collect-mode results visible; the outcomes still drive a refresh
func batchMsg(res jobs.BatchResult, err error, what string) tea.Msg {
	var berr *jobs.BatchError
	if err != nil && !errors.As(err, &berr) {
		return ErrMsg{Err: err, Context: what, Reported: true}
	}
	return BatchDoneMsg{Result: res}
}

// CancelJobCmd cancels jobID
func CancelJobCmd(o *jobs.Orchestrator, jobID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		job, err := o.Cancel(ctx, jobID)
		if err != nil {
			return ErrMsg{Err: err, Context: "cancelling job", Reported: true}
		}
		return JobCancelledMsg{Job: job}
	}
}

// ListenCmd waits for the next progress channel event and applies it.
// Only one listener runs at a time; Update re-arms it after every event.
func ListenCmd(o *jobs.Orchestrator, ch *progress.Channel) tea.Cmd {
	return func() tea.Msg {
		ev := <-ch.Events()

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		detail, err := o.HandleEvent(ctx, ev)
		return EventHandledMsg{Event: ev, Detail: detail, Err: err}
	}
}

// Opener hands an artifact URL to an external viewer
type Opener interface {
	Open(url string) error
}

// OpenArtifactCmd opens artifact in the configured viewer
func OpenArtifactCmd(opener Opener, artifact library.Artifact) tea.Cmd {
	return func() tea.Msg {
		if err := opener.Open(artifact.URL); err != nil {
			return ErrMsg{Err: err, Context: "opening " + artifact.Name}
		}
		return ArtifactOpenedMsg{Name: artifact.Name}
	}
}

// ClearStatusCmd clears text from the status line after delay
func ClearStatusCmd(text string, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(t time.Time) tea.Msg {
		return ClearStatusMsg{Text: text}
	})
}
