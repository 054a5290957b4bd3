package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mmcdole/ebookctl/internal/domain"
	"github.com/mmcdole/ebookctl/internal/jobs"
	"github.com/mmcdole/ebookctl/internal/progress"
)

var (
	runResume   bool
	runFollow   bool
	retryLater  bool
	retryFollow bool
	jobsRefresh bool
)

var runCmd = &cobra.Command{
	Use:   "run <book>...",
	Short: "Start jobs for books now",
	Long: `Starts one job per book, in argument order. With --follow, streams the
progress of the last started job until it finishes.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueJobs(cmd, args, true)
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule <book>...",
	Short: "Schedule books for the next nightly run",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueJobs(cmd, args, false)
	},
}

func issueJobs(cmd *cobra.Command, refs []string, runNow bool) error {
	app, err := GetAppFromContext(cmd.Context())
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if err := app.loadBooks(ctx); err != nil {
		return err
	}
	books, err := app.Library.ResolveAll(refs)
	if err != nil {
		return err
	}
	ids := make([]string, len(books))
	for i, b := range books {
		ids[i] = b.ID
	}

	res, err := app.Jobs.RunBooks(ctx, ids, runNow, runResume)
	writeOutcomes(os.Stdout, app, res)
	if err != nil {
		return err
	}
	if res.ScheduledAt != nil {
		fmt.Printf("Scheduled for %s.\n", res.ScheduledAt.Local().Format("2006-01-02 15:04 MST"))
	}

	if runNow && runFollow {
		return follow(ctx, app, lastStarted(res.Outcomes))
	}
	return nil
}

// lastStarted returns the outcome whose stream the channel holds, if any
func lastStarted(outcomes []jobs.Outcome) *jobs.Outcome {
	for i := len(outcomes) - 1; i >= 0; i-- {
		if outcomes[i].Started && outcomes[i].Err == nil {
			return &outcomes[i]
		}
	}
	return nil
}

func writeOutcomes(w io.Writer, app *App, res jobs.BatchResult) {
	if len(res.Outcomes) == 0 {
		return
	}
	table := newTable(w, "Book", "Job", "State")
	for _, out := range res.Outcomes {
		title := out.BookID
		if b, ok := app.Store.Book(out.BookID); ok {
			title = b.Title
		}
		state := statusText(string(domain.StatusQueued))
		switch {
		case out.Err != nil:
			state = color.RedString("ERROR: %s", domain.Message(out.Err))
		case out.Started:
			state = statusText("started")
		}
		table.Append([]string{title, orDash(out.JobID), state})
	}
	table.Render()
}

// follow streams the live job to stdout and maps its outcome to the exit status
func follow(ctx context.Context, app *App, out *jobs.Outcome) error {
	if out == nil {
		fmt.Println("No job started; nothing to follow.")
		return nil
	}
	if out.Unfollowed {
		fmt.Println(app.Store.Message().Text)
		return nil
	}
	fmt.Printf("Following %s (Ctrl+C stops following, the job keeps running)\n", out.JobID)

	status, err := app.Jobs.Follow(ctx, printEvent)
	if err != nil {
		return err
	}
	if status != domain.StatusDone {
		return fmt.Errorf("job %s finished %s", out.JobID, status)
	}
	return nil
}

func printEvent(ev progress.Event) {
	switch ev.Kind {
	case progress.KindProgress:
		fmt.Printf("  %s\n", ev.View().Text())
	case progress.KindCompletion:
		fmt.Printf("  %s  %s\n", ev.View().Text(), statusText(string(ev.Status)))
	case progress.KindError:
		fmt.Printf("  %s %s\n", color.RedString("error:"), ev.Message)
	case progress.KindDisconnect:
		fmt.Printf("  %s\n", color.YellowString("progress stream closed"))
	case progress.KindMalformed:
		fmt.Printf("  %s\n", color.YellowString("unreadable progress update skipped"))
	}
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <job>",
	Short: "Cancel a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		job, err := app.Jobs.Cancel(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		status := domain.StatusCancelled
		if job != nil {
			status = job.Status
		}
		fmt.Printf("%s %s\n", app.Store.Message().Text, statusText(string(status)))
		return nil
	},
}

var retryCmd = &cobra.Command{
	Use:   "retry <job>",
	Short: "Retry a job, resuming from its last completed stage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		out, err := app.Jobs.Retry(ctx, args[0], !retryLater)
		if err != nil {
			return err
		}
		fmt.Printf("%s (%s)\n", app.Store.Message().Text, out.JobID)

		if out.Started && retryFollow {
			return follow(ctx, app, &out)
		}
		return nil
	},
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List jobs created from this machine",
	Long: `Lists the jobs this client created against the configured server, with
the last outcome it observed. --refresh asks the server about jobs without
a recorded outcome.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}

		if jobsRefresh {
			if err := refreshOutcomes(cmd.Context(), app.Client, app.Ledger, app.Logger); err != nil {
				return err
			}
		}

		records, err := app.Ledger.List()
		if err != nil {
			return fmt.Errorf("error listing jobs: %w", err)
		}
		if len(records) == 0 {
			fmt.Println("No jobs recorded.")
			return nil
		}

		// Titles are best effort; the ledger is readable offline
		if err := app.loadBooks(cmd.Context()); err != nil {
			app.Logger.Debug("book titles unavailable", "error", err)
		}

		table := newTable(os.Stdout, "Job", "Book", "State", "Resume", "Scheduled", "Created")
		for _, r := range records {
			book := r.BookID
			if b, ok := app.Store.Book(r.BookID); ok {
				book = b.Title
			}
			resume := ""
			if r.Resume {
				resume = "yes"
			}
			table.Append([]string{
				r.JobID,
				orDash(book),
				statusText(r.Marker()),
				orDash(resume),
				localTime(r.ScheduledAt),
				r.CreatedAt.Local().Format("2006-01-02 15:04"),
			})
		}
		table.Render()
		return nil
	},
}

// refreshOutcomes records terminal statuses the server reports for open jobs
func refreshOutcomes(ctx context.Context, client domain.JobClient, ledger domain.JobLedger, logger *slog.Logger) error {
	records, err := ledger.List()
	if err != nil {
		return fmt.Errorf("error listing jobs: %w", err)
	}
	for _, r := range records {
		if r.Outcome != "" {
			continue
		}
		reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		job, err := client.GetJob(reqCtx, r.JobID)
		cancel()
		if err != nil {
			logger.Warn("failed to fetch job", "job", r.JobID, "error", err)
			continue
		}
		if job != nil && job.Status.IsTerminal() {
			if _, err := ledger.SetOutcome(r.JobID, job.Status); err != nil {
				return fmt.Errorf("record outcome of %s: %w", r.JobID, err)
			}
		}
	}
	return nil
}

func init() {
	runCmd.Flags().BoolVar(&runResume, "resume", false, "Resume from the last completed stage")
	runCmd.Flags().BoolVarP(&runFollow, "follow", "f", false, "Stream progress of the last started job")
	scheduleCmd.Flags().BoolVar(&runResume, "resume", false, "Resume from the last completed stage")

	retryCmd.Flags().BoolVar(&retryLater, "later", false, "Queue the retry instead of starting it now")
	retryCmd.Flags().BoolVarP(&retryFollow, "follow", "f", false, "Stream progress of the retried job")

	jobsCmd.Flags().BoolVar(&jobsRefresh, "refresh", false, "Ask the server for outcomes of unfinished jobs")

	rootCmd.AddCommand(runCmd, scheduleCmd, cancelCmd, retryCmd, jobsCmd)
}
