package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mmcdole/ebookctl/internal/adapter"
	"github.com/mmcdole/ebookctl/internal/adapter/remote"
	"github.com/mmcdole/ebookctl/internal/domain"
	"github.com/mmcdole/ebookctl/internal/jobs"
	"github.com/mmcdole/ebookctl/internal/library"
	"github.com/mmcdole/ebookctl/internal/notify"
	"github.com/mmcdole/ebookctl/internal/progress"
	"github.com/mmcdole/ebookctl/internal/settings"
	"github.com/mmcdole/ebookctl/internal/state"
	ledgerstore "github.com/mmcdole/ebookctl/internal/store"
)

// App holds the wired services shared by every command
type App struct {
	Config   *adapter.Config
	Logger   *slog.Logger
	Client   *remote.Client
	Store    *state.Store
	Library  *library.Service
	Settings *settings.Projector
	Jobs     *jobs.Orchestrator
	Channel  *progress.Channel
	Ledger   domain.JobLedger
	Launcher *adapter.Launcher

	closeNotifier func()
}

// NewApp wires the services for cfg
func NewApp(cfg *adapter.Config, logger *slog.Logger) (*App, error) {
	client := remote.NewClient(cfg.API, logger)

	subscriber, err := remote.NewSubscriber(cfg.API.URL, logger)
	if err != nil {
		return nil, fmt.Errorf("init progress stream: %w", err)
	}

	ledger, err := ledgerstore.NewJobLedger(cfg.Cache.Dir, cfg.API.URL)
	if err != nil {
		// Another ebookctl holds the ledger lock; keep working without history
		logger.Warn("job ledger unavailable, using memory", "dir", cfg.Cache.Dir, "error", err)
		fmt.Fprintf(os.Stderr, "warning: job history unavailable: %v\n", err)
		ledger, _ = ledgerstore.NewJobLedger("", "")
	}

	notifier, closeNotifier, err := notify.New(cfg.Notify, logger)
	if err != nil {
		logger.Warn("completion notifier disabled", "error", err)
		notifier, closeNotifier = domain.NoOpNotifier{}, func() {}
	}

	store := state.NewStore()
	channel := progress.NewChannel(subscriber, logger)
	catalog := library.NewService(client, store, logger)
	projector := settings.NewProjector(client, store, logger)

	orch := jobs.NewOrchestrator(jobs.Deps{
		Jobs:     client,
		Settings: projector,
		Library:  catalog,
		Channel:  channel,
		Store:    store,
		Ledger:   ledger,
		Notifier: notifier,
	}, jobs.Options{
		ScheduleHour: cfg.Schedule.Hour,
		BatchMode:    cfg.Batch.Mode,
	}, logger)

	return &App{
		Config:        cfg,
		Logger:        logger,
		Client:        client,
		Store:         store,
		Library:       catalog,
		Settings:      projector,
		Jobs:          orch,
		Channel:       channel,
		Ledger:        ledger,
		Launcher:      adapter.NewLauncher(cfg.Viewer.Command, cfg.Viewer.Args, logger),
		closeNotifier: closeNotifier,
	}, nil
}

// Close releases the stream, the ledger and the notifier connection
func (a *App) Close() {
	a.Channel.Close()
	if err := a.Ledger.Close(); err != nil {
		a.Logger.Warn("failed to close ledger", "error", err)
	}
	a.closeNotifier()
}

// loadBooks fetches the catalog so book arguments can be resolved
func (a *App) loadBooks(ctx context.Context) error {
	if _, err := a.Library.Refresh(ctx, ""); err != nil {
		return err
	}
	return nil
}

// resolveBook loads the catalog and resolves ref to one book
func (a *App) resolveBook(ctx context.Context, ref string) (domain.Book, error) {
	if err := a.loadBooks(ctx); err != nil {
		return domain.Book{}, err
	}
	return a.Library.Resolve(ref)
}

// Define a custom type for the context key to avoid collisions.
type contextKey string

const appKey contextKey = "app"

// GetAppFromContext retrieves the app instance stored by the root command
func GetAppFromContext(ctx context.Context) (*App, error) {
	app, ok := ctx.Value(appKey).(*App)
	if !ok || app == nil {
		return nil, fmt.Errorf("application instance not found in context")
	}
	return app, nil
}
