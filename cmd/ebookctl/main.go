package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mmcdole/ebookctl/internal/adapter"
	"github.com/mmcdole/ebookctl/internal/domain"
	"github.com/mmcdole/ebookctl/internal/tui"
)

// Version is set at build time via -ldflags
var Version = "dev"

var (
	configFile string
	serverURL  string
)

var rootCmd = &cobra.Command{
	Use:   "ebookctl",
	Short: "Control an ebookgen server",
	Long: `ebookctl registers scanned books with an ebookgen server, edits their
processing settings, and starts, schedules and follows conversion jobs.

Run without a command in a terminal to open the interactive browser.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if skipsApp(cmd) {
			return nil
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		logger, err := adapter.SetupLogger(&cfg.Logging)
		if err != nil {
			// Fall back to null logger if file logging fails
			logger = adapter.NullLogger()
		}
		slog.SetDefault(logger)
		logger.Info("starting ebookctl", "version", Version, "command", cmd.Name(), "server", cfg.API.URL)

		app, err := NewApp(cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize app: %w", err)
		}

		ctx := context.WithValue(cmd.Context(), appKey, app)
		cmd.SetContext(ctx)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if app, err := GetAppFromContext(cmd.Context()); err == nil {
			app.Close()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return listBooks(cmd.Context(), app)
		}
		return runTUI(app)
	},
}

// skipsApp reports commands that run without a server connection
func skipsApp(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "version", "configure", "cache", "completion":
			return true
		}
	}
	return false
}

// loadConfig reads the config file and applies the --server override
func loadConfig() (*adapter.Config, error) {
	cfg, err := adapter.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if serverURL != "" {
		cfg.API.URL = serverURL
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func runTUI(app *App) error {
	model := tui.NewModel(tui.Deps{
		Store:    app.Store,
		Library:  app.Library,
		Settings: app.Settings,
		Jobs:     app.Jobs,
		Channel:  app.Channel,
		Opener:   app.Launcher,
		Logger:   app.Logger,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())

	app.Logger.Info("starting TUI")
	if _, err := p.Run(); err != nil {
		app.Logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}
	app.Logger.Info("shutting down")
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "ebookctl %s\n", Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ~/.config/ebookctl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "ebookgen server URL, overrides api.url")
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", errorText(err))
		os.Exit(1)
	}
}

// errorText keeps operator conditions in their friendly wording
func errorText(err error) string {
	if domain.IsUserCondition(err) || errors.Is(err, domain.ErrServerOffline) {
		return domain.Message(err)
	}
	return err.Error()
}
