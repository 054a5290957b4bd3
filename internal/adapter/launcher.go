package adapter

import (
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
)

// Launcher opens output artifact URLs in an external viewer
type Launcher struct {
	command string   // configured viewer command, empty for system default
	args    []string // additional arguments for the viewer
	logger  *slog.Logger

	// lookPath and start are replaced in tests
	lookPath func(string) (string, error)
	start    func(name string, args ...string) error
}

// systemOpeners lists the default URL openers tried per platform, in order
var systemOpeners = map[string][][]string{
	"darwin":  {{"open"}},
	"linux":   {{"xdg-open"}, {"gio", "open"}, {"sensible-browser"}},
	"windows": {{"rundll32", "url.dll,FileProtocolHandler"}},
}

// NewLauncher creates a Launcher for the configured viewer
func NewLauncher(command string, args []string, logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Launcher{
		command:  command,
		args:     args,
		logger:   logger,
		lookPath: exec.LookPath,
		start: func(name string, args ...string) error {
			return exec.Command(name, args...).Start() // Start async, don't wait
		},
	}
}

// Open launches url with the configured viewer or the first available system opener
func (l *Launcher) Open(url string) error {
	if l.command != "" {
		if err := l.tryLaunch(l.command, append(append([]string{}, l.args...), url)); err != nil {
			return fmt.Errorf("failed to launch %s: %w", l.command, err)
		}
		l.logger.Info("opened artifact", "viewer", l.command, "url", url)
		return nil
	}

	for _, opener := range systemOpeners[runtime.GOOS] {
		args := append(append([]string{}, opener[1:]...), url)
		if err := l.tryLaunch(opener[0], args); err != nil {
			l.logger.Debug("opener unavailable", "opener", opener[0], "error", err)
			continue
		}
		l.logger.Info("opened artifact", "viewer", opener[0], "url", url)
		return nil
	}
	return fmt.Errorf("no viewer available on %s; set viewer.command", runtime.GOOS)
}

// tryLaunch launches command if it exists in PATH
func (l *Launcher) tryLaunch(command string, args []string) error {
	if _, err := l.lookPath(command); err != nil {
		return err
	}
	return l.start(command, args...)
}
