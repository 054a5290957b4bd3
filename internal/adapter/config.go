package adapter

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// BatchMode selects how batch operations react to a failing item
type BatchMode string

const (
	// BatchModeAbort stops at the first failure and surfaces its message
	BatchModeAbort BatchMode = "abort"
	// BatchModeCollect issues every request and reports per-item outcomes
	BatchModeCollect BatchMode = "collect"
)

// Config holds all application configuration
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Batch    BatchConfig    `mapstructure:"batch"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Viewer   ViewerConfig   `mapstructure:"viewer"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// APIConfig holds the ebookgen server connection settings
type APIConfig struct {
	URL         string        `mapstructure:"url"`          // Base URL, e.g. http://localhost:8000
	Timeout     time.Duration `mapstructure:"timeout"`      // Per-request timeout
	ReadRetries int           `mapstructure:"read_retries"` // Retries for idempotent GETs only
	RetryDelay  time.Duration `mapstructure:"retry_delay"`  // Base backoff delay
}

// ScheduleConfig holds the nightly schedule settings
type ScheduleConfig struct {
	Hour int `mapstructure:"hour"` // Local hour for scheduled runs
}

// BatchConfig holds batch operation settings
type BatchConfig struct {
	Mode BatchMode `mapstructure:"mode"`
}

// CacheConfig holds the local job ledger location
type CacheConfig struct {
	Dir string `mapstructure:"dir"` // Empty keeps the ledger in memory
}

// NotifyConfig holds the optional completion notifier settings
type NotifyConfig struct {
	NATSURL string `mapstructure:"nats_url"`
	Subject string `mapstructure:"subject"`
}

// ViewerConfig holds the external artifact viewer
type ViewerConfig struct {
	Command string   `mapstructure:"command"` // Empty uses the system opener
	Args    []string `mapstructure:"args"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			URL:         "http://localhost:8000",
			Timeout:     30 * time.Second,
			ReadRetries: 2,
			RetryDelay:  500 * time.Millisecond,
		},
		Schedule: ScheduleConfig{
			Hour: 2,
		},
		Batch: BatchConfig{
			Mode: BatchModeAbort,
		},
		Cache: CacheConfig{
			Dir: defaultCachePath(),
		},
		Notify: NotifyConfig{
			Subject: "ebookgen.jobs.completed",
		},
		Viewer: ViewerConfig{
			Args: []string{},
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "ebookctl", "ebookctl.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "ebookctl", "ebookctl.log")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "ebookctl")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "ebookctl")
	}
}

// defaultCachePath returns the default ledger directory for the current OS
func defaultCachePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "ebookctl", "cache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "ebookctl", "cache")
	}
}

// newViper builds a viper instance with defaults, search paths and env overrides.
// An explicit configFile replaces the search paths.
func newViper(configFile string) *viper.Viper {
	v := viper.New()
	def := DefaultConfig()

	v.SetDefault("api.url", def.API.URL)
	v.SetDefault("api.timeout", def.API.Timeout)
	v.SetDefault("api.read_retries", def.API.ReadRetries)
	v.SetDefault("api.retry_delay", def.API.RetryDelay)
	v.SetDefault("schedule.hour", def.Schedule.Hour)
	v.SetDefault("batch.mode", string(def.Batch.Mode))
	v.SetDefault("cache.dir", def.Cache.Dir)
	v.SetDefault("notify.nats_url", def.Notify.NATSURL)
	v.SetDefault("notify.subject", def.Notify.Subject)
	v.SetDefault("viewer.command", def.Viewer.Command)
	v.SetDefault("viewer.args", def.Viewer.Args)
	v.SetDefault("logging.file", def.Logging.File)
	v.SetDefault("logging.level", def.Logging.Level)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(defaultConfigPath())
		v.AddConfigPath(".")
	}

	// Environment variable overrides: EBOOKCTL_API_URL, EBOOKCTL_BATCH_MODE, ...
	v.SetEnvPrefix("EBOOKCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// LoadConfig loads configuration from .env, the config file and environment.
// A config file missing from the search paths is not an error; an explicit
// configFile must exist.
func LoadConfig(configFile string) (*Config, error) {
	// .env is optional; variables already set in the environment win
	_ = godotenv.Load()

	v := newViper(configFile)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration values that would otherwise fail late
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.URL)
	if err != nil || c.API.URL == "" {
		return fmt.Errorf("api.url %q is not a valid URL", c.API.URL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api.url must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("api.url %q has no host", c.API.URL)
	}
	if c.API.ReadRetries < 0 {
		return errors.New("api.read_retries must be >= 0")
	}
	if c.API.Timeout < 0 {
		return errors.New("api.timeout must be >= 0")
	}
	if c.Schedule.Hour < 0 || c.Schedule.Hour > 23 {
		return fmt.Errorf("schedule.hour must be between 0 and 23, got %d", c.Schedule.Hour)
	}
	switch c.Batch.Mode {
	case BatchModeAbort, BatchModeCollect:
	default:
		return fmt.Errorf("batch.mode must be %q or %q, got %q", BatchModeAbort, BatchModeCollect, c.Batch.Mode)
	}
	return nil
}

// SaveConfig saves the configuration to configFile, or the default location
func SaveConfig(cfg *Config, configFile string) error {
	if configFile == "" {
		configPath := defaultConfigPath()
		if err := os.MkdirAll(configPath, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
		configFile = filepath.Join(configPath, "config.yaml")
	}

	v := viper.New()

	// Set fields individually to ensure correct key names (snake_case)
	v.Set("api.url", cfg.API.URL)
	v.Set("api.timeout", cfg.API.Timeout.String())
	v.Set("api.read_retries", cfg.API.ReadRetries)
	v.Set("api.retry_delay", cfg.API.RetryDelay.String())
	v.Set("schedule.hour", cfg.Schedule.Hour)
	v.Set("batch.mode", string(cfg.Batch.Mode))
	v.Set("cache.dir", cfg.Cache.Dir)
	v.Set("notify.nats_url", cfg.Notify.NATSURL)
	v.Set("notify.subject", cfg.Notify.Subject)
	v.Set("viewer.command", cfg.Viewer.Command)
	v.Set("viewer.args", cfg.Viewer.Args)
	v.Set("logging.file", cfg.Logging.File)
	v.Set("logging.level", cfg.Logging.Level)

	if err := v.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ClearCache removes the local job ledger
func ClearCache(dir string) error {
	if dir == "" {
		return nil
	}
	if err := os.RemoveAll(dir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}
