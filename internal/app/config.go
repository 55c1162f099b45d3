package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/hllvc/cursorkeep/internal/backup"
	"github.com/hllvc/cursorkeep/internal/credential"
	"github.com/hllvc/cursorkeep/internal/manager"
	"github.com/hllvc/cursorkeep/internal/tokensource"
)

// LogFormat represents the logging output format.
type LogFormat string

const (
	LogFormatText       LogFormat = "text"
	LogFormatJSON       LogFormat = "json"
	LogFormatOTLP       LogFormat = "otlp"
	LogFormatOTelStdout LogFormat = "otel-stdout"
)

// BackupStorageType represents where pre-refresh credential snapshots go.
type BackupStorageType string

const (
	BackupStorageNone    BackupStorageType = "none"
	BackupStorageFile    BackupStorageType = "file"
	BackupStorageKeyring BackupStorageType = "keyring"
)

// Default configuration values
const (
	DefaultConfigLogFormat        = LogFormatText
	DefaultConfigRefreshBaseURL   = tokensource.DefaultBaseURL
	DefaultConfigRefreshUserAgent = tokensource.UserAgent
	DefaultConfigRefreshTimeout   = tokensource.DefaultTimeout
	DefaultConfigLeadTime         = credential.DefaultLeadTime
	DefaultConfigCheckInterval    = manager.DefaultCheckInterval
	DefaultConfigPollTick         = manager.DefaultPollTick
	DefaultConfigBackupStorage    = BackupStorageNone

	backupKeyringService = "cursorkeep-backup"
)

// StoreConfig locates the host application's state database.
type StoreConfig struct {
	Path string `json:"path" validate:"required"`
}

// RefreshConfig holds refresh endpoint and expiry policy configuration.
type RefreshConfig struct {
	BaseURL   string `json:"base_url" validate:"required,url"`
	UserAgent string `json:"user_agent" validate:"required"`
	// Timeout bounds a single refresh exchange.
	Timeout time.Duration `json:"timeout"`
	// LeadTime before expiry at which a refresh is triggered.
	LeadTime time.Duration `json:"lead_time"`
}

// ScheduleConfig holds the daemon loop cadence.
type ScheduleConfig struct {
	// CheckInterval between scheduled refresh checks.
	CheckInterval time.Duration `json:"check_interval"`
	// PollTick is how often the sleeping loop wakes to observe
	// cancellation and re-evaluate the schedule.
	PollTick time.Duration `json:"poll_tick"`
}

// BackupConfig describes where to stash the credential pair before each
// store rewrite.
type BackupConfig struct {
	Storage BackupStorageType `json:"storage" validate:"required,oneof=none file keyring"`

	// Storage-specific settings (mutually exclusive based on Storage type)
	File        string `json:"file,omitempty"`         // For file storage: path to snapshot file
	KeyringUser string `json:"keyring_user,omitempty"` // For keyring storage: user identifier
}

// NewBackupStore creates a backup.Store from the configuration. Returns
// nil when backups are disabled.
func (b *BackupConfig) NewBackupStore() (backup.Store, error) {
	switch b.Storage {
	case BackupStorageNone:
		return nil, nil
	case BackupStorageFile:
		return backup.NewFileStore(b.File)
	case BackupStorageKeyring:
		return backup.NewKeyringStore(backupKeyringService, b.KeyringUser)
	default:
		return nil, fmt.Errorf("unsupported backup storage type: %s", b.Storage)
	}
}

// Config holds the application's configuration.
type Config struct {
	// LogLevel for logging output (defaults to Info if unset).
	LogLevel  slog.Level     `json:"log_level"`
	LogFormat LogFormat      `json:"log_format" validate:"oneof=text json otlp otel-stdout"`
	Store     StoreConfig    `json:"store"`
	Refresh   RefreshConfig  `json:"refresh"`
	Schedule  ScheduleConfig `json:"schedule"`
	Backup    BackupConfig   `json:"backup"`
}

// Default creates a new Config with default values applied.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills unset config fields with sensible defaults.
func (c *Config) ApplyDefaults() error {
	if c.LogFormat == "" {
		c.LogFormat = DefaultConfigLogFormat
	}
	if c.Refresh.BaseURL == "" {
		c.Refresh.BaseURL = DefaultConfigRefreshBaseURL
	}
	if c.Refresh.UserAgent == "" {
		c.Refresh.UserAgent = DefaultConfigRefreshUserAgent
	}
	if c.Refresh.Timeout == 0 {
		c.Refresh.Timeout = DefaultConfigRefreshTimeout
	}
	if c.Refresh.LeadTime == 0 {
		c.Refresh.LeadTime = DefaultConfigLeadTime
	}
	if c.Schedule.CheckInterval == 0 {
		c.Schedule.CheckInterval = DefaultConfigCheckInterval
	}
	if c.Schedule.PollTick == 0 {
		c.Schedule.PollTick = DefaultConfigPollTick
	}
	if c.Backup.Storage == "" {
		c.Backup.Storage = DefaultConfigBackupStorage
	}

	// Dynamic defaults derived from the environment
	if c.Store.Path == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("store.path required (auto-detect failed: %w)", err)
		}
		// On macOS UserConfigDir is ~/Library/Application Support, on
		// Linux ~/.config; Cursor keeps its global state under both.
		c.Store.Path = filepath.Join(configDir, "Cursor", "User", "globalStorage", "state.vscdb")
	}

	switch c.Backup.Storage {
	case BackupStorageFile:
		if c.Backup.File == "" {
			configDir, err := os.UserConfigDir()
			if err != nil {
				return fmt.Errorf("backup.file required (auto-detect failed: %w)", err)
			}
			c.Backup.File = filepath.Join(configDir, "cursorkeep", "backup.json")
		}
	case BackupStorageKeyring:
		if c.Backup.KeyringUser == "" {
			currentUser, err := user.Current()
			if err != nil {
				return fmt.Errorf("backup.keyring_user required (auto-detect failed: %w)", err)
			}
			c.Backup.KeyringUser = currentUser.Username
		}
	case BackupStorageNone:
		// nothing to derive
	}

	return nil
}

// Validate validates the configuration using struct tags and enum values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	switch c.Backup.Storage {
	case BackupStorageFile:
		if c.Backup.File == "" {
			return errors.New("file path required for file backup storage")
		}
	case BackupStorageKeyring:
		if c.Backup.KeyringUser == "" {
			return errors.New("keyring_user required for keyring backup storage")
		}
	case BackupStorageNone:
	}

	if c.Schedule.PollTick > c.Schedule.CheckInterval {
		return errors.New("schedule.poll_tick must not exceed schedule.check_interval")
	}

	return nil
}
