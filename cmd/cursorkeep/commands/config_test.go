package commands

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hllvc/cursorkeep/internal/app"
)

func noEnv() []string { return nil }

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cursorkeep.toml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

func TestLoadConfigDefaultsOnly(t *testing.T) {
	cfg, err := loadConfig("", nil, noEnv)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.LogFormat != app.LogFormatText {
		t.Errorf("LogFormat = %s", cfg.LogFormat)
	}
	if cfg.Refresh.BaseURL != app.DefaultConfigRefreshBaseURL {
		t.Errorf("BaseURL = %s", cfg.Refresh.BaseURL)
	}
	if cfg.Schedule.CheckInterval != 120*time.Hour {
		t.Errorf("CheckInterval = %v", cfg.Schedule.CheckInterval)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfigFile(t, `
log_format = "json"

[store]
path = "/opt/cursor/state.vscdb"

[refresh]
lead_time = "72h"

[schedule]
check_interval = "48h"
poll_tick = "10m"
`)

	cfg, err := loadConfig(path, nil, noEnv)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.LogFormat != app.LogFormatJSON {
		t.Errorf("LogFormat = %s", cfg.LogFormat)
	}
	if cfg.Store.Path != "/opt/cursor/state.vscdb" {
		t.Errorf("Store.Path = %s", cfg.Store.Path)
	}
	if cfg.Refresh.LeadTime != 72*time.Hour {
		t.Errorf("LeadTime = %v", cfg.Refresh.LeadTime)
	}
	if cfg.Schedule.CheckInterval != 48*time.Hour || cfg.Schedule.PollTick != 10*time.Minute {
		t.Errorf("schedule = %v/%v", cfg.Schedule.CheckInterval, cfg.Schedule.PollTick)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
[refresh]
base_url = "https://from-file.example/api"
`)
	environ := func() []string {
		return []string{
			"CURSORKEEP_REFRESH__BASE_URL=https://from-env.example/api",
			"CURSORKEEP_LOG_FORMAT=json",
			"UNRELATED=ignored",
		}
	}

	cfg, err := loadConfig(path, nil, environ)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Refresh.BaseURL != "https://from-env.example/api" {
		t.Errorf("BaseURL = %s, env must override file", cfg.Refresh.BaseURL)
	}
	if cfg.LogFormat != app.LogFormatJSON {
		t.Errorf("LogFormat = %s", cfg.LogFormat)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	path := writeConfigFile(t, `log_format = "xml"`)
	if _, err := loadConfig(path, nil, noEnv); err == nil {
		t.Error("expected validation error for unknown log format")
	}
}
