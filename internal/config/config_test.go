package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "")
	chdirTemp(t)

	if _, err := Load(); err == nil {
		t.Fatal("expected error without TELEGRAM_TOKEN")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "test-token")
	chdirTemp(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DatabaseURL != "tasktracker.db" {
		t.Errorf("default database url = %q", cfg.DatabaseURL)
	}
	if cfg.RemindInterval != time.Minute {
		t.Errorf("default remind interval = %v", cfg.RemindInterval)
	}
	if cfg.DailySummaryTime != "" {
		t.Errorf("daily summary enabled by default: %q", cfg.DailySummaryTime)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "test-token")
	t.Setenv("DATABASE_URL", "data/bot.db")
	t.Setenv("REMIND_INTERVAL_SECONDS", "120")
	t.Setenv("DAILY_SUMMARY_TIME", "09:30")
	chdirTemp(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DatabaseURL != "data/bot.db" {
		t.Errorf("database url = %q", cfg.DatabaseURL)
	}
	if cfg.RemindInterval != 2*time.Minute {
		t.Errorf("remind interval = %v", cfg.RemindInterval)
	}
	if cfg.DailySummaryTime != "09:30" {
		t.Errorf("daily summary time = %q", cfg.DailySummaryTime)
	}
}

// chdirTemp keeps a stray local config.yaml out of the test's way.
func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
}
