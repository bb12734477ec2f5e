package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromShippedFiles(t *testing.T) {
	for _, key := range []string{"DB_DRIVER", "DB_PATH", "REMINDER_CRON", "SERVER_PORT"} {
		t.Setenv(key, "")
	}

	cfg, err := LoadFrom("local", ".")
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if !cfg.DB.IsSQLite() || cfg.DB.Path != "data/todo.db" {
		t.Fatalf("db = %+v, want local sqlite overlay", cfg.DB)
	}
	r := cfg.Reminder
	if r.Cron != "* * * * *" || r.ScanTimeout != 50*time.Second || r.LockTTL != 5*time.Minute {
		t.Fatalf("reminder = %+v", r)
	}
	if r.OverdueStateTTL != 7*24*time.Hour || r.SettingTTL != 365*24*time.Hour {
		t.Fatalf("reminder TTLs = %v / %v", r.OverdueStateTTL, r.SettingTTL)
	}
	if cfg.Server.Port != ":8085" {
		t.Fatalf("port = %q", cfg.Server.Port)
	}
}

func TestLoadFromDefaultsAndEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "base.yaml"), []byte("redis:\n  addr: cache:6379\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"DB_DRIVER", "DB_PATH", "SERVER_PORT", "REDIS_ADDR"} {
		t.Setenv(key, "")
	}
	t.Setenv("REMINDER_CRON", "*/5 * * * *")

	cfg, err := LoadFrom("", dir)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Redis.Addr != "cache:6379" {
		t.Fatalf("redis addr = %q", cfg.Redis.Addr)
	}
	if cfg.Reminder.Cron != "*/5 * * * *" {
		t.Fatalf("cron = %q, want env override", cfg.Reminder.Cron)
	}
	if cfg.DB.Driver != "postgres" || cfg.Server.Port != ":8085" {
		t.Fatalf("defaults not applied: driver %q port %q", cfg.DB.Driver, cfg.Server.Port)
	}
	if cfg.HTTP.PollRatePerSec != 5 || cfg.HTTP.PollBurst != 10 {
		t.Fatalf("http = %+v", cfg.HTTP)
	}
	if cfg.Reminder.ScanTimeout != 50*time.Second {
		t.Fatalf("scan timeout = %v", cfg.Reminder.ScanTimeout)
	}
}
