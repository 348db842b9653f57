package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/perales/rite/internal/ceremony"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "rite.db" {
		t.Errorf("expected default db path rite.db, got %q", cfg.DBPath)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level info, got %q", cfg.LogLevel)
	}
	if cfg.ShortSession != 2*time.Minute {
		t.Errorf("expected default short session 2m, got %s", cfg.ShortSession)
	}
	if cfg.LongSession != 30*time.Minute {
		t.Errorf("expected default long session 30m, got %s", cfg.LongSession)
	}
	if cfg.RefetchInterval != 3*time.Second {
		t.Errorf("expected default refetch interval 3s, got %s", cfg.RefetchInterval)
	}
	if cfg.SubmitTries != 3 {
		t.Errorf("expected default submit tries 3, got %d", cfg.SubmitTries)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("RITE_DB_PATH", "/var/lib/rite/state.db")
	t.Setenv("RITE_LOG_LEVEL", "debug")
	t.Setenv("RITE_SHORT_SESSION", "90s")
	t.Setenv("RITE_LONG_SESSION", "45m")
	t.Setenv("RITE_REFETCH_INTERVAL", "500ms")
	t.Setenv("RITE_SUBMIT_TRIES", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "/var/lib/rite/state.db" {
		t.Errorf("db path not taken from env: %q", cfg.DBPath)
	}
	if cfg.ShortSession != 90*time.Second {
		t.Errorf("short session not taken from env: %s", cfg.ShortSession)
	}
	if cfg.LongSession != 45*time.Minute {
		t.Errorf("long session not taken from env: %s", cfg.LongSession)
	}
	if cfg.RefetchInterval != 500*time.Millisecond {
		t.Errorf("refetch interval not taken from env: %s", cfg.RefetchInterval)
	}
	if cfg.SubmitTries != 5 {
		t.Errorf("submit tries not taken from env: %d", cfg.SubmitTries)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("RITE_SHORT_SESSION", "not-a-duration")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestLoadRejectsZeroTries(t *testing.T) {
	t.Setenv("RITE_SUBMIT_TRIES", "0")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for zero submit tries")
	}
}

func TestLoadRejectsNegativeDuration(t *testing.T) {
	t.Setenv("RITE_REFETCH_INTERVAL", "-1s")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for negative refetch interval")
	}
}

func TestLoadRejectsUnknownLogLevel(t *testing.T) {
	t.Setenv("RITE_LOG_LEVEL", "loud")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown log level")
	}
}

func TestLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"INFO", slog.LevelInfo},
		{"Debug", slog.LevelDebug},
	}
	for _, tc := range cases {
		got, err := Config{LogLevel: tc.in}.Level()
		if err != nil {
			t.Errorf("Level(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Level(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}

	if _, err := (Config{LogLevel: "loud"}).Level(); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestSessionLength(t *testing.T) {
	cfg := Config{ShortSession: 2 * time.Minute, LongSession: 30 * time.Minute}

	if d, ok := cfg.SessionLength(ceremony.PeriodShortSession); !ok || d != 2*time.Minute {
		t.Errorf("short session length = %s, %v", d, ok)
	}
	if d, ok := cfg.SessionLength(ceremony.PeriodLongSession); !ok || d != 30*time.Minute {
		t.Errorf("long session length = %s, %v", d, ok)
	}
	for _, p := range []ceremony.Period{ceremony.PeriodNone, ceremony.PeriodFlipLottery, ceremony.PeriodAfterLongSession} {
		if _, ok := cfg.SessionLength(p); ok {
			t.Errorf("period %s should carry no session length", p)
		}
	}
}
