package cli

import (
	"context"
	"log/slog"
	"testing"

	"subtrack/internal/config"
	applog "subtrack/internal/log"
)

func TestSetupLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	cfg := &config.Config{LogLevel: "debug", LogFormat: "json"}
	logger := SetupLogger(cfg, applog.ComponentWorker)

	if got := logger.Component(); got != applog.ComponentWorker {
		t.Fatalf("component = %q, want %q", got, applog.ComponentWorker)
	}
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected debug level to be enabled")
	}
}

func TestMustValidate_AllPass(t *testing.T) {
	calls := 0
	check := func() error {
		calls++
		return nil
	}
	MustValidate(applog.New(applog.DefaultConfig()), check, check)
	if calls != 2 {
		t.Fatalf("expected both checks to run, got %d", calls)
	}
}
