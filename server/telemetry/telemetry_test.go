package telemetry

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/metric/noop"

	"tankarena/server/domain"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"Error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn", nil)

	logger.Info("hidden")
	logger.Warn("shown", "roomID", "default")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record written at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "roomID=default") {
		t.Errorf("output = %q, want warn record with roomID", out)
	}
}

func TestMultiHandler_FanOut(t *testing.T) {
	var a, b bytes.Buffer
	h := NewMultiHandler(
		slog.NewTextHandler(&a, &slog.HandlerOptions{Level: slog.LevelDebug}),
		nil,
		slog.NewTextHandler(&b, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	logger := slog.New(h).With("sessionID", "s1").WithGroup("tick")

	logger.Debug("step", "n", 1)
	logger.Error("violation", "n", 2)

	if got := strings.Count(a.String(), "\n"); got != 2 {
		t.Errorf("debug handler lines = %d, want 2: %q", got, a.String())
	}
	if got := strings.Count(b.String(), "\n"); got != 1 {
		t.Errorf("error handler lines = %d, want 1: %q", got, b.String())
	}
	if !strings.Contains(b.String(), "sessionID=s1") || !strings.Contains(b.String(), "tick.n=2") {
		t.Errorf("error handler output = %q, want attrs and group", b.String())
	}
	if h.Enabled(context.Background(), slog.LevelDebug-1) {
		t.Error("Enabled(below debug) = true, want false")
	}
}

func TestProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	p, err := New(ctx, Config{ServiceName: "tankarena"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if p.Enabled() || p.LoggerProvider() != nil {
		t.Error("provider without endpoint is enabled")
	}
	if err := p.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestMetrics_Record(t *testing.T) {
	m, err := NewMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}
	ctx := context.Background()

	m.RecordTick(ctx, "default", 2*time.Millisecond, 4, 10)
	m.RecordIntent(ctx, domain.IntentAccepted)
	m.RecordInvariantViolation(ctx, "default")
	m.RecordRooms(ctx, 1)
	m.RecordSessions(ctx, -1)
}

func TestNewMetrics_GlobalMeter(t *testing.T) {
	if _, err := NewMetrics(nil); err != nil {
		t.Fatalf("NewMetrics(nil) error = %v", err)
	}
}
