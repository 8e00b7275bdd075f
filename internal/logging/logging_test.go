package logging

import (
	"context"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestEventContext(t *testing.T) {
	AddToEvent(context.Background(), slog.String("ignored", "x"))

	ctx, event := NewEventContext(context.Background())
	AddToEvent(ctx, slog.String("post_id", "p1"), slog.Int64("user_id", 7))

	if EventFromContext(ctx) != event {
		t.Fatal("expected event stored in context")
	}
	if got := len(event.Attrs()); got != 2 {
		t.Errorf("expected 2 attrs, got %d", got)
	}
}
