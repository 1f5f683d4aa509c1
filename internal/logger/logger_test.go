package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestMultiHandlerFansOutToEveryHandler(t *testing.T) {
	var bufA, bufB bytes.Buffer
	h := NewMultiHandler(
		slog.NewTextHandler(&bufA, nil),
		slog.NewJSONHandler(&bufB, nil),
	)

	logger := slog.New(h)
	logger.Info("pairing accepted", "deviceId", "dev-1")

	if !strings.Contains(bufA.String(), "pairing accepted") {
		t.Errorf("text handler missing record: %q", bufA.String())
	}
	if !strings.Contains(bufB.String(), `"deviceId":"dev-1"`) {
		t.Errorf("json handler missing attr: %q", bufB.String())
	}
}

func TestMultiHandlerEnabledIfAnyHandlerEnabled(t *testing.T) {
	h := NewMultiHandler(
		slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}),
		slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected Enabled to be true when any handler accepts the level")
	}
}
