package logger

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDerivedHandlerDoesNotBlock(t *testing.T) {
	dir := t.TempDir()
	h := NewAsyncHandler(dir, slog.LevelDebug)

	derived := h.WithAttrs([]slog.Attr{slog.String("userId", "u1")})
	rec := slog.NewRecord(time.Now(), slog.LevelInfo, "session opened", 0)

	done := make(chan struct{})
	go func() {
		_ = derived.Handle(context.Background(), rec)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Handle on a derived handler blocked")
	}

	if err := h.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, time.Now().Format("2006-01-02")+".log"))
	if err != nil {
		t.Fatalf("Expected log file to exist, got %v", err)
	}
	if !strings.Contains(string(data), "session opened") {
		t.Errorf("Expected log file to contain the message, got:\n%s", data)
	}
	if !strings.Contains(string(data), "userId=u1") {
		t.Errorf("Expected log file to carry the derived attribute, got:\n%s", data)
	}
}
