package common

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"
)

func TestSetupGracefulShutdown(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	t.Run("Context is created", func(t *testing.T) {
		ctx, cancel := SetupGracefulShutdown(context.Background(), logger)
		defer cancel()

		select {
		case <-ctx.Done():
			t.Error("Context should not be cancelled immediately")
		default:
		}
	})

	t.Run("Cancel function works", func(t *testing.T) {
		ctx, cancel := SetupGracefulShutdown(context.Background(), logger)

		cancel()

		select {
		case <-ctx.Done():
		case <-time.After(100 * time.Millisecond):
			t.Error("Context was not cancelled after calling cancel()")
		}
	})

	t.Run("Parent cancellation propagates", func(t *testing.T) {
		parent, cancelParent := context.WithCancel(context.Background())
		ctx, cancel := SetupGracefulShutdown(parent, logger)
		defer cancel()

		cancelParent()

		select {
		case <-ctx.Done():
		case <-time.After(100 * time.Millisecond):
			t.Error("Context was not cancelled with its parent")
		}
	})

	t.Run("Signal cancels context", func(t *testing.T) {
		buf := &bytes.Buffer{}
		ctx, cancel := SetupGracefulShutdown(context.Background(), slog.New(slog.NewTextHandler(buf, nil)))
		defer cancel()

		go func() {
			time.Sleep(50 * time.Millisecond)
			p, _ := os.FindProcess(os.Getpid())
			_ = p.Signal(syscall.SIGTERM)
		}()

		select {
		case <-ctx.Done():
		case <-time.After(500 * time.Millisecond):
			t.Fatal("Context was not cancelled by signal")
		}
		// the log line is written before cancel
		if !strings.Contains(buf.String(), "signal=terminated") {
			t.Errorf("expected the signal to be logged, got %q", buf.String())
		}
	})
}
