// Package common holds process plumbing shared by the mongokit commands.
package common

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// SetupGracefulShutdown returns a context derived from parent that is
// cancelled on SIGINT or SIGTERM, abandoning the database call in flight.
// The returned function stops the signal relay and must be deferred.
func SetupGracefulShutdown(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigc:
			logger.Warn("Received signal, abandoning command", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigc)
		cancel()
	}
}
