package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ceneo-opinions/internal/observability"
)

// GracefulShutdown returns a context cancelled on SIGINT/SIGTERM or when
// runTimeout elapses. A zero runTimeout waits for a signal only.
func GracefulShutdown(logger *observability.Logger, runTimeout time.Duration) (context.Context, context.CancelFunc) {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if runTimeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), runTimeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
