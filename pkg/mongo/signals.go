package mongo

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrymomot/coursekit/pkg/logger"
)

// ListenForSignals routes SIGINT and SIGTERM to HandleTermination. The returned
// function stops listening; it is also stopped when ctx is done.
func (m *Manager) ListenForSignals(ctx context.Context) (stop func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	var once sync.Once
	stop = func() {
		once.Do(func() {
			signal.Stop(sigCh)
			close(done)
		})
	}

	go func() {
		defer stop()
		select {
		case sig := <-sigCh:
			m.log.InfoContext(ctx, "termination signal received", logger.Signal(sig))
			// The close must run to completion, so it does not inherit ctx cancellation.
			_ = m.HandleTermination(context.WithoutCancel(ctx))
		case <-ctx.Done():
		case <-done:
		}
	}()

	return stop
}
