package shutdown

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

func CreateGracefulShutdownChannel() chan os.Signal {
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	return gracefulShutdown
}

// ListenForShutdown blocks until a signal arrives on notify or a value arrives
// on done, runs cleanup and waits up to timeout for it to finish.
func ListenForShutdown(notify chan os.Signal, done chan bool, cleanup func(), timeout time.Duration, l *zap.Logger) {
	select {
	case sig := <-notify:
		l.Sugar().Infow("Received shutdown signal", zap.String("signal", sig.String()))
	case <-done:
		l.Sugar().Info("Shutdown requested")
	}

	finished := make(chan struct{})
	go func() {
		cleanup()
		close(finished)
	}()

	select {
	case <-finished:
		l.Sugar().Info("Shutdown complete")
	case <-time.After(timeout):
		l.Sugar().Warnw("Shutdown timed out", zap.Duration("timeout", timeout))
	}
}
