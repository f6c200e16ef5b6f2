package config

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// reloadMu prevents concurrent reload attempts
var reloadMu sync.Mutex

// ReloadOnSignal reloads the configuration on every SIGHUP until ctx is
// done. A SIGHUP that arrives during a reload is ignored. The returned
// channel is closed once the handler goroutine has exited.
func ReloadOnSignal(ctx context.Context) <-chan struct{} {
	sigs := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(sigs, syscall.SIGHUP)

	go func() {
		defer close(done)
		defer signal.Stop(sigs)
		for {
			select {
			case <-sigs:
				if !reloadMu.TryLock() {
					slog.Debug("SIGHUP received during reload; ignoring")
					continue
				}
				slog.Info("received SIGHUP; reloading config")
				_ = Reload() // logged by Reload; previous values retained on failure
				reloadMu.Unlock()
			case <-ctx.Done():
				return
			}
		}
	}()
	return done
}
