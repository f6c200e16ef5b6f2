package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RecordConversion records one conversion from one format to another.
func RecordConversion(from, to string, shapes int, duration time.Duration, err error) {
	if err != nil {
		ConversionsTotal.WithLabelValues(from, to, OutcomeFailed).Inc()
		return
	}
	ConversionsTotal.WithLabelValues(from, to, OutcomeConverted).Inc()
	ConversionDuration.WithLabelValues(to).Observe(duration.Seconds())
	ShapesTransferredTotal.WithLabelValues(to).Add(float64(shapes))
}

// RecordWatchEvent records a debounced change of the given kind.
func RecordWatchEvent(kind string) {
	WatchEventsTotal.WithLabelValues(kind).Inc()
}

// RecordSkip records a file skipped as unchanged.
func RecordSkip() {
	WatchSkippedTotal.Inc()
}

// SetWatchDirectories sets the number of watched directories.
func SetWatchDirectories(n int) {
	WatchDirectories.Set(float64(n))
}

// SetBuildInfo publishes the running version.
func SetBuildInfo(version, goVersion string) {
	BuildInfo.Reset()
	BuildInfo.WithLabelValues(version, goVersion).Set(1)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes Handler on addr under /metrics until ctx is done. The
// listener is bound before Serve returns its first error, so a bad address
// fails immediately.
func Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s; %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	logger.Info("serving metrics", "addr", ln.Addr().String())

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to stop metrics server; %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server failed; %w", err)
	}
}
