package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/joseph-ayodele/docrows/internal/eventlog"
)

// NewHandler routes /metrics, /healthz and, when log is non-nil, /events which returns
// the event log entries as JSON.
func NewHandler(rec *Recorder, log *eventlog.Log) http.Handler {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/metrics", rec.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	})
	if log != nil {
		r.Get("/events", func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := json.NewEncoder(w).Encode(log.Entries()); err != nil {
				slog.Warn("metrics.events.encode_failed", "error", err)
			}
		})
	}
	return r
}

// Serve runs h on addr until ctx is done, then shuts the server down.
func Serve(ctx context.Context, addr string, h http.Handler, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics.server.start", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info("metrics.server.stop", "addr", addr)
		return srv.Shutdown(shutdownCtx)
	}
}
