package telemetry

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// DiagServer exposes /healthz and /metrics on a local port while the TUI
// runs in the foreground.
type DiagServer struct {
	srv     *http.Server
	logger  *slog.Logger
	wg      sync.WaitGroup
	healthy func() bool
}

func NewDiagServer(bind string, metrics http.Handler, healthy func() bool, logger *slog.Logger) *DiagServer {
	d := &DiagServer{logger: logger, healthy: healthy}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", d.handleHealth)
	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}
	d.srv = &http.Server{
		Addr:              bind,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return d
}

func (d *DiagServer) Start() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			d.logger.Error("diag server failed", slog.String("error", err.Error()))
		}
	}()
	d.logger.Info("diag server started", slog.String("addr", d.srv.Addr))
}

func (d *DiagServer) Shutdown(ctx context.Context) {
	if err := d.srv.Shutdown(ctx); err != nil {
		d.logger.Error("diag server shutdown error", slog.String("error", err.Error()))
	}
	d.wg.Wait()
}

func (d *DiagServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if d.healthy == nil || d.healthy() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("unhealthy"))
}
