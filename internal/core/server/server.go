package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammed-shakir/digipin-grid/internal/core/config"
	"github.com/mohammed-shakir/digipin-grid/internal/core/health"
	"github.com/mohammed-shakir/digipin-grid/internal/core/middleware"
	"github.com/mohammed-shakir/digipin-grid/internal/core/router"
)

// Deps are the parts the HTTP surface needs. Store and Ingest may be nil.
type Deps struct {
	API     *router.API
	Store   health.Pinger
	Ingest  health.ReadinessReporter
	Metrics http.Handler
}

// Handler builds the full route tree.
func Handler(cfg config.Config, logger *slog.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS())

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(deps.Store, deps.Ingest, cfg.CacheOpTimeout*4))

	mh := deps.Metrics
	if mh == nil {
		mh = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", mh)

	if deps.API != nil {
		deps.API.Mount(r)
	}
	return r
}

// Run serves until ctx ends, then shuts down gracefully.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger, deps Deps) error {
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return err
	}
	return Serve(ctx, ln, cfg, logger, deps)
}

func Serve(ctx context.Context, ln net.Listener, cfg config.Config, logger *slog.Logger, deps Deps) error {
	srv := &http.Server{
		Handler:           Handler(cfg, logger, deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", ln.Addr().String())
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
