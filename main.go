package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abel123code/lms-analytics/internal/cache"
	"github.com/abel123code/lms-analytics/internal/config"
	"github.com/abel123code/lms-analytics/internal/database"
	"github.com/abel123code/lms-analytics/internal/logging"
)

func route(api *api) http.Handler {
	r := chi.NewRouter()

	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware)
	r.Use(recoverMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{api.security.CORSOrigin},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", apiKeyHeader, "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         86400,
	}))
	if api.security.RateLimitRequests > 0 {
		r.Use(httprate.LimitByIP(api.security.RateLimitRequests, api.security.RateLimitWindow))
	}
	r.Use(metricsMiddleware)

	r.NotFound(api.notFoundHandler)
	r.MethodNotAllowed(api.methodNotAllowedHandler)

	// Always reachable, API key or not.
	r.Get("/", api.rootHandler)
	r.Get("/health", api.healthHandler)
	if api.metrics {
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(api.apiKeyMiddleware)

		r.Get("/top-books", api.topBooksHandler)
		r.Get("/recs", api.recsHandler)
		r.Get("/borrowings-trend", api.borrowingsTrendHandler)
		r.Get("/top-categories", api.topCategoriesHandler)
		r.Get("/overdue-stats", api.overdueStatsHandler)
	})

	return r
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	db, err := openDB(cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	if !cfg.Security.GuardEnabled() {
		logging.Warn().Msg("API_KEY is not set: report endpoints are open")
	}

	api := &api{
		addr:     cfg.Server.Addr,
		store:    database.New(db),
		cache:    cache.New(cache.SystemClock{}),
		security: cfg.Security,
		metrics:  cfg.Metrics.Enabled,
	}

	srv := &http.Server{
		Addr:              api.addr,
		Handler:           route(api),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Error().Err(err).Msg("graceful shutdown failed")
		}
	}()

	logging.Info().Str("addr", api.addr).Msg("listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Fatal().Err(err).Msg("server failed")
	}
	logging.Info().Msg("server stopped")
}
