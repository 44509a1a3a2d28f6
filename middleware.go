// middleware.go contains middleware for request ID, logging, recovery, the API key check and metrics.
package main

import (
	"crypto/subtle"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/abel123code/lms-analytics/internal/logging"
	"github.com/abel123code/lms-analytics/internal/metrics"
)

// apiKeyHeader carries the shared secret
const apiKeyHeader = "X-API-KEY"

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get("X-Request-ID")
		if rid == "" {
			rid = uuid.NewString()
		}

		// logging.Ctx picks it up from here.
		r = r.WithContext(logging.ContextWithRequestID(r.Context(), rid))

		w.Header().Set("X-Request-ID", rid)

		next.ServeHTTP(w, r)
	})
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.wroteHeader = true
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	sr.wroteHeader = true
	return sr.ResponseWriter.Write(b)
}

// loggingMiddleware logs the request and response.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		sr := &statusRecorder{
			ResponseWriter: w,
			status:         http.StatusOK, // default if handler never calls WriteHeader
		}

		next.ServeHTTP(sr, r)

		logging.Ctx(r.Context()).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sr.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// recoverMiddleware recovers from panics and logs the panic. The 500 is only
// written when the handler had not started its response.
func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logging.Ctx(r.Context()).Error().
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Msg("panic recovered")

				if !sr.wroteHeader {
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}
		}()

		next.ServeHTTP(sr, r)
	})
}

// authorized reports whether header matches secret. An empty secret lets
// everything through.
func authorized(secret, header string) bool {
	if secret == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(header)) == 1
}

// apiKeyMiddleware rejects requests without the configured X-API-KEY before
// any cache lookup or query happens.
func (a *api) apiKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !authorized(a.security.APIKey, r.Header.Get(apiKeyHeader)) {
			logging.Ctx(r.Context()).Warn().Str("path", r.URL.Path).Msg("rejected request with bad API key")
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// metricsMiddleware records request count and latency per chi route pattern.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sr, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		metrics.RecordAPIRequest(r.Method, route, strconv.Itoa(sr.status), time.Since(start))
	})
}
