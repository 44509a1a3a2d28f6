package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/abel123code/lms-analytics/internal/database"
	"github.com/abel123code/lms-analytics/internal/logging"
)

const (
	defaultTrendDays = 30
	maxTrendDays     = 3650
)

var endpoints = []string{
	"/health",
	"/top-books",
	"/recs?user_id=",
	"/borrowings-trend?days=30",
	"/top-categories",
	"/overdue-stats",
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeStoreError turns a database failure into a 5xx. It never answers
// with an empty success.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := http.StatusInternalServerError, "query failed"

	var connErr *database.ConnectionError
	if errors.As(err, &connErr) {
		status, msg = http.StatusServiceUnavailable, "database unavailable"
	}

	logging.Ctx(r.Context()).Error().Err(err).Int("status", status).Str("path", r.URL.Path).Msg("report failed")
	writeError(w, status, msg)
}

func (a *api) rootHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, serviceInfo{
		Service:   "LMS Emerging-Tech API",
		Endpoints: endpoints,
	})
}

func (a *api) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (a *api) topBooksHandler(w http.ResponseWriter, r *http.Request) {
	books, err := cachedReport(r.Context(), a, "top-books", "top-books", topBooksTTL, a.store.TopBooks)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, books)
}

// recsHandler serves collaborative recommendations for one user. A user with
// no borrowing history gets an empty list that is not cached, so their first
// borrowing shows up on the next call.
func (a *api) recsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserID(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := fmt.Sprintf("recs:%d", userID)
	if recs, ok := getFromCache[[]database.Recommendation](a, "recs", key, recsTTL); ok {
		writeJSON(w, http.StatusOK, recs)
		return
	}

	items, err := a.store.UserItems(r.Context(), userID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if len(items) == 0 {
		writeJSON(w, http.StatusOK, []database.Recommendation{})
		return
	}

	recs, err := a.store.Recommendations(r.Context(), userID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	a.setCache(key, recs)
	writeJSON(w, http.StatusOK, recs)
}

func (a *api) borrowingsTrendHandler(w http.ResponseWriter, r *http.Request) {
	days := parseDays(r.URL.Query())
	key := fmt.Sprintf("borrowings-trend:%d", days)
	trend, err := cachedReport(r.Context(), a, "borrowings-trend", key, trendTTL,
		func(ctx context.Context) ([]database.TrendPoint, error) {
			return a.store.BorrowingsTrend(ctx, days)
		})
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trend)
}

func (a *api) topCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	cats, err := cachedReport(r.Context(), a, "top-categories", "top-categories", topCategoriesTTL, a.store.TopCategories)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (a *api) overdueStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := cachedReport(r.Context(), a, "overdue-stats", "overdue-stats", overdueStatsTTL, a.store.OverdueStats)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *api) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "not found")
}

func (a *api) methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// parseUserID reads the required, positive user_id parameter
func parseUserID(q url.Values) (int64, error) {
	raw := q.Get("user_id")
	if raw == "" {
		return 0, errors.New("user_id is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("user_id must be a positive integer")
	}
	return id, nil
}

// parseDays reads the optional days parameter. Anything that is not an
// integer means defaultTrendDays. The result is clamped to
// [0, maxTrendDays]; a window of zero days is an empty trend.
func parseDays(q url.Values) int {
	days, err := strconv.Atoi(q.Get("days"))
	if err != nil {
		return defaultTrendDays
	}
	return max(0, min(days, maxTrendDays))
}
