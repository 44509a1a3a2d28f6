package main

import (
	"context"
	"net/http"

	"github.com/abel123code/lms-analytics/internal/cache"
	"github.com/abel123code/lms-analytics/internal/config"
	"github.com/abel123code/lms-analytics/internal/database"
)

// reportStore is what the handlers need from the database
type reportStore interface {
	TopBooks(ctx context.Context) ([]database.TopBook, error)
	UserItems(ctx context.Context, userID int64) ([]int64, error)
	Recommendations(ctx context.Context, userID int64) ([]database.Recommendation, error)
	BorrowingsTrend(ctx context.Context, days int) ([]database.TrendPoint, error)
	TopCategories(ctx context.Context) ([]database.CategoryCount, error)
	OverdueStats(ctx context.Context) (database.OverdueStats, error)
}

// api represents the API server with its store and response cache
type api struct {
	addr     string
	store    reportStore
	cache    *cache.Cache
	security config.SecurityConfig
	// metrics toggles the /metrics route
	metrics bool
}

// errorResponse is the body of every non-2xx response
type errorResponse struct {
	Error string `json:"error"`
}

// serviceInfo is what GET / returns
type serviceInfo struct {
	Service   string   `json:"service"`
	Endpoints []string `json:"endpoints"`
}

// statusRecorder wraps http.ResponseWriter to capture status codes for logging
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}
