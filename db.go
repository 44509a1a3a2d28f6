package main

import (
	"context"
	"database/sql"
	"time"

	"github.com/abel123code/lms-analytics/internal/config"
	"github.com/abel123code/lms-analytics/internal/database"
	"github.com/abel123code/lms-analytics/internal/logging"
)

// openDB opens the borrowing store. An unreachable database is only logged:
// every request dials on its own, so the service can come up before the
// database does.
func openDB(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout+time.Second)
	defer cancel()

	if err := database.Ping(ctx, db); err != nil {
		logging.Warn().Err(err).Str("host", cfg.Host).Msg("database not reachable at startup")
	} else {
		logging.Info().Str("host", cfg.Host).Str("sslmode", cfg.SSLMode).Msg("database reachable")
	}

	return db, nil
}
