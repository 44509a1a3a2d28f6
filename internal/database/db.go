// Package database reads borrowing reports out of PostgreSQL.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/abel123code/lms-analytics/internal/config"
)

// DSN builds a postgres:// URL from the individual settings. cfg.URL is
// returned unchanged when set.
func DSN(cfg config.DatabaseConfig) string {
	if cfg.URL != "" {
		return cfg.URL
	}

	q := url.Values{}
	q.Set("sslmode", cfg.SSLMode)
	if secs := int(cfg.ConnectTimeout.Seconds()); secs > 0 {
		q.Set("connect_timeout", strconv.Itoa(secs))
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.Name,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// Open returns a database/sql handle over the pgx driver. It does not dial.
//
// With MaxIdleConns at 0 no connection outlives the query that opened it, so
// each request pays for its own connect and nothing is shared between
// requests.
func Open(cfg config.DatabaseConfig) (*sql.DB, error) {
	connCfg, err := pgx.ParseConfig(DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	if connCfg.ConnectTimeout == 0 {
		connCfg.ConnectTimeout = cfg.ConnectTimeout
	}

	db := stdlib.OpenDB(*connCfg)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	return db, nil
}

// Ping dials once to check reachability and credentials.
func Ping(ctx context.Context, db *sql.DB) error {
	return classify("ping", db.PingContext(ctx))
}
