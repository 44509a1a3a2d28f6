package database

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
)

// ConnectionError means the store could not be reached or refused us:
// dial failure, TLS failure, bad credentials, connect timeout.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s: database connection: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// QueryError means the store answered but the query or its result was bad:
// SQL errors, rows that do not scan into the expected types, malformed
// reasons JSON.
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s: query: %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// classify wraps err in a ConnectionError or a QueryError. Errors that are
// already classified pass through.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var connErr *ConnectionError
	var queryErr *QueryError
	if errors.As(err, &connErr) || errors.As(err, &queryErr) {
		return err
	}

	var pgConnectErr *pgconn.ConnectError
	if errors.As(err, &pgConnectErr) {
		return &ConnectionError{Op: op, Err: err}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		class := ""
		if len(pgErr.Code) >= 2 {
			class = pgErr.Code[:2]
		}
		switch class {
		// 08 connection exception, 28 invalid authorization, 57 operator intervention
		case "08", "28", "57":
			return &ConnectionError{Op: op, Err: err}
		}
		return &QueryError{Op: op, Err: err}
	}

	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || pgconn.Timeout(err) || errors.As(err, &netErr) {
		return &ConnectionError{Op: op, Err: err}
	}

	return &QueryError{Op: op, Err: err}
}

// errKind is the metrics label for a classified error.
func errKind(err error) string {
	if err == nil {
		return ""
	}
	var connErr *ConnectionError
	if errors.As(err, &connErr) {
		return "connection"
	}
	return "query"
}
