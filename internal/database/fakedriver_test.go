package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"sync"
	"testing"
)

// fakeResult is what the fake driver answers to one query.
type fakeResult struct {
	columns []string
	rows    [][]driver.Value
	err     error
}

// fakeHandler answers a query. args are the bound parameter values.
type fakeHandler func(query string, args []driver.NamedValue) fakeResult

var (
	fakeMu       sync.Mutex
	fakeHandlers = map[string]fakeHandler{}
)

func init() {
	sql.Register("lmsfake", fakeDriver{})
}

// openFake returns a *sql.DB whose queries are answered by h.
func openFake(t *testing.T, h fakeHandler) *sql.DB {
	t.Helper()

	fakeMu.Lock()
	fakeHandlers[t.Name()] = h
	fakeMu.Unlock()

	db, err := sql.Open("lmsfake", t.Name())
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
		fakeMu.Lock()
		delete(fakeHandlers, t.Name())
		fakeMu.Unlock()
	})
	return db
}

type fakeDriver struct{}

func (fakeDriver) Open(name string) (driver.Conn, error) {
	fakeMu.Lock()
	h, ok := fakeHandlers[name]
	fakeMu.Unlock()
	if !ok {
		return nil, errors.New("fake driver: no handler for " + name)
	}
	return &fakeConn{handler: h}, nil
}

type fakeConn struct {
	handler fakeHandler
}

func (c *fakeConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("fake driver: prepare not supported")
}

func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) Begin() (driver.Tx, error) {
	return nil, errors.New("fake driver: transactions not supported")
}

func (c *fakeConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	res := c.handler(query, args)
	if res.err != nil {
		return nil, res.err
	}
	return &fakeRows{columns: res.columns, rows: res.rows}, nil
}

type fakeRows struct {
	columns []string
	rows    [][]driver.Value
	pos     int
}

func (r *fakeRows) Columns() []string { return r.columns }

func (r *fakeRows) Close() error { return nil }

func (r *fakeRows) Next(dest []driver.Value) error {
	if r.pos >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.pos])
	r.pos++
	return nil
}
