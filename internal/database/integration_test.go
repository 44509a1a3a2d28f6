//go:build integration

package database

import (
	"context"
	"database/sql"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/abel123code/lms-analytics/internal/config"
)

const testSchema = `
CREATE TABLE items (
  id       BIGINT PRIMARY KEY,
  name     TEXT NOT NULL,
  category TEXT
);
CREATE TABLE borrowings (
  id            BIGSERIAL PRIMARY KEY,
  item_id       BIGINT NOT NULL REFERENCES items(id),
  user_id       BIGINT NOT NULL,
  approval_date TIMESTAMPTZ,
  due_date      TIMESTAMPTZ,
  return_date   TIMESTAMPTZ
);`

func skipIfNoDocker(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if exec.CommandContext(ctx, "docker", "info").Run() != nil {
		t.Skip("Skipping test: Docker not available")
	}
}

// startPostgres runs a throwaway PostgreSQL and returns a handle opened the
// same way the service opens it.
func startPostgres(t *testing.T) *sql.DB {
	t.Helper()
	skipIfNoDocker(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "lms",
				"POSTGRES_PASSWORD": "lms",
				"POSTGRES_DB":       "lms",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	db, err := Open(config.DatabaseConfig{
		Host:           host,
		Port:           port.Int(),
		Name:           "lms",
		User:           "lms",
		Password:       "lms",
		SSLMode:        "disable",
		ConnectTimeout: 10 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Ping(ctx, db))
	_, err = db.ExecContext(ctx, testSchema)
	require.NoError(t, err)
	return db
}

func TestIntegrationReports(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, `
INSERT INTO items (id, name, category) VALUES
  (1, 'A', 'Robotics'),
  (2, 'B', '  '),
  (3, 'C', NULL),
  (4, 'D', '');
INSERT INTO borrowings (item_id, user_id, approval_date, due_date, return_date) VALUES
  (1, 1, NOW() - INTERVAL '2 days', NOW() - INTERVAL '1 day', NULL),
  (2, 1, NOW() - INTERVAL '2 days', NOW() + INTERVAL '5 days', NULL),
  (1, 2, NOW() - INTERVAL '1 day', NOW() + INTERVAL '5 days', NOW()),
  (3, 2, NULL, NOW() + INTERVAL '5 days', NULL);`)
	require.NoError(t, err)

	q := New(db)

	t.Run("recommendations", func(t *testing.T) {
		recs, err := q.Recommendations(ctx, 1)
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, int64(3), recs[0].ID)
		assert.Equal(t, "C", recs[0].Name)
		assert.Equal(t, int64(1), recs[0].Score)
		assert.Equal(t, []Reason{{ItemID: 1, Title: "A", Count: 1}}, recs[0].Reasons)
		assert.Equal(t, []string{"A"}, recs[0].Because)
	})

	t.Run("user without history", func(t *testing.T) {
		items, err := q.UserItems(ctx, 99)
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("top books", func(t *testing.T) {
		books, err := q.TopBooks(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, books)
		assert.Equal(t, TopBook{ID: 1, Name: "A", BorrowCount: 2}, books[0])
	})

	t.Run("categories", func(t *testing.T) {
		cats, err := q.TopCategories(ctx)
		require.NoError(t, err)
		assert.Equal(t, []CategoryCount{
			{Category: "Robotics", Count: 2},
			{Category: "Uncategorised", Count: 2},
		}, cats)
	})

	t.Run("trend skips null approval dates", func(t *testing.T) {
		trend, err := q.BorrowingsTrend(ctx, 30)
		require.NoError(t, err)
		var total int64
		for _, p := range trend {
			assert.Len(t, p.Day, len("2006-01-02"))
			total += p.Count
		}
		assert.Equal(t, int64(3), total)
	})

	t.Run("overdue", func(t *testing.T) {
		stats, err := q.OverdueStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, OverdueStats{OverdueNow: 1, BorrowedNow: 3, ReturnedThisMonth: 1}, stats)
	})
}

func TestIntegrationOverdueStatsEmptyStore(t *testing.T) {
	db := startPostgres(t)

	stats, err := New(db).OverdueStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OverdueStats{}, stats)
}

func TestIntegrationConnectionError(t *testing.T) {
	db, err := Open(config.DatabaseConfig{
		Host:           "127.0.0.1",
		Port:           1,
		Name:           "lms",
		User:           "lms",
		SSLMode:        "disable",
		ConnectTimeout: 2 * time.Second,
	})
	require.NoError(t, err)
	defer db.Close()

	_, err = New(db).TopBooks(context.Background())
	var ce *ConnectionError
	assert.ErrorAs(t, err, &ce)
}
