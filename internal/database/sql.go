package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/abel123code/lms-analytics/internal/metrics"
)

// DBTX is the subset of *sql.DB the queries need.
type DBTX interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Queries runs the report queries.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

const queryTopBooks = `
SELECT i.id, i.name, COUNT(b.id) AS borrow_count
FROM borrowings b
JOIN items i ON i.id = b.item_id
GROUP BY i.id, i.name
ORDER BY borrow_count DESC, i.id ASC
LIMIT 5`

const queryUserItems = `
SELECT DISTINCT b.item_id
FROM borrowings b
WHERE b.user_id = $1
ORDER BY b.item_id`

// queryRecommendations pairs every borrowing of one of the user's items with
// every other item borrowed by the same person, over the whole borrowings
// table. Equal scores fall back to the lower item id, equal reason counts to
// the lower reason item id.
const queryRecommendations = `
WITH user_items AS (
  SELECT DISTINCT b.item_id FROM borrowings b WHERE b.user_id = $1
),
co AS (
  SELECT b2.item_id AS rec_item, b1.item_id AS reason_item, COUNT(*) AS co_count
  FROM borrowings b1
  JOIN borrowings b2
    ON b1.user_id = b2.user_id
   AND b1.item_id <> b2.item_id
  WHERE b1.item_id IN (SELECT item_id FROM user_items)
  GROUP BY rec_item, reason_item
),
scores AS (
  SELECT rec_item, SUM(co_count) AS score
  FROM co
  GROUP BY rec_item
),
filtered AS (
  SELECT s.rec_item, s.score
  FROM scores s
  WHERE s.rec_item NOT IN (SELECT item_id FROM user_items)
  ORDER BY s.score DESC, s.rec_item ASC
  LIMIT 10
)
SELECT f.rec_item AS id,
       i.name AS name,
       f.score::bigint AS score,
       json_agg(
         json_build_object('item_id', c.reason_item, 'title', i2.name, 'count', c.co_count)
         ORDER BY c.co_count DESC, c.reason_item ASC
       ) AS reasons
FROM filtered f
JOIN co c ON c.rec_item = f.rec_item
JOIN items i ON i.id = f.rec_item
JOIN items i2 ON i2.id = c.reason_item
GROUP BY f.rec_item, i.name, f.score
ORDER BY f.score DESC, f.rec_item ASC
LIMIT 5`

const queryBorrowingsTrend = `
SELECT date_trunc('day', approval_date)::date AS day,
       COUNT(*) AS count
FROM borrowings
WHERE approval_date IS NOT NULL
  AND approval_date >= NOW() - make_interval(days => $1)
GROUP BY 1
ORDER BY 1 ASC`

const queryTopCategories = `
SELECT COALESCE(NULLIF(TRIM(i.category), ''), 'Uncategorised') AS category,
       COUNT(b.id) AS count
FROM borrowings b
JOIN items i ON i.id = b.item_id
GROUP BY 1
ORDER BY count DESC, category ASC
LIMIT 6`

const queryOverdueStats = `
SELECT
  COALESCE(SUM(CASE WHEN b.return_date IS NULL AND b.due_date < NOW() THEN 1 ELSE 0 END), 0)::bigint AS overdue_now,
  COALESCE(SUM(CASE WHEN b.return_date IS NULL THEN 1 ELSE 0 END), 0)::bigint AS borrowed_now,
  COALESCE(SUM(CASE WHEN b.return_date >= date_trunc('month', NOW()) THEN 1 ELSE 0 END), 0)::bigint AS returned_this_month
FROM borrowings b`

// collect runs stmt and scans every row with scan. The returned slice is
// never nil. Errors come back classified.
func collect[T any](ctx context.Context, db DBTX, op, stmt string, scan func(*sql.Rows) (T, error), args ...any) ([]T, error) {
	start := time.Now()
	items, err := func() ([]T, error) {
		rows, err := db.QueryContext(ctx, stmt, args...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		items := make([]T, 0)
		for rows.Next() {
			item, err := scan(rows)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return items, nil
	}()

	err = classify(op, err)
	metrics.RecordDBQuery(op, time.Since(start), errKind(err))
	return items, err
}

// TopBooks lists the five most borrowed items
func (q *Queries) TopBooks(ctx context.Context) ([]TopBook, error) {
	return collect(ctx, q.db, "top_books", queryTopBooks, func(rows *sql.Rows) (TopBook, error) {
		var b TopBook
		err := rows.Scan(&b.ID, &b.Name, &b.BorrowCount)
		return b, err
	})
}

// UserItems lists the distinct items a user has ever borrowed
func (q *Queries) UserItems(ctx context.Context, userID int64) ([]int64, error) {
	return collect(ctx, q.db, "user_items", queryUserItems, func(rows *sql.Rows) (int64, error) {
		var id int64
		err := rows.Scan(&id)
		return id, err
	}, userID)
}

// Recommendations returns up to five items co-borrowed with the user's
// items, each with its reasons and the top two reason titles.
func (q *Queries) Recommendations(ctx context.Context, userID int64) ([]Recommendation, error) {
	recs, err := collect(ctx, q.db, "recommendations", queryRecommendations, func(rows *sql.Rows) (Recommendation, error) {
		var (
			r   Recommendation
			raw any
		)
		if err := rows.Scan(&r.ID, &r.Name, &r.Score, &raw); err != nil {
			return r, err
		}
		reasons, err := decodeReasons(raw)
		if err != nil {
			return r, err
		}
		r.Reasons = reasons
		return r, nil
	}, userID)
	if err != nil {
		return nil, err
	}
	return shapeRecommendations(recs), nil
}

// BorrowingsTrend counts borrowings per approval day over the last days days.
func (q *Queries) BorrowingsTrend(ctx context.Context, days int) ([]TrendPoint, error) {
	return collect(ctx, q.db, "borrowings_trend", queryBorrowingsTrend, func(rows *sql.Rows) (TrendPoint, error) {
		var (
			p   TrendPoint
			day time.Time
		)
		if err := rows.Scan(&day, &p.Count); err != nil {
			return p, err
		}
		p.Day = day.Format(time.DateOnly)
		return p, nil
	}, days)
}

// TopCategories counts borrowings per category, blanks folded into
// "Uncategorised".
func (q *Queries) TopCategories(ctx context.Context) ([]CategoryCount, error) {
	return collect(ctx, q.db, "top_categories", queryTopCategories, func(rows *sql.Rows) (CategoryCount, error) {
		var c CategoryCount
		err := rows.Scan(&c.Category, &c.Count)
		return c, err
	})
}

// OverdueStats returns the loan counters. No row at all means all zeros.
func (q *Queries) OverdueStats(ctx context.Context) (OverdueStats, error) {
	rows, err := collect(ctx, q.db, "overdue_stats", queryOverdueStats, func(rows *sql.Rows) (OverdueStats, error) {
		var s OverdueStats
		var overdue, borrowed, returnedThisMonth sql.NullInt64
		if err := rows.Scan(&overdue, &borrowed, &returnedThisMonth); err != nil {
			return s, err
		}
		s.OverdueNow = overdue.Int64
		s.BorrowedNow = borrowed.Int64
		s.ReturnedThisMonth = returnedThisMonth.Int64
		return s, nil
	})
	if err != nil {
		return OverdueStats{}, err
	}
	if len(rows) == 0 {
		return OverdueStats{}, nil
	}
	return rows[0], nil
}
