package database

// TopBook is one row of the most-borrowed report.
type TopBook struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	BorrowCount int64  `json:"borrow_count"`
}

// Reason is another item the user borrowed that co-occurs with a
// recommended item, and how often.
type Reason struct {
	ItemID int64  `json:"item_id"`
	Title  string `json:"title"`
	Count  int64  `json:"count"`
}

// Recommendation is an item the user has not borrowed yet.
type Recommendation struct {
	ID      int64    `json:"id"`
	Name    string   `json:"name"`
	Score   int64    `json:"score"`
	Reasons []Reason `json:"reasons"`
	// Because holds the titles of the top reasons.
	Because []string `json:"because"`
}

// TrendPoint is the number of borrowings approved on one day.
type TrendPoint struct {
	Day   string `json:"day"` // YYYY-MM-DD
	Count int64  `json:"count"`
}

// CategoryCount is the number of borrowings for one item category.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

// OverdueStats are the current loan counters.
type OverdueStats struct {
	OverdueNow        int64 `json:"overdue_now"`
	BorrowedNow       int64 `json:"borrowed_now"`
	ReturnedThisMonth int64 `json:"returned_this_month"`
}
