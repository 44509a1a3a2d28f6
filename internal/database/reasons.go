package database

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/goccy/go-json"
)

const (
	// maxRecommendations is how many recommendations a user gets.
	maxRecommendations = 5
	// maxBecause is how many reason titles go into Because.
	maxBecause = 2
)

// decodeReasons turns the json_agg column into reasons.
//
// The driver may hand the column over already decoded or as JSON text.
// Decoded values are tried first, then text. NULL is an empty list. Any
// other type, or text that is not a JSON array of reason objects, is a
// QueryError.
func decodeReasons(v any) ([]Reason, error) {
	switch x := v.(type) {
	case nil:
		return []Reason{}, nil
	case []Reason:
		return x, nil
	case []any, []map[string]any:
		b, err := json.Marshal(x)
		if err != nil {
			return nil, &QueryError{Op: "recommendations", Err: fmt.Errorf("re-encode reasons: %w", err)}
		}
		return parseReasons(b)
	case []byte:
		return parseReasons(x)
	case string:
		return parseReasons([]byte(x))
	default:
		return nil, &QueryError{Op: "recommendations", Err: fmt.Errorf("unexpected reasons column type %T", v)}
	}
}

func parseReasons(b []byte) ([]Reason, error) {
	var reasons []Reason
	if err := json.Unmarshal(b, &reasons); err != nil {
		return nil, &QueryError{Op: "recommendations", Err: fmt.Errorf("decode reasons: %w", err)}
	}
	if reasons == nil {
		reasons = []Reason{}
	}
	return reasons, nil
}

// because returns the titles of the first n reasons.
func because(reasons []Reason, n int) []string {
	n = min(n, len(reasons))
	titles := make([]string, 0, n)
	for _, r := range reasons[:n] {
		titles = append(titles, r.Title)
	}
	return titles
}

// shapeRecommendations orders reasons by count (then item id), orders
// recommendations by score (then item id), keeps the first five and fills
// in Because.
func shapeRecommendations(recs []Recommendation) []Recommendation {
	for i := range recs {
		if recs[i].Reasons == nil {
			recs[i].Reasons = []Reason{}
		}
		slices.SortStableFunc(recs[i].Reasons, func(a, b Reason) int {
			return cmp.Or(cmp.Compare(b.Count, a.Count), cmp.Compare(a.ItemID, b.ItemID))
		})
		recs[i].Because = because(recs[i].Reasons, maxBecause)
	}

	slices.SortStableFunc(recs, func(a, b Recommendation) int {
		return cmp.Or(cmp.Compare(b.Score, a.Score), cmp.Compare(a.ID, b.ID))
	})

	if len(recs) > maxRecommendations {
		recs = recs[:maxRecommendations]
	}
	if recs == nil {
		recs = []Recommendation{}
	}
	return recs
}
