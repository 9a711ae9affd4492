package pagination

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestProperty_PageShape checks hasMore, trimming, boundary flags and cursor
// gating for arbitrary collection sizes and offsets.
func TestProperty_PageShape(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("offset pages are trimmed and flagged consistently", prop.ForAll(
		func(n, limit, offset int) bool {
			src := &sliceSource{items: makeItems(n)}
			resp, err := Paginate[item](context.Background(), src, Request{Offset: &offset, Limit: limit})
			if err != nil {
				t.Logf("unexpected error: %v", err)
				return false
			}
			meta := resp.Pagination
			remaining := n - offset
			if remaining < 0 {
				remaining = 0
			}

			wantMore := remaining > limit
			wantLen := remaining
			if wantMore {
				wantLen = limit
			}
			if meta.HasMore != wantMore || len(resp.Data) != wantLen {
				t.Logf("n=%d limit=%d offset=%d: hasMore=%v len=%d", n, limit, offset, meta.HasMore, len(resp.Data))
				return false
			}
			if meta.IsFirstPage != (meta.CurrentPage == 1) || meta.IsLastPage != !meta.HasMore {
				return false
			}
			if meta.HasPrev != (offset > 0) {
				return false
			}
			if (meta.NextCursor != "") != meta.HasMore {
				return false
			}
			if (meta.PrevCursor != "") != (!meta.IsFirstPage && len(resp.Data) > 0) {
				return false
			}
			if meta.TotalPages < 1 || int64(meta.TotalPages)*int64(limit) < meta.TotalCount {
				return false
			}
			return src.counts == 1 && src.finds == 1 && src.queries[0].Limit == limit+1
		},
		gen.IntRange(0, 60),
		gen.IntRange(1, 12),
		gen.IntRange(0, 70),
	))

	properties.TestingRun(t)
}

// TestProperty_MonotonicTraversal follows nextCursor until exhaustion and
// checks that every record is visited exactly once.
func TestProperty_MonotonicTraversal(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("cursor chains never repeat an item", prop.ForAll(
		func(n, limit int, asc bool, maxPriority int64) bool {
			order := OrderDesc
			if asc {
				order = OrderAsc
			}
			filters := Filters{"priority": Lte(IntValue(maxPriority))}
			src := &sliceSource{items: makeItems(n)}

			expected := 0
			for _, it := range src.items {
				if it.Priority <= maxPriority {
					expected++
				}
			}

			seen := map[int64]bool{}
			req := Request{Limit: limit, Order: order, Filters: filters}
			for guard := 0; guard <= n+1; guard++ {
				resp, err := Paginate[item](context.Background(), src, req)
				if err != nil {
					t.Logf("unexpected error: %v", err)
					return false
				}
				if resp.Pagination.TotalCount != int64(expected) {
					return false
				}
				for _, it := range resp.Data {
					if seen[it.ID] {
						return false
					}
					seen[it.ID] = true
				}
				if resp.Pagination.NextCursor == "" {
					return len(seen) == expected
				}
				payload, err := DecodeCursor(resp.Pagination.NextCursor)
				if err != nil || payload.Order != order || len(payload.Filters) != 1 {
					return false
				}
				req.Cursor = resp.Pagination.NextCursor
			}
			return false
		},
		gen.IntRange(0, 40),
		gen.IntRange(1, 7),
		gen.Bool(),
		gen.Int64Range(1, 5),
	))

	properties.TestingRun(t)
}
