package pagination

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strings"
	"testing"
	"time"
)

func intPtr(i int) *int { return &i }

func fixedClock() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }

func TestPaginate_FirstPageOfMany(t *testing.T) {
	// Given 37 records and default settings
	src := &sliceSource{items: makeItems(37)}

	// When the first page is requested without a cursor
	resp, err := Paginate[item](context.Background(), src, Request{Limit: 5, Order: OrderDesc})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Then the metadata describes page 1 of 8
	meta := resp.Pagination
	if meta.CurrentPage != 1 || meta.TotalPages != 8 || meta.TotalCount != 37 {
		t.Errorf("unexpected paging: %+v", meta)
	}
	if meta.HasPrev || !meta.IsFirstPage || !meta.HasMore || meta.IsLastPage {
		t.Errorf("unexpected flags: %+v", meta)
	}
	if meta.NextCursor == "" {
		t.Error("expected nextCursor")
	}
	if meta.PrevCursor != "" {
		t.Error("prevCursor must be absent on the first page")
	}
	if len(resp.Data) != 5 || resp.Data[0].ID != 37 || resp.Data[4].ID != 33 {
		t.Errorf("unexpected page content: %+v", resp.Data)
	}
	if resp.Mode != ModePage {
		t.Errorf("mode = %s, want page", resp.Mode)
	}

	next, derr := DecodeCursor(meta.NextCursor)
	if derr != nil {
		t.Fatalf("nextCursor not decodable: %v", derr)
	}
	if next.Value != IntValue(33) || next.Sort != "id" || next.Order != OrderDesc {
		t.Errorf("unexpected next cursor payload: %+v", next)
	}
}

func TestPaginate_Empty(t *testing.T) {
	src := &sliceSource{}

	resp, err := Paginate[item](context.Background(), src, Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Data == nil || len(resp.Data) != 0 {
		t.Errorf("expected empty non-nil data, got %#v", resp.Data)
	}
	meta := resp.Pagination
	if meta.TotalPages != 1 || meta.HasMore || !meta.IsFirstPage || !meta.IsLastPage {
		t.Errorf("unexpected metadata: %+v", meta)
	}
	if meta.NextCursor != "" || meta.PrevCursor != "" {
		t.Error("no cursors expected for an empty page")
	}
	if resp.LastModified != "" {
		t.Errorf("lastModified must be absent, got %q", resp.LastModified)
	}
	if !strings.HasPrefix(resp.ETag, `W/"`) {
		t.Errorf("expected weak etag, got %q", resp.ETag)
	}

	raw, _ := json.Marshal(resp)
	if !strings.Contains(string(raw), `"data":[]`) || strings.Contains(string(raw), "lastModified") {
		t.Errorf("unexpected wire form: %s", raw)
	}
}

func TestPaginate_Offset(t *testing.T) {
	src := &sliceSource{items: makeItems(25)}

	resp, err := Paginate[item](context.Background(), src, Request{Offset: intPtr(10), Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	meta := resp.Pagination
	if meta.CurrentPage != 2 || !meta.HasPrev || meta.IsFirstPage {
		t.Errorf("unexpected metadata: %+v", meta)
	}
	if meta.TotalPages != 3 || !meta.HasMore {
		t.Errorf("unexpected totals: %+v", meta)
	}
	if meta.PrevCursor == "" || meta.NextCursor == "" {
		t.Error("expected both cursors on a middle page")
	}
	prev, _ := DecodeCursor(meta.PrevCursor)
	if prev.Value != IntValue(15) {
		t.Errorf("prevCursor should point at the first item, got %v", prev.Value)
	}
	if src.queries[0].Skip != 10 {
		t.Errorf("skip = %d, want 10", src.queries[0].Skip)
	}
	if resp.Mode != ModeOffset {
		t.Errorf("mode = %s", resp.Mode)
	}
}

func TestPaginate_PageMode(t *testing.T) {
	src := &sliceSource{items: makeItems(12)}

	resp, err := Paginate[item](context.Background(), src, Request{Page: 3, Limit: 5, Order: OrderAsc})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if src.queries[0].Skip != 10 {
		t.Errorf("skip = %d, want 10", src.queries[0].Skip)
	}
	if len(resp.Data) != 2 || resp.Data[0].ID != 11 {
		t.Errorf("unexpected data: %+v", resp.Data)
	}
	meta := resp.Pagination
	if meta.CurrentPage != 3 || meta.HasMore || !meta.IsLastPage || meta.NextCursor != "" {
		t.Errorf("unexpected metadata: %+v", meta)
	}
}

func TestPaginate_CursorTraversal(t *testing.T) {
	for _, order := range []Order{OrderAsc, OrderDesc} {
		t.Run(string(order), func(t *testing.T) {
			src := &sliceSource{items: makeItems(23)}
			seen := map[int64]bool{}
			var prev int64 = -1

			req := Request{Limit: 5, Order: order}
			pages := 0
			for {
				resp, err := Paginate[item](context.Background(), src, req)
				if err != nil {
					t.Fatalf("page %d: %v", pages+1, err)
				}
				pages++
				for _, it := range resp.Data {
					if seen[it.ID] {
						t.Fatalf("item %d returned twice", it.ID)
					}
					seen[it.ID] = true
					if prev >= 0 && ((order == OrderAsc && it.ID < prev) || (order == OrderDesc && it.ID > prev)) {
						t.Fatalf("item %d out of order after %d", it.ID, prev)
					}
					prev = it.ID
				}
				if pages > 1 && !resp.Pagination.HasPrev {
					t.Error("cursor pages must report hasPrev")
				}
				if resp.Pagination.NextCursor == "" {
					break
				}
				req.Cursor = resp.Pagination.NextCursor
				req.Page = pages + 1
			}

			if len(seen) != 23 {
				t.Errorf("visited %d items, want 23", len(seen))
			}
			if pages != 5 {
				t.Errorf("visited %d pages, want 5", pages)
			}
		})
	}
}

func TestPaginate_CursorModeQueries(t *testing.T) {
	src := &sliceSource{items: makeItems(20)}
	filters := Filters{"priority": In(IntValue(1), IntValue(2), IntValue(3))}
	cursor, _ := EncodeCursor(CursorPayload{Value: IntValue(15), Sort: "id", Order: OrderDesc, Filters: filters})

	resp, err := Paginate[item](context.Background(), src, Request{
		Cursor:  cursor,
		Offset:  intPtr(7),
		Page:    2,
		Limit:   4,
		Filters: filters,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if src.counts != 1 || src.finds != 1 {
		t.Fatalf("expected one count and one find, got %d and %d", src.counts, src.finds)
	}
	if len(src.counted[0]) != 1 {
		t.Errorf("count must use request filters only, got %+v", src.counted[0])
	}
	q := src.queries[0]
	if q.Skip != 0 || q.Limit != 5 {
		t.Errorf("cursor mode must not skip and must over-fetch by one: %+v", q)
	}
	last := q.Clauses[len(q.Clauses)-1]
	if last.Field != "id" || last.Condition.Kind != ConditionRange || last.Condition.Upper == nil || last.Condition.Upper.Inclusive {
		t.Errorf("expected exclusive upper boundary on id, got %+v", last)
	}
	for _, it := range resp.Data {
		if it.ID >= 15 || it.Priority > 3 {
			t.Errorf("item %+v violates boundary or filter", it)
		}
	}
	meta := resp.Pagination
	if resp.Mode != ModeCursor || meta.CurrentPage != 2 || !meta.HasPrev || meta.IsFirstPage {
		t.Errorf("unexpected cursor metadata: %+v", meta)
	}
	if meta.PrevCursor == "" {
		t.Error("expected prevCursor when the caller reports page 2")
	}
	if meta.TotalCount != 12 {
		t.Errorf("totalCount = %d, want 12", meta.TotalCount)
	}
}

func TestPaginate_AscendingCursorUsesLowerBound(t *testing.T) {
	src := &sliceSource{items: makeItems(10)}
	cursor, _ := EncodeCursor(CursorPayload{Value: IntValue(4), Sort: "id", Order: OrderAsc})

	resp, err := Paginate[item](context.Background(), src, Request{Cursor: cursor, Order: OrderAsc, Limit: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Data[0].ID != 5 {
		t.Errorf("first item = %d, want 5", resp.Data[0].ID)
	}
	last := src.queries[0].Clauses[0]
	if last.Condition.Lower == nil || last.Condition.Lower.Inclusive {
		t.Errorf("expected exclusive lower bound, got %+v", last.Condition)
	}
}

func TestPaginate_Errors(t *testing.T) {
	tests := []struct {
		name     string
		src      *sliceSource
		req      Request
		wantKind ErrorKind
		wantIs   error
		queries  int
	}{
		{
			name:     "malformed cursor",
			src:      &sliceSource{items: makeItems(3)},
			req:      Request{Cursor: "definitely-not-a-cursor"},
			wantKind: MalformedCursor,
			wantIs:   ErrMalformedCursor,
		},
		{
			name:     "count failure",
			src:      &sliceSource{countErr: errBackend},
			req:      Request{},
			wantKind: DataSourceFailure,
			wantIs:   errBackend,
			queries:  1,
		},
		{
			name:     "find failure",
			src:      &sliceSource{findErr: errBackend},
			req:      Request{},
			wantKind: DataSourceFailure,
			wantIs:   errBackend,
			queries:  2,
		},
		{
			name:     "negative limit",
			src:      &sliceSource{},
			req:      Request{Limit: -1},
			wantKind: InvalidParameters,
			wantIs:   ErrInvalidParameters,
		},
		{
			name:     "limit above maximum",
			src:      &sliceSource{},
			req:      Request{Limit: MaxLimit + 1},
			wantKind: InvalidParameters,
			wantIs:   ErrInvalidParameters,
		},
		{
			name:     "negative page",
			src:      &sliceSource{},
			req:      Request{Page: -2},
			wantKind: InvalidParameters,
			wantIs:   ErrInvalidParameters,
		},
		{
			name:     "page overflowing the skip",
			src:      &sliceSource{},
			req:      Request{Page: math.MaxInt/5 + 2, Limit: 5},
			wantKind: InvalidParameters,
			wantIs:   ErrInvalidParameters,
		},
		{
			name:     "largest page is rejected",
			src:      &sliceSource{},
			req:      Request{Page: math.MaxInt},
			wantKind: InvalidParameters,
			wantIs:   ErrInvalidParameters,
		},
		{
			name:     "offset overflowing the lookahead",
			src:      &sliceSource{},
			req:      Request{Offset: intPtr(math.MaxInt), Limit: 5},
			wantKind: InvalidParameters,
			wantIs:   ErrInvalidParameters,
		},
		{
			name:     "negative offset",
			src:      &sliceSource{},
			req:      Request{Offset: intPtr(-1)},
			wantKind: InvalidParameters,
			wantIs:   ErrInvalidParameters,
		},
		{
			name:     "unknown order",
			src:      &sliceSource{},
			req:      Request{Order: "random"},
			wantKind: InvalidParameters,
			wantIs:   ErrInvalidParameters,
		},
		{
			name:     "invalid filter",
			src:      &sliceSource{},
			req:      Request{Filters: Filters{"title": {Kind: ConditionEqual}}},
			wantKind: InvalidParameters,
			wantIs:   ErrInvalidParameters,
		},
		{
			name:     "sort field missing on records",
			src:      &sliceSource{items: makeItems(3)},
			req:      Request{Sort: "missing", Limit: 2},
			wantKind: DataSourceFailure,
			queries:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := Paginate[item](context.Background(), tt.src, tt.req, WithClock(fixedClock))
			if resp != nil {
				t.Errorf("expected no response, got %+v", resp)
			}
			perr, ok := AsError(err)
			if !ok {
				t.Fatalf("expected *Error, got %T %v", err, err)
			}
			if perr.Kind != tt.wantKind {
				t.Errorf("kind = %s, want %s", perr.Kind, tt.wantKind)
			}
			if perr.Code != http.StatusInternalServerError {
				t.Errorf("code = %d, want 500", perr.Code)
			}
			if perr.ResultMessage == "" || perr.DebugMessage == "" {
				t.Errorf("expected result and debug messages: %+v", perr)
			}
			if perr.Timestamp != "2025-06-01T00:00:00Z" {
				t.Errorf("timestamp = %q", perr.Timestamp)
			}
			if tt.wantIs != nil && !errors.Is(err, tt.wantIs) {
				t.Errorf("expected error chain to contain %v", tt.wantIs)
			}
			if got := tt.src.counts + tt.src.finds; got != tt.queries {
				t.Errorf("issued %d queries, want %d", got, tt.queries)
			}
		})
	}
}

func TestError_WireForm(t *testing.T) {
	perr := newError(DataSourceFailure, errBackend, fixedClock())
	raw, err := json.Marshal(perr)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	_ = json.Unmarshal(raw, &m)
	for _, key := range []string{"code", "resultMessage", "debugMessage", "timestamp"} {
		if _, ok := m[key]; !ok {
			t.Errorf("missing %s in %s", key, raw)
		}
	}
	if len(m) != 4 {
		t.Errorf("unexpected keys in %s", raw)
	}
}

func TestPaginate_Options(t *testing.T) {
	src := &sliceSource{items: makeItems(30)}
	var observed []Mode

	resp, err := Paginate[item](context.Background(), src, Request{},
		WithDefaultLimit(7),
		WithMaxLimit(10),
		WithDefaultSort("priority"),
		WithObserver(func(m Mode, _ time.Duration, err error) {
			if err == nil {
				observed = append(observed, m)
			}
		}),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Pagination.Limit != 7 || len(resp.Data) != 7 {
		t.Errorf("default limit not applied: %+v", resp.Pagination)
	}
	if src.queries[0].Sort != "priority" {
		t.Errorf("default sort not applied: %s", src.queries[0].Sort)
	}
	if len(observed) != 1 || observed[0] != ModePage {
		t.Errorf("observer calls = %v", observed)
	}

	_, err = Paginate[item](context.Background(), src, Request{Limit: 11}, WithMaxLimit(10))
	if perr, ok := AsError(err); !ok || perr.Kind != InvalidParameters {
		t.Errorf("expected InvalidParameters above custom max, got %v", err)
	}
}

func TestPaginate_Validators(t *testing.T) {
	src := &sliceSource{items: makeItems(8)}

	first, err := Paginate[item](context.Background(), src, Request{Limit: 3})
	if err != nil {
		t.Fatal(err)
	}
	again, _ := Paginate[item](context.Background(), src, Request{Limit: 3})
	if first.ETag != again.ETag {
		t.Error("identical pages must share an etag")
	}
	want := baseTime.Add(7 * time.Minute).Format(http.TimeFormat)
	if first.LastModified != want {
		t.Errorf("lastModified = %q, want %q", first.LastModified, want)
	}

	src.items[7].Title = "renamed"
	changed, _ := Paginate[item](context.Background(), src, Request{Limit: 3})
	if changed.ETag == first.ETag {
		t.Error("etag must change when an item on the page changes")
	}
}

func TestMap(t *testing.T) {
	src := &sliceSource{items: makeItems(4)}
	resp, err := Paginate[item](context.Background(), src, Request{Limit: 2})
	if err != nil {
		t.Fatal(err)
	}

	titles := Map(resp, func(it item) string { return it.Title })
	if len(titles.Data) != 2 || titles.Data[0] != "item-4" {
		t.Errorf("unexpected mapped data: %v", titles.Data)
	}
	if titles.Pagination != resp.Pagination || titles.ETag != resp.ETag {
		t.Error("mapping must keep metadata and validators")
	}
	if Map[item, string](nil, nil) != nil {
		t.Error("nil response maps to nil")
	}
}
