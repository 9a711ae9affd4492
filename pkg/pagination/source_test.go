package pagination

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
)

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type item struct {
	ID        int64
	Title     string
	Priority  int64
	UpdatedAt time.Time
}

func (i item) Field(name string) (Value, bool) {
	switch name {
	case "id":
		return IntValue(i.ID), true
	case "title":
		return StringValue(i.Title), true
	case "priority":
		return IntValue(i.Priority), true
	case "updatedAt":
		return TimeValue(i.UpdatedAt), true
	default:
		return Value{}, false
	}
}

func (i item) Fingerprint() Fingerprint {
	return Fingerprint{ID: fmt.Sprint(i.ID), Title: i.Title, UpdatedAt: i.UpdatedAt}
}

func makeItems(n int) []item {
	items := make([]item, n)
	for k := range items {
		items[k] = item{
			ID:        int64(k + 1),
			Title:     fmt.Sprintf("item-%d", k+1),
			Priority:  int64(k%5 + 1),
			UpdatedAt: baseTime.Add(time.Duration(k) * time.Minute),
		}
	}
	return items
}

// sliceSource is an in-memory Source that records the queries it receives.
type sliceSource struct {
	items    []item
	countErr error
	findErr  error

	counts  int
	finds   int
	queries []Query
	counted []Filters
}

func (s *sliceSource) Count(_ context.Context, filters Filters) (int64, error) {
	s.counts++
	s.counted = append(s.counted, filters)
	if s.countErr != nil {
		return 0, s.countErr
	}
	clauses := filters.Clauses()
	var n int64
	for _, it := range s.items {
		if Match(it, clauses) {
			n++
		}
	}
	return n, nil
}

func (s *sliceSource) Find(_ context.Context, q Query) ([]item, error) {
	s.finds++
	s.queries = append(s.queries, q)
	if s.findErr != nil {
		return nil, s.findErr
	}
	var matched []item
	for _, it := range s.items {
		if Match(it, q.Clauses) {
			matched = append(matched, it)
		}
	}
	sort.SliceStable(matched, func(a, b int) bool {
		va, _ := matched[a].Field(q.Sort)
		vb, _ := matched[b].Field(q.Sort)
		cmp := va.Compare(vb)
		if q.Order == OrderDesc {
			return cmp > 0
		}
		return cmp < 0
	})
	if q.Skip >= len(matched) {
		return nil, nil
	}
	matched = matched[q.Skip:]
	if len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return matched, nil
}

var errBackend = errors.New("backend unavailable")
