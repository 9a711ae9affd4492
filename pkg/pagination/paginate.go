// Package pagination implements cursor and offset pagination over any
// record source that can count and fetch filtered, sorted slices.
//
// A call to Paginate resolves the request mode (cursor, then offset, then
// page number), issues exactly one Count and one Find against the source and
// assembles a Response carrying navigation metadata and cache validators.
// Failures are returned as *Error values ready to be rendered to clients.
package pagination

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Defaults applied to a Request when the corresponding field is unset.
const (
	DefaultLimit = 5
	MaxLimit     = 100
	DefaultSort  = "id"
	DefaultOrder = OrderDesc
)

// Mode is the strategy Paginate resolved for a request.
type Mode string

// Pagination modes, in resolution priority order.
const (
	ModeCursor Mode = "cursor"
	ModeOffset Mode = "offset"
	ModePage   Mode = "page"
)

// Record is an item that can be paginated.
type Record interface {
	// Field returns the value of a sortable or filterable field.
	Field(name string) (Value, bool)
	Fingerprint() Fingerprint
}

// Query is a single fetch against a Source.
type Query struct {
	Clauses []Clause
	Sort    string
	Order   Order
	Skip    int
	Limit   int
}

// Source is the data-source capability consumed by Paginate.
type Source[T any] interface {
	Count(ctx context.Context, filters Filters) (int64, error)
	Find(ctx context.Context, q Query) ([]T, error)
}

// Request describes the caller's pagination intent. Zero values select the
// defaults. Cursor takes precedence over Offset, which takes precedence over Page.
type Request struct {
	Cursor  string
	Offset  *int
	Page    int
	Limit   int
	Sort    string
	Order   Order
	Filters Filters
}

// Metadata is the navigation block of a paginated response.
type Metadata struct {
	NextCursor  string `json:"nextCursor,omitempty"`
	PrevCursor  string `json:"prevCursor,omitempty"`
	Limit       int    `json:"limit"`
	TotalCount  int64  `json:"totalCount"`
	HasMore     bool   `json:"hasMore"`
	CurrentPage int    `json:"currentPage"`
	TotalPages  int    `json:"totalPages"`
	Order       Order  `json:"order"`
	HasPrev     bool   `json:"hasPrev"`
	IsFirstPage bool   `json:"isFirstPage"`
	IsLastPage  bool   `json:"isLastPage"`
}

// Response is a page of items with its metadata and cache validators.
type Response[T any] struct {
	Data         []T      `json:"data"`
	Pagination   Metadata `json:"pagination"`
	ETag         string   `json:"etag"`
	LastModified string   `json:"lastModified,omitempty"`
	Mode         Mode     `json:"-"`
}

// Observer is notified once per Paginate call.
type Observer func(mode Mode, elapsed time.Duration, err error)

type options struct {
	defaultLimit int
	maxLimit     int
	defaultSort  string
	now          func() time.Time
	observer     Observer
}

// Option customises Paginate.
type Option func(*options)

// WithDefaultLimit overrides the page size used when Request.Limit is zero.
func WithDefaultLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.defaultLimit = n
		}
	}
}

// WithMaxLimit overrides the largest accepted page size.
func WithMaxLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxLimit = n
		}
	}
}

// WithDefaultSort overrides the sort field used when Request.Sort is empty.
func WithDefaultSort(field string) Option {
	return func(o *options) {
		if field != "" {
			o.defaultSort = field
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithObserver registers a callback invoked after every call.
func WithObserver(fn Observer) Option {
	return func(o *options) { o.observer = fn }
}

// Paginate fetches one page from src according to req. The returned error,
// when non-nil, is always a *Error.
func Paginate[T Record](ctx context.Context, src Source[T], req Request, opts ...Option) (resp *Response[T], err error) {
	o := options{
		defaultLimit: DefaultLimit,
		maxLimit:     MaxLimit,
		defaultSort:  DefaultSort,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	start := o.now()
	mode := resolveMode(req)
	if o.observer != nil {
		defer func() { o.observer(mode, o.now().Sub(start), err) }()
	}

	params, perr := normalize(req, o)
	if perr != nil {
		return nil, newError(InvalidParameters, perr, o.now())
	}

	clauses := params.filters.Clauses()
	skip := 0
	switch mode {
	case ModeCursor:
		payload, derr := DecodeCursor(params.cursor)
		if derr != nil {
			return nil, newError(MalformedCursor, derr, o.now())
		}
		boundary := Gt(payload.Value)
		if params.order == OrderDesc {
			boundary = Lt(payload.Value)
		}
		clauses = append(clauses, Clause{Field: params.sort, Condition: boundary})
	case ModeOffset:
		skip = params.offset
	case ModePage:
		skip = (params.page - 1) * params.limit
	}

	total, cerr := src.Count(ctx, params.filters)
	if cerr != nil {
		return nil, newError(DataSourceFailure, fmt.Errorf("count: %w", cerr), o.now())
	}

	items, ferr := src.Find(ctx, Query{
		Clauses: clauses,
		Sort:    params.sort,
		Order:   params.order,
		Skip:    skip,
		Limit:   params.limit + 1,
	})
	if ferr != nil {
		return nil, newError(DataSourceFailure, fmt.Errorf("find: %w", ferr), o.now())
	}

	hasMore := len(items) > params.limit
	if hasMore {
		items = items[:params.limit]
	}
	if items == nil {
		items = []T{}
	}

	currentPage := skip/params.limit + 1
	if mode == ModeCursor {
		currentPage = params.page
	}

	meta := Metadata{
		Limit:       params.limit,
		TotalCount:  total,
		HasMore:     hasMore,
		CurrentPage: currentPage,
		TotalPages:  totalPages(total, params.limit),
		Order:       params.order,
		HasPrev:     skip > 0 || mode == ModeCursor,
		IsFirstPage: currentPage == 1,
		IsLastPage:  !hasMore,
	}

	if len(items) > 0 {
		if hasMore {
			meta.NextCursor, err = issueCursor(items[len(items)-1], params)
			if err != nil {
				return nil, newError(DataSourceFailure, err, o.now())
			}
		}
		if !meta.IsFirstPage {
			meta.PrevCursor, err = issueCursor(items[0], params)
			if err != nil {
				return nil, newError(DataSourceFailure, err, o.now())
			}
		}
	}

	prints := make([]Fingerprint, len(items))
	for i, item := range items {
		prints[i] = item.Fingerprint()
	}
	lastModified, _ := ComputeLastModified(prints, o.now())

	return &Response[T]{
		Data:         items,
		Pagination:   meta,
		ETag:         ComputeETag(prints),
		LastModified: lastModified,
		Mode:         mode,
	}, nil
}

// Map converts the items of r with fn, keeping metadata and validators.
func Map[T, D any](r *Response[T], fn func(T) D) *Response[D] {
	if r == nil {
		return nil
	}
	data := make([]D, len(r.Data))
	for i, item := range r.Data {
		data[i] = fn(item)
	}
	return &Response[D]{
		Data:         data,
		Pagination:   r.Pagination,
		ETag:         r.ETag,
		LastModified: r.LastModified,
		Mode:         r.Mode,
	}
}

type params struct {
	cursor  string
	offset  int
	page    int
	limit   int
	sort    string
	order   Order
	filters Filters
}

func resolveMode(req Request) Mode {
	switch {
	case req.Cursor != "":
		return ModeCursor
	case req.Offset != nil:
		return ModeOffset
	default:
		return ModePage
	}
}

func normalize(req Request, o options) (params, error) {
	p := params{
		cursor:  req.Cursor,
		page:    req.Page,
		limit:   req.Limit,
		sort:    req.Sort,
		order:   req.Order,
		filters: req.Filters,
	}
	if p.limit < 0 {
		return p, fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidParameters, p.limit)
	}
	if p.limit == 0 {
		p.limit = o.defaultLimit
	}
	if p.limit > o.maxLimit {
		return p, fmt.Errorf("%w: limit must not exceed %d, got %d", ErrInvalidParameters, o.maxLimit, p.limit)
	}
	if p.page < 0 {
		return p, fmt.Errorf("%w: page must be positive, got %d", ErrInvalidParameters, p.page)
	}
	if p.page == 0 {
		p.page = 1
	}
	// skip plus the limit+1 lookahead must fit in an int.
	maxSkip := math.MaxInt - p.limit - 1
	if p.page-1 > maxSkip/p.limit {
		return p, fmt.Errorf("%w: page %d is out of range", ErrInvalidParameters, p.page)
	}
	if req.Offset != nil {
		if *req.Offset < 0 {
			return p, fmt.Errorf("%w: offset must not be negative, got %d", ErrInvalidParameters, *req.Offset)
		}
		if *req.Offset > maxSkip {
			return p, fmt.Errorf("%w: offset %d is out of range", ErrInvalidParameters, *req.Offset)
		}
		p.offset = *req.Offset
	}
	if p.sort == "" {
		p.sort = o.defaultSort
	}
	if p.order == "" {
		p.order = DefaultOrder
	}
	if p.order != OrderAsc && p.order != OrderDesc {
		return p, fmt.Errorf("%w: order must be asc or desc, got %q", ErrInvalidParameters, p.order)
	}
	if err := p.filters.Validate(); err != nil {
		return p, fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}
	if len(p.filters) == 0 {
		p.filters = nil
	}
	return p, nil
}

func issueCursor(r Record, p params) (string, error) {
	v, ok := r.Field(p.sort)
	if !ok {
		return "", fmt.Errorf("record has no value for sort field %q", p.sort)
	}
	return EncodeCursor(CursorPayload{Value: v, Sort: p.sort, Order: p.order, Filters: p.filters})
}

func totalPages(total int64, limit int) int {
	pages := int(math.Ceil(float64(total) / float64(limit)))
	if pages < 1 {
		return 1
	}
	return pages
}
