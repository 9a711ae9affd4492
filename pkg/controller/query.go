package controller

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/nimburion/taskboard/pkg/pagination"
)

// FilterOp is the comparison a query parameter applies to its field.
type FilterOp int

// Filter operators.
const (
	OpEq FilterOp = iota
	OpIn
	OpGt
	OpGte
	OpLt
	OpLte
)

// FilterParam binds a query parameter to a record field.
type FilterParam struct {
	Param string
	Field string
	Kind  pagination.ValueKind
	Op    FilterOp
}

// ListSpec whitelists the sort fields and filters a listing accepts.
type ListSpec struct {
	SortFields []string
	Filters    []FilterParam
}

// ParseListRequest reads the pagination parameters (cursor, offset, page,
// limit, sort, order) and the filters allowed by spec. Values that cannot be
// parsed yield a 400 validation error. Range checks on numbers are left to
// the paginator.
func ParseListRequest(q url.Values, spec ListSpec) (pagination.Request, error) {
	req := pagination.Request{Cursor: strings.TrimSpace(q.Get("cursor"))}

	var err error
	if raw := q.Get("offset"); raw != "" {
		n, perr := strconv.Atoi(raw)
		if perr != nil {
			return req, paramError("offset", raw, "an integer")
		}
		req.Offset = &n
	}
	if req.Page, err = intParam(q, "page"); err != nil {
		return req, err
	}
	if req.Limit, err = intParam(q, "limit"); err != nil {
		return req, err
	}
	if raw := q.Get("sort"); raw != "" {
		if !slices.Contains(spec.SortFields, raw) {
			return req, NewValidationError(fmt.Sprintf("cannot sort by %q", raw), map[string]interface{}{
				"param":   "sort",
				"allowed": spec.SortFields,
			})
		}
		req.Sort = raw
	}
	if raw := q.Get("order"); raw != "" {
		if req.Order, err = pagination.ParseOrder(raw); err != nil {
			return req, paramError("order", raw, "asc or desc")
		}
	}

	for _, fp := range spec.Filters {
		raw := q.Get(fp.Param)
		if raw == "" {
			continue
		}
		cond, err := fp.condition(raw)
		if err != nil {
			return req, err
		}
		if req.Filters == nil {
			req.Filters = pagination.Filters{}
		}
		if prev, ok := req.Filters[fp.Field]; ok {
			cond = mergeRange(prev, cond)
		}
		req.Filters[fp.Field] = cond
	}
	return req, nil
}

func (fp FilterParam) condition(raw string) (pagination.Condition, error) {
	if fp.Op == OpIn {
		parts := strings.Split(raw, ",")
		vals := make([]pagination.Value, 0, len(parts))
		for _, p := range parts {
			v, err := parseValue(fp.Kind, strings.TrimSpace(p))
			if err != nil {
				return pagination.Condition{}, paramError(fp.Param, p, "a "+fp.Kind.String())
			}
			vals = append(vals, v)
		}
		return pagination.In(vals...), nil
	}

	v, err := parseValue(fp.Kind, raw)
	if err != nil {
		return pagination.Condition{}, paramError(fp.Param, raw, "a "+fp.Kind.String())
	}
	switch fp.Op {
	case OpGt:
		return pagination.Gt(v), nil
	case OpGte:
		return pagination.Gte(v), nil
	case OpLt:
		return pagination.Lt(v), nil
	case OpLte:
		return pagination.Lte(v), nil
	default:
		return pagination.Eq(v), nil
	}
}

// mergeRange combines two one-sided ranges on the same field, as produced by
// min/max parameter pairs. Any other combination keeps the later condition.
func mergeRange(prev, next pagination.Condition) pagination.Condition {
	if prev.Kind != pagination.ConditionRange || next.Kind != pagination.ConditionRange {
		return next
	}
	lower, upper := prev.Lower, prev.Upper
	if next.Lower != nil {
		lower = next.Lower
	}
	if next.Upper != nil {
		upper = next.Upper
	}
	return pagination.Range(lower, upper)
}

func parseValue(kind pagination.ValueKind, raw string) (pagination.Value, error) {
	switch kind {
	case pagination.KindInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		return pagination.IntValue(n), err
	case pagination.KindFloat:
		f, err := strconv.ParseFloat(raw, 64)
		return pagination.FloatValue(f), err
	case pagination.KindBool:
		b, err := strconv.ParseBool(raw)
		return pagination.BoolValue(b), err
	case pagination.KindTime:
		t, err := parseTime(raw)
		return pagination.TimeValue(t), err
	default:
		return pagination.StringValue(raw), nil
	}
}

// parseTime accepts RFC 3339 timestamps and plain dates (midnight UTC).
func parseTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(time.DateOnly, raw)
}

func intParam(q url.Values, name string) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, paramError(name, raw, "an integer")
	}
	return n, nil
}

func paramError(name, raw, want string) *AppError {
	return NewValidationError(fmt.Sprintf("query parameter %q must be %s", name, want), map[string]interface{}{
		"param": name,
		"value": raw,
	})
}
