package pagination

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Order is a sort direction.
type Order string

// Sort directions.
const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// ParseOrder accepts "asc" or "desc" in any case.
func ParseOrder(s string) (Order, error) {
	switch Order(strings.ToLower(strings.TrimSpace(s))) {
	case OrderAsc:
		return OrderAsc, nil
	case OrderDesc:
		return OrderDesc, nil
	default:
		return "", fmt.Errorf("%w: order must be asc or desc, got %q", ErrInvalidParameters, s)
	}
}

// CursorPayload is the decoded content of a cursor: the sort key of the
// boundary record and the traversal context it was issued under.
type CursorPayload struct {
	Value   Value   `json:"id"`
	Sort    string  `json:"sort"`
	Order   Order   `json:"order"`
	Filters Filters `json:"filters,omitempty"`
}

// EncodeCursor serialises p into an opaque URL-safe token.
func EncodeCursor(p CursorPayload) (string, error) {
	if !p.Value.IsValid() {
		return "", fmt.Errorf("encode cursor: boundary value is missing")
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodeCursor is the inverse of EncodeCursor. Any token that is not valid
// encoder output fails with ErrMalformedCursor. Empty filters decode as nil.
func DecodeCursor(token string) (CursorPayload, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return CursorPayload{}, fmt.Errorf("%w: %v", ErrMalformedCursor, err)
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return CursorPayload{}, fmt.Errorf("%w: %v", ErrMalformedCursor, err)
	}
	id, ok := probe["id"]
	if !ok || bytes.Equal(bytes.TrimSpace(id), []byte("null")) {
		return CursorPayload{}, fmt.Errorf("%w: missing id", ErrMalformedCursor)
	}

	var p CursorPayload
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return CursorPayload{}, fmt.Errorf("%w: %v", ErrMalformedCursor, err)
	}
	if p.Sort == "" {
		return CursorPayload{}, fmt.Errorf("%w: missing sort field", ErrMalformedCursor)
	}
	if p.Order != OrderAsc && p.Order != OrderDesc {
		return CursorPayload{}, fmt.Errorf("%w: invalid order %q", ErrMalformedCursor, p.Order)
	}
	if err := p.Filters.Validate(); err != nil {
		return CursorPayload{}, fmt.Errorf("%w: %v", ErrMalformedCursor, err)
	}
	if len(p.Filters) == 0 {
		p.Filters = nil
	}
	return p, nil
}
