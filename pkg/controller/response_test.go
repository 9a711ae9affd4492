package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nimburion/taskboard/pkg/pagination"
)

type row struct{ ID string }

func (r row) Field(name string) (pagination.Value, bool) {
	if name == "id" {
		return pagination.StringValue(r.ID), true
	}
	return pagination.Value{}, false
}

func (r row) Fingerprint() pagination.Fingerprint { return pagination.Fingerprint{ID: r.ID} }

type rowSource struct {
	rows []row
	err  error
}

func (s rowSource) Count(context.Context, pagination.Filters) (int64, error) {
	return int64(len(s.rows)), s.err
}

func (s rowSource) Find(context.Context, pagination.Query) ([]row, error) { return s.rows, s.err }

func TestPaginated_SetsValidatorsAndHonoursIfNoneMatch(t *testing.T) {
	resp, err := pagination.Paginate[row](context.Background(), rowSource{rows: []row{{"b"}, {"a"}}}, pagination.Request{})
	if err != nil {
		t.Fatal(err)
	}

	// Given a first request without validators
	c := newMockContext(httptest.NewRequest(http.MethodGet, "/rows", nil))
	if err := Paginated(c, resp); err != nil {
		t.Fatal(err)
	}
	if c.response.Code != http.StatusOK {
		t.Fatalf("status = %d", c.response.Code)
	}
	etag := c.response.Header().Get("ETag")
	if etag != resp.ETag || c.response.Header().Get("Last-Modified") == "" {
		t.Errorf("validators not set: %v", c.response.Header())
	}
	var body map[string]any
	if err := json.Unmarshal(c.response.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if _, ok := body["pagination"]; !ok {
		t.Errorf("missing pagination metadata: %s", c.response.Body)
	}

	// When the client revalidates with the same ETag
	r := httptest.NewRequest(http.MethodGet, "/rows", nil)
	r.Header.Set("If-None-Match", `"other", `+etag)
	c = newMockContext(r)
	if err := Paginated(c, resp); err != nil {
		t.Fatal(err)
	}

	// Then the body is skipped
	if c.response.Code != http.StatusNotModified || c.response.Body.Len() != 0 {
		t.Errorf("expected 304 without body, got %d %q", c.response.Code, c.response.Body)
	}
}

func TestError_RendersPaginationEnvelope(t *testing.T) {
	_, err := pagination.Paginate[row](context.Background(), rowSource{}, pagination.Request{Cursor: "%%%"})
	if err == nil {
		t.Fatal("expected malformed cursor error")
	}

	c := newMockContext(httptest.NewRequest(http.MethodGet, "/rows", nil))
	if err := Error(c, err); err != nil {
		t.Fatal(err)
	}
	if c.response.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", c.response.Code)
	}
	var body map[string]any
	_ = json.Unmarshal(c.response.Body.Bytes(), &body)
	for _, key := range []string{"code", "resultMessage", "timestamp"} {
		if _, ok := body[key]; !ok {
			t.Errorf("missing %q in %s", key, c.response.Body)
		}
	}
}

func TestError_MapsDomainErrors(t *testing.T) {
	c := newMockContext(httptest.NewRequest(http.MethodGet, "/", nil))
	_ = Error(c, NewNotFoundError("todo not found"))
	if c.response.Code != http.StatusNotFound {
		t.Errorf("status = %d", c.response.Code)
	}

	c = newMockContext(httptest.NewRequest(http.MethodGet, "/", nil))
	_ = Error(c, errors.New("boom"))
	if c.response.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", c.response.Code)
	}
}

func TestSuccessCreatedNoContent(t *testing.T) {
	c := newMockContext(httptest.NewRequest(http.MethodGet, "/", nil))
	_ = Created(c, map[string]string{"id": "1"})
	if c.response.Code != http.StatusCreated {
		t.Errorf("created status = %d", c.response.Code)
	}

	c = newMockContext(httptest.NewRequest(http.MethodDelete, "/", nil))
	_ = NoContent(c)
	if c.response.Code != http.StatusNoContent || c.response.Body.Len() != 0 {
		t.Errorf("no content = %d %q", c.response.Code, c.response.Body)
	}
}

func TestEtagMatches(t *testing.T) {
	tests := []struct {
		header, etag string
		want         bool
	}{
		{"", `W/"abc"`, false},
		{`W/"abc"`, `W/"abc"`, true},
		{`"abc"`, `W/"abc"`, true},
		{`"x", W/"abc"`, `W/"abc"`, true},
		{"*", `W/"abc"`, true},
		{`"abd"`, `W/"abc"`, false},
	}
	for _, tt := range tests {
		if got := etagMatches(tt.header, tt.etag); got != tt.want {
			t.Errorf("etagMatches(%q, %q) = %v", tt.header, tt.etag, got)
		}
	}
}
