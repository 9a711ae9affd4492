package requestsize

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nimburion/taskboard/pkg/controller"
	"github.com/nimburion/taskboard/pkg/server/router"
	ginrouter "github.com/nimburion/taskboard/pkg/server/router/gin"
)

func newRouter(limit int64, called *bool) router.Router {
	r := ginrouter.NewRouter()
	r.Use(Middleware(limit))
	r.POST("/todos", func(c router.Context) error {
		*called = true
		var payload map[string]interface{}
		if err := c.Bind(&payload); err != nil {
			return err
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	return r
}

func TestMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		limit      int64
		body       string
		chunked    bool
		wantStatus int
		wantCalled bool
	}{
		{name: "within limit", limit: 64, body: `{"title":"ok"}`, wantStatus: http.StatusOK, wantCalled: true},
		{name: "declared length over limit", limit: 8, body: `{"title":"too long"}`, wantStatus: http.StatusRequestEntityTooLarge},
		{name: "streamed body over limit", limit: 8, body: `{"title":"too long"}`, chunked: true, wantStatus: http.StatusRequestEntityTooLarge, wantCalled: true},
		{name: "disabled", limit: 0, body: `{"title":"` + strings.Repeat("a", 512) + `"}`, wantStatus: http.StatusOK, wantCalled: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given
			called := false
			r := newRouter(tt.limit, &called)
			var body io.Reader = strings.NewReader(tt.body)
			if tt.chunked {
				body = io.MultiReader(body)
			}
			req := httptest.NewRequest(http.MethodPost, "/todos", body)
			req.Header.Set("Content-Type", "application/json")
			if tt.chunked {
				req.ContentLength = -1
			}
			rec := httptest.NewRecorder()

			// When
			r.ServeHTTP(rec, req)

			// Then
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if called != tt.wantCalled {
				t.Errorf("handler called = %v, want %v", called, tt.wantCalled)
			}
			if tt.wantStatus == http.StatusRequestEntityTooLarge {
				var resp controller.ErrorResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatalf("decode error body: %v", err)
				}
				if resp.Code != "request.too_large" || resp.Details["max_size"] != float64(tt.limit) {
					t.Errorf("unexpected error body %+v", resp)
				}
				if got := rec.Header().Get("Connection"); got != "close" {
					t.Errorf("Connection = %q, want close", got)
				}
			}
		})
	}
}

func TestMiddleware_NoBody(t *testing.T) {
	r := ginrouter.NewRouter()
	r.Use(Middleware(8))
	r.GET("/todos", func(c router.Context) error { return c.String(http.StatusOK, "ok") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/todos", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
