// Package contract holds the conformance suite every router adapter must pass.
// Routes mirror the taskboard API so the suite exercises the shapes the
// handlers depend on: nested groups, path parameters, strict JSON binding and
// the controller error envelopes.
package contract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nimburion/taskboard/pkg/controller"
	"github.com/nimburion/taskboard/pkg/model"
	"github.com/nimburion/taskboard/pkg/pagination"
	"github.com/nimburion/taskboard/pkg/repository/document"
	"github.com/nimburion/taskboard/pkg/server/router"
)

// Factory builds a router adapter under test.
type Factory func(opts ...router.Option) router.Router

// exchange is one request against a scenario's router and what must come back.
type exchange struct {
	method      string
	path        string
	body        string
	contentType string

	wantStatus   int
	wantBody     string
	wantContains []string
	wantHeaders  map[string]string
	// wantCode is the controller envelope "code" field.
	wantCode string
	// wantResult is the pagination envelope "resultMessage" field.
	wantResult string
}

type scenario struct {
	name      string
	opts      []router.Option
	routes    func(t *testing.T, r router.Router)
	exchanges []exchange
}

// TestRouterContract runs the shared router conformance suite.
func TestRouterContract(t *testing.T, newRouter Factory) {
	t.Helper()
	for _, sc := range scenarios() {
		t.Run(sc.name, func(t *testing.T) {
			r := newRouter(sc.opts...)
			sc.routes(t, r)
			for _, ex := range sc.exchanges {
				t.Run(ex.method+" "+ex.path, func(t *testing.T) {
					ex.check(t, performRequest(r, ex.method, ex.path, bodyReader(ex.body), ex.contentType))
				})
			}
		})
	}
}

func scenarios() []scenario {
	envelope := []router.Option{
		router.WithErrorHandler(controller.Error),
		router.WithNotFound(func(c router.Context) error {
			return controller.Error(c, controller.NewNotFoundError("route not found"))
		}),
	}

	return []scenario{
		{
			name:   "todo routes",
			routes: todoRoutes,
			exchanges: []exchange{
				{method: http.MethodGet, path: "/api/v1/todos", wantStatus: http.StatusOK, wantBody: "list"},
				{method: http.MethodPost, path: "/api/v1/todos", wantStatus: http.StatusOK, wantBody: "create"},
				{method: http.MethodGet, path: "/api/v1/todos/t-1", wantStatus: http.StatusOK, wantBody: "get t-1"},
				{method: http.MethodPatch, path: "/api/v1/todos/t-1", wantStatus: http.StatusOK, wantBody: "patch t-1"},
				{method: http.MethodDelete, path: "/api/v1/todos/t-1", wantStatus: http.StatusOK, wantBody: "delete t-1"},
				{method: http.MethodPost, path: "/api/v1/todos/t-1/toggle", wantStatus: http.StatusOK, wantBody: "toggle t-1"},
				{method: http.MethodPut, path: "/api/v1/users/u-7/roles", wantStatus: http.StatusOK, wantBody: "roles u-7"},
				{method: http.MethodGet, path: "/api/v1/todos?sort=priority&sort=id&order=asc", wantStatus: http.StatusOK, wantBody: "list"},
				{method: http.MethodGet, path: "/api/v1/projects", wantStatus: http.StatusNotFound},
			},
		},
		{
			name:   "query parameters",
			routes: queryRoutes,
			exchanges: []exchange{
				{method: http.MethodGet, path: "/api/v1/search?sort=priority&order=asc", wantStatus: http.StatusOK, wantBody: "priority/asc"},
				{method: http.MethodGet, path: "/api/v1/search?sort=title&sort=id", wantStatus: http.StatusOK, wantBody: "title/"},
				{method: http.MethodGet, path: "/api/v1/search", wantStatus: http.StatusOK, wantBody: "/"},
				{method: http.MethodGet, path: "/api/v1/search/u-1/todos/t-9", wantStatus: http.StatusOK, wantBody: "u-1:t-9:"},
			},
		},
		{
			name:   "middleware order",
			routes: layeredRoutes,
			exchanges: []exchange{
				{method: http.MethodGet, path: "/api/v1/admin/users", wantStatus: http.StatusOK, wantBody: "global,group,admin,route,handler"},
				{method: http.MethodGet, path: "/api/v1/me", wantStatus: http.StatusOK, wantBody: "global,group,handler"},
				{method: http.MethodPatch, path: "/api/v1/admin/users", wantStatus: http.StatusOK, wantBody: "global,group,admin,handler"},
				{method: http.MethodOptions, path: "/api/v1/admin/users", wantStatus: http.StatusNoContent, wantHeaders: map[string]string{"X-Layer": "global"}},
			},
		},
		{
			name:   "short circuit without error handler",
			routes: shortCircuitRoutes,
			exchanges: []exchange{
				{method: http.MethodGet, path: "/api/v1/todos", wantStatus: http.StatusInternalServerError},
				{method: http.MethodGet, path: "/api/v1/written", wantStatus: http.StatusTeapot, wantBody: "already answered"},
			},
		},
		{
			name:   "json binding",
			opts:   envelope,
			routes: bindRoutes,
			exchanges: []exchange{
				{method: http.MethodPost, path: "/api/v1/todos", body: `{"title":"buy milk","priority":2}`, contentType: "application/json",
					wantStatus: http.StatusCreated, wantContains: []string{`"title":"buy milk"`, `"priority":2`}, wantHeaders: map[string]string{"Content-Type": "application/json"}},
				{method: http.MethodPost, path: "/api/v1/todos", body: `{"title":`, contentType: "application/json",
					wantStatus: http.StatusBadRequest, wantCode: "validation.failed"},
				{method: http.MethodPost, path: "/api/v1/todos", contentType: "application/json",
					wantStatus: http.StatusBadRequest, wantCode: "validation.failed"},
				{method: http.MethodPost, path: "/api/v1/todos", body: `{"title":"x","ownerId":"someone-else"}`, contentType: "application/json",
					wantStatus: http.StatusBadRequest, wantCode: "validation.failed"},
				{method: http.MethodPost, path: "/api/v1/todos", body: `{"title":""}`, contentType: "application/json",
					wantStatus: http.StatusBadRequest, wantCode: "validation.failed"},
				{method: http.MethodPost, path: "/api/v1/todos", body: "title=x", contentType: "text/plain",
					wantStatus: http.StatusUnsupportedMediaType, wantCode: "request.unsupported_media_type"},
			},
		},
		{
			name:   "error envelopes",
			opts:   envelope,
			routes: failingRoutes,
			exchanges: []exchange{
				{method: http.MethodGet, path: "/api/v1/todos/missing", wantStatus: http.StatusNotFound, wantCode: "resource.not_found"},
				{method: http.MethodPost, path: "/api/v1/roles", wantStatus: http.StatusConflict, wantCode: "resource.conflict"},
				{method: http.MethodGet, path: "/api/v1/auth/me", wantStatus: http.StatusUnauthorized, wantCode: "auth.unauthorized"},
				{method: http.MethodDelete, path: "/api/v1/roles/admin", wantStatus: http.StatusForbidden, wantCode: "auth.forbidden"},
				{method: http.MethodGet, path: "/api/v1/boom", wantStatus: http.StatusInternalServerError, wantContains: []string{"internal_server_error"}},
				{method: http.MethodGet, path: "/api/v1/todos?limit=-1", wantStatus: http.StatusInternalServerError, wantResult: "Invalid pagination parameters"},
				{method: http.MethodGet, path: "/api/v1/todos?cursor=%25%25", wantStatus: http.StatusInternalServerError, wantResult: "Invalid pagination cursor"},
				{method: http.MethodGet, path: "/api/v2/todos", wantStatus: http.StatusNotFound, wantCode: "resource.not_found"},
			},
		},
		{
			name:   "response helpers",
			routes: responseRoutes,
			exchanges: []exchange{
				{method: http.MethodGet, path: "/api/v1/version", wantStatus: http.StatusOK, wantBody: "v1.2.3", wantHeaders: map[string]string{"Content-Type": "text/plain"}},
				{method: http.MethodDelete, path: "/api/v1/todos/t-1", wantStatus: http.StatusNoContent, wantBody: ""},
				{method: http.MethodGet, path: "/api/v1/todos/t-1", wantStatus: http.StatusNotModified, wantBody: ""},
				{method: http.MethodPost, path: "/api/v1/todos/t-1/toggle", wantStatus: http.StatusAccepted, wantBody: "queued"},
			},
		},
		{
			name:   "context values",
			routes: contextRoutes,
			exchanges: []exchange{
				{method: http.MethodGet, path: "/api/v1/auth/me", wantStatus: http.StatusOK, wantBody: "u-42 admin"},
			},
		},
	}
}

func todoRoutes(_ *testing.T, r router.Router) {
	echo := func(action string) router.HandlerFunc {
		return func(c router.Context) error {
			if id := c.Param("id"); id != "" {
				action += " " + id
			}
			return c.String(http.StatusOK, action)
		}
	}
	api := r.Group("/api/v1")
	api.GET("/todos", echo("list"))
	api.POST("/todos", echo("create"))
	api.GET("/todos/:id", echo("get"))
	api.PATCH("/todos/:id", echo("patch"))
	api.DELETE("/todos/:id", echo("delete"))
	api.POST("/todos/:id/toggle", echo("toggle"))
	users := api.Group("/users")
	users.PUT("/:id/roles", echo("roles"))
}

func queryRoutes(_ *testing.T, r router.Router) {
	api := r.Group("/api/v1")
	api.GET("/search", func(c router.Context) error {
		return c.String(http.StatusOK, c.Query("sort")+"/"+c.Query("order"))
	})
	api.GET("/search/:userId/todos/:todoId", func(c router.Context) error {
		return c.String(http.StatusOK, c.Param("userId")+":"+c.Param("todoId")+":"+c.Param("missing"))
	})
}

const traceKey = "trace"

func trace(layer string) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			seen, _ := c.Get(traceKey).([]string)
			c.Set(traceKey, append(seen, layer))
			return next(c)
		}
	}
}

func layeredRoutes(_ *testing.T, r router.Router) {
	r.Use(trace("global"), func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			c.Response().Header().Set("X-Layer", "global")
			return next(c)
		}
	})
	handler := func(c router.Context) error {
		seen, _ := c.Get(traceKey).([]string)
		return c.String(http.StatusOK, strings.Join(append(seen, "handler"), ","))
	}
	api := r.Group("/api/v1", trace("group"))
	api.GET("/me", handler)
	admin := api.Group("/admin", trace("admin"))
	admin.GET("/users", handler, trace("route"))
	admin.PATCH("/users", handler)
}

func shortCircuitRoutes(t *testing.T, r router.Router) {
	deny := func(router.HandlerFunc) router.HandlerFunc {
		return func(router.Context) error { return errors.New("missing bearer token") }
	}
	r.GET("/api/v1/todos", func(c router.Context) error {
		t.Error("handler behind a rejecting middleware must not run")
		return c.String(http.StatusOK, "leaked")
	}, deny)
	r.GET("/api/v1/written", func(c router.Context) error {
		if err := c.String(http.StatusTeapot, "already answered"); err != nil {
			return err
		}
		return errors.New("late failure")
	})
}

func bindRoutes(_ *testing.T, r router.Router) {
	v := controller.NewValidator()
	r.POST("/api/v1/todos", func(c router.Context) error {
		var req model.CreateTodoRequest
		if err := v.Bind(c, &req); err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, req)
	})
}

func failingRoutes(_ *testing.T, r router.Router) {
	todos := document.NewMemoryRepository[model.Todo]()
	api := r.Group("/api/v1")
	api.GET("/todos/:id", func(c router.Context) error {
		_, err := todos.FindByID(c.Request().Context(), c.Param("id"))
		return err
	})
	api.GET("/todos", func(c router.Context) error {
		req := pagination.Request{Cursor: c.Query("cursor")}
		if c.Query("limit") != "" {
			if _, err := fmt.Sscan(c.Query("limit"), &req.Limit); err != nil {
				return controller.NewValidationError("limit must be an integer", nil)
			}
		}
		page, perr := pagination.Paginate[model.Todo](c.Request().Context(), todos, req)
		if perr != nil {
			return perr
		}
		return controller.Paginated(c, page)
	})
	api.POST("/roles", func(c router.Context) error {
		return fmt.Errorf("create role: %w", document.ErrConflict)
	})
	api.GET("/auth/me", func(c router.Context) error {
		return controller.NewUnauthorizedError("missing bearer token")
	})
	api.DELETE("/roles/:name", func(c router.Context) error {
		return controller.NewForbiddenError("builtin role " + c.Param("name") + " cannot be deleted")
	})
	api.GET("/boom", func(c router.Context) error {
		return errors.New("mongo: connection reset")
	})
}

func responseRoutes(t *testing.T, r router.Router) {
	api := r.Group("/api/v1")
	api.GET("/version", func(c router.Context) error {
		return c.String(http.StatusOK, "v1.2.3")
	})
	api.DELETE("/todos/:id", func(c router.Context) error {
		return c.JSON(http.StatusNoContent, map[string]string{"ignored": "yes"})
	})
	api.GET("/todos/:id", func(c router.Context) error {
		rw := c.Response()
		if rw.Written() {
			t.Error("Written must be false before the first write")
		}
		rw.WriteHeader(http.StatusNotModified)
		if !rw.Written() || rw.Status() != http.StatusNotModified {
			t.Errorf("after WriteHeader: written=%v status=%d", rw.Written(), rw.Status())
		}
		return nil
	})
	api.POST("/todos/:id/toggle", func(c router.Context) error {
		rw := c.Response()
		rw.WriteHeader(http.StatusAccepted)
		_, err := rw.Write([]byte("queued"))
		if rw.Status() != http.StatusAccepted {
			t.Errorf("status = %d after write", rw.Status())
		}
		return err
	})
}

type actorKey struct{}

func contextRoutes(t *testing.T, r router.Router) {
	r.Use(func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			if c.Get("user_id") != nil {
				t.Error("unset keys must read as nil")
			}
			c.Set("user_id", "u-42")
			c.SetRequest(c.Request().WithContext(context.WithValue(c.Request().Context(), actorKey{}, "admin")))
			return next(c)
		}
	})
	r.GET("/api/v1/auth/me", func(c router.Context) error {
		role, _ := c.Request().Context().Value(actorKey{}).(string)
		return c.String(http.StatusOK, fmt.Sprintf("%v %s", c.Get("user_id"), role))
	})
}

func (ex exchange) check(t *testing.T, res *httptest.ResponseRecorder) {
	t.Helper()
	if res.Code != ex.wantStatus {
		t.Fatalf("status = %d, want %d (body %q)", res.Code, ex.wantStatus, res.Body.String())
	}
	body := res.Body.String()
	if ex.wantBody != "" || ex.wantStatus == http.StatusNoContent || ex.wantStatus == http.StatusNotModified {
		if body != ex.wantBody {
			t.Errorf("body = %q, want %q", body, ex.wantBody)
		}
	}
	for _, s := range ex.wantContains {
		if !strings.Contains(body, s) {
			t.Errorf("body %q does not contain %q", body, s)
		}
	}
	for k, v := range ex.wantHeaders {
		if got := res.Header().Get(k); !strings.Contains(got, v) {
			t.Errorf("header %s = %q, want %q", k, got, v)
		}
	}
	if ex.wantCode != "" {
		var env controller.ErrorResponse
		if err := json.Unmarshal(res.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode error envelope: %v (%q)", err, body)
		}
		if env.Code != ex.wantCode || env.Message == "" {
			t.Errorf("envelope = %+v, want code %q", env, ex.wantCode)
		}
	}
	if ex.wantResult != "" {
		var env pagination.Error
		if err := json.Unmarshal(res.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode pagination envelope: %v (%q)", err, body)
		}
		if env.Code != ex.wantStatus || env.ResultMessage != ex.wantResult || env.Timestamp == "" {
			t.Errorf("pagination envelope = %+v, want %q", env, ex.wantResult)
		}
	}
	if ex.wantStatus == http.StatusInternalServerError && strings.Contains(body, "mongo") {
		t.Errorf("internal cause leaked: %q", body)
	}
}

func bodyReader(body string) io.Reader {
	if body == "" {
		return nil
	}
	return strings.NewReader(body)
}

func performRequest(r router.Router, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	var testBody io.Reader = http.NoBody
	if body != nil {
		testBody = body
	}
	req := httptest.NewRequest(method, path, testBody)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
