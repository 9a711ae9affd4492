// Package gorilla provides a gorilla/mux based implementation of the router.Router interface.
package gorilla

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/mux"

	"github.com/nimburion/taskboard/pkg/server/router"
)

// GorillaRouter implements router.Router using gorilla/mux.
type GorillaRouter struct {
	router     *mux.Router
	middleware []router.MiddlewareFunc
	opts       router.Options
	shared     *shared
}

type shared struct {
	mu      sync.RWMutex
	options map[string]struct{}
}

// NewRouter creates a new GorillaRouter.
func NewRouter(opts ...router.Option) *GorillaRouter {
	r := &GorillaRouter{
		router: mux.NewRouter(),
		opts:   router.NewOptions(opts...),
		shared: &shared{options: make(map[string]struct{})},
	}
	if r.opts.NotFound != nil {
		r.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			r.shared.mu.RLock()
			global := append([]router.MiddlewareFunc{}, r.middleware...)
			r.shared.mu.RUnlock()
			r.serve(w, req, router.Chain(r.opts.NotFound, global))
		})
	}
	return r
}

func (r *GorillaRouter) GET(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.handle(http.MethodGet, path, handler, middleware)
}

func (r *GorillaRouter) POST(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.handle(http.MethodPost, path, handler, middleware)
}

func (r *GorillaRouter) PUT(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.handle(http.MethodPut, path, handler, middleware)
}

func (r *GorillaRouter) DELETE(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.handle(http.MethodDelete, path, handler, middleware)
}

func (r *GorillaRouter) PATCH(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.handle(http.MethodPatch, path, handler, middleware)
}

// Group creates a route group with common prefix and middleware.
func (r *GorillaRouter) Group(prefix string, middleware ...router.MiddlewareFunc) router.Router {
	r.shared.mu.RLock()
	combined := append([]router.MiddlewareFunc{}, r.middleware...)
	r.shared.mu.RUnlock()
	combined = append(combined, middleware...)

	return &GorillaRouter{
		router:     r.router.PathPrefix(toMuxPath(prefix)).Subrouter(),
		middleware: combined,
		opts:       r.opts,
		shared:     r.shared,
	}
}

// Use applies middleware to routes registered afterwards.
func (r *GorillaRouter) Use(middleware ...router.MiddlewareFunc) {
	r.shared.mu.Lock()
	defer r.shared.mu.Unlock()
	r.middleware = append(r.middleware, middleware...)
}

// ServeHTTP implements http.Handler.
func (r *GorillaRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.router.ServeHTTP(w, req)
}

func (r *GorillaRouter) handle(method, path string, h router.HandlerFunc, routeMiddleware []router.MiddlewareFunc) {
	r.shared.mu.RLock()
	global := append([]router.MiddlewareFunc{}, r.middleware...)
	r.shared.mu.RUnlock()

	handler := router.Chain(h, global, routeMiddleware)
	muxPath := toMuxPath(path)
	r.router.HandleFunc(muxPath, func(w http.ResponseWriter, req *http.Request) {
		r.serve(w, req, handler)
	}).Methods(method)

	r.ensureOptionsRoute(muxPath, global)
}

func (r *GorillaRouter) serve(w http.ResponseWriter, req *http.Request, handler router.HandlerFunc) {
	ctx := newContext(w, req)
	if err := handler(ctx); err != nil && !ctx.Response().Written() {
		_ = r.opts.ErrorHandler(ctx, err)
	}
}

func (r *GorillaRouter) ensureOptionsRoute(muxPath string, global []router.MiddlewareFunc) {
	key := fmt.Sprintf("%p%s", r.router, muxPath)

	r.shared.mu.Lock()
	if _, exists := r.shared.options[key]; exists {
		r.shared.mu.Unlock()
		return
	}
	r.shared.options[key] = struct{}{}
	r.shared.mu.Unlock()

	handler := router.Chain(func(c router.Context) error {
		if !c.Response().Written() {
			c.Response().WriteHeader(http.StatusNoContent)
		}
		return nil
	}, global)
	r.router.Methods(http.MethodOptions).Path(muxPath).HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.serve(w, req, handler)
	})
}

// toMuxPath converts ":name" segments to gorilla's "{name}" form.
func toMuxPath(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if strings.HasPrefix(p, ":") {
			parts[i] = "{" + p[1:] + "}"
		}
	}
	return strings.Join(parts, "/")
}

// gorillaContext adapts mux request/response to router.Context.
type gorillaContext struct {
	request  *http.Request
	response router.ResponseWriter
	store    map[string]interface{}
	mu       sync.RWMutex
}

func newContext(w http.ResponseWriter, r *http.Request) *gorillaContext {
	return &gorillaContext{
		request:  r,
		response: &gorillaResponseWriter{ResponseWriter: w},
		store:    make(map[string]interface{}),
	}
}

func (c *gorillaContext) Request() *http.Request { return c.request }

func (c *gorillaContext) SetRequest(r *http.Request) { c.request = r }

func (c *gorillaContext) Response() router.ResponseWriter { return c.response }

func (c *gorillaContext) SetResponse(w router.ResponseWriter) { c.response = w }

func (c *gorillaContext) Param(name string) string { return mux.Vars(c.request)[name] }

func (c *gorillaContext) Query(name string) string { return c.request.URL.Query().Get(name) }

func (c *gorillaContext) Bind(v interface{}) error { return router.DecodeJSON(c.request, v) }

func (c *gorillaContext) JSON(code int, v interface{}) error {
	return router.WriteJSON(c.response, code, v)
}

func (c *gorillaContext) String(code int, s string) error {
	return router.WriteString(c.response, code, s)
}

func (c *gorillaContext) Get(key string) interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store[key]
}

func (c *gorillaContext) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = value
}

// gorillaResponseWriter wraps http.ResponseWriter and tracks status/written state.
type gorillaResponseWriter struct {
	http.ResponseWriter
	status  int
	written bool
	mu      sync.RWMutex
}

func (w *gorillaResponseWriter) WriteHeader(code int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.written {
		return
	}
	w.status = code
	w.written = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *gorillaResponseWriter) Write(b []byte) (int, error) {
	if !w.Written() {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *gorillaResponseWriter) Status() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func (w *gorillaResponseWriter) Written() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.written
}

func (w *gorillaResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

func (w *gorillaResponseWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (w *gorillaResponseWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
