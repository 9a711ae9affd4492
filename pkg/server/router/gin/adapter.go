// Package gin provides a gin-gonic based implementation of the router.Router interface.
package gin

import (
	"net/http"
	"sync"

	ginpkg "github.com/gin-gonic/gin"

	"github.com/nimburion/taskboard/pkg/server/router"
)

// GinRouter implements router.Router using gin-gonic/gin.
type GinRouter struct {
	engine     *ginpkg.Engine
	group      *ginpkg.RouterGroup
	middleware []router.MiddlewareFunc
	opts       router.Options
	shared     *shared
}

// shared is the state common to a router and all its groups.
type shared struct {
	mu      sync.RWMutex
	root    *GinRouter
	options map[string]struct{}
}

// NewRouter creates a new GinRouter.
func NewRouter(opts ...router.Option) *GinRouter {
	ginpkg.SetMode(ginpkg.ReleaseMode)
	engine := ginpkg.New()
	engine.HandleMethodNotAllowed = true

	r := &GinRouter{
		engine: engine,
		opts:   router.NewOptions(opts...),
		shared: &shared{options: make(map[string]struct{})},
	}
	r.shared.root = r
	if r.opts.NotFound != nil {
		engine.NoRoute(func(gc *ginpkg.Context) {
			r.shared.mu.RLock()
			global := append([]router.MiddlewareFunc{}, r.middleware...)
			r.shared.mu.RUnlock()
			r.serve(gc, router.Chain(r.opts.NotFound, global))
		})
	}
	return r
}

// GET registers a handler for HTTP GET requests at the specified path.
func (r *GinRouter) GET(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.handle(http.MethodGet, path, handler, middleware)
}

// POST registers a handler for HTTP POST requests at the specified path.
func (r *GinRouter) POST(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.handle(http.MethodPost, path, handler, middleware)
}

// PUT registers a handler for HTTP PUT requests at the specified path.
func (r *GinRouter) PUT(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.handle(http.MethodPut, path, handler, middleware)
}

// DELETE registers a handler for HTTP DELETE requests at the specified path.
func (r *GinRouter) DELETE(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.handle(http.MethodDelete, path, handler, middleware)
}

// PATCH registers a handler for HTTP PATCH requests at the specified path.
func (r *GinRouter) PATCH(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.handle(http.MethodPatch, path, handler, middleware)
}

// Group creates a route group with common prefix and middleware.
func (r *GinRouter) Group(prefix string, middleware ...router.MiddlewareFunc) router.Router {
	r.shared.mu.RLock()
	combined := append([]router.MiddlewareFunc{}, r.middleware...)
	r.shared.mu.RUnlock()
	combined = append(combined, middleware...)

	var group *ginpkg.RouterGroup
	if r.group == nil {
		group = r.engine.Group(prefix)
	} else {
		group = r.group.Group(prefix)
	}

	return &GinRouter{
		engine:     r.engine,
		group:      group,
		middleware: combined,
		opts:       r.opts,
		shared:     r.shared,
	}
}

// Use applies middleware to routes registered afterwards.
func (r *GinRouter) Use(middleware ...router.MiddlewareFunc) {
	r.shared.mu.Lock()
	defer r.shared.mu.Unlock()
	r.middleware = append(r.middleware, middleware...)
}

// ServeHTTP implements http.Handler.
func (r *GinRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.engine.ServeHTTP(w, req)
}

func (r *GinRouter) handle(method, path string, h router.HandlerFunc, routeMiddleware []router.MiddlewareFunc) {
	r.shared.mu.RLock()
	global := append([]router.MiddlewareFunc{}, r.middleware...)
	r.shared.mu.RUnlock()

	handler := router.Chain(h, global, routeMiddleware)
	ginHandler := func(gc *ginpkg.Context) { r.serve(gc, handler) }

	if r.group != nil {
		r.group.Handle(method, path, ginHandler)
	} else {
		r.engine.Handle(method, path, ginHandler)
	}
	r.ensureOptionsRoute(path, global)
}

func (r *GinRouter) serve(gc *ginpkg.Context, handler router.HandlerFunc) {
	ctx := newContext(gc)
	if err := handler(ctx); err != nil && !ctx.Response().Written() {
		_ = r.opts.ErrorHandler(ctx, err)
	}
}

// ensureOptionsRoute answers preflight requests through the global
// middleware so CORS headers are applied.
func (r *GinRouter) ensureOptionsRoute(path string, global []router.MiddlewareFunc) {
	key := path
	if r.group != nil {
		key = r.group.BasePath() + path
	}

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

	optionsHandler := func(gc *ginpkg.Context) { r.serve(gc, handler) }
	if r.group != nil {
		r.group.Handle(http.MethodOptions, path, optionsHandler)
		return
	}
	r.engine.Handle(http.MethodOptions, path, optionsHandler)
}

// ginContext adapts gin.Context to router.Context.
type ginContext struct {
	ctx      *ginpkg.Context
	response router.ResponseWriter
}

func newContext(c *ginpkg.Context) *ginContext {
	return &ginContext{ctx: c, response: &ginResponseWriter{ResponseWriter: c.Writer}}
}

func (c *ginContext) Request() *http.Request { return c.ctx.Request }

func (c *ginContext) SetRequest(r *http.Request) { c.ctx.Request = r }

func (c *ginContext) Response() router.ResponseWriter { return c.response }

func (c *ginContext) SetResponse(w router.ResponseWriter) { c.response = w }

func (c *ginContext) Param(name string) string { return c.ctx.Param(name) }

func (c *ginContext) Query(name string) string { return c.ctx.Query(name) }

// Bind decodes a JSON request body into v.
func (c *ginContext) Bind(v interface{}) error {
	return router.DecodeJSON(c.ctx.Request, v)
}

// JSON writes v as JSON with the given status code.
func (c *ginContext) JSON(code int, v interface{}) error {
	return router.WriteJSON(c.response, code, v)
}

// String writes a plain text response with the given status code.
func (c *ginContext) String(code int, s string) error {
	return router.WriteString(c.response, code, s)
}

func (c *ginContext) Get(key string) interface{} {
	v, ok := c.ctx.Get(key)
	if !ok {
		return nil
	}
	return v
}

func (c *ginContext) Set(key string, value interface{}) { c.ctx.Set(key, value) }

// ginResponseWriter wraps gin.ResponseWriter to satisfy router.ResponseWriter.
type ginResponseWriter struct {
	ginpkg.ResponseWriter
	mu      sync.RWMutex
	status  int
	written bool
}

// Status returns the written status code, or 200 before anything is written.
func (w *ginResponseWriter) Status() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func (w *ginResponseWriter) Written() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.written
}

// WriteHeader records and sends the status code once; gin defers the real
// header write, so it is flushed here for body-less responses.
func (w *ginResponseWriter) WriteHeader(code int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.written {
		return
	}
	w.status = code
	w.written = true
	w.ResponseWriter.WriteHeader(code)
	w.ResponseWriter.WriteHeaderNow()
}

func (w *ginResponseWriter) Write(b []byte) (int, error) {
	if !w.Written() {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *ginResponseWriter) Flush() {
	w.ResponseWriter.Flush()
}
