package router_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nimburion/taskboard/pkg/server/router"
	ginadapter "github.com/nimburion/taskboard/pkg/server/router/gin"
	gorillaadapter "github.com/nimburion/taskboard/pkg/server/router/gorilla"
)

func TestRouterImplementations_ConformToInterface(t *testing.T) {
	var _ router.Router = ginadapter.NewRouter()
	var _ router.Router = gorillaadapter.NewRouter()
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}
	tests := []struct {
		name        string
		body        string
		contentType string
		wantErr     bool
	}{
		{name: "valid", body: `{"name":"a"}`, contentType: "application/json"},
		{name: "charset parameter", body: `{"name":"a"}`, contentType: "application/json; charset=utf-8"},
		{name: "unknown field", body: `{"name":"a","extra":1}`, contentType: "application/json", wantErr: true},
		{name: "trailing document", body: `{"name":"a"}{"name":"b"}`, contentType: "application/json", wantErr: true},
		{name: "wrong media type", body: `{"name":"a"}`, contentType: "text/plain", wantErr: true},
		{name: "blank body", body: ``, contentType: "application/json", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			var p payload
			err := router.DecodeJSON(req, &p)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && p.Name != "a" {
				t.Errorf("Name = %q", p.Name)
			}
		})
	}
}

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) router.MiddlewareFunc {
		return func(next router.HandlerFunc) router.HandlerFunc {
			return func(c router.Context) error {
				order = append(order, name)
				return next(c)
			}
		}
	}
	h := router.Chain(func(router.Context) error {
		order = append(order, "handler")
		return nil
	}, []router.MiddlewareFunc{mw("a"), mw("b")}, []router.MiddlewareFunc{mw("c")})

	if err := h(nil); err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(order, ","); got != "a,b,c,handler" {
		t.Errorf("order = %s", got)
	}
}
