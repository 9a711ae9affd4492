package recovery

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nimburion/taskboard/pkg/middleware/requestid"
	"github.com/nimburion/taskboard/pkg/server/router"
	ginrouter "github.com/nimburion/taskboard/pkg/server/router/gin"
	"github.com/nimburion/taskboard/pkg/testutil"
)

func TestRecovery_CatchesPanic(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{name: "string panic", value: "something went wrong"},
		{name: "error panic", value: errors.New("boom")},
		{name: "int panic", value: 42},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given a router with recovery and a handler that panics
			log, logs := testutil.NewLogger(t)
			r := ginrouter.NewRouter()
			r.Use(requestid.RequestID(), Recovery(log))
			r.GET("/panic", func(c router.Context) error { panic(tt.value) })

			// When the handler is called
			req := httptest.NewRequest(http.MethodGet, "/panic", nil)
			req.Header.Set(requestid.RequestIDHeader, "req-1")
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			// Then the client gets the 500 envelope without panic details
			if rec.Code != http.StatusInternalServerError {
				t.Fatalf("status = %d", rec.Code)
			}
			var body map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["error"] != "internal_server_error" || body["request_id"] != "req-1" {
				t.Errorf("body = %v", body)
			}
			if strings.Contains(rec.Body.String(), "boom") {
				t.Error("panic value leaked to the client")
			}

			// And the panic is logged with its stack
			entry, ok := logs.Find(t, "panic recovered")
			if !ok {
				t.Fatal("panic was not logged")
			}
			if entry["request_id"] != "req-1" || entry["stack"] == "" || entry["path"] != "/panic" {
				t.Errorf("log entry = %v", entry)
			}
		})
	}
}

func TestRecovery_PassesThroughNormalRequests(t *testing.T) {
	log, logs := testutil.NewLogger(t)
	r := ginrouter.NewRouter()
	r.Use(Recovery(log))
	r.GET("/ok", func(c router.Context) error { return c.String(http.StatusOK, "fine") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "fine" {
		t.Errorf("got %d %q", rec.Code, rec.Body.String())
	}
	if len(logs.Entries(t)) != 0 {
		t.Errorf("unexpected logs: %v", logs.Entries(t))
	}
}

func TestRecovery_DoesNotWriteIfResponseAlreadyWritten(t *testing.T) {
	log, _ := testutil.NewLogger(t)
	r := ginrouter.NewRouter()
	r.Use(Recovery(log))
	r.GET("/partial", func(c router.Context) error {
		_ = c.String(http.StatusAccepted, "partial")
		panic("late failure")
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/partial", nil))
	if rec.Code != http.StatusAccepted || rec.Body.String() != "partial" {
		t.Errorf("got %d %q", rec.Code, rec.Body.String())
	}
}
