package controller

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/nimburion/taskboard/pkg/server/router"
)

// recorderWriter adapts httptest.ResponseRecorder to router.ResponseWriter.
type recorderWriter struct {
	*httptest.ResponseRecorder
	written bool
}

func (w *recorderWriter) WriteHeader(code int) {
	if w.written {
		return
	}
	w.written = true
	w.ResponseRecorder.WriteHeader(code)
}

func (w *recorderWriter) Write(b []byte) (int, error) {
	w.written = true
	return w.ResponseRecorder.Write(b)
}

func (w *recorderWriter) Status() int   { return w.Code }
func (w *recorderWriter) Written() bool { return w.written }

// mockContext implements router.Context for testing
type mockContext struct {
	request  *http.Request
	response *recorderWriter
	values   map[string]interface{}
}

func newMockContext(r *http.Request) *mockContext {
	return &mockContext{
		request:  r,
		response: &recorderWriter{ResponseRecorder: httptest.NewRecorder()},
		values:   map[string]interface{}{},
	}
}

func (m *mockContext) Request() *http.Request            { return m.request }
func (m *mockContext) SetRequest(r *http.Request)        { m.request = r }
func (m *mockContext) Response() router.ResponseWriter   { return m.response }
func (m *mockContext) SetResponse(router.ResponseWriter) {}
func (m *mockContext) Param(string) string               { return "" }
func (m *mockContext) Query(name string) string          { return m.request.URL.Query().Get(name) }
func (m *mockContext) Get(key string) interface{}        { return m.values[key] }
func (m *mockContext) Set(key string, value interface{}) { m.values[key] = value }
func (m *mockContext) Bind(v interface{}) error          { return json.NewDecoder(m.request.Body).Decode(v) }
func (m *mockContext) String(code int, s string) error {
	m.response.WriteHeader(code)
	_, err := m.response.Write([]byte(s))
	return err
}

func (m *mockContext) JSON(code int, v interface{}) error {
	m.response.Header().Set("Content-Type", "application/json")
	m.response.WriteHeader(code)
	return json.NewEncoder(m.response).Encode(v)
}

func jsonRequest(method, target, body string) *http.Request {
	r := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}
