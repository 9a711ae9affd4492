package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
)

var (
	// ErrEmptyBody is returned by Bind when the request has no body.
	ErrEmptyBody = errors.New("request body is empty")
	// ErrUnsupportedMediaType is returned by Bind for non-JSON bodies.
	ErrUnsupportedMediaType = errors.New("unsupported content type")
)

// DecodeJSON decodes a single JSON document from r into v. Unknown fields
// and trailing data are rejected.
func DecodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil || r.Body == http.NoBody {
		return ErrEmptyBody
	}
	defer r.Body.Close()

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return fmt.Errorf("%w: %q", ErrUnsupportedMediaType, r.Header.Get("Content-Type"))
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return err
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON document")
	}
	return nil
}

// WriteJSON writes v with status code. Statuses that forbid a body get headers only.
func WriteJSON(w ResponseWriter, code int, v interface{}) error {
	if !bodyAllowed(code) {
		w.WriteHeader(code)
		return nil
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}

// WriteString writes s as plain text with status code.
func WriteString(w ResponseWriter, code int, s string) error {
	if !bodyAllowed(code) {
		w.WriteHeader(code)
		return nil
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	_, err := io.WriteString(w, s)
	return err
}

func bodyAllowed(code int) bool {
	return !(code >= 100 && code < 200) && code != http.StatusNoContent && code != http.StatusNotModified
}
