package pagination

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// ErrMalformedCursor is wrapped by every cursor decoding failure.
	ErrMalformedCursor = errors.New("malformed cursor")
	// ErrInvalidParameters is wrapped by request validation failures.
	ErrInvalidParameters = errors.New("invalid pagination parameters")
)

// ErrorKind classifies a pagination failure.
type ErrorKind string

// Error kinds.
const (
	MalformedCursor   ErrorKind = "MalformedCursor"
	DataSourceFailure ErrorKind = "DataSourceFailure"
	InvalidParameters ErrorKind = "InvalidParameters"
)

var resultMessages = map[ErrorKind]string{
	MalformedCursor:   "Invalid pagination cursor",
	DataSourceFailure: "Failed to retrieve paginated results",
	InvalidParameters: "Invalid pagination parameters",
}

// Error is the structured failure returned by Paginate. It serialises to the
// error envelope {code, resultMessage, debugMessage, timestamp}.
type Error struct {
	Kind          ErrorKind `json:"-"`
	Code          int       `json:"code"`
	ResultMessage string    `json:"resultMessage"`
	DebugMessage  string    `json:"debugMessage,omitempty"`
	Timestamp     string    `json:"timestamp"`

	cause error
}

func newError(kind ErrorKind, cause error, now time.Time) *Error {
	e := &Error{
		Kind:          kind,
		Code:          http.StatusInternalServerError,
		ResultMessage: resultMessages[kind],
		Timestamp:     now.UTC().Format(time.RFC3339),
		cause:         cause,
	}
	if cause != nil {
		e.DebugMessage = cause.Error()
	}
	return e
}

func (e *Error) Error() string {
	if e.DebugMessage == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.ResultMessage)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.ResultMessage, e.DebugMessage)
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error { return e.cause }

// AsError extracts a pagination Error from err.
func AsError(err error) (*Error, bool) {
	var perr *Error
	if errors.As(err, &perr) {
		return perr, true
	}
	return nil, false
}
