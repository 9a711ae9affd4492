// Package controller holds the HTTP helpers shared by every handler: error
// mapping, response envelopes, request validation and listing query parsing.
package controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/nimburion/taskboard/pkg/auth"
	"github.com/nimburion/taskboard/pkg/observability/logger"
	"github.com/nimburion/taskboard/pkg/repository/document"
	"github.com/nimburion/taskboard/pkg/service"
)

// AppError is an error with an HTTP rendering.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]interface{}
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

// ErrorResponse represents the consistent error response format.
type ErrorResponse struct {
	Error     string                 `json:"error"`
	Code      string                 `json:"code,omitempty"`
	Message   string                 `json:"message,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// MapError maps application errors to HTTP responses. Domain sentinels are
// translated first; anything unknown becomes a 500 without leaking the cause.
func MapError(ctx context.Context, err error) (int, ErrorResponse) {
	requestID := logger.RequestIDFromContext(ctx)

	appErr := toAppError(err)
	if appErr == nil {
		return http.StatusInternalServerError, ErrorResponse{
			Error:     "internal_server_error",
			Message:   "an unexpected error occurred",
			RequestID: requestID,
		}
	}

	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	message := appErr.Message
	if message == "" {
		message = "an unexpected error occurred"
	}
	return status, ErrorResponse{
		Error:     errorCategory(status),
		Code:      appErr.Code,
		Message:   message,
		RequestID: requestID,
		Details:   appErr.Details,
	}
}

func toAppError(err error) *AppError {
	var appErr *AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, document.ErrNotFound):
		return NewNotFoundError("resource not found")
	case errors.Is(err, document.ErrConflict):
		return NewConflictError("resource already exists", nil)
	case errors.Is(err, document.ErrUnavailable):
		return &AppError{Code: "storage.unavailable", Message: "storage is temporarily unavailable", HTTPStatus: http.StatusServiceUnavailable, Cause: err}
	case errors.Is(err, service.ErrInvalidCredentials):
		return NewUnauthorizedError("invalid username or password")
	case errors.Is(err, auth.ErrInvalidToken):
		return NewUnauthorizedError("invalid or expired token")
	case errors.Is(err, service.ErrForbidden):
		return NewForbiddenError(unwrapMessage(err, service.ErrForbidden))
	case errors.Is(err, service.ErrInvalidInput):
		return NewValidationError(unwrapMessage(err, service.ErrInvalidInput), nil)
	default:
		return nil
	}
}

// unwrapMessage returns err's text without the sentinel prefix.
func unwrapMessage(err, sentinel error) string {
	return strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
}

// NewValidationError creates a new validation error.
func NewValidationError(message string, details map[string]interface{}) *AppError {
	return &AppError{Code: "validation.failed", Message: message, HTTPStatus: http.StatusBadRequest, Details: details}
}

// NewNotFoundError creates a new not found error.
func NewNotFoundError(message string) *AppError {
	return &AppError{Code: "resource.not_found", Message: message, HTTPStatus: http.StatusNotFound}
}

// NewConflictError creates a new conflict error.
func NewConflictError(message string, details map[string]interface{}) *AppError {
	return &AppError{Code: "resource.conflict", Message: message, HTTPStatus: http.StatusConflict, Details: details}
}

// NewUnauthorizedError creates a new unauthorized error.
func NewUnauthorizedError(message string) *AppError {
	return &AppError{Code: "auth.unauthorized", Message: message, HTTPStatus: http.StatusUnauthorized}
}

// NewForbiddenError creates a new forbidden error.
func NewForbiddenError(message string) *AppError {
	return &AppError{Code: "auth.forbidden", Message: message, HTTPStatus: http.StatusForbidden}
}

// NewInternalError creates a new internal error with optional cause.
func NewInternalError(message string, cause error) *AppError {
	return &AppError{Code: "internal.error", Message: message, HTTPStatus: http.StatusInternalServerError, Cause: cause}
}

// NewPayloadTooLargeError reports a request body over limit bytes.
func NewPayloadTooLargeError(limit int64) *AppError {
	return &AppError{
		Code:       "request.too_large",
		Message:    fmt.Sprintf("request body exceeds maximum allowed size of %d bytes", limit),
		HTTPStatus: http.StatusRequestEntityTooLarge,
		Details:    map[string]interface{}{"max_size": limit},
	}
}

// NewTimeoutError reports a request that ran past its deadline.
func NewTimeoutError() *AppError {
	return &AppError{Code: "request.timeout", Message: "request timed out", HTTPStatus: http.StatusGatewayTimeout}
}

func errorCategory(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "validation_error"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusRequestEntityTooLarge:
		return "payload_too_large"
	case http.StatusTooManyRequests:
		return "rate_limited"
	case http.StatusUnsupportedMediaType:
		return "unsupported_media_type"
	case http.StatusGatewayTimeout:
		return "timeout"
	case http.StatusServiceUnavailable:
		return "service_unavailable"
	default:
		if status >= 500 {
			return "internal_server_error"
		}
		return "application_error"
	}
}
