package controller

import (
	"net/http"
	"strings"

	"github.com/nimburion/taskboard/pkg/observability/logger"
	"github.com/nimburion/taskboard/pkg/pagination"
	"github.com/nimburion/taskboard/pkg/server/router"
)

// SuccessResponse represents a successful response with data
type SuccessResponse struct {
	Data      interface{} `json:"data"`
	RequestID string      `json:"request_id,omitempty"`
}

// Success sends a successful JSON response with HTTP 200 OK
// It wraps the provided data in a consistent response format
func Success(c router.Context, data interface{}) error {
	return c.JSON(http.StatusOK, SuccessResponse{
		Data:      data,
		RequestID: logger.RequestIDFromContext(c.Request().Context()),
	})
}

// Created sends a successful JSON response with HTTP 201 Created
func Created(c router.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, SuccessResponse{
		Data:      data,
		RequestID: logger.RequestIDFromContext(c.Request().Context()),
	})
}

// NoContent sends a successful response with HTTP 204 No Content
func NoContent(c router.Context) error {
	c.Response().WriteHeader(http.StatusNoContent)
	return nil
}

// Error sends an error response with the appropriate HTTP status code.
// Pagination failures keep their own envelope and status code.
func Error(c router.Context, err error) error {
	if perr, ok := pagination.AsError(err); ok {
		return c.JSON(perr.Code, perr)
	}
	statusCode, errorResponse := MapError(c.Request().Context(), err)
	return c.JSON(statusCode, errorResponse)
}

// Paginated writes a listing page with its ETag and Last-Modified validators.
// A request whose If-None-Match matches the ETag gets 304 with no body.
func Paginated[T any](c router.Context, resp *pagination.Response[T]) error {
	h := c.Response().Header()
	if resp.ETag != "" {
		h.Set("ETag", resp.ETag)
	}
	if resp.LastModified != "" {
		h.Set("Last-Modified", resp.LastModified)
	}
	h.Set("Cache-Control", "private, no-cache")
	if resp.ETag != "" && etagMatches(c.Request().Header.Get("If-None-Match"), resp.ETag) {
		c.Response().WriteHeader(http.StatusNotModified)
		return nil
	}
	return c.JSON(http.StatusOK, resp)
}

// etagMatches applies weak comparison to an If-None-Match header value.
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	want := strings.TrimPrefix(etag, "W/")
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == want {
			return true
		}
	}
	return false
}
