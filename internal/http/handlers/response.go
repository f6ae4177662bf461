// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the standard response envelope used across all endpoints.
// Every response, success or failure, is wrapped the same way so clients can
// branch on a single boolean before touching the payload:
//
//	HTTP/1.1 200 OK
//	{
//	  "success": true,
//	  "data": { "id": "abc123", "title": "Pallets to Hamburg" },
//	  "timestamp": "2025-01-15T10:30:00Z"
//	}
//
//	HTTP/1.1 404 Not Found
//	{
//	  "success": false,
//	  "error": { "code": "not_found", "message": "cargo not found" },
//	  "timestamp": "2025-01-15T10:30:00Z"
//	}
//
// Conventions:
//   - All error responses carry a stable `code` (see errors.go constants).
//   - `fail()` centralizes error formatting and ensures 5xx responses are
//     logged with request context.
//   - `ok()` and `paged()` keep success shapes consistent across handlers.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cargolink/go-freight-backend/internal/http/middleware"
)

// Envelope is the uniform wire wrapper for every API response.
type Envelope struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Error     *ErrorBody `json:"error,omitempty"`
	Timestamp string     `json:"timestamp" example:"2025-01-15T10:30:00Z"`
}

// ErrorBody is the failure half of the envelope.
type ErrorBody struct {
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"cargo not found"`
	// Optional structured detail, e.g. per-field validation failures
	Details any `json:"details,omitempty"`
}

// PageMeta describes one page of a list response.
type PageMeta struct {
	Page       int   `json:"page" example:"1"`
	PageSize   int   `json:"page_size" example:"20"`
	Total      int64 `json:"total" example:"137"`
	TotalPages int64 `json:"total_pages" example:"7"`
	HasNext    bool  `json:"has_next" example:"true"`
	HasPrev    bool  `json:"has_prev" example:"false"`
}

// pageMeta derives the full pagination block, navigation flags included.
func pageMeta(page, pageSize int, total int64) PageMeta {
	totalPages := int64(0)
	if pageSize > 0 {
		totalPages = (total + int64(pageSize) - 1) / int64(pageSize)
	}
	return PageMeta{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    int64(page) < totalPages,
		HasPrev:    page > 1 && total > 0,
	}
}

// Page is the standard list payload carried in Envelope.Data.
type Page struct {
	Items any      `json:"items"`
	Meta  PageMeta `json:"meta"`
}

func stamp() string { return time.Now().UTC().Format(time.RFC3339) }

// fail aborts the request with an enveloped error and logs server-side errors
// with the request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	failWith(c, status, code, msg, nil)
}

// failWith is fail with an attached details payload.
func failWith(c *gin.Context, status int, code, msg string, details any) {
	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, Envelope{
		Success:   false,
		Error:     &ErrorBody{Code: code, Message: msg, Details: details},
		Timestamp: stamp(),
	})
}

// Fail is the exported variant of fail() for use outside the package
// (router-level handlers such as NoRoute).
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// ok writes an enveloped success response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, Envelope{Success: true, Data: body, Timestamp: stamp()})
}

// paged writes an enveloped list response with pagination metadata.
func paged(c *gin.Context, items any, page, pageSize int, total int64) {
	ok(c, http.StatusOK, Page{
		Items: items,
		Meta:  pageMeta(page, pageSize, total),
	})
}
