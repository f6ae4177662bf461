// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes the symbolic error code constants mapped to HTTP
// responses via the `fail()` helper, plus the translation from service-layer
// sentinel errors to (status, code) pairs. The codes give clients a stable,
// machine-readable taxonomy that supplements human-readable messages.
//
// Conventions:
//   - Codes are lowercase snake_case.
//   - Generic codes (bad_request, unauthorized, conflict) mirror common HTTP
//     status semantics.
//   - Domain-specific codes (quota_exceeded, invalid_state) are reserved for
//     business failures that a bare status cannot convey.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cargolink/go-freight-backend/internal/services"
)

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeValidation   = "validation_error"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "rate_limited"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeQuotaExceeded = "quota_exceeded"
	ErrCodeInvalidState  = "invalid_state"
)

// failService translates a service-layer error into the enveloped HTTP
// response. Unknown errors become an opaque 500; validation errors carry
// their per-field details.
func failService(c *gin.Context, err error) {
	if verr, okv := services.AsValidation(err); okv {
		failWith(c, http.StatusBadRequest, ErrCodeValidation, "request validation failed", verr.Fields)
		return
	}

	switch {
	case errors.Is(err, services.ErrCargoNotFound),
		errors.Is(err, services.ErrQuoteNotFound),
		errors.Is(err, services.ErrDealNotFound),
		errors.Is(err, services.ErrThreadNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())

	case errors.Is(err, services.ErrNotCargoOwner),
		errors.Is(err, services.ErrNotParticipant),
		errors.Is(err, services.ErrNotDealParty):
		fail(c, http.StatusForbidden, ErrCodeForbidden, err.Error())

	// Own-cargo quotes are an invalid operation, not a permission failure.
	case errors.Is(err, services.ErrOwnCargoQuote):
		fail(c, http.StatusBadRequest, ErrCodeInvalidState, err.Error())

	case errors.Is(err, services.ErrDuplicateQuote),
		errors.Is(err, services.ErrDealExists):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())

	case errors.Is(err, services.ErrCargoNotActive),
		errors.Is(err, services.ErrQuoteNotPending),
		errors.Is(err, services.ErrInvalidTransition):
		fail(c, http.StatusConflict, ErrCodeInvalidState, err.Error())

	case errors.Is(err, services.ErrQuotaExceeded):
		fail(c, http.StatusForbidden, ErrCodeQuotaExceeded, err.Error())

	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
}
