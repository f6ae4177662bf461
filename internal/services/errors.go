// Package services defines the business logic for cargo postings, quotes,
// deals, and chat. This file centralizes common service-level error values so
// that they can be consistently returned by service methods and checked by
// callers.
//
// These errors are intended for internal use by the service layer; translation
// into user-facing messages or HTTP status codes is performed at the handler
// layer.
package services

import (
	"errors"
	"fmt"
	"strings"
)

// Lookup and ownership errors.
var (
	// ErrCargoNotFound indicates that the referenced cargo does not exist.
	ErrCargoNotFound = errors.New("cargo not found")

	// ErrQuoteNotFound indicates that the referenced quote does not exist.
	ErrQuoteNotFound = errors.New("quote not found")

	// ErrDealNotFound indicates that the referenced deal does not exist.
	ErrDealNotFound = errors.New("deal not found")

	// ErrThreadNotFound indicates that the referenced chat thread does not exist.
	ErrThreadNotFound = errors.New("chat thread not found")

	// ErrNotCargoOwner is returned when an operation reserved for the cargo
	// owner (viewing quotes, accepting a quote) is attempted by someone else.
	ErrNotCargoOwner = errors.New("only the cargo owner may perform this operation")

	// ErrNotParticipant is returned when a user outside a thread's fixed
	// participant pair attempts to read or write it.
	ErrNotParticipant = errors.New("not a participant of this conversation")

	// ErrNotDealParty is returned when a deal mutation is attempted by a user
	// who is neither shipper nor transporter on it.
	ErrNotDealParty = errors.New("not a party to this deal")
)

// State and conflict errors.
var (
	// ErrCargoNotActive is returned when an operation requires an Active
	// cargo (quoting, accepting) but the posting has moved on.
	ErrCargoNotActive = errors.New("cargo is no longer active")

	// ErrQuoteNotPending is returned when an already-resolved quote is
	// accepted a second time, or after it expired.
	ErrQuoteNotPending = errors.New("quote is no longer pending")

	// ErrOwnCargoQuote is returned when a carrier attempts to bid on their
	// own posting.
	ErrOwnCargoQuote = errors.New("cannot quote your own cargo")

	// ErrDuplicateQuote is returned when a carrier already has a quote on
	// the cargo, in any status.
	ErrDuplicateQuote = errors.New("quote already submitted for this cargo")

	// ErrDealExists is returned when the cargo already carries an open deal;
	// it is the loser's signal in a double-acceptance race.
	ErrDealExists = errors.New("cargo already has an active deal")

	// ErrInvalidTransition is returned when a deal status move is not in the
	// transition table.
	ErrInvalidTransition = errors.New("status transition not allowed")

	// ErrQuotaExceeded is returned when a trial-tier account reaches its
	// active-posting ceiling.
	ErrQuotaExceeded = errors.New("active cargo quota exceeded for trial accounts")
)

// FieldError describes a single invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates per-field input failures so handlers can return
// structured details alongside the 400 status.
type ValidationError struct {
	Fields []FieldError
}

// Error lists the offending fields.
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field)
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(names, ", "))
}

// add appends a field failure and returns the receiver for chaining.
func (e *ValidationError) add(field, message string) *ValidationError {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
	return e
}

// ok reports whether no failures were recorded.
func (e *ValidationError) ok() bool { return len(e.Fields) == 0 }

// AsValidation unwraps err into a *ValidationError when possible.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
