// Package service holds the booking domain logic.  Services depend on small
// store interfaces satisfied by the repository package and report failures
// as *Error values that carry the HTTP status to answer with.
package service

import (
	"errors"
	"net/http"
)

// Error is a failure the client may see.  Anything that is not an *Error
// is an internal failure and must not be shown to the client.
type Error struct {
	Status  int
	Message string
	Details map[string]string
}

func (e *Error) Error() string { return e.Message }

func newError(status int, msg string) *Error { return &Error{Status: status, Message: msg} }

func badRequest(msg string) *Error { return newError(http.StatusBadRequest, msg) }
func forbidden(msg string) *Error  { return newError(http.StatusForbidden, msg) }
func notFound(msg string) *Error   { return newError(http.StatusNotFound, msg) }
func conflict(msg string) *Error   { return newError(http.StatusConflict, msg) }

// AsError extracts an *Error from err.
func AsError(err error) (*Error, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// ErrBookingFailed is what a student sees when checkout fails for a reason
// they cannot fix.
var ErrBookingFailed = newError(http.StatusInternalServerError, "Booking failed. Please try again.")
