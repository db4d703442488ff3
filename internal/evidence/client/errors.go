package client

import (
	"errors"
	"fmt"
	"net/http"

	"revalidation/internal/cycle/models"
)

// ErrCircuitOpen is returned without a network call while a category's
// breaker is open.
var ErrCircuitOpen = errors.New("evidence circuit open")

// FailureKind normalizes collaborator failures.
type FailureKind string

const (
	FailureTimeout  FailureKind = "timeout"
	FailureOutage   FailureKind = "outage"
	FailureBadData  FailureKind = "bad_data"
	FailureAuth     FailureKind = "authentication"
	FailureNotFound FailureKind = "not_found"
)

// Error wraps a failed evidence read.
type Error struct {
	Kind     FailureKind
	Category models.Category
	Status   int
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("evidence %s [%s]: %v", e.Category, e.Kind, e.Err)
	}
	return fmt.Sprintf("evidence %s [%s] status %d", e.Category, e.Kind, e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

// countsAgainstBreaker is false for failures that say nothing about the
// collaborator's health.
func (e *Error) countsAgainstBreaker() bool {
	return e.Kind == FailureTimeout || e.Kind == FailureOutage
}

func kindForStatus(status int) FailureKind {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return FailureAuth
	case status == http.StatusNotFound:
		return FailureNotFound
	case status == http.StatusGatewayTimeout, status == http.StatusRequestTimeout:
		return FailureTimeout
	case status >= 500, status == http.StatusTooManyRequests:
		return FailureOutage
	default:
		return FailureBadData
	}
}
