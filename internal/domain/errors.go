package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent error conditions in the likeship domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrNotAuthenticated is returned when an operation requires a
	// credential and none is stored.
	ErrNotAuthenticated = errors.New("likeship: not authenticated")

	// ErrRefreshInvalid is returned when the remote rejects the refresh
	// token. The stored credential is cleared and the user must log in
	// again.
	ErrRefreshInvalid = errors.New("likeship: refresh token rejected")

	// ErrUnauthorized is returned when the remote rejects the access token
	// on a delivery attempt (HTTP 401).
	ErrUnauthorized = errors.New("likeship: access token rejected")

	// ErrMissingRecordID is returned when a capture record lacks the
	// required recordId.
	ErrMissingRecordID = errors.New("likeship: record id is required")

	// ErrDrainInProgress is returned when a drain is requested while an
	// earlier drain is still running. Re-entering is a no-op.
	ErrDrainInProgress = errors.New("likeship: queue drain already in progress")

	// ErrAlreadyRunning is returned when the agent loop is started twice.
	ErrAlreadyRunning = errors.New("likeship: already running")

	// ErrEmailTaken is returned when registration conflicts with an
	// existing account (HTTP 409).
	ErrEmailTaken = errors.New("likeship: email already registered")

	// ErrInvalidLogin is returned when the remote rejects the login
	// credentials (HTTP 401).
	ErrInvalidLogin = errors.New("likeship: invalid email or password")
)

// TransportError wraps a transient delivery or auth transport failure:
// network unreachable, timeout, 5xx, or 429. Transport failures never
// destroy the credential and are always retried up to the attempt cap.
type TransportError struct {
	// Op names the failed operation ("send", "refresh", "login", ...).
	Op string
	// Status is the HTTP status code, or 0 when no response was received.
	Status int
	// Err is the underlying error, if any.
	Err error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("likeship: %s: server returned %d", e.Op, e.Status)
	}
	return fmt.Sprintf("likeship: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
