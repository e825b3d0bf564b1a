package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors classifying backend failures. Callers test with errors.Is;
// *StatusError unwraps to exactly one of these.
var (
	// ErrNetwork is a transient transport failure. Poll ticks retry it;
	// mutation callers see it once, without retry.
	ErrNetwork = errors.New("api: network error")

	// ErrValidation is rejected input. No state changed.
	ErrValidation = errors.New("api: validation failed")

	// ErrConflict is a stale version or duplicate grant. Triggers rollback.
	ErrConflict = errors.New("api: conflict")

	// ErrAuthExpired means the server no longer accepts the credential.
	// Triggers session teardown.
	ErrAuthExpired = errors.New("api: authentication expired")

	// ErrForbidden means the server denied access to an entity the client
	// believed visible. Advisory-predicate false positives land here.
	ErrForbidden = errors.New("api: access denied")

	// ErrNotFound means the entity was removed remotely; the cached copy
	// should be evicted.
	ErrNotFound = errors.New("api: not found")
)

// StatusError is a backend failure carrying the HTTP status that produced it.
// It unwraps to the matching taxonomy sentinel.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: backend returned status %d", e.Code)
	}
	return fmt.Sprintf("api: backend returned status %d: %s", e.Code, e.Message)
}

// Unwrap maps the status code onto the error taxonomy.
func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusUnauthorized:
		return ErrAuthExpired
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrValidation
	default:
		return ErrNetwork
	}
}

// NewStatusError creates a StatusError for the given HTTP status.
func NewStatusError(code int, message string) *StatusError {
	return &StatusError{Code: code, Message: message}
}

// IsTransient reports whether the error is worth retrying on a later tick.
func IsTransient(err error) bool {
	return errors.Is(err, ErrNetwork)
}
