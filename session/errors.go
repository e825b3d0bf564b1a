package session

import "errors"

// Sentinel errors for session operations.
var (
	// ErrInvalidCredential indicates the credential could not be decoded.
	ErrInvalidCredential = errors.New("session: invalid credential")

	// ErrCredentialExpired indicates the credential's expiry is in the past.
	ErrCredentialExpired = errors.New("session: credential expired")

	// ErrNotAuthenticated indicates a privileged operation was attempted
	// without an authenticated session.
	ErrNotAuthenticated = errors.New("session: not authenticated")

	// ErrSessionExpired indicates the session expired; teardown has already
	// run by the time this error is returned.
	ErrSessionExpired = errors.New("session: session expired")
)
