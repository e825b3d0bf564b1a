package cache

import "errors"

// Sentinel errors for store operations.
var (
	// ErrInvalidKey is returned for empty, blank or control-character keys.
	ErrInvalidKey = errors.New("cache: key is invalid")

	// ErrKeyTooLong is returned for keys over MaxKeyLength.
	ErrKeyTooLong = errors.New("cache: key exceeds max length")

	// ErrPending is returned by BeginPending when a mutation on the key is
	// already pending. One in-flight edit per entity; no queueing.
	ErrPending = errors.New("cache: mutation already pending on key")

	// ErrNotPending is returned by Settle when no mutation is pending on the
	// key, meaning the settle was superseded and must be discarded.
	ErrNotPending = errors.New("cache: no pending mutation on key")
)
