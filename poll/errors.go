package poll

import "errors"

// Sentinel errors for scheduler operations.
var (
	// ErrAlreadyWatching is returned when a watch is already active for the
	// collection key.
	ErrAlreadyWatching = errors.New("poll: already watching collection key")

	// ErrNilFetch is returned when a target carries no fetch function.
	ErrNilFetch = errors.New("poll: fetch function is nil")

	// ErrNilPredicate is returned when a target carries no predicate.
	ErrNilPredicate = errors.New("poll: predicate is nil")

	// ErrEmptyKey is returned for a target without a collection key.
	ErrEmptyKey = errors.New("poll: collection key is empty")

	// ErrClosed is returned when watching on a closed scheduler.
	ErrClosed = errors.New("poll: scheduler is closed")
)
