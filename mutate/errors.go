package mutate

import "errors"

// Sentinel errors for mutation coordination.
var (
	// ErrBusy is returned when a mutation is already pending on the key.
	// The call leaves all state untouched; callers retry after settlement.
	ErrBusy = errors.New("mutate: mutation already in flight on key")

	// ErrEmptyKey is returned for an empty or invalid entity key.
	ErrEmptyKey = errors.New("mutate: entity key is empty")

	// ErrNilTransform is returned when no transform is provided.
	ErrNilTransform = errors.New("mutate: transform is nil")

	// ErrNilCommit is returned when no commit operation is provided.
	ErrNilCommit = errors.New("mutate: commit operation is nil")
)
