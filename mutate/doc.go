// Package mutate coordinates optimistic mutations against the cache store.
//
// A mutation snapshots the entity, applies a tentative transform so readers
// see the change immediately, runs the remote commit, and settles exactly
// once: commit on success, rollback on failure. One mutation may be in
// flight per entity key; a second attempt fails fast with ErrBusy.
package mutate
