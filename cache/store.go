package cache

import (
	"sync"
)

// Entity is one cached remote object or parameterized collection query.
type Entity struct {
	Key     string
	Value   any
	Version int64
	Pending bool
}

// Snapshot retains the prior state of an entity while a mutation on its key
// is pending. It exists iff the entity is pending and is destroyed on settle.
// Existed records whether the entity was present at all before the mutation,
// so rollback can restore absence as faithfully as it restores a value.
type Snapshot struct {
	Key          string
	PriorValue   any
	PriorVersion int64
	Existed      bool
}

// Transform produces a tentative value from the current one. It must be
// total: no panics, no I/O. A nil current value means the entity is absent.
type Transform func(current any) any

// Outcome settles a pending mutation: either a commit carrying the final
// value or a rollback to the snapshot.
type Outcome struct {
	commit bool
	value  any
}

// Commit creates an outcome that stores final and increments the version.
func Commit(final any) Outcome {
	return Outcome{commit: true, value: final}
}

// Rollback creates an outcome that restores the snapshot's value and version.
func Rollback() Outcome {
	return Outcome{}
}

// Store is a versioned key/value store of cached entities and collections.
// It has no knowledge of network or UI; all operations are synchronous and
// non-blocking.
//
// Contract:
// - Concurrency: safe for concurrent use; per-key mutation is serialized via
//   the pending flag (at most one pending mutation per key).
// - Versions: Put and Commit increment the version; readers never observe a
//   committed value whose version decreased. Rollback restores the exact
//   prior value and version.
type Store struct {
	mu        sync.Mutex
	entries   map[string]*entry
	snapshots map[string]Snapshot
}

type entry struct {
	value   any
	version int64
	pending bool
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		entries:   make(map[string]*entry),
		snapshots: make(map[string]Snapshot),
	}
}

// Get retrieves the entity at key. Returns (Entity{}, false) when absent.
func (s *Store) Get(key string) (Entity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return Entity{}, false
	}
	return Entity{Key: key, Value: e.value, Version: e.version, Pending: e.pending}, true
}

// Put stores value at key, incrementing the version and clearing any pending
// state. Putting over a pending entity discards its snapshot: fetched remote
// truth supersedes the outstanding mutation, whose settle will then be
// discarded as stale.
func (s *Store) Put(key string, value any) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		s.entries[key] = &entry{value: value, version: 1}
		return nil
	}
	e.value = value
	e.version++
	e.pending = false
	delete(s.snapshots, key)
	return nil
}

// BeginPending snapshots the entity at key, applies transform to produce a
// tentative value, and marks the entity pending. Fails with ErrPending if a
// mutation on key is already pending; state is untouched in that case.
//
// An absent entity may be mutated: transform receives nil and the entity is
// created pending at version 1.
func (s *Store) BeginPending(key string, transform Transform) (Snapshot, error) {
	if err := ValidateKey(key); err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if ok && e.pending {
		return Snapshot{}, ErrPending
	}

	if !ok {
		e = &entry{version: 1}
		s.entries[key] = e
	}

	snap := Snapshot{Key: key, PriorValue: e.value, PriorVersion: e.version, Existed: ok}
	e.value = transform(e.value)
	e.pending = true
	s.snapshots[key] = snap
	return snap, nil
}

// Settle resolves the pending mutation at key. On Commit the final value is
// stored and the version incremented; on Rollback the snapshot's state is
// restored exactly, including absence when the entity did not exist before
// the mutation. Both clear the pending flag and destroy the snapshot.
//
// Returns ErrNotPending when no mutation is pending at key, typically
// because an intervening Put applied fresher remote truth. Callers treat the
// settle as superseded and discard it.
func (s *Store) Settle(key string, outcome Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || !e.pending {
		return ErrNotPending
	}

	snap, ok := s.snapshots[key]
	if !ok {
		// Pending without a snapshot violates the store invariant.
		e.pending = false
		return ErrNotPending
	}

	if outcome.commit {
		e.value = outcome.value
		e.version++
		e.pending = false
		delete(s.snapshots, key)
		return nil
	}

	if !snap.Existed {
		delete(s.entries, key)
		delete(s.snapshots, key)
		return nil
	}
	e.value = snap.PriorValue
	e.version = snap.PriorVersion
	e.pending = false
	delete(s.snapshots, key)
	return nil
}

// Invalidate evicts the entry at key so the next access refetches it.
// Idempotent; evicting a pending entry also drops its snapshot.
func (s *Store) Invalidate(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	delete(s.snapshots, key)
	s.mu.Unlock()
}

// ClearAll drops every entry and snapshot. Used on session teardown; the
// clear is atomic with respect to all other store operations.
func (s *Store) ClearAll() {
	s.mu.Lock()
	s.entries = make(map[string]*entry)
	s.snapshots = make(map[string]Snapshot)
	s.mu.Unlock()
}

// Keys returns a copy of all cached keys, for diagnostics.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of cached entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
