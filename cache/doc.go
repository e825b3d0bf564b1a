// Package cache provides the versioned entity store at the center of the
// sync engine.
//
// Every cached entity carries a version and an optional pending flag. An
// optimistic mutation begins with BeginPending, which applies a transform
// and keeps a snapshot of the prior state; it ends with exactly one Settle,
// either committing the server's authoritative value or rolling back to the
// snapshot. Remote truth written through Put always wins over a pending
// local edit.
package cache
