// Package client is the facade over the AskBase sync engine. It wires the
// session guard, cache store, mutation coordinator, polling scheduler and
// grant manager over an api.Backend, and exposes the operations a consumer
// needs: authentication, read-through document and conversation access,
// optimistic deletion, permission management and processing-status watches.
//
// A Client is safe for concurrent use. Concurrent reads of the same
// collection are collapsed into a single backend fetch.
package client
