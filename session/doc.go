// Package session derives, validates and persists the current principal's
// identity from an opaque credential, and owns cache-wide teardown on any
// identity change so no data leaks across sessions.
package session
