// Package access computes the advisory accessibility predicate over
// principals, document ownership and grants, and expresses grant and revoke
// flows as optimistic mutations against the cached grant collections.
//
// The predicate is UI-facing only. Every remote operation is authorized
// server-side; a false negative here degrades UX, a false positive must
// never be trusted as authorization.
package access
