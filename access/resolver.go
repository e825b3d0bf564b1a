package access

import (
	"strconv"

	"github.com/Manav0411/askbase-go/api"
)

// CanAccess reports whether the principal may see a document owned by
// ownerID given its grant list. Admins see everything, owners see their own
// documents, then user grants and role grants are consulted in that order.
//
// An invalid role never matches a role grant; it does not fall through to
// admin or any other branch.
func CanAccess(principal api.Principal, ownerID int, grants []api.Grant) bool {
	if principal.Role == api.RoleAdmin {
		return true
	}
	if principal.ID == ownerID {
		return true
	}

	target := strconv.Itoa(principal.ID)
	for _, g := range grants {
		if g.Type == api.GrantUser && g.Target == target {
			return true
		}
	}
	if !principal.Role.Valid() {
		return false
	}
	for _, g := range grants {
		if g.Type == api.GrantRole && g.Target == string(principal.Role) {
			return true
		}
	}
	return false
}

// FilterDocuments returns the documents the principal may see, preserving
// order. grantsFor supplies the grant list per document; a nil grantsFor
// means no grants are known (ownership and admin still apply).
func FilterDocuments(principal api.Principal, docs []api.Document, grantsFor func(documentID string) []api.Grant) []api.Document {
	out := make([]api.Document, 0, len(docs))
	for _, d := range docs {
		var grants []api.Grant
		if grantsFor != nil {
			grants = grantsFor(d.ID)
		}
		if CanAccess(principal, d.UploadedBy, grants) {
			out = append(out, d)
		}
	}
	return out
}

// CanMutate reports whether mutation affordances (delete, share) should be
// offered for a document. Matches the server's admin-only policy for
// destructive document operations.
func CanMutate(principal api.Principal) bool {
	return principal.Role == api.RoleAdmin
}
