package api

import "context"

// Kind identifies a remote entity family.
type Kind string

const (
	KindDocument     Kind = "document"
	KindConversation Kind = "conversation"
	KindMessage      Kind = "message"
)

// Filter narrows a collection fetch. Keys are endpoint-specific
// (e.g. "view": "accessible" for the permission-filtered document list).
type Filter map[string]string

// Backend is the abstract boundary to the AskBase server.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: every method must honor cancellation/deadlines; timeouts are
//   the transport's responsibility and surface as ordinary errors.
// - Errors: failures should be *StatusError where an HTTP status is known,
//   so callers can classify them with errors.Is against the taxonomy in
//   errors.go.
//
// Return values are kind-dependent: FetchCollection returns DocumentList for
// KindDocument and ConversationList for KindConversation; FetchEntity returns
// Document or Conversation; CreateEntity for KindMessage takes a ChatRequest
// and returns a ChatResponse.
type Backend interface {
	FetchCollection(ctx context.Context, kind Kind, filter Filter, page, pageSize int) (any, error)
	FetchEntity(ctx context.Context, kind Kind, id string) (any, error)
	CreateEntity(ctx context.Context, kind Kind, payload any) (any, error)
	UpdateEntity(ctx context.Context, kind Kind, id string, payload any) (any, error)
	DeleteEntity(ctx context.Context, kind Kind, id string) error
}

// GrantBackend is the boundary to the per-document permission endpoints.
// ListGrants returns grants ordered by GrantedAt, matching the server.
type GrantBackend interface {
	ListGrants(ctx context.Context, documentID string) ([]Grant, error)
	CreateGrant(ctx context.Context, documentID string, req GrantRequest) (Grant, error)
	DeleteGrant(ctx context.Context, documentID string, grantID int64) error
}

// Authenticator exchanges login credentials for an opaque access token.
// Credential issuance itself is the server's concern; the client only
// forwards and stores the result.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (token string, err error)
}
