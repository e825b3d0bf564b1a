package api

import (
	"fmt"
	"time"
)

// Role is the closed set of principal roles known to the backend.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleHR       Role = "hr"
	RoleEngineer Role = "engineer"
	RoleIntern   Role = "intern"
)

// ParseRole parses a role string into a Role. Unknown values are rejected
// rather than silently mapped to "no access" or "full access".
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleHR, RoleEngineer, RoleIntern:
		return Role(s), nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrValidation, s)
	}
}

// Valid reports whether the role is a member of the closed set.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleHR, RoleEngineer, RoleIntern:
		return true
	default:
		return false
	}
}

// Principal is the authenticated identity driving permission checks.
type Principal struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// GrantType discriminates user grants from role grants.
type GrantType string

const (
	GrantUser GrantType = "user"
	GrantRole GrantType = "role"
)

// Valid reports whether the grant type is known.
func (t GrantType) Valid() bool {
	return t == GrantUser || t == GrantRole
}

// Grant is a permission record giving a user or role access to a document.
// Grants are immutable once created and removed only by explicit revoke.
//
// ClientID is set only on tentative grants created optimistically before the
// server has assigned an ID; it never appears on the wire.
type Grant struct {
	ID         int64     `json:"id"`
	DocumentID string    `json:"-"`
	Type       GrantType `json:"permission_type"`
	Target     string    `json:"granted_to"`
	GrantedAt  time.Time `json:"granted_at"`
	ClientID   string    `json:"-"`
}

// GrantRequest is the payload for creating a grant on a document.
// CollectionVersion carries the cached grant collection's version as an
// advisory concurrency token; the server may use it to detect lost updates.
type GrantRequest struct {
	Type              GrantType `json:"permission_type"`
	Target            string    `json:"granted_to"`
	CollectionVersion int64     `json:"-"`
}

// DocumentStatus is the processing state of an uploaded document.
type DocumentStatus string

const (
	StatusProcessing DocumentStatus = "processing"
	StatusCompleted  DocumentStatus = "completed"
	StatusFailed     DocumentStatus = "failed"
)

// Terminal reports whether the status is a terminal processing state.
func (s DocumentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Document is an access-controlled document owned by a principal.
type Document struct {
	ID               string         `json:"id"`
	OriginalFilename string         `json:"original_filename"`
	StoredFilename   string         `json:"stored_filename"`
	FilePath         string         `json:"file_path"`
	UploadedBy       int            `json:"uploaded_by"`
	UploadedAt       time.Time      `json:"uploaded_at"`
	Status           DocumentStatus `json:"status"`
}

// Pagination is the metadata attached to every paginated collection.
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}

// DocumentList is a page of documents with its pagination metadata.
type DocumentList struct {
	Items      []Document `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// ProcessingCount returns the number of documents still processing.
// It is the default polling witness for document collections.
func (l DocumentList) ProcessingCount() int {
	n := 0
	for _, d := range l.Items {
		if d.Status == StatusProcessing {
			n++
		}
	}
	return n
}

// Message is one turn of a conversation.
type Message struct {
	ID              int64     `json:"id"`
	Role            string    `json:"role"` // "user" or "assistant"
	Content         string    `json:"content"`
	Timestamp       time.Time `json:"timestamp"`
	ConfidenceScore *float64  `json:"confidence_score,omitempty"`
}

// Conversation is a question-answering thread over one document.
type Conversation struct {
	ID                 string    `json:"id"`
	UserID             int       `json:"user_id"`
	DocumentID         string    `json:"document_id"`
	Title              string    `json:"title"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
	Messages           []Message `json:"messages,omitempty"`
	SuggestedQuestions []string  `json:"suggested_questions,omitempty"`
	Document           *Document `json:"document,omitempty"`
}

// ConversationList is a page of conversations.
type ConversationList struct {
	Items      []Conversation `json:"items"`
	Pagination Pagination     `json:"pagination"`
}

// ConversationCreate is the payload for starting a conversation.
type ConversationCreate struct {
	DocumentID string `json:"document_id"`
	Title      string `json:"title"`
}

// ChatRequest is the payload for sending a message to a conversation.
type ChatRequest struct {
	ConversationID string `json:"-"`
	Message        string `json:"message"`
}

// ChatResponse pairs the stored user message with the assistant's reply.
type ChatResponse struct {
	ConversationID string  `json:"conversation_id"`
	Message        Message `json:"message"`
	AssistantReply Message `json:"assistant_reply"`
}
