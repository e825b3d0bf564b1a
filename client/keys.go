package client

import "fmt"

// Cache keys are deterministic functions of the view they name, so every
// component that touches a collection agrees on its identity.

// AccessibleKey names the permission-filtered document list page.
func AccessibleKey(page, pageSize int) string {
	return fmt.Sprintf("documents:accessible:p%d:s%d", page, pageSize)
}

// AllKey names the unfiltered (admin) document list page.
func AllKey(page, pageSize int) string {
	return fmt.Sprintf("documents:all:p%d:s%d", page, pageSize)
}

// DocumentKey names a single document entity.
func DocumentKey(id string) string {
	return "document:" + id
}

// ConversationsKey names the conversation list page.
func ConversationsKey(page, pageSize int) string {
	return fmt.Sprintf("conversations:p%d:s%d", page, pageSize)
}

// MessagesKey names a conversation's message log.
func MessagesKey(conversationID string) string {
	return "conversation:" + conversationID + ":messages"
}
