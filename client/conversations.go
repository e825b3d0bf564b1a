package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Manav0411/askbase-go/api"
	"github.com/Manav0411/askbase-go/cache"
	"github.com/Manav0411/askbase-go/mutate"
)

// maxQuestionLen matches the server's message length limit.
const maxQuestionLen = 4000

// Conversations returns the caller's conversation list page, served from
// cache when present.
func (c *Client) Conversations(ctx context.Context, page, pageSize int) (api.ConversationList, error) {
	if _, err := c.guard.Require(ctx); err != nil {
		return api.ConversationList{}, err
	}
	v, err := c.readThrough(ctx, ConversationsKey(page, pageSize), func(ctx context.Context) (any, error) {
		return c.backend.FetchCollection(ctx, api.KindConversation, nil, page, pageSize)
	})
	if err != nil {
		return api.ConversationList{}, err
	}
	list, ok := v.(api.ConversationList)
	if !ok {
		return api.ConversationList{}, fmt.Errorf("conversations: unexpected collection type %T", v)
	}
	return list, nil
}

// CreateConversation starts a question-answering thread over a document.
// Cached conversation list pages are invalidated so they pick it up on next
// access.
func (c *Client) CreateConversation(ctx context.Context, documentID, title string) (api.Conversation, error) {
	if _, err := c.guard.Require(ctx); err != nil {
		return api.Conversation{}, err
	}
	v, err := c.backend.CreateEntity(ctx, api.KindConversation, api.ConversationCreate{
		DocumentID: documentID,
		Title:      title,
	})
	if err != nil {
		return api.Conversation{}, c.fail(ctx, err)
	}
	conv, ok := v.(api.Conversation)
	if !ok {
		return api.Conversation{}, fmt.Errorf("create conversation: unexpected entity type %T", v)
	}
	c.invalidatePrefix("conversations:")
	return conv, nil
}

// Messages returns a conversation's message log, served from cache when
// present.
func (c *Client) Messages(ctx context.Context, conversationID string) ([]api.Message, error) {
	if _, err := c.guard.Require(ctx); err != nil {
		return nil, err
	}
	v, err := c.readThrough(ctx, MessagesKey(conversationID), func(ctx context.Context) (any, error) {
		ev, err := c.backend.FetchEntity(ctx, api.KindConversation, conversationID)
		if err != nil {
			return nil, err
		}
		conv, ok := ev.(api.Conversation)
		if !ok {
			return nil, fmt.Errorf("conversation %s: unexpected entity type %T", conversationID, ev)
		}
		return conv.Messages, nil
	})
	if err != nil {
		return nil, err
	}
	msgs, _ := v.([]api.Message)
	return msgs, nil
}

// Ask appends the question to the cached message log immediately, sends it to
// the server, and replaces the tentative entry with the stored question and
// the assistant's reply. On failure the log is restored exactly.
func (c *Client) Ask(ctx context.Context, conversationID, question string) (api.ChatResponse, error) {
	if _, err := c.guard.Require(ctx); err != nil {
		return api.ChatResponse{}, err
	}
	question = strings.TrimSpace(question)
	if question == "" || len(question) > maxQuestionLen {
		return api.ChatResponse{}, fmt.Errorf("ask: message length must be 1..%d: %w", maxQuestionLen, api.ErrValidation)
	}

	key := MessagesKey(conversationID)
	var prior []api.Message
	if e, ok := c.store.Get(key); ok {
		prior, _ = e.Value.([]api.Message)
	}

	tentative := api.Message{
		Role:      "user",
		Content:   question,
		Timestamp: time.Now().UTC(),
	}
	var resp api.ChatResponse

	_, err := c.coord.OptimisticApply(ctx, key, appendMessage(tentative), func(ctx context.Context) (any, error) {
		v, err := c.backend.CreateEntity(ctx, api.KindMessage, api.ChatRequest{
			ConversationID: conversationID,
			Message:        question,
		})
		if err != nil {
			return nil, c.fail(ctx, err)
		}
		r, ok := v.(api.ChatResponse)
		if !ok {
			return nil, fmt.Errorf("unexpected reply type %T", v)
		}
		resp = r
		final := make([]api.Message, 0, len(prior)+2)
		final = append(final, prior...)
		final = append(final, r.Message, r.AssistantReply)
		return final, nil
	})
	if err != nil {
		return api.ChatResponse{}, fmt.Errorf("ask: %w", err)
	}

	c.invalidatePrefix("conversations:")
	return resp, nil
}

// DeleteConversation removes the conversation optimistically from the cached
// list under viewKey, then deletes it on the server. On failure the list is
// restored exactly.
func (c *Client) DeleteConversation(ctx context.Context, id, viewKey string) error {
	if _, err := c.guard.Require(ctx); err != nil {
		return err
	}
	_, err := c.coord.OptimisticApply(ctx, viewKey, mutate.RemoveConversation(id), func(ctx context.Context) (any, error) {
		if err := c.backend.DeleteEntity(ctx, api.KindConversation, id); err != nil {
			return nil, c.fail(ctx, err)
		}
		e, _ := c.store.Get(viewKey)
		return e.Value, nil
	})
	if err != nil {
		return fmt.Errorf("delete conversation %s: %w", id, err)
	}
	c.store.Invalidate(MessagesKey(id))
	return nil
}

func appendMessage(m api.Message) cache.Transform {
	return func(current any) any {
		msgs, _ := current.([]api.Message)
		out := make([]api.Message, 0, len(msgs)+1)
		out = append(out, msgs...)
		return append(out, m)
	}
}

func (c *Client) invalidatePrefix(prefix string) {
	for _, k := range c.store.Keys() {
		if strings.HasPrefix(k, prefix) {
			c.store.Invalidate(k)
		}
	}
}
