package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Manav0411/askbase-go/access"
	"github.com/Manav0411/askbase-go/api"
	"github.com/Manav0411/askbase-go/mutate"
	"github.com/Manav0411/askbase-go/poll"
)

// Documents returns the permission-filtered document list page, served from
// cache when present.
func (c *Client) Documents(ctx context.Context, page, pageSize int) (api.DocumentList, error) {
	if _, err := c.guard.Require(ctx); err != nil {
		return api.DocumentList{}, err
	}
	v, err := c.readThrough(ctx, AccessibleKey(page, pageSize), func(ctx context.Context) (any, error) {
		return c.backend.FetchCollection(ctx, api.KindDocument, api.Filter{"view": "accessible"}, page, pageSize)
	})
	if err != nil {
		return api.DocumentList{}, err
	}
	list, ok := v.(api.DocumentList)
	if !ok {
		return api.DocumentList{}, fmt.Errorf("documents: unexpected collection type %T", v)
	}
	return list, nil
}

// AllDocuments returns the unfiltered document list page. The call is gated
// locally to administrators; the server enforces the same rule.
func (c *Client) AllDocuments(ctx context.Context, page, pageSize int) (api.DocumentList, error) {
	s, err := c.guard.Require(ctx)
	if err != nil {
		return api.DocumentList{}, err
	}
	if !access.CanMutate(s.Principal) {
		return api.DocumentList{}, fmt.Errorf("all documents: %w", api.ErrForbidden)
	}
	v, err := c.readThrough(ctx, AllKey(page, pageSize), func(ctx context.Context) (any, error) {
		return c.backend.FetchCollection(ctx, api.KindDocument, nil, page, pageSize)
	})
	if err != nil {
		return api.DocumentList{}, err
	}
	list, ok := v.(api.DocumentList)
	if !ok {
		return api.DocumentList{}, fmt.Errorf("all documents: unexpected collection type %T", v)
	}
	return list, nil
}

// Document returns one document, served from cache when present. A NotFound
// from the server evicts any cached copy.
func (c *Client) Document(ctx context.Context, id string) (api.Document, error) {
	if _, err := c.guard.Require(ctx); err != nil {
		return api.Document{}, err
	}
	key := DocumentKey(id)
	v, err := c.readThrough(ctx, key, func(ctx context.Context) (any, error) {
		return c.backend.FetchEntity(ctx, api.KindDocument, id)
	})
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			c.store.Invalidate(key)
		}
		return api.Document{}, err
	}
	doc, ok := v.(api.Document)
	if !ok {
		return api.Document{}, fmt.Errorf("document %s: unexpected entity type %T", id, v)
	}
	return doc, nil
}

// CanDelete reports whether the current principal may delete the document:
// administrators and the uploader.
func (c *Client) CanDelete(doc api.Document) bool {
	s, ok := c.guard.Current()
	if !ok {
		return false
	}
	return s.Principal.Role == api.RoleAdmin || doc.UploadedBy == s.Principal.ID
}

// DeleteDocument removes the document optimistically from the cached list
// under viewKey, then deletes it on the server. On failure the list is
// restored exactly. On success every other cached document view is
// invalidated so it refetches on next access.
func (c *Client) DeleteDocument(ctx context.Context, id, viewKey string) error {
	s, err := c.guard.Require(ctx)
	if err != nil {
		return err
	}
	if e, ok := c.store.Get(viewKey); ok {
		if list, ok := e.Value.(api.DocumentList); ok {
			for _, d := range list.Items {
				if d.ID == id && !(s.Principal.Role == api.RoleAdmin || d.UploadedBy == s.Principal.ID) {
					return fmt.Errorf("delete document %s: %w", id, api.ErrForbidden)
				}
			}
		}
	}

	_, err = c.coord.OptimisticApply(ctx, viewKey, mutate.RemoveDocument(id), func(ctx context.Context) (any, error) {
		if err := c.backend.DeleteEntity(ctx, api.KindDocument, id); err != nil {
			return nil, c.fail(ctx, err)
		}
		e, _ := c.store.Get(viewKey)
		return e.Value, nil
	})
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}

	c.store.Invalidate(DocumentKey(id))
	for _, k := range c.documentKeysExcept(viewKey) {
		c.store.Invalidate(k)
	}
	return nil
}

// Grants returns the document's permission grants, served from cache when
// present.
func (c *Client) Grants(ctx context.Context, documentID string) ([]api.Grant, error) {
	if _, err := c.guard.Require(ctx); err != nil {
		return nil, err
	}
	grants, err := c.grants.Grants(ctx, documentID)
	if err != nil {
		return nil, c.fail(ctx, err)
	}
	return grants, nil
}

// GrantAccess shares the document with a user or role, optimistically.
func (c *Client) GrantAccess(ctx context.Context, documentID string, grantType api.GrantType, target string) (api.Grant, error) {
	if _, err := c.guard.Require(ctx); err != nil {
		return api.Grant{}, err
	}
	g, err := c.grants.GrantAccess(ctx, documentID, grantType, target)
	if err != nil {
		return api.Grant{}, c.fail(ctx, err)
	}
	return g, nil
}

// RevokeAccess removes one grant, optimistically.
func (c *Client) RevokeAccess(ctx context.Context, documentID string, grantID int64) error {
	if _, err := c.guard.Require(ctx); err != nil {
		return err
	}
	if err := c.grants.RevokeAccess(ctx, documentID, grantID); err != nil {
		return c.fail(ctx, err)
	}
	return nil
}

// WatchProcessing polls the accessible document list page while any document
// on it is still processing. When the processing count drops, every other
// cached document view is invalidated.
func (c *Client) WatchProcessing(ctx context.Context, page, pageSize int, interval time.Duration) error {
	if _, err := c.guard.Require(ctx); err != nil {
		return err
	}
	key := AccessibleKey(page, pageSize)
	return c.sched.Watch(ctx, poll.Target{
		CollectionKey: key,
		Fetch: func(ctx context.Context) (any, error) {
			v, err := c.backend.FetchCollection(ctx, api.KindDocument, api.Filter{"view": "accessible"}, page, pageSize)
			if err != nil {
				return nil, c.fail(ctx, err)
			}
			return v, nil
		},
		Predicate: poll.ProcessingPredicate,
		Witness:   poll.ProcessingWitness,
		Interval:  interval,
		// Resolved per convergence so views cached after the watch started
		// are invalidated too.
		DependentKeys: func() []string { return c.documentKeysExcept(key) },
	})
}

// UnwatchProcessing stops the watch started by WatchProcessing.
func (c *Client) UnwatchProcessing(page, pageSize int) {
	c.sched.Unwatch(AccessibleKey(page, pageSize))
}

// DocumentsFreshness reports whether the watched page's cached value can be
// trusted as current.
func (c *Client) DocumentsFreshness(page, pageSize int) poll.Freshness {
	return c.sched.Freshness(AccessibleKey(page, pageSize))
}

func (c *Client) documentKeysExcept(except string) []string {
	var keys []string
	for _, k := range c.store.Keys() {
		if k != except && strings.HasPrefix(k, "documents:") {
			keys = append(keys, k)
		}
	}
	return keys
}
