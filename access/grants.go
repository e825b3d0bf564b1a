package access

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Manav0411/askbase-go/api"
	"github.com/Manav0411/askbase-go/cache"
	"github.com/Manav0411/askbase-go/mutate"
	"github.com/Manav0411/askbase-go/observe"
)

// Key returns the cache key of a document's grant collection.
func Key(documentID string) string {
	return "grants:" + documentID
}

// Manager runs grant and revoke flows as optimistic mutations against the
// cached grant collection of a document.
type Manager struct {
	store   *cache.Store
	coord   *mutate.Coordinator
	backend api.GrantBackend
	logger  observe.Logger
}

// NewManager creates a grant manager.
func NewManager(store *cache.Store, coord *mutate.Coordinator, backend api.GrantBackend, logger observe.Logger) *Manager {
	if logger == nil {
		logger = observe.NopLogger()
	}
	return &Manager{store: store, coord: coord, backend: backend, logger: logger}
}

// Grants returns the document's grant list, read through the cache. The list
// is ordered by GrantedAt, as the server returns it.
func (m *Manager) Grants(ctx context.Context, documentID string) ([]api.Grant, error) {
	key := Key(documentID)
	if e, ok := m.store.Get(key); ok {
		if grants, ok := e.Value.([]api.Grant); ok {
			return grants, nil
		}
	}

	grants, err := m.backend.ListGrants(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("list grants for %s: %w", documentID, err)
	}
	if err := m.store.Put(key, grants); err != nil {
		return nil, err
	}
	return grants, nil
}

// GrantAccess appends a tentative grant (client-generated temporary ID) to
// the cached collection and submits it. Duplicate (type, target) pairs are
// rejected client-side with a conflict before submission; the server remains
// authoritative on true uniqueness and may still reject.
//
// The cached collection's version is attached to the request as an advisory
// concurrency token.
func (m *Manager) GrantAccess(ctx context.Context, documentID string, grantType api.GrantType, target string) (api.Grant, error) {
	if !grantType.Valid() {
		return api.Grant{}, fmt.Errorf("%w: unknown grant type %q", api.ErrValidation, grantType)
	}
	if target == "" {
		return api.Grant{}, fmt.Errorf("%w: empty grant target", api.ErrValidation)
	}

	current, err := m.Grants(ctx, documentID)
	if err != nil {
		return api.Grant{}, err
	}
	for _, g := range current {
		if g.Type == grantType && g.Target == target {
			return api.Grant{}, fmt.Errorf("%w: %s %q already has access to %s",
				api.ErrConflict, grantType, target, documentID)
		}
	}

	key := Key(documentID)
	var version int64
	if e, ok := m.store.Get(key); ok {
		version = e.Version
	}

	tentative := api.Grant{
		DocumentID: documentID,
		Type:       grantType,
		Target:     target,
		GrantedAt:  time.Now().UTC(),
		ClientID:   uuid.NewString(),
	}

	var created api.Grant
	_, err = m.coord.OptimisticApply(ctx, key,
		appendGrant(tentative),
		func(ctx context.Context) (any, error) {
			g, err := m.backend.CreateGrant(ctx, documentID, api.GrantRequest{
				Type:              grantType,
				Target:            target,
				CollectionVersion: version,
			})
			if err != nil {
				return nil, err
			}
			g.DocumentID = documentID
			created = g
			return append(withoutClientID(current, tentative.ClientID), g), nil
		},
	)
	if err != nil {
		m.logger.Warn(ctx, "grant rolled back",
			observe.String("document.id", documentID),
			observe.String("grant.target", target),
			observe.Err(err))
		return api.Grant{}, err
	}
	return created, nil
}

// RevokeAccess removes the grant with the given ID from the cached
// collection and submits the revoke. Exactly one grant is removed; if the
// server call fails, rollback re-inserts it at its original position.
func (m *Manager) RevokeAccess(ctx context.Context, documentID string, grantID int64) error {
	current, err := m.Grants(ctx, documentID)
	if err != nil {
		return err
	}

	found := false
	remaining := make([]api.Grant, 0, len(current))
	for _, g := range current {
		if g.ID == grantID {
			found = true
			continue
		}
		remaining = append(remaining, g)
	}
	if !found {
		return fmt.Errorf("%w: grant %d on document %s", api.ErrNotFound, grantID, documentID)
	}

	_, err = m.coord.OptimisticApply(ctx, Key(documentID),
		removeGrant(grantID),
		func(ctx context.Context) (any, error) {
			if err := m.backend.DeleteGrant(ctx, documentID, grantID); err != nil {
				return nil, err
			}
			return remaining, nil
		},
	)
	if err != nil {
		m.logger.Warn(ctx, "revoke rolled back",
			observe.String("document.id", documentID),
			observe.Int64("grant.id", grantID),
			observe.Err(err))
		return err
	}
	return nil
}

// appendGrant is the optimistic transform for a new tentative grant.
func appendGrant(g api.Grant) cache.Transform {
	return func(current any) any {
		grants, ok := current.([]api.Grant)
		if !ok {
			return []api.Grant{g}
		}
		out := make([]api.Grant, len(grants), len(grants)+1)
		copy(out, grants)
		return append(out, g)
	}
}

// removeGrant is the optimistic transform for a revoke. It removes exactly
// the grant with the given ID, preserving order.
func removeGrant(id int64) cache.Transform {
	return func(current any) any {
		grants, ok := current.([]api.Grant)
		if !ok {
			return current
		}
		out := make([]api.Grant, 0, len(grants))
		removed := false
		for _, g := range grants {
			if g.ID == id && !removed {
				removed = true
				continue
			}
			out = append(out, g)
		}
		return out
	}
}

func withoutClientID(grants []api.Grant, clientID string) []api.Grant {
	out := make([]api.Grant, 0, len(grants))
	for _, g := range grants {
		if g.ClientID == clientID {
			continue
		}
		out = append(out, g)
	}
	return out
}
