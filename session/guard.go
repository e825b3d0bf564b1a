package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Manav0411/askbase-go/api"
	"github.com/Manav0411/askbase-go/cache"
	"github.com/Manav0411/askbase-go/observe"
)

// State is the guard's position in its lifecycle.
type State int

const (
	StateAnonymous State = iota
	StateAuthenticating
	StateAuthenticated
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// Reason says why a session was torn down.
type Reason int

const (
	// LoggedOut is an explicit logout by the principal.
	LoggedOut Reason = iota
	// Expired is a detected credential expiry; equivalent to logout for all
	// downstream effects.
	Expired
	// ServerRejected is a server-signaled authentication failure.
	ServerRejected
)

// String returns the string representation of the reason.
func (r Reason) String() string {
	switch r {
	case Expired:
		return "expired"
	case ServerRejected:
		return "server_rejected"
	default:
		return "logged_out"
	}
}

// Session is the live identity: at most one exists at a time, and it is the
// unit of cache isolation.
type Session struct {
	Token     string
	Principal api.Principal
	ExpiresAt time.Time
}

// Config configures the Guard.
type Config struct {
	// VerifyKey, when set, verifies the credential's HS256 signature.
	// Unset, claims are decoded without verification: the identity is
	// advisory and the server re-authenticates every request.
	VerifyKey []byte

	// OnTeardown, if set, is called after every teardown with its reason.
	// Consumers use it to redirect to login on expiry.
	OnTeardown func(Reason)
}

// Guard owns the session lifecycle:
//
//	Anonymous -> Authenticating -> Authenticated -> {Expired|LoggedOut} -> Anonymous
//
// It is created explicitly and injected into the components that need it;
// there is no ambient global. Its teardown is the sole trigger for clearing
// the cache store.
type Guard struct {
	store  Store
	cache  *cache.Store
	logger observe.Logger
	cfg    Config

	mu      sync.Mutex
	state   State
	session Session
}

// NewGuard creates a guard over the persisted store and the cache it
// isolates.
func NewGuard(store Store, cacheStore *cache.Store, cfg Config, logger observe.Logger) *Guard {
	if logger == nil {
		logger = observe.NopLogger()
	}
	return &Guard{
		store:  store,
		cache:  cacheStore,
		logger: logger,
		cfg:    cfg,
		state:  StateAnonymous,
	}
}

// Establish validates the credential and opens a session for its principal.
// The cache is cleared before the new identity is persisted, so nothing from
// a prior principal can be served to the new one. Fails with
// ErrInvalidCredential when decoding fails and ErrCredentialExpired when the
// credential is already past its expiry; the guard stays Anonymous.
func (g *Guard) Establish(ctx context.Context, credential string) (Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.state = StateAuthenticating

	principal, expiresAt, err := decodeCredential(credential, g.cfg.VerifyKey)
	if err != nil {
		g.state = StateAnonymous
		return Session{}, err
	}
	if !expiresAt.After(time.Now()) {
		g.state = StateAnonymous
		return Session{}, fmt.Errorf("%w: at %s", ErrCredentialExpired, expiresAt.UTC().Format(time.RFC3339))
	}

	g.cache.ClearAll()

	encoded, err := json.Marshal(principal)
	if err != nil {
		g.state = StateAnonymous
		return Session{}, fmt.Errorf("session: encode principal: %w", err)
	}
	if err := g.store.Save(credential, encoded); err != nil {
		g.state = StateAnonymous
		return Session{}, fmt.Errorf("session: persist credentials: %w", err)
	}

	g.session = Session{Token: credential, Principal: principal, ExpiresAt: expiresAt}
	g.state = StateAuthenticated

	g.logger.Info(ctx, "session established",
		observe.Int("principal.id", principal.ID),
		observe.String("principal.role", string(principal.Role)))
	return g.session, nil
}

// RestoreOnBoot resumes a persisted session. A valid unexpired credential
// transitions directly to Authenticated without clearing the cache, which is
// already empty at boot. An invalid or expired credential clears
// the persisted state and the guard stays Anonymous; restore reports
// (Session{}, false, nil) in that case rather than an error.
func (g *Guard) RestoreOnBoot(ctx context.Context) (Session, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	credential, encoded, ok, err := g.store.Load()
	if err != nil {
		return Session{}, false, err
	}
	if !ok {
		return Session{}, false, nil
	}

	principal, expiresAt, err := decodeCredential(credential, g.cfg.VerifyKey)
	if err != nil || !expiresAt.After(time.Now()) {
		if cerr := g.store.Clear(); cerr != nil {
			return Session{}, false, cerr
		}
		g.logger.Info(ctx, "persisted session discarded",
			observe.Err(err))
		return Session{}, false, nil
	}

	// The persisted principal record should mirror the credential claims;
	// prefer it when it decodes, since it carries fields (email) the claims
	// may omit.
	var persisted api.Principal
	if jerr := json.Unmarshal(encoded, &persisted); jerr == nil && persisted.ID == principal.ID {
		principal = persisted
	}

	g.session = Session{Token: credential, Principal: principal, ExpiresAt: expiresAt}
	g.state = StateAuthenticated

	g.logger.Info(ctx, "session restored",
		observe.Int("principal.id", principal.ID),
		observe.String("principal.role", string(principal.Role)))
	return g.session, true, nil
}

// Teardown ends the session: the persisted pair and the cache are cleared
// and the guard returns to Anonymous. Idempotent; safe to call while
// Anonymous.
func (g *Guard) Teardown(ctx context.Context, reason Reason) error {
	g.mu.Lock()
	wasAuthenticated := g.state == StateAuthenticated
	g.session = Session{}
	g.state = StateAnonymous
	err := g.store.Clear()
	g.cache.ClearAll()
	g.mu.Unlock()

	if err != nil {
		return fmt.Errorf("session: clear persisted state: %w", err)
	}
	if wasAuthenticated {
		g.logger.Info(ctx, "session torn down",
			observe.String("reason", reason.String()))
		if g.cfg.OnTeardown != nil {
			g.cfg.OnTeardown(reason)
		}
	}
	return nil
}

// Require returns the live session for a privileged operation, checking
// expiry lazily. An expired session is torn down (with all the downstream
// effects of a logout) before ErrSessionExpired is returned.
func (g *Guard) Require(ctx context.Context) (Session, error) {
	g.mu.Lock()
	if g.state != StateAuthenticated {
		g.mu.Unlock()
		return Session{}, ErrNotAuthenticated
	}
	s := g.session
	g.mu.Unlock()

	if !s.ExpiresAt.After(time.Now()) {
		if err := g.Teardown(ctx, Expired); err != nil {
			return Session{}, err
		}
		return Session{}, ErrSessionExpired
	}
	return s, nil
}

// State returns the guard's current state.
func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Current returns the live session without an expiry check.
func (g *Guard) Current() (Session, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.session, g.state == StateAuthenticated
}
