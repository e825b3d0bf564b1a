package client

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/Manav0411/askbase-go/access"
	"github.com/Manav0411/askbase-go/api"
	"github.com/Manav0411/askbase-go/cache"
	"github.com/Manav0411/askbase-go/mutate"
	"github.com/Manav0411/askbase-go/observe"
	"github.com/Manav0411/askbase-go/poll"
	"github.com/Manav0411/askbase-go/session"
)

// Server is the full remote surface the client talks to.
type Server interface {
	api.Backend
	api.GrantBackend
}

// Client coordinates the sync engine's components over one backend and one
// session.
type Client struct {
	backend api.Backend
	grants  *access.Manager
	auth    api.Authenticator

	store *cache.Store
	guard *session.Guard
	coord *mutate.Coordinator
	sched *poll.Scheduler

	logger  observe.Logger
	metrics *observe.Metrics
	sf      singleflight.Group

	teardowns chan session.Reason
}

// Option configures a Client.
type Option func(*options)

type options struct {
	logger       observe.Logger
	metrics      *observe.Metrics
	sessionStore session.Store
	verifyKey    []byte
	pollConfig   poll.Config
	auth         api.Authenticator
}

// WithLogger sets the logger shared by every component.
func WithLogger(l observe.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics sets the metrics recorder shared by every component.
func WithMetrics(m *observe.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithSessionStore sets the durable store for the credential/principal pair.
// Default: an in-memory store that does not survive the process.
func WithSessionStore(s session.Store) Option {
	return func(o *options) {
		o.sessionStore = s
	}
}

// WithVerifyKey enables HS256 signature verification of credentials.
func WithVerifyKey(key []byte) Option {
	return func(o *options) {
		o.verifyKey = key
	}
}

// WithPollConfig overrides the polling scheduler's defaults.
func WithPollConfig(cfg poll.Config) Option {
	return func(o *options) {
		o.pollConfig = cfg
	}
}

// WithAuthenticator enables Login. Without it the client can still Establish
// a session from an externally obtained credential.
func WithAuthenticator(a api.Authenticator) Option {
	return func(o *options) {
		o.auth = a
	}
}

// New creates a client over the given server.
func New(server Server, opts ...Option) *Client {
	o := &options{
		logger:       observe.NopLogger(),
		metrics:      observe.NopMetrics(),
		sessionStore: session.NewMemoryStore(),
	}
	for _, opt := range opts {
		opt(o)
	}

	store := cache.NewStore()
	coord := mutate.NewCoordinator(store,
		mutate.WithLogger(o.logger),
		mutate.WithMetrics(o.metrics),
	)

	c := &Client{
		backend:   server,
		auth:      o.auth,
		store:     store,
		coord:     coord,
		grants:    access.NewManager(store, coord, server, o.logger),
		sched:     poll.NewScheduler(store, o.pollConfig, poll.WithLogger(o.logger), poll.WithMetrics(o.metrics)),
		logger:    o.logger.With(observe.String("component", "client")),
		metrics:   o.metrics,
		teardowns: make(chan session.Reason, 8),
	}
	c.guard = session.NewGuard(o.sessionStore, store, session.Config{
		VerifyKey:  o.verifyKey,
		OnTeardown: c.notifyTeardown,
	}, o.logger)
	return c
}

// Login exchanges credentials for a token and establishes the session.
func (c *Client) Login(ctx context.Context, email, password string) (session.Session, error) {
	if c.auth == nil {
		return session.Session{}, errors.New("client: no authenticator configured")
	}
	token, err := c.auth.Login(ctx, email, password)
	if err != nil {
		return session.Session{}, fmt.Errorf("login: %w", err)
	}
	return c.guard.Establish(ctx, token)
}

// Establish opens a session from an externally obtained credential.
func (c *Client) Establish(ctx context.Context, credential string) (session.Session, error) {
	return c.guard.Establish(ctx, credential)
}

// Restore rehydrates a persisted session at startup. ok is false when there
// is nothing usable to restore.
func (c *Client) Restore(ctx context.Context) (s session.Session, ok bool, err error) {
	return c.guard.RestoreOnBoot(ctx)
}

// Logout tears down the session, its persisted pair and the cache.
func (c *Client) Logout(ctx context.Context) error {
	c.sched.Close()
	return c.guard.Teardown(ctx, session.LoggedOut)
}

// Session returns the live session, if any.
func (c *Client) Session() (session.Session, bool) {
	return c.guard.Current()
}

// Teardowns delivers one reason per session teardown. Consumers drain it to
// redirect to login. The channel is buffered; reasons beyond the buffer are
// dropped.
func (c *Client) Teardowns() <-chan session.Reason {
	return c.teardowns
}

// Close stops all watches. It does not tear down the session.
func (c *Client) Close() {
	c.sched.Close()
}

func (c *Client) notifyTeardown(r session.Reason) {
	select {
	case c.teardowns <- r:
	default:
		c.logger.Warn(context.Background(), "teardown signal dropped", observe.String("reason", r.String()))
	}
}

// fail classifies a backend error. A server-signaled authentication failure
// tears the session down so the consumer is redirected to login.
func (c *Client) fail(ctx context.Context, err error) error {
	if errors.Is(err, api.ErrAuthExpired) {
		if terr := c.guard.Teardown(ctx, session.ServerRejected); terr != nil {
			c.logger.Error(ctx, "teardown after auth rejection", observe.Err(terr))
		}
	}
	return err
}

// readThrough returns the cached value under key, or fetches, caches and
// returns it. Concurrent callers of the same key share one fetch.
func (c *Client) readThrough(ctx context.Context, key string, fetch func(context.Context) (any, error)) (any, error) {
	if e, ok := c.store.Get(key); ok {
		return e.Value, nil
	}
	v, err, _ := c.sf.Do(key, func() (any, error) {
		if e, ok := c.store.Get(key); ok {
			return e.Value, nil
		}
		v, err := fetch(ctx)
		if err != nil {
			return nil, c.fail(ctx, err)
		}
		if err := c.store.Put(key, v); err != nil {
			return nil, err
		}
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}
