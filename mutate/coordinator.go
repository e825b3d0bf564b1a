package mutate

import (
	"context"
	"errors"
	"sync"

	"github.com/Manav0411/askbase-go/cache"
	"github.com/Manav0411/askbase-go/observe"
)

// CommitFunc performs the remote side of a mutation and resolves to the
// final value for the entity. It receives the caller's context so transport
// timeouts apply, but its settlement is never skipped: even when the caller
// has gone away the entity is committed or rolled back, never left pending.
type CommitFunc func(ctx context.Context) (any, error)

// errSuperseded reports a settle whose token is no longer the key's latest
// submitted token; a newer mutation owns the pending entry.
var errSuperseded = errors.New("mutate: settle superseded by newer submission")

// Coordinator applies optimistic writes to the cache store, tracks rollback
// snapshots, and reconciles against commit results.
//
// Contract:
// - Concurrency: safe for concurrent use; mutations are serialized per key
//   by the store's pending flag.
// - Errors: a mutation never fails silently. Every call resolves to the
//   committed value or a typed failure after rollback.
type Coordinator struct {
	store   *cache.Store
	logger  observe.Logger
	metrics *observe.Metrics

	mu        sync.Mutex
	nextToken uint64
	submitted map[string]uint64
	accepted  map[string]uint64
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the coordinator's logger.
func WithLogger(l observe.Logger) Option {
	return func(c *Coordinator) {
		c.logger = l
	}
}

// WithMetrics sets the coordinator's metrics recorder.
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// NewCoordinator creates a coordinator over the given store.
func NewCoordinator(store *cache.Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:     store,
		logger:    observe.NopLogger(),
		metrics:   observe.NopMetrics(),
		submitted: make(map[string]uint64),
		accepted:  make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OptimisticApply applies transform to the entity at key as a tentative
// value, runs commit, and settles the entity exactly once.
//
// Precondition: no mutation may be pending on key; otherwise the call fails
// immediately with ErrBusy and no state changes. There is no queueing, so
// callers retry after settlement.
//
// Each submission is tagged with a monotonically increasing request token,
// recorded as the key's latest submitted token. A settle may only touch the
// store while its token is still the latest one submitted for the key: a
// slow response arriving after a newer mutation has begun pending on the
// same key is discarded, never applied over the newer mutation's state. A
// settle superseded by an intervening Put of fresher remote truth is
// likewise discarded.
//
// On commit failure the snapshot is restored (value and version exactly as
// before the call) and the failure is returned to the caller.
func (c *Coordinator) OptimisticApply(ctx context.Context, key string, transform cache.Transform, commit CommitFunc) (any, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	if transform == nil {
		return nil, ErrNilTransform
	}
	if commit == nil {
		return nil, ErrNilCommit
	}

	token, err := c.begin(key, transform)
	if err != nil {
		if errors.Is(err, cache.ErrPending) {
			return nil, ErrBusy
		}
		return nil, err
	}

	result, err := commit(ctx)
	if err != nil {
		c.metrics.RecordMutation(ctx, key, true)
		if serr := c.settle(key, token, cache.Rollback()); errors.Is(serr, errSuperseded) || errors.Is(serr, cache.ErrNotPending) {
			c.logger.Debug(ctx, "rollback superseded by fresher state",
				observe.String("key", key), observe.Int64("token", int64(token)))
		} else {
			c.logger.Warn(ctx, "mutation rolled back",
				observe.String("key", key), observe.Err(err))
		}
		return nil, err
	}

	c.metrics.RecordMutation(ctx, key, false)

	if serr := c.settle(key, token, cache.Commit(result)); serr != nil {
		// Either a newer mutation owns the pending entry or a poll tick put
		// fresher remote truth while the commit was in flight. The remote
		// mutation stands, the local settle does not.
		c.logger.Debug(ctx, "stale commit result discarded",
			observe.String("key", key), observe.Int64("token", int64(token)))
		return result, nil
	}
	c.accept(key, token)
	return result, nil
}

// begin starts the pending mutation and claims the next request token as
// key's latest submitted token. The two steps are atomic: no settle can
// slip between the store marking pending and the token being recorded.
func (c *Coordinator) begin(key string, transform cache.Transform) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.store.BeginPending(key, transform); err != nil {
		return 0, err
	}
	c.nextToken++
	c.submitted[key] = c.nextToken
	return c.nextToken, nil
}

// settle resolves the pending mutation at key, but only while token is still
// the key's latest submitted token. The ownership check and the store settle
// are atomic, so a stale settle can never land on a newer mutation's pending
// entry.
func (c *Coordinator) settle(key string, token uint64, outcome cache.Outcome) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.submitted[key] != token {
		return errSuperseded
	}
	delete(c.submitted, key)
	return c.store.Settle(key, outcome)
}

// accept records token as key's latest accepted commit token.
func (c *Coordinator) accept(key string, token uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if token > c.accepted[key] {
		c.accepted[key] = token
	}
}

// AcceptedToken returns the latest accepted request token for key.
func (c *Coordinator) AcceptedToken(key string) (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tok, ok := c.accepted[key]
	return tok, ok
}
