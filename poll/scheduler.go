package poll

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/Manav0411/askbase-go/api"
	"github.com/Manav0411/askbase-go/cache"
	"github.com/Manav0411/askbase-go/observe"
)

// FetchFunc retrieves the current remote value of a collection.
type FetchFunc func(ctx context.Context) (any, error)

// Target describes one watched collection.
type Target struct {
	// CollectionKey is the cache key the fetched value is stored under.
	CollectionKey string

	// Fetch retrieves the collection from the backend.
	Fetch FetchFunc

	// Predicate decides whether polling continues. Evaluated against the
	// freshly fetched value after each successful tick; when it no longer
	// holds, no further tick is scheduled until Watch is called again.
	Predicate func(value any) bool

	// Witness maps the fetched value to the predicate's scalar witness,
	// e.g. the number of documents still processing. A strict decrease from
	// a positive value signals convergence. Nil disables convergence
	// detection.
	Witness func(value any) int

	// Interval is the base delay between ticks.
	Interval time.Duration

	// DependentKeys returns the other cached collection keys over the same
	// underlying entities (alternate pages, tabs, views). They are
	// invalidated when convergence is detected, so they refetch on next
	// access instead of showing a stale transient state. Resolved at the
	// moment of each convergence, so views cached after the watch started
	// are covered too. Nil disables dependent invalidation.
	DependentKeys func() []string
}

// Event is a detected convergence: the witness strictly decreased from a
// positive value.
type Event struct {
	CollectionKey string
	Prior         int
	Current       int
	Invalidated   []string
	At            time.Time
}

// Freshness reports whether a watched collection's cached value can be
// trusted as current.
type Freshness int

const (
	// FreshnessUnknown means the key is not being watched.
	FreshnessUnknown Freshness = iota
	// FreshnessFresh means the last tick succeeded.
	FreshnessFresh
	// FreshnessStale means consecutive tick failures exceeded the threshold;
	// consumers should treat the cached value as possibly outdated.
	FreshnessStale
)

// String returns the string representation of the freshness.
func (f Freshness) String() string {
	switch f {
	case FreshnessFresh:
		return "fresh"
	case FreshnessStale:
		return "stale"
	default:
		return "unknown"
	}
}

// Config configures the scheduler.
type Config struct {
	// FailureThreshold is the number of consecutive tick failures tolerated
	// before backoff starts and the stale flag is set.
	// Default: 3
	FailureThreshold int

	// BackoffMultiplier grows the interval on each failure past the
	// threshold.
	// Default: 2.0
	BackoffMultiplier float64

	// MaxInterval caps the backed-off interval.
	// Default: 5m
	MaxInterval time.Duration

	// DebounceWindow coalesces invalidations: at most one invalidation per
	// dependent key within the window.
	// Default: 500ms
	DebounceWindow time.Duration

	// Jitter adds up to 25% randomness to tick delays.
	// Default: false
	Jitter bool

	// OnTick, if set, is called after every tick has been fully processed.
	OnTick func(collectionKey string, err error)

	// OnConvergence, if set, is called once per detected convergence.
	OnConvergence func(Event)
}

// Scheduler watches collections per their targets and keeps the cache store
// current.
//
// Contract:
// - Concurrency: safe for concurrent use; ticks for distinct keys run
//   independently.
// - Cancellation: Unwatch stops future ticks but an in-flight tick still
//   applies its fetched result to the store.
type Scheduler struct {
	store   *cache.Store
	logger  observe.Logger
	metrics *observe.Metrics
	cfg     Config

	mu              sync.Mutex
	watches         map[string]*watch
	lastInvalidated map[string]time.Time
	closed          bool
}

type watch struct {
	target      Target
	ctx         context.Context
	timer       *time.Timer
	stopped     bool
	failures    int
	interval    time.Duration
	stale       bool
	lastWitness int
	hasWitness  bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the scheduler's logger.
func WithLogger(l observe.Logger) Option {
	return func(s *Scheduler) {
		s.logger = l
	}
}

// WithMetrics sets the scheduler's metrics recorder.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// NewScheduler creates a scheduler over the given store.
func NewScheduler(store *cache.Store, cfg Config, opts ...Option) *Scheduler {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.BackoffMultiplier <= 1 {
		cfg.BackoffMultiplier = 2.0
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 5 * time.Minute
	}
	if cfg.DebounceWindow <= 0 {
		cfg.DebounceWindow = 500 * time.Millisecond
	}

	s := &Scheduler{
		store:           store,
		logger:          observe.NopLogger(),
		metrics:         observe.NopMetrics(),
		cfg:             cfg,
		watches:         make(map[string]*watch),
		lastInvalidated: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Watch registers the target and runs its first tick immediately. The
// context governs every tick's fetch for the lifetime of the watch;
// canceling it surfaces as ordinary tick failures.
func (s *Scheduler) Watch(ctx context.Context, target Target) error {
	if target.CollectionKey == "" {
		return ErrEmptyKey
	}
	if target.Fetch == nil {
		return ErrNilFetch
	}
	if target.Predicate == nil {
		return ErrNilPredicate
	}
	if target.Interval <= 0 {
		target.Interval = 5 * time.Second
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if _, exists := s.watches[target.CollectionKey]; exists {
		s.mu.Unlock()
		return ErrAlreadyWatching
	}
	w := &watch{target: target, ctx: ctx, interval: target.Interval}
	s.watches[target.CollectionKey] = w
	s.mu.Unlock()

	s.logger.Debug(ctx, "watch started",
		observe.String("collection.key", target.CollectionKey),
		observe.Duration("interval", target.Interval))

	go s.tick(w)
	return nil
}

// Unwatch stops future ticks for the collection key. A tick already in
// flight completes and applies its result, but schedules nothing further.
func (s *Scheduler) Unwatch(collectionKey string) {
	s.mu.Lock()
	w, ok := s.watches[collectionKey]
	if ok {
		w.stopped = true
		if w.timer != nil {
			w.timer.Stop()
		}
		delete(s.watches, collectionKey)
	}
	s.mu.Unlock()

	if ok {
		s.logger.Debug(context.Background(), "watch stopped",
			observe.String("collection.key", collectionKey))
	}
}

// Freshness reports whether the watched collection's cached value is current.
func (s *Scheduler) Freshness(collectionKey string) Freshness {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.watches[collectionKey]
	if !ok {
		return FreshnessUnknown
	}
	if w.stale {
		return FreshnessStale
	}
	return FreshnessFresh
}

// Close stops every watch. In-flight ticks still apply their results.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	for key, w := range s.watches {
		w.stopped = true
		if w.timer != nil {
			w.timer.Stop()
		}
		delete(s.watches, key)
	}
	s.mu.Unlock()
}

func (s *Scheduler) tick(w *watch) {
	s.mu.Lock()
	if w.stopped {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	key := w.target.CollectionKey
	start := time.Now()
	value, err := w.target.Fetch(w.ctx)
	s.metrics.RecordTick(w.ctx, key, time.Since(start), err)

	if err != nil {
		s.tickFailed(w, err)
		return
	}

	if perr := s.store.Put(key, value); perr != nil {
		s.tickFailed(w, perr)
		return
	}

	s.mu.Lock()
	w.failures = 0
	w.interval = w.target.Interval
	w.stale = false

	if w.stopped {
		// Unwatched mid-fetch: the result was applied above so committed
		// remote truth is not lost, but evaluation and scheduling end here.
		s.mu.Unlock()
		s.notifyTick(key, nil)
		return
	}

	var event *Event
	if w.target.Witness != nil {
		witness := w.target.Witness(value)
		if w.hasWitness && w.lastWitness > 0 && witness < w.lastWitness {
			event = s.convergeLocked(w, w.lastWitness, witness)
		}
		w.lastWitness = witness
		w.hasWitness = true
	}

	proceed := w.target.Predicate(value)
	if proceed {
		s.scheduleLocked(w)
	} else {
		delete(s.watches, key)
		w.stopped = true
	}
	s.mu.Unlock()

	if event != nil {
		s.metrics.RecordConvergence(w.ctx, key, len(event.Invalidated))
		s.logger.Info(w.ctx, "convergence detected",
			observe.String("collection.key", key),
			observe.Int("witness.prior", event.Prior),
			observe.Int("witness.current", event.Current),
			observe.Int("invalidated", len(event.Invalidated)))
		if s.cfg.OnConvergence != nil {
			s.cfg.OnConvergence(*event)
		}
	}
	if !proceed {
		s.logger.Debug(w.ctx, "predicate no longer holds, watch ended",
			observe.String("collection.key", key))
	}

	s.notifyTick(key, nil)
}

func (s *Scheduler) tickFailed(w *watch, err error) {
	key := w.target.CollectionKey

	s.mu.Lock()
	w.failures++
	failures := w.failures
	if failures > s.cfg.FailureThreshold {
		w.interval = backoff(w.interval, s.cfg.BackoffMultiplier, s.cfg.MaxInterval)
		w.stale = true
	}
	interval := w.interval
	stopped := w.stopped
	if !stopped {
		s.scheduleLocked(w)
	}
	s.mu.Unlock()

	if failures > s.cfg.FailureThreshold {
		s.logger.Warn(w.ctx, "poll tick failed, collection marked stale",
			observe.String("collection.key", key),
			observe.Int("consecutive_failures", failures),
			observe.Duration("interval", interval),
			observe.Err(err))
	} else {
		s.logger.Debug(w.ctx, "poll tick failed, will retry",
			observe.String("collection.key", key),
			observe.Int("consecutive_failures", failures),
			observe.Err(err))
	}

	s.notifyTick(key, err)
}

// convergeLocked invalidates dependent keys and builds the event. Callers
// hold s.mu. Invalidation is debounced per dependent key.
func (s *Scheduler) convergeLocked(w *watch, prior, current int) *Event {
	now := time.Now()
	event := &Event{
		CollectionKey: w.target.CollectionKey,
		Prior:         prior,
		Current:       current,
		At:            now,
	}
	var deps []string
	if w.target.DependentKeys != nil {
		deps = w.target.DependentKeys()
	}
	for _, dep := range deps {
		if last, ok := s.lastInvalidated[dep]; ok && now.Sub(last) < s.cfg.DebounceWindow {
			continue
		}
		s.store.Invalidate(dep)
		s.lastInvalidated[dep] = now
		event.Invalidated = append(event.Invalidated, dep)
	}
	return event
}

// scheduleLocked arms the next tick. Callers hold s.mu.
func (s *Scheduler) scheduleLocked(w *watch) {
	delay := w.interval
	// Up to 25% jitter to spread ticks across watches. Sub-4ns intervals
	// have no room to jitter, and rand.Int64N rejects a zero bound.
	if span := delay / 4; s.cfg.Jitter && span > 0 {
		// #nosec G404 -- non-cryptographic timing variance.
		delay += time.Duration(rand.Int64N(int64(span)))
	}
	w.timer = time.AfterFunc(delay, func() { s.tick(w) })
}

func (s *Scheduler) notifyTick(key string, err error) {
	if s.cfg.OnTick != nil {
		s.cfg.OnTick(key, err)
	}
}

func backoff(current time.Duration, multiplier float64, max time.Duration) time.Duration {
	next := time.Duration(float64(current) * multiplier)
	if next > max {
		next = max
	}
	return next
}

// ProcessingPredicate is the default predicate for document collections:
// at least one item still has status processing.
func ProcessingPredicate(value any) bool {
	list, ok := value.(api.DocumentList)
	if !ok {
		return false
	}
	return list.ProcessingCount() > 0
}

// ProcessingWitness is the default witness for document collections: the
// number of items still processing.
func ProcessingWitness(value any) int {
	list, ok := value.(api.DocumentList)
	if !ok {
		return 0
	}
	return list.ProcessingCount()
}
