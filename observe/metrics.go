package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Metrics records sync-engine counters: poll ticks, convergence events,
// cache invalidations and optimistic mutation outcomes.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Context: must return quickly; recording never blocks the engine.
// - Errors: recording must not panic.
type Metrics struct {
	tickCount        metric.Int64Counter
	tickFailures     metric.Int64Counter
	tickDuration     metric.Float64Histogram
	convergenceCount metric.Int64Counter
	invalidations    metric.Int64Counter
	mutationCount    metric.Int64Counter
	rollbackCount    metric.Int64Counter
}

// NewMetrics creates a Metrics instance on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	tickCount, err := meter.Int64Counter(
		"sync.poll.ticks",
		metric.WithDescription("Total number of polling ticks"),
		metric.WithUnit("{tick}"),
	)
	if err != nil {
		return nil, err
	}

	tickFailures, err := meter.Int64Counter(
		"sync.poll.failures",
		metric.WithDescription("Total number of failed polling ticks"),
		metric.WithUnit("{tick}"),
	)
	if err != nil {
		return nil, err
	}

	tickDuration, err := meter.Float64Histogram(
		"sync.poll.tick_duration_ms",
		metric.WithDescription("Polling tick duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	convergenceCount, err := meter.Int64Counter(
		"sync.poll.convergence",
		metric.WithDescription("Total number of detected convergence events"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	invalidations, err := meter.Int64Counter(
		"sync.cache.invalidations",
		metric.WithDescription("Total number of cache invalidations"),
		metric.WithUnit("{key}"),
	)
	if err != nil {
		return nil, err
	}

	mutationCount, err := meter.Int64Counter(
		"sync.mutation.total",
		metric.WithDescription("Total number of optimistic mutations"),
		metric.WithUnit("{mutation}"),
	)
	if err != nil {
		return nil, err
	}

	rollbackCount, err := meter.Int64Counter(
		"sync.mutation.rollbacks",
		metric.WithDescription("Total number of optimistic mutation rollbacks"),
		metric.WithUnit("{mutation}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		tickCount:        tickCount,
		tickFailures:     tickFailures,
		tickDuration:     tickDuration,
		convergenceCount: convergenceCount,
		invalidations:    invalidations,
		mutationCount:    mutationCount,
		rollbackCount:    rollbackCount,
	}, nil
}

// NopMetrics returns a Metrics backed by the noop meter. Used as the default
// when no meter is injected; safe to call methods on.
func NopMetrics() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider().Meter("noop"))
	return m
}

// RecordTick records one polling tick for a collection key.
func (m *Metrics) RecordTick(ctx context.Context, key string, duration time.Duration, err error) {
	opt := metric.WithAttributes(attribute.String("collection.key", key))

	m.tickCount.Add(ctx, 1, opt)
	if err != nil {
		m.tickFailures.Add(ctx, 1, opt)
	}
	m.tickDuration.Record(ctx, float64(duration.Nanoseconds())/1e6, opt)
}

// RecordConvergence records a convergence event and how many dependent keys
// it invalidated.
func (m *Metrics) RecordConvergence(ctx context.Context, key string, invalidated int) {
	opt := metric.WithAttributes(attribute.String("collection.key", key))
	m.convergenceCount.Add(ctx, 1, opt)
	m.invalidations.Add(ctx, int64(invalidated), opt)
}

// RecordMutation records an optimistic mutation outcome.
func (m *Metrics) RecordMutation(ctx context.Context, key string, rolledBack bool) {
	opt := metric.WithAttributes(attribute.String("entity.key", key))
	m.mutationCount.Add(ctx, 1, opt)
	if rolledBack {
		m.rollbackCount.Add(ctx, 1, opt)
	}
}
