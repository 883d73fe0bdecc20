package service

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"travlr/internal/consent/store"
	pkgerrors "travlr/pkg/domain-errors"
	platformsync "travlr/pkg/platform/sync"
)

// Shard contention metrics for monitoring lock behavior
var (
	shardLockWaitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "travlr_consent_shard_lock_wait_seconds",
		Help:    "Time spent waiting to acquire shard lock",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})
	shardLockAcquisitions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "travlr_consent_shard_lock_acquisitions_total",
		Help: "Total number of shard lock acquisitions",
	})
)

// StoreTx serializes mutations of a single entity. The key is the entity ID
// (request or grant), so transitions on one entity are single writer while
// unrelated entities proceed in parallel.
type StoreTx interface {
	RunInTx(ctx context.Context, key string, fn func(store store.Store) error) error
}

// defaultTxTimeout is the maximum duration for a consent transaction.
const defaultTxTimeout = 5 * time.Second

type shardedTx struct {
	mu      *platformsync.ShardedMutex
	store   store.Store
	timeout time.Duration
}

// NewShardedTx wraps a store with per-entity lock serialization.
func NewShardedTx(s store.Store) StoreTx {
	return &shardedTx{
		mu:      platformsync.NewShardedMutex(),
		store:   s,
		timeout: defaultTxTimeout,
	}
}

func (t *shardedTx) RunInTx(ctx context.Context, key string, fn func(store store.Store) error) error {
	if err := ctx.Err(); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	lockStart := time.Now()
	t.mu.Lock(key)
	shardLockWaitDuration.Observe(time.Since(lockStart).Seconds())
	shardLockAcquisitions.Inc()
	defer t.mu.Unlock(key)

	// Check again after acquiring lock
	if err := ctx.Err(); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(t.store)
}
