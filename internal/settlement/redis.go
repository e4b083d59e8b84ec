package settlement

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sokoni-app/sokoni_wallet/internal/ledger"
)

const (
	dueSetKey           = "settlement:due:v1"
	defaultPollInterval = 250 * time.Millisecond
)

// RedisScheduler keeps the settlement schedule in a Redis sorted set scored by
// due time, with a polling worker delivering due completions. Pending
// settlements survive process restarts; delivery is at-least-once, which the
// ledger's transition guard makes safe.
type RedisScheduler struct {
	cache    *redis.Client
	store    ledger.Store
	delays   Delays
	interval time.Duration
	logger   *slog.Logger
}

// NewRedisScheduler builds a durable settlement scheduler. A non-positive poll
// interval falls back to the default.
func NewRedisScheduler(cache *redis.Client, store ledger.Store, delays Delays, pollInterval time.Duration, logger *slog.Logger) *RedisScheduler {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &RedisScheduler{cache: cache, store: store, delays: delays, interval: pollInterval, logger: logger}
}

// Schedule records the transaction's due time in the sorted set.
func (s *RedisScheduler) Schedule(ctx context.Context, transactionID string, kind ledger.Kind) error {
	due := time.Now().Add(s.delays.forKind(kind))
	return s.cache.ZAdd(ctx, dueSetKey, redis.Z{
		Score:  float64(due.UnixMilli()),
		Member: transactionID,
	}).Err()
}

// Run polls for due settlements until the context is cancelled.
func (s *RedisScheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.deliverDue(ctx, now)
		}
	}
}

// deliverDue completes every transaction whose due time has passed. Members
// are removed only once delivery succeeds or is definitively a no-op, so a
// transient store failure leaves the entry for the next poll.
func (s *RedisScheduler) deliverDue(ctx context.Context, now time.Time) {
	ids, err := s.cache.ZRangeByScore(ctx, dueSetKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: formatScore(now),
	}).Result()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Error("settlement poll failed", "error", err)
		}
		return
	}

	for _, id := range ids {
		tx, err := s.store.ApplyTransition(ctx, id, ledger.StatusCompleted)
		switch {
		case err == nil:
			s.logger.Info("transaction settled", "transaction_id", tx.ID, "kind", tx.Kind, "amount", tx.Amount)
		case errors.Is(err, ledger.ErrInvalidTransition), errors.Is(err, ledger.ErrTransactionNotFound):
			s.logger.Debug("settlement skipped", "transaction_id", id)
		default:
			s.logger.Error("settlement failed, will retry", "transaction_id", id, "error", err)
			continue
		}
		if err := s.cache.ZRem(ctx, dueSetKey, id).Err(); err != nil {
			s.logger.Warn("failed to clear settled entry", "transaction_id", id, "error", err)
		}
	}
}

func formatScore(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
