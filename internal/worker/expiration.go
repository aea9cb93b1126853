package worker

import (
	"context"
	"time"

	"ticketing/internal/util"

	"go.uber.org/zap"
)

const expirationLockKey = "orders-expiration"

// ExpirationQueue is the schedule of pending order expirations.
type ExpirationQueue interface {
	DueExpirations(ctx context.Context, now time.Time, limit int64) ([]string, error)
	RemoveExpiration(ctx context.Context, orderID string) error
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (string, error)
	ReleaseLock(ctx context.Context, lockKey, token string) error
}

type OrderExpirer interface {
	ExpireOrder(ctx context.Context, orderID string) error
}

// ExpirationWorker cancels orders whose expiration passed. Instances share
// the work through a lock, so one poll runs at a time.
type ExpirationWorker struct {
	queue    ExpirationQueue
	orders   OrderExpirer
	interval time.Duration
	batch    int64
	now      func() time.Time
	logger   *zap.Logger
}

// NewExpirationWorker creates a new expiration worker
func NewExpirationWorker(queue ExpirationQueue, orders OrderExpirer, interval time.Duration) *ExpirationWorker {
	return &ExpirationWorker{
		queue:    queue,
		orders:   orders,
		interval: interval,
		batch:    100,
		now:      time.Now,
		logger:   util.GetLogger(),
	}
}

// Start polls until ctx is cancelled
func (w *ExpirationWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting expiration worker", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Expiration worker stopped")
			return nil
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

// poll expires every due order once. Failed orders stay scheduled and are
// retried on the next poll.
func (w *ExpirationWorker) poll(ctx context.Context) int {
	token, err := w.queue.AcquireLock(ctx, expirationLockKey, 2*w.interval)
	if err != nil {
		w.logger.Error("Failed to acquire expiration lock", zap.Error(err))
		return 0
	}
	if token == "" {
		return 0
	}
	defer func() {
		if err := w.queue.ReleaseLock(context.Background(), expirationLockKey, token); err != nil {
			w.logger.Warn("Failed to release expiration lock", zap.Error(err))
		}
	}()

	ids, err := w.queue.DueExpirations(ctx, w.now(), w.batch)
	if err != nil {
		w.logger.Error("Failed to read due expirations", zap.Error(err))
		return 0
	}

	expired := 0
	for _, id := range ids {
		if err := w.orders.ExpireOrder(ctx, id); err != nil {
			w.logger.Error("Failed to expire order", zap.String("order_id", id), zap.Error(err))
			continue
		}
		if err := w.queue.RemoveExpiration(ctx, id); err != nil {
			w.logger.Warn("Failed to remove expiration", zap.String("order_id", id), zap.Error(err))
		}
		expired++
	}
	return expired
}
