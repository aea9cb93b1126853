package redisclient

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

//go:embed scripts/release_lock.lua
var releaseLockScript string

// ExpirationKey is the sorted set of pending order expirations, scored by the
// unix millisecond at which the order expires.
const ExpirationKey = "orders:expiration"

type Client struct {
	rdb           *redis.Client
	releaseScript *redis.Script
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewFromRedis(rdb), nil
}

// NewFromRedis wraps an existing client
func NewFromRedis(rdb *redis.Client) *Client {
	return &Client{
		rdb:           rdb,
		releaseScript: redis.NewScript(releaseLockScript),
	}
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks connectivity
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// ScheduleExpiration records that orderID expires at at. Rescheduling an order
// moves its deadline.
func (c *Client) ScheduleExpiration(ctx context.Context, orderID string, at time.Time) error {
	err := c.rdb.ZAdd(ctx, ExpirationKey, redis.Z{
		Score:  float64(at.UnixMilli()),
		Member: orderID,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to schedule expiration: %w", err)
	}
	return nil
}

// DueExpirations returns up to limit orders whose deadline is not after now,
// earliest first.
func (c *Client) DueExpirations(ctx context.Context, now time.Time, limit int64) ([]string, error) {
	ids, err := c.rdb.ZRangeByScore(ctx, ExpirationKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: limit,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read due expirations: %w", err)
	}
	return ids, nil
}

// RemoveExpiration drops a pending expiration
func (c *Client) RemoveExpiration(ctx context.Context, orderID string) error {
	if err := c.rdb.ZRem(ctx, ExpirationKey, orderID).Err(); err != nil {
		return fmt.Errorf("failed to remove expiration: %w", err)
	}
	return nil
}

// AcquireLock acquires a distributed lock. The returned token must be passed
// to ReleaseLock; it is empty when the lock is held elsewhere.
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (string, error) {
	token := uuid.New().String()
	ok, err := c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !ok {
		return "", nil
	}
	return token, nil
}

// ReleaseLock releases a distributed lock if token still owns it
func (c *Client) ReleaseLock(ctx context.Context, lockKey, token string) error {
	_, err := c.releaseScript.Run(ctx, c.rdb, []string{fmt.Sprintf("lock:%s", lockKey)}, token).Result()
	if err != nil {
		return fmt.Errorf("release lock script failed: %w", err)
	}
	return nil
}
