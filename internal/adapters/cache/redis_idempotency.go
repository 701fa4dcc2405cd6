package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/ledger_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/ledger_engine/internal/core/ports/repositories"
	"github.com/go-redis/redis/v8"
)

// RedisIdempotencyCache keeps recently applied operations in Redis so replays
// are answered without opening a database transaction. The applied_operations
// table stays the source of truth; entries here simply expire.
type RedisIdempotencyCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewRedisIdempotencyCache creates a cache whose keys live for ttl.
func NewRedisIdempotencyCache(rdb redis.Cmdable, ttl time.Duration) *RedisIdempotencyCache {
	return &RedisIdempotencyCache{rdb: rdb, ttl: ttl}
}

var _ portsrepo.IdempotencyCache = (*RedisIdempotencyCache)(nil)

func operationKey(ownerID, operationID string) string {
	return fmt.Sprintf("idem:%s:%s", ownerID, operationID)
}

// Get returns the cached operation, or ok=false on a miss.
func (c *RedisIdempotencyCache) Get(ctx context.Context, ownerID, operationID string) (*domain.AppliedOperation, bool, error) {
	raw, err := c.rdb.Get(ctx, operationKey(ownerID, operationID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read operation %s from cache: %w", operationID, err)
	}
	var op domain.AppliedOperation
	if err := json.Unmarshal(raw, &op); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached operation %s: %w", operationID, err)
	}
	return &op, true, nil
}

// Put stores an applied operation under its owner.
func (c *RedisIdempotencyCache) Put(ctx context.Context, op domain.AppliedOperation) error {
	raw, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("failed to encode operation %s: %w", op.OperationID, err)
	}
	if err := c.rdb.Set(ctx, operationKey(op.OwnerID, op.OperationID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache operation %s: %w", op.OperationID, err)
	}
	return nil
}

// NewRedisClient connects to Redis and pings it. An empty addr returns a nil
// client and no error; the engine then runs without a cache.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return rdb, nil
}
