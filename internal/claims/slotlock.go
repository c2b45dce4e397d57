package claims

import (
	"context"
	"time"

	"wishdrop/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// RedisSlotLocker serializes claim creation per item with a short-lived
// redis slot. Losing the race here is a fast rejection; the database
// partial unique index remains the authority when redis is degraded.
type RedisSlotLocker struct {
	rdb *redis.Client
}

func NewRedisSlotLocker(rdb *redis.Client) *RedisSlotLocker {
	return &RedisSlotLocker{rdb: rdb}
}

func (l *RedisSlotLocker) Acquire(ctx context.Context, key, holder string, ttl time.Duration) (bool, error) {
	return utils.AcquireSlot(ctx, l.rdb, key, holder, ttl)
}

func (l *RedisSlotLocker) Release(ctx context.Context, key, holder string) error {
	return utils.ReleaseSlot(ctx, l.rdb, key, holder)
}
