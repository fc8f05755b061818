package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const drainLockKeyPrefix = "atendo:import:lock:"

// DefaultDrainLockTTL bounds how long a crashed drainer can hold the lock.
const DefaultDrainLockTTL = 30 * time.Minute

// releaseScript deletes the lease only when the holder still owns it, so a
// lock that expired and was re-acquired elsewhere is left alone.
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	end
	return 0
`)

// RedisDrainLock is a SetNX lease guaranteeing at most one in-flight import
// drain per account, across process instances. The TTL is the crash-recovery
// bound; a live drain releases the lock explicitly when it finishes.
type RedisDrainLock struct {
	client     *redis.Client
	instanceID string
	ttl        time.Duration
}

// NewRedisDrainLock creates a RedisDrainLock. A non-positive ttl falls back
// to the default.
func NewRedisDrainLock(client *redis.Client, ttl time.Duration) *RedisDrainLock {
	if ttl <= 0 {
		ttl = DefaultDrainLockTTL
	}
	return &RedisDrainLock{
		client:     client,
		instanceID: uuid.NewString(),
		ttl:        ttl,
	}
}

// Acquire takes the drain lease for an account. Returns false when another
// drain holds it.
func (l *RedisDrainLock) Acquire(ctx context.Context, accountID uint) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key(accountID), l.instanceID, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire drain lock: %w", err)
	}
	return ok, nil
}

// Release drops the lease.
func (l *RedisDrainLock) Release(ctx context.Context, accountID uint) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key(accountID)}, l.instanceID).Err(); err != nil {
		return fmt.Errorf("failed to release drain lock: %w", err)
	}
	return nil
}

func (l *RedisDrainLock) key(accountID uint) string {
	return fmt.Sprintf("%s%d", drainLockKeyPrefix, accountID)
}
