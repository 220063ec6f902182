package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// unlockScript deletes the lock key only if it still holds the token we
// set, so a lock holder never releases a lock another caller has since
// acquired after our own lease expired.
const unlockScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`

// ErrLockTimeout is returned when Lock cannot acquire the lock before ctx
// is done.
var ErrLockTimeout = errors.New("timed out waiting for distributed lock")

const lockRetryInterval = 50 * time.Millisecond

// DistributedLock implements ledger.Locker over Redis SETNX, giving
// release_escrow mutual exclusion per order id across every
// cmd/controlplane replica behind a load balancer (spec.md §5).
type DistributedLock struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewDistributedLock builds a DistributedLock sharing cache's Redis
// client.
func NewDistributedLock(c *RedisCache) *DistributedLock {
	return &DistributedLock{client: c.client, prefix: c.config.KeyPrefix + "lock:", ttl: c.config.LockTTL}
}

// Lock blocks (polling every lockRetryInterval) until it acquires the
// named lock or ctx is done, returning a release function. The lease has
// a TTL so a crashed holder cannot wedge the lock forever.
func (l *DistributedLock) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.New().String()
	fullKey := l.prefix + key

	ticker := time.NewTicker(lockRetryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, fullKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			release := func() {
				releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				l.client.Eval(releaseCtx, unlockScript, []string{fullKey}, token)
			}
			return release, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		case <-ticker.C:
		}
	}
}
