package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockBusy is returned when a lock is still held after the wait budget.
var ErrLockBusy = errors.New("lock busy")

// ErrNoRedis is returned by Lock when no client is configured.
var ErrNoRedis = errors.New("redis unavailable")

// releaseScript deletes the key only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock is a held SET NX PX lock.
type Lock struct {
	rdb   *redis.Client
	key   string
	token string
}

// Acquire takes key for ttl, retrying with backoff until wait elapses.
func Acquire(ctx context.Context, rdb *redis.Client, key string, ttl, wait time.Duration) (*Lock, error) {
	if rdb == nil {
		return nil, ErrNoRedis
	}

	token := uuid.NewString()
	deadline := time.Now().Add(wait)
	backoff := 10 * time.Millisecond

	for {
		ok, err := rdb.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return &Lock{rdb: rdb, key: key, token: token}, nil
		}
		if time.Now().Add(backoff).After(deadline) {
			return nil, ErrLockBusy
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 200*time.Millisecond {
			backoff *= 2
		}
	}
}

// Release drops the lock if it is still ours.
func (l *Lock) Release(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return releaseScript.Run(ctx, l.rdb, []string{l.key}, l.token).Err()
}
