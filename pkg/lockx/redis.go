package lockx

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisPollInterval = 50 * time.Millisecond

var redisUnlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

var redisRenewScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
else
	return 0
end
`)

// RedisLocker holds locks as "SET NX PX" keys. Each holder writes a random
// value and only deletes the key while it still carries that value. While a
// lock is held its expiry is pushed back every third of the TTL, so the TTL
// bounds how long a crashed holder blocks others, not how long work may run.
type RedisLocker struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	wait   time.Duration
}

func NewRedisLocker(client redis.UniversalClient, prefix string, ttl, wait time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		wait:   wait,
	}
}

func (l *RedisLocker) keyFor(key string) string {
	return l.prefix + "lock:" + key
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (UnlockFunc, error) {
	lockKey := l.keyFor(key)
	val := uuid.NewString()

	waitCtx, cancel := withWait(ctx, l.wait)
	defer cancel()

	ticker := time.NewTicker(redisPollInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(waitCtx, lockKey, val, l.ttl).Result()
		if err != nil {
			if waitCtx.Err() != nil {
				return nil, waitError(ctx, waitCtx)
			}
			return nil, fmt.Errorf("redis error acquiring lock %s: %w", key, err)
		}
		if ok {
			stop := make(chan struct{})
			done := make(chan struct{})
			go l.renew(lockKey, val, stop, done)

			var once sync.Once
			return func() {
				once.Do(func() {
					close(stop)
					<-done
					releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = redisUnlockScript.Run(releaseCtx, l.client, []string{lockKey}, val).Err()
				})
			}, nil
		}

		select {
		case <-waitCtx.Done():
			return nil, waitError(ctx, waitCtx)
		case <-ticker.C:
		}
	}
}

// renew extends the key's expiry until stop is closed or the key no longer
// carries val.
func (l *RedisLocker) renew(lockKey, val string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), l.ttl/3)
			n, err := redisRenewScript.Run(ctx, l.client, []string{lockKey}, val, l.ttl.Milliseconds()).Int()
			cancel()
			if err == nil && n == 0 {
				// lost the key, someone else may hold it now
				return
			}
		}
	}
}
