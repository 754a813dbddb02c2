package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript extends the lease only while the key still holds our token.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLocker is a Locker shared by every instance talking to the same Redis.
// A held lock is renewed every ttl/3, so the TTL only bounds how long a
// crashed holder can keep a user locked.
type RedisLocker struct {
	client  redis.UniversalClient
	prefix  string
	ttl     time.Duration
	retry   time.Duration
	maxWait time.Duration
	logger  *zap.Logger
}

// NewRedisLocker creates a RedisLocker. Keys are stored as prefix+key.
func NewRedisLocker(client redis.UniversalClient, prefix string, ttl time.Duration, logger *zap.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLocker{
		client:  client,
		prefix:  prefix,
		ttl:     ttl,
		retry:   20 * time.Millisecond,
		maxWait: 250 * time.Millisecond,
		logger:  logger,
	}
}

func (r *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	name := r.prefix + key
	token := uuid.NewString()
	wait := r.retry

	for {
		ok, err := r.client.SetNX(ctx, name, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", name, err)
		}
		if ok {
			break
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		if wait *= 2; wait > r.maxWait {
			wait = r.maxWait
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go r.renew(name, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			// release even if the caller's ctx is already cancelled
			rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(rctx, r.client, []string{name}, token).Err(); err != nil {
				r.logger.Warn("release lock", zap.String("key", name), zap.Error(err))
			}
		})
	}, nil
}

// renew keeps the lease alive until stop is closed or the token is gone.
func (r *RedisLocker) renew(name, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		ctx, cancel := context.WithTimeout(context.Background(), r.ttl/3)
		n, err := renewScript.Run(ctx, r.client, []string{name}, token, r.ttl.Milliseconds()).Int()
		cancel()
		if err != nil {
			r.logger.Warn("renew lock", zap.String("key", name), zap.Error(err))
			continue
		}
		if n == 0 {
			r.logger.Error("lock lost before release", zap.String("key", name))
			return
		}
	}
}
