package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned when a lock could not be taken before the wait
// budget ran out.
var ErrNotAcquired = errors.New("lock not acquired")

// releaseScript deletes the key only when it still holds our token, so an
// expired lock that was re-acquired by someone else is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a distributed lock built on SET NX PX.
type Redis struct {
	rdb     *redis.Client
	prefix  string
	ttl     time.Duration
	retry   time.Duration
	maxWait time.Duration
}

// NewRedis returns a Redis locker. ttl bounds how long a crashed holder can
// keep a key; it must exceed the longest critical section. The TTL is never
// extended: a holder outliving it loses exclusivity here, and the row locks
// taken by the booking transaction (SELECT ... FOR UPDATE) still serialize
// the writes. maxWait matches the 5s handler request timeout.
func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &Redis{
		rdb:     rdb,
		prefix:  "lock",
		ttl:     ttl,
		retry:   25 * time.Millisecond,
		maxWait: 5 * time.Second,
	}
}

// Lock polls until the key is acquired, ctx is done or the wait budget is
// spent.
func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	full := r.prefix + ":" + key
	token := uuid.NewString()

	waitCtx, cancel := context.WithTimeout(ctx, r.maxWait)
	defer cancel()

	for {
		ok, err := r.rdb.SetNX(waitCtx, full, token, r.ttl).Result()
		if err != nil {
			if waitCtx.Err() != nil {
				return nil, fmt.Errorf("%w: %s", ErrNotAcquired, key)
			}
			return nil, fmt.Errorf("redis setnx %s: %w", full, err)
		}
		if ok {
			break
		}
		select {
		case <-waitCtx.Done():
			return nil, fmt.Errorf("%w: %s", ErrNotAcquired, key)
		case <-time.After(r.retry):
		}
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		// The caller's ctx may already be cancelled; release must still run.
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(rctx, r.rdb, []string{full}, token).Err()
	}, nil
}
