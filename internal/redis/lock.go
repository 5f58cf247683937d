package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/medibook/scheduling-service/internal/scheduling"
)

const acquirePollInterval = 50 * time.Millisecond

type doctorLocker struct {
	client  *redis.Client
	ttl     time.Duration
	acquire time.Duration
}

// NewDoctorLocker creates a distributed per-doctor lock on a Redis key.
// Acquisition retries until acquireTimeout, then surfaces
// scheduling.ErrLockNotAcquired so the service can report Busy instead of
// blocking.
func NewDoctorLocker(client *redis.Client, ttl, acquireTimeout time.Duration) scheduling.DoctorLocker {
	return &doctorLocker{
		client:  client,
		ttl:     ttl,
		acquire: acquireTimeout,
	}
}

func (l *doctorLocker) WithDoctorLock(ctx context.Context, doctorID uuid.UUID, fn func(ctx context.Context) error) error {
	key := fmt.Sprintf("lock:doctor:%s", doctorID.String())
	token := uuid.NewString()

	deadline := time.Now().Add(l.acquire)
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("acquire doctor lock: %w", err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return scheduling.ErrLockNotAcquired
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(acquirePollInterval):
		}
	}

	defer func() {
		_ = l.release(context.WithoutCancel(ctx), key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *doctorLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release doctor lock: %w", err)
	}
	return nil
}
