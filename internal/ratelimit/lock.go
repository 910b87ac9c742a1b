package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

const (
	serialLockKeyFormat = "statement:serial:%s"

	// SerialLockTTL bounds how long one invoice creation may hold a prefix.
	SerialLockTTL = 5 * time.Second
)

// Locker is a best-effort redis mutex keyed by name.
type Locker struct {
	client *redis.Client
	script *redis.Script
}

func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{
		client: client,
		script: redis.NewScript(lockReleaseScript),
	}
}

// TryLock takes key for ttl and returns the token needed to release it.
// ok is false when another holder owns the key.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if l == nil || l.client == nil {
		return "", false, errors.New("lock client not configured")
	}
	if key == "" {
		return "", false, errors.New("lock key is empty")
	}
	if ttl <= 0 {
		return "", false, errors.New("lock ttl must be positive")
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

func (l *Locker) Release(ctx context.Context, key, token string) error {
	if l == nil || l.client == nil {
		return nil
	}
	if key == "" || token == "" {
		return nil
	}
	return l.script.Run(ctx, l.client, []string{key}, token).Err()
}

// SerialPrefixKey names the lock that serialises serial assignment for one
// serial prefix, e.g. CPACME.
func SerialPrefixKey(prefix string) string {
	return fmt.Sprintf(serialLockKeyFormat, strings.ToUpper(strings.TrimSpace(prefix)))
}

// LockSerialPrefix holds the serial lock for prefix while a number is chosen
// and inserted. release is never nil and is a no-op when the lock was not
// taken; ok is false when another instance holds the prefix or redis is
// unavailable, and callers then rely on the unique index alone.
func (l *Locker) LockSerialPrefix(ctx context.Context, prefix string) (release func(context.Context) error, ok bool, err error) {
	noop := func(context.Context) error { return nil }
	if strings.TrimSpace(prefix) == "" {
		return noop, false, errors.New("serial prefix is empty")
	}

	key := SerialPrefixKey(prefix)
	token, ok, err := l.TryLock(ctx, key, SerialLockTTL)
	if err != nil || !ok {
		return noop, false, err
	}
	return func(ctx context.Context) error {
		return l.Release(ctx, key, token)
	}, true, nil
}
