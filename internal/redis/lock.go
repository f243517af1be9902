package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only while it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockStore handles distributed locking in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

func callbackLockKey(checkoutRequestID string) string {
	return fmt.Sprintf("lock:callback:%s", checkoutRequestID)
}

// AcquireCallbackLock attempts to take the lock for a checkout request.
// On success it returns the holder token needed to release it.
func (s *LockStore) AcquireCallbackLock(ctx context.Context, checkoutRequestID string, ttl time.Duration) (string, bool, error) {
	token := uuid.New().String()

	ok, err := s.client.SetNX(ctx, callbackLockKey(checkoutRequestID), token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}

	return token, true, nil
}

// ReleaseCallbackLock releases the lock if token still owns it. A lock that
// expired and was taken by another holder is left alone.
func (s *LockStore) ReleaseCallbackLock(ctx context.Context, checkoutRequestID, token string) error {
	return releaseScript.Run(ctx, s.client, []string{callbackLockKey(checkoutRequestID)}, token).Err()
}
