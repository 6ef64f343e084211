package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultIdempotencyTTL = 24 * time.Hour
	// reservedMarker is stored under a key while its task is being created.
	reservedMarker = "reserved"
	// reservationTTL bounds how long a crashed request can block its key.
	reservationTTL = 30 * time.Second
)

// releaseScript deletes the key only while it still holds the reservation
// marker, so a recorded task ID is never dropped.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// IdempotencyStore remembers which task an Idempotency-Key created.
// Key format: idem:task:<scope>:<key>
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdempotencyStore wraps client. Keys expire after ttl, or a day when ttl
// is not positive.
func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

// Reserve claims key with SET NX. The reservation lives for at most
// reservationTTL; Remember extends it to the full TTL. A caller that loses the
// race gets the task ID recorded so far, zero while the winner is still
// working.
func (s *IdempotencyStore) Reserve(ctx context.Context, scope, key string) (bool, int64, error) {
	k := s.key(scope, key)
	ok, err := s.client.SetNX(ctx, k, reservedMarker, min(s.ttl, reservationTTL)).Result()
	if err != nil {
		return false, 0, fmt.Errorf("idempotency reserve: %w", err)
	}
	if ok {
		return true, 0, nil
	}

	val, err := s.client.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// Released or expired in between; the caller retries.
		return false, 0, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("idempotency reserve: %w", err)
	}
	if val == reservedMarker {
		return false, 0, nil
	}
	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil || id <= 0 {
		return false, 0, fmt.Errorf("idempotency reserve: corrupt value %q", val)
	}
	return false, id, nil
}

// Remember overwrites the reservation with taskID and restarts the TTL.
func (s *IdempotencyStore) Remember(ctx context.Context, scope, key string, taskID int64) error {
	if err := s.client.Set(ctx, s.key(scope, key), taskID, s.ttl).Err(); err != nil {
		return fmt.Errorf("idempotency remember: %w", err)
	}
	return nil
}

// Release removes an unfinished reservation. Keys that already carry a task
// ID are left alone.
func (s *IdempotencyStore) Release(ctx context.Context, scope, key string) error {
	if err := releaseScript.Run(ctx, s.client, []string{s.key(scope, key)}, reservedMarker).Err(); err != nil {
		return fmt.Errorf("idempotency release: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) key(scope, key string) string {
	return fmt.Sprintf("idem:task:%s:%s", scope, key)
}
