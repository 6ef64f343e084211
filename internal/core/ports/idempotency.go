package ports

import "context"

// IdempotencyStore remembers which task a client-supplied Idempotency-Key
// produced, scoped per caller. A key is reserved before the task is created so
// that concurrent requests carrying it cannot both insert.
type IdempotencyStore interface {
	// Reserve claims key for the caller. When the key is already claimed it
	// returns false together with the recorded task ID, which is zero while
	// the claiming request is still creating its task.
	Reserve(ctx context.Context, scope, key string) (bool, int64, error)
	// Remember records taskID for key, replacing the reservation.
	Remember(ctx context.Context, scope, key string, taskID int64) error
	// Release drops a reservation that never produced a task.
	Release(ctx context.Context, scope, key string) error
}
