package ports

import (
	"context"

	"github.com/tasktracker/task-system/internal/core/domain"
)

// UserRepository is the identity store.
type UserRepository interface {
	// FindByUsername returns domain.ErrUserNotFound when no identity matches.
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	// Create assigns ID and timestamps. It returns domain.ErrDuplicateUsername
	// when the username is taken.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	// ListAll returns every identity without credential data, ordered by username.
	ListAll(ctx context.Context) ([]domain.UserSummary, error)
}
