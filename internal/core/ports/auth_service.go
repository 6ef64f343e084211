package ports

import (
	"context"
	"time"

	"github.com/tasktracker/task-system/internal/core/domain"
)

// PasswordHasher is the opaque one-way password function.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Matches reports whether password hashes to hash.
	Matches(hash, password string) bool
}

// TokenVerifier decodes a presented session token. Every failure, including
// expiry, is domain.ErrInvalidToken.
type TokenVerifier interface {
	Verify(token string) (*domain.Session, error)
}

// LoginResult is returned by a successful Authenticate.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// AuthService covers registration, login and the user directory.
type AuthService interface {
	Register(ctx context.Context, username, password string) (*domain.User, error)
	Authenticate(ctx context.Context, username, password string) (*LoginResult, error)
	ListUsers(ctx context.Context) ([]domain.UserSummary, error)
}
