package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tasktracker/task-system/internal/core/domain"
	"github.com/tasktracker/task-system/internal/core/ports"
)

// TokenIssuer signs session tokens for authenticated identities.
type TokenIssuer interface {
	Issue(user *domain.User) (string, *domain.Session, error)
}

// AuthService implements registration, login and the user directory.
type AuthService struct {
	users    ports.UserRepository
	hasher   ports.PasswordHasher
	verifier *CredentialVerifier
	tokens   TokenIssuer
	logger   zerolog.Logger
}

func NewAuthService(users ports.UserRepository, hasher ports.PasswordHasher, tokens TokenIssuer, logger zerolog.Logger) (*AuthService, error) {
	verifier, err := NewCredentialVerifier(users, hasher)
	if err != nil {
		return nil, err
	}
	return &AuthService{
		users:    users,
		hasher:   hasher,
		verifier: verifier,
		tokens:   tokens,
		logger:   logger,
	}, nil
}

// Register creates a new identity with the user role.
func (s *AuthService) Register(ctx context.Context, username, password string) (*domain.User, error) {
	return s.createUser(ctx, username, password, domain.RoleUser)
}

// Authenticate verifies credentials and issues a session token.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*ports.LoginResult, error) {
	user, err := s.verifier.Verify(ctx, username, password)
	if err != nil {
		return nil, err
	}

	token, session, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	return &ports.LoginResult{Token: token, ExpiresAt: session.ExpiresAt, User: user}, nil
}

// ListUsers returns id and username of every identity.
func (s *AuthService) ListUsers(ctx context.Context) ([]domain.UserSummary, error) {
	users, err := s.users.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// EnsureUser creates the identity if the username is free and returns the
// stored one otherwise. It is how bootstrap accounts, including the first
// admin, come into existence.
func (s *AuthService) EnsureUser(ctx context.Context, username, password string, role domain.Role) (*domain.User, bool, error) {
	name, err := domain.NormalizeUsername(username)
	if err != nil {
		return nil, false, err
	}

	existing, err := s.users.FindByUsername(ctx, name)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, false, fmt.Errorf("ensure user: %w", err)
	}

	created, err := s.createUser(ctx, name, password, role)
	if errors.Is(err, domain.ErrDuplicateUsername) {
		existing, err = s.users.FindByUsername(ctx, name)
		return existing, false, err
	}
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

func (s *AuthService) createUser(ctx context.Context, username, password string, role domain.Role) (*domain.User, error) {
	name, err := domain.NormalizeUsername(username)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidatePassword(password); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, domain.NewValidationError("role", "unknown role")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	created, err := s.users.Create(ctx, &domain.User{
		Username:     name,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateUsername) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info().Int64("user_id", created.ID).Str("username", created.Username).Str("role", string(created.Role)).Msg("user registered")
	return created, nil
}
