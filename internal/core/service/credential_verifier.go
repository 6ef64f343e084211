package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/tasktracker/task-system/internal/core/domain"
	"github.com/tasktracker/task-system/internal/core/ports"
)

// CredentialVerifier checks a username/password pair against the identity store.
type CredentialVerifier struct {
	users  ports.UserRepository
	hasher ports.PasswordHasher
	// decoy is compared when the username is unknown so both failure paths
	// cost one hash comparison.
	decoy string
}

func NewCredentialVerifier(users ports.UserRepository, hasher ports.PasswordHasher) (*CredentialVerifier, error) {
	decoy, err := hasher.Hash("decoy-password-never-matches")
	if err != nil {
		return nil, fmt.Errorf("credential verifier: %w", err)
	}
	return &CredentialVerifier{users: users, hasher: hasher, decoy: decoy}, nil
}

// Verify returns the identity for valid credentials. Unknown usernames and
// wrong passwords both fail with domain.ErrInvalidCredentials; store outages
// are returned wrapped so they are not mistaken for bad credentials.
func (v *CredentialVerifier) Verify(ctx context.Context, username, password string) (*domain.User, error) {
	if username == "" || password == "" {
		v.hasher.Matches(v.decoy, password)
		return nil, domain.ErrInvalidCredentials
	}

	user, err := v.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			v.hasher.Matches(v.decoy, password)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("verify credentials: %w", err)
	}

	if !v.hasher.Matches(user.PasswordHash, password) {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}
