package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 50
	MinPasswordLength = 6
	// bcrypt ignores everything past 72 bytes.
	MaxPasswordBytes = 72
)

// User is a registered identity. PasswordHash never leaves the service layer.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserSummary is the public projection used by assignment pickers.
type UserSummary struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Principal is the authenticated caller a request acts on behalf of.
type Principal struct {
	UserID   int64
	Username string
	Role     Role
}

// NormalizeUsername trims surrounding whitespace and checks the length bounds.
func NormalizeUsername(username string) (string, error) {
	u := strings.TrimSpace(username)
	n := utf8.RuneCountInString(u)
	if n == 0 {
		return "", NewValidationError("username", "username is required")
	}
	if n < MinUsernameLength || n > MaxUsernameLength {
		return "", NewValidationError("username", "username must be between 3 and 50 characters")
	}
	return u, nil
}

// ValidatePassword checks the password bounds accepted at registration.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return NewValidationError("password", "password must be at least 6 characters")
	}
	if len(password) > MaxPasswordBytes {
		return NewValidationError("password", "password must be at most 72 bytes")
	}
	return nil
}
