package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tasktracker/task-system/internal/core/domain"
	"github.com/tasktracker/task-system/internal/pkg/clock"
)

var tokenEpoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestCodec(t *testing.T, secret string, clk clock.Clock) *TokenCodec {
	t.Helper()
	codec, err := NewTokenCodec(TokenConfig{Secret: secret, TTL: time.Hour, Issuer: "task-tracker"}, clk)
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}
	return codec
}

func TestNewTokenCodec_RequiresSecret(t *testing.T) {
	if _, err := NewTokenCodec(TokenConfig{}, nil); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}

func TestNewTokenCodec_DefaultTTL(t *testing.T) {
	codec, err := NewTokenCodec(TokenConfig{Secret: "s"}, clock.NewFixed(tokenEpoch))
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}
	_, session, err := codec.Issue(&domain.User{ID: 1, Username: "alice", Role: domain.RoleUser})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if got := session.ExpiresAt.Sub(session.IssuedAt); got != 7*24*time.Hour {
		t.Fatalf("expected 7 day default, got %s", got)
	}
}

func TestTokenCodec_IssueVerifyRoundTrip(t *testing.T) {
	clk := clock.NewFixed(tokenEpoch)
	codec := newTestCodec(t, "secret", clk)
	user := &domain.User{ID: 42, Username: "alice", Role: domain.RoleAdmin}

	token, issued, err := codec.Issue(user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !issued.ExpiresAt.Equal(tokenEpoch.Add(time.Hour)) {
		t.Fatalf("unexpected expiry %v", issued.ExpiresAt)
	}

	got, err := codec.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got.SubjectID != 42 || got.Username != "alice" || got.Role != domain.RoleAdmin {
		t.Fatalf("unexpected session %+v", got)
	}
	if !got.IssuedAt.Equal(issued.IssuedAt) || !got.ExpiresAt.Equal(issued.ExpiresAt) {
		t.Fatalf("timestamps differ: got %+v issued %+v", got, issued)
	}
}

func TestTokenCodec_Expiry(t *testing.T) {
	clk := clock.NewFixed(tokenEpoch)
	codec := newTestCodec(t, "secret", clk)
	token, _, err := codec.Issue(&domain.User{ID: 1, Username: "bob", Role: domain.RoleUser})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	clk.Advance(59 * time.Minute)
	if _, err := codec.Verify(token); err != nil {
		t.Fatalf("token should still be valid: %v", err)
	}

	clk.Advance(time.Minute)
	if _, err := codec.Verify(token); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken at expiry, got %v", err)
	}

	clk.Advance(24 * time.Hour)
	if _, err := codec.Verify(token); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after expiry, got %v", err)
	}
}

func TestTokenCodec_RejectsForgedTokens(t *testing.T) {
	clk := clock.NewFixed(tokenEpoch)
	codec := newTestCodec(t, "secret", clk)
	attacker := newTestCodec(t, "not-the-secret", clk)

	forged, _, err := attacker.Issue(&domain.User{ID: 7, Username: "eve", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, sessionClaims{
		Username: "eve",
		Role:     "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "task-tracker",
			Subject:   "7",
			IssuedAt:  jwt.NewNumericDate(tokenEpoch),
			ExpiresAt: jwt.NewNumericDate(tokenEpoch.Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	valid, _, err := codec.Issue(&domain.User{ID: 7, Username: "eve", Role: domain.RoleUser})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	parts := strings.Split(valid, ".")
	swapped := parts[0] + "." + strings.Split(forged, ".")[1] + "." + parts[2]

	cases := map[string]string{
		"wrong secret":     forged,
		"alg none":         unsigned,
		"swapped payload":  swapped,
		"malformed":        "not.a.token",
		"empty":            "",
		"missing segments": parts[0] + "." + parts[1],
	}
	for name, token := range cases {
		if _, err := codec.Verify(token); !errors.Is(err, domain.ErrInvalidToken) {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}

func TestTokenCodec_RejectsForeignIssuerAndMissingClaims(t *testing.T) {
	clk := clock.NewFixed(tokenEpoch)
	codec := newTestCodec(t, "secret", clk)

	sign := func(claims sessionClaims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}
	base := func() sessionClaims {
		return sessionClaims{
			Username: "alice",
			Role:     "user",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "task-tracker",
				Subject:   "3",
				IssuedAt:  jwt.NewNumericDate(tokenEpoch),
				ExpiresAt: jwt.NewNumericDate(tokenEpoch.Add(time.Hour)),
			},
		}
	}

	if _, err := codec.Verify(sign(base())); err != nil {
		t.Fatalf("baseline token should verify: %v", err)
	}

	foreign := base()
	foreign.Issuer = "someone-else"
	noExp := base()
	noExp.ExpiresAt = nil
	badRole := base()
	badRole.Role = "root"
	badSubject := base()
	badSubject.Subject = "abc"

	for name, claims := range map[string]sessionClaims{
		"foreign issuer": foreign,
		"missing exp":    noExp,
		"unknown role":   badRole,
		"bad subject":    badSubject,
	} {
		if _, err := codec.Verify(sign(claims)); !errors.Is(err, domain.ErrInvalidToken) {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}
