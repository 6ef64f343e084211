package service

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tasktracker/task-system/internal/core/domain"
	"github.com/tasktracker/task-system/internal/pkg/clock"
)

const defaultTokenTTL = 7 * 24 * time.Hour

// TokenConfig is read once at startup and never changes afterwards.
type TokenConfig struct {
	Secret string
	TTL    time.Duration
	Issuer string
}

type sessionClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// TokenCodec issues and verifies HS256-signed session tokens. Verification is
// stateless: a token is valid until its exp claim, there is no revocation.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	issuer string
	clock  clock.Clock
	parser *jwt.Parser
}

func NewTokenCodec(cfg TokenConfig, clk clock.Clock) (*TokenCodec, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token codec: empty signing secret")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTokenTTL
	}
	if clk == nil {
		clk = clock.System()
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(clk.Now),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	return &TokenCodec{
		secret: []byte(cfg.Secret),
		ttl:    cfg.TTL,
		issuer: cfg.Issuer,
		clock:  clk,
		parser: jwt.NewParser(opts...),
	}, nil
}

// Issue signs a token for user valid from now until now+TTL.
func (c *TokenCodec) Issue(user *domain.User) (string, *domain.Session, error) {
	if user == nil || !user.Role.Valid() {
		return "", nil, errors.New("issue token: identity without a valid role")
	}

	now := c.clock.Now().Truncate(time.Second)
	session := &domain.Session{
		SubjectID: user.ID,
		Username:  user.Username,
		Role:      user.Role,
		IssuedAt:  now,
		ExpiresAt: now.Add(c.ttl),
	}

	claims := sessionClaims{
		Username: user.Username,
		Role:     string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, session, nil
}

// Verify checks signature and expiry and decodes the session. It never says
// why a token was rejected.
func (c *TokenCodec) Verify(token string) (*domain.Session, error) {
	claims := &sessionClaims{}
	tkn, err := c.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil || !tkn.Valid || claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return nil, domain.ErrInvalidToken
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return nil, domain.ErrInvalidToken
	}
	role, err := domain.ParseRole(claims.Role)
	if err != nil || claims.Username == "" {
		return nil, domain.ErrInvalidToken
	}

	return &domain.Session{
		SubjectID: id,
		Username:  claims.Username,
		Role:      role,
		IssuedAt:  claims.IssuedAt.Time.UTC(),
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}, nil
}
