package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tasktracker/task-system/internal/core/domain"
	"github.com/tasktracker/task-system/internal/core/ports"
)

// PrincipalKey is the echo context key holding the authenticated *domain.Principal.
const PrincipalKey = "principal"

// Auth verifies the bearer token and injects the principal into context.
// A missing header is ErrUnauthenticated, anything presented but unusable is
// ErrInvalidToken; both are rendered as 401 by the error handler.
func Auth(verifier ports.TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return domain.ErrUnauthenticated
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return domain.ErrInvalidToken
			}

			session, err := verifier.Verify(strings.TrimSpace(parts[1]))
			if err != nil {
				return domain.ErrInvalidToken
			}

			c.Set(PrincipalKey, session.Principal())
			return next(c)
		}
	}
}

// Principal returns the principal injected by Auth, or nil.
func Principal(c echo.Context) *domain.Principal {
	p, _ := c.Get(PrincipalKey).(*domain.Principal)
	return p
}
