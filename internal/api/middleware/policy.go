package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/tasktracker/task-system/internal/core/domain"
)

// Require rejects the request before the handler runs when the policy denies
// kind outright. Only operations that do not depend on a specific task make
// sense here; Update is decided by the service once the task is loaded.
func Require(kind domain.OperationKind) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := domain.Authorize(Principal(c), domain.Operation{Kind: kind}).Err(); err != nil {
				return err
			}
			return next(c)
		}
	}
}
