package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/tasktracker/task-system/internal/api/middleware"
	"github.com/tasktracker/task-system/internal/core/domain"
)

// ctxPrincipal returns the caller injected by the Auth middleware. Its
// absence means the route was mounted without Auth; that is reported as an
// unauthenticated request rather than a panic.
func ctxPrincipal(c echo.Context) (*domain.Principal, error) {
	p := middleware.Principal(c)
	if p == nil {
		return nil, domain.ErrUnauthenticated
	}
	return p, nil
}

// pathID parses the :id route parameter.
func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError("id", "id must be a positive integer")
	}
	return id, nil
}

// bindAndValidate decodes the JSON body into req and runs struct validation.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return domain.NewValidationError("body", "invalid payload")
	}
	return c.Validate(req)
}
