package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/octobees/brandintel/internal/handler"
)

// RequireRole enforces that the authenticated request carries the expected role.
func RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			value, ok := c.Get(ContextKeyRole).(string)
			if !ok || value == "" {
				return handler.Error(c, http.StatusForbidden, "missing role")
			}
			if value != role {
				return handler.Error(c, http.StatusForbidden, "insufficient permissions")
			}
			return next(c)
		}
	}
}
