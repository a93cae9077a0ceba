package middleware // middleware provides shared request processing for handlers

import (
	"net/http" // http package defines standard HTTP status codes

	"github.com/labstack/echo/v4" // echo provides middleware chaining and context

	"github.com/versefeed/versefeed/internal/moderation"
)

// RequireStaff returns a middleware that admits only staff roles (host and
// above) to the admin surface.  It assumes JWTAuth already stored the role
// in context; a missing or unknown role is rejected with 403.  Per-action
// hierarchy checks (who may ban whom) stay in the handlers, since they
// depend on the target's role.
func RequireStaff() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !moderation.IsStaff(Role(c)) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
