package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/versefeed/versefeed/internal/moderation"
	"github.com/versefeed/versefeed/internal/repository"
)

// Maintenance serves 503 to non-staff users while maintenance mode is on.
// The mode is the OR of the startup env flag and the runtime
// "maintenance_mode" setting, so admins can toggle it without a restart.
// A settings-store read failure counts as "off" (fail open).
func Maintenance(envFlag bool, settings *repository.SettingRepo) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			on := envFlag
			if !on && settings != nil {
				if v, err := settings.Get(c.Request().Context(), "maintenance_mode"); err == nil {
					on = v == "on"
				}
			}
			if on && !moderation.IsStaff(Role(c)) {
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "maintenance in progress"})
			}
			return next(c)
		}
	}
}
