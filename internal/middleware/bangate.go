package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/versefeed/versefeed/internal/moderation"
)

// BanGate rejects requests from banned users before any handler runs. The
// engine's ban check is cached and fails open, so this gate adds at most
// one cheap lookup per request and never blocks traffic on a data-layer
// fault.
func BanGate(engine *moderation.Engine) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			uid, err := UserID(c)
			if err != nil {
				// JWTAuth runs first; an unreadable id here means the route
				// was wired without it. Let the handler surface the error.
				return next(c)
			}
			status := engine.CheckBanStatus(c.Request().Context(), uid)
			if status.Banned {
				resp := echo.Map{"error": "banned", "reason": status.Reason}
				if status.ExpiresAt != nil {
					resp["expires_at"] = status.ExpiresAt
				}
				return c.JSON(http.StatusForbidden, resp)
			}
			return next(c)
		}
	}
}
