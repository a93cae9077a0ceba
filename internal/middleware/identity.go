package middleware

// identity.go defines helper functions shared across middleware files:
// extraction of the user id and role that JWTAuth stored in the context.

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"
)

// UserID extracts the authenticated user's id from context.
func UserID(c echo.Context) (int64, error) {
	switch t := c.Get("user_id").(type) {
	case int64:
		return t, nil
	case float64:
		return int64(t), nil
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// Role extracts the authenticated user's role, or "" when absent.
func Role(c echo.Context) string {
	if r, ok := c.Get("role").(string); ok {
		return r
	}
	return ""
}

// rateKeyUserID is the string form used in Redis keys; "anon" when the
// request is unauthenticated.
func rateKeyUserID(c echo.Context) string {
	if id, err := UserID(c); err == nil {
		return strconv.FormatInt(id, 10)
	}
	return "anon"
}
