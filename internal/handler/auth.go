package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/versefeed/versefeed/internal/auth"
	"github.com/versefeed/versefeed/internal/config"
	"github.com/versefeed/versefeed/internal/middleware"
	"github.com/versefeed/versefeed/internal/moderation"
	"github.com/versefeed/versefeed/internal/repository"
	"github.com/versefeed/versefeed/internal/utils"
)

const stateCookieName = "oauth_state"

// AuthHandler bundles dependencies for the sign-in flow: the OAuth provider,
// the user store, and the ban engine (for the signup-time evasion check).
type AuthHandler struct {
	Cfg      config.Config
	Provider *auth.Provider
	Users    *repository.UserRepo
	Engine   *moderation.Engine
	Stats    *repository.StatsRepo
}

func NewAuthHandler(cfg config.Config, p *auth.Provider, u *repository.UserRepo, e *moderation.Engine, s *repository.StatsRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Provider: p, Users: u, Engine: e, Stats: s}
}

type userPart struct {
	ID      int64  `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
	Role    string `json:"role"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type authResp struct {
	User   userPart  `json:"user"`
	Access tokenPart `json:"access"`
}

// Login starts the authorization-code flow: generate an anti-CSRF state,
// pin it in a short-lived cookie, and redirect to the provider.
func (h *AuthHandler) Login(c echo.Context) error {
	state := uuid.NewString()
	c.SetCookie(&http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusFound, h.Provider.AuthURL(state))
}

// Callback completes the flow: verify state, exchange the code, fetch the
// identity, upsert the account, run the signup-time IP evasion check, and
// issue an access token. A banned account gets 403 instead of a token.
func (h *AuthHandler) Callback(c echo.Context) error {
	state := c.QueryParam("state")
	cookie, err := c.Cookie(stateCookieName)
	if err != nil || state == "" || cookie.Value != state {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "state mismatch"})
	}
	code := c.QueryParam("code")
	if code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing code"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	token, err := h.Provider.Exchange(ctx, code)
	if err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "code exchange failed"})
	}
	ident, err := h.Provider.FetchIdentity(ctx, token)
	if err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "identity fetch failed"})
	}

	u, created, err := h.Users.UpsertFromOAuth(ctx, ident.ExternalID, ident.Email, ident.Name, ident.Picture)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "sign-in failed"})
	}

	if created {
		ip := c.RealIP()
		if err := h.Users.RecordSignup(ctx, u.ID, ip); err != nil {
			c.Logger().Warnf("record signup for user %d: %v", u.ID, err)
		}
		if banned, _, originID := h.Engine.CheckIPBan(ctx, ip); banned {
			if err := h.Engine.AutoBan(ctx, u.ID, originID, ip); err != nil {
				c.Logger().Errorf("auto-ban of user %d: %v", u.ID, err)
			}
		}
	}

	status := h.Engine.CheckBanStatus(ctx, u.ID)
	if status.Banned {
		resp := echo.Map{"error": "banned", "reason": status.Reason}
		if status.ExpiresAt != nil {
			resp["expires_at"] = status.ExpiresAt
		}
		return c.JSON(http.StatusForbidden, resp)
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}

	if h.Stats != nil {
		h.Stats.Record(ctx, u.ID, "login")
	}

	return c.JSON(http.StatusOK, authResp{
		User:   userPart{ID: u.ID, Email: u.Email, Name: u.Name, Picture: u.Picture, Role: u.Role},
		Access: tokenPart{Token: access.Token, Expires: access.Exp},
	})
}

// Me returns the signed-in user's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := middleware.UserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	return c.JSON(http.StatusOK, userPart{ID: u.ID, Email: u.Email, Name: u.Name, Picture: u.Picture, Role: u.Role})
}

type activityPart struct {
	Action    string    `json:"action"`
	CreatedAt time.Time `json:"created_at"`
}

// Activity returns the caller's recent recorded actions, newest first.
func (h *AuthHandler) Activity(c echo.Context) error {
	uid, err := middleware.UserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Stats.RecentByUser(ctx, uid, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	out := make([]activityPart, 0, len(items))
	for _, a := range items {
		out = append(out, activityPart{Action: a.Action, CreatedAt: a.CreatedAt})
	}
	return c.JSON(http.StatusOK, echo.Map{"activity": out})
}

type elevateReq struct {
	Role       string `json:"role"`
	AccessCode string `json:"access_code"`
}

// ElevateRole upgrades the caller's own role when they present the matching
// access code. The code check is constant-time; a wrong code and an unknown
// role produce the same 403 so the response does not leak which codes are
// configured. A fresh token is issued so the new role takes effect at once.
func (h *AuthHandler) ElevateRole(c echo.Context) error {
	uid, err := middleware.UserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req elevateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	var configured string
	switch req.Role {
	case moderation.RoleHost:
		configured = h.Cfg.HostCode
	case moderation.RoleMod:
		configured = h.Cfg.ModCode
	case moderation.RoleCoOwner:
		configured = h.Cfg.CoOwnerCode
	case moderation.RoleOwner:
		configured = h.Cfg.OwnerCode
	}
	if !utils.VerifyAccessCode(configured, req.AccessCode) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "invalid access code"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.UpdateRole(ctx, uid, req.Role); err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "role update failed"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, uid, req.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"role":   req.Role,
		"access": tokenPart{Token: access.Token, Expires: access.Exp},
	})
}
