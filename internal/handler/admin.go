package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/versefeed/versefeed/internal/audit"
	"github.com/versefeed/versefeed/internal/middleware"
	"github.com/versefeed/versefeed/internal/model"
	"github.com/versefeed/versefeed/internal/moderation"
	"github.com/versefeed/versefeed/internal/queue"
	"github.com/versefeed/versefeed/internal/repository"
	"github.com/versefeed/versefeed/internal/service"
)

// AdminHandler serves the moderation surface: the stats dashboard, the user
// directory, bans, restrictions, role changes, and comment removal. Every
// successful action is audited; rejected attempts are not.
type AdminHandler struct {
	Users    *repository.UserRepo
	Comments *repository.CommentRepo
	Audit    *repository.AuditRepo
	Stats    *repository.StatsRepo
	Engine   *moderation.Engine
}

func NewAdminHandler(u *repository.UserRepo, cm *repository.CommentRepo, a *repository.AuditRepo, st *repository.StatsRepo, e *moderation.Engine) *AdminHandler {
	return &AdminHandler{Users: u, Comments: cm, Audit: a, Stats: st, Engine: e}
}

// Dashboard returns the headline analytics.
func (h *AdminHandler) Dashboard(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	users, verses, comments := h.Stats.Totals(ctx)
	return c.JSON(http.StatusOK, echo.Map{
		"total_users":    users,
		"total_verses":   verses,
		"total_comments": comments,
		"dau":            h.Stats.DAU(ctx),
		"retention_pct":  h.Stats.Retention(ctx),
		"conversion_pct": h.Stats.Conversion(ctx),
	})
}

type adminUserPart struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	Role         string     `json:"role"`
	IsBanned     bool       `json:"is_banned"`
	BanReason    *string    `json:"ban_reason,omitempty"`
	BanExpiresAt *time.Time `json:"ban_expires_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// ListUsers returns one page of the user directory with optional query,
// role, and banned filters.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	perPage, _ := strconv.Atoi(c.QueryParam("per_page"))

	f := repository.UserFilter{
		Query: c.QueryParam("q"),
		Role:  c.QueryParam("role"),
	}
	if b := c.QueryParam("banned"); b != "" {
		v := b == "true" || b == "1"
		f.Banned = &v
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, total, err := h.Users.List(ctx, f, page, perPage)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list failed"})
	}
	out := make([]adminUserPart, 0, len(users))
	for _, u := range users {
		out = append(out, adminUserPart{
			ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role,
			IsBanned: u.IsBanned, BanReason: u.BanReason, BanExpiresAt: u.BanExpiresAt,
			CreatedAt: u.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"users": out, "total": total})
}

// actor loads the caller and verifies they outrank the target. Returns
// (actor, target, true) on success; a response has been written otherwise.
func (h *AdminHandler) actor(c echo.Context, ctx context.Context, targetID int64) (model.User, model.User, bool) {
	uid, err := middleware.UserID(c)
	if err != nil {
		_ = c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		return model.User{}, model.User{}, false
	}
	actor, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		_ = c.JSON(http.StatusInternalServerError, echo.Map{"error": "actor lookup failed"})
		return model.User{}, model.User{}, false
	}
	target, err := h.Users.GetByID(ctx, targetID)
	if err != nil {
		if err == repository.ErrNotFound {
			_ = c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		} else {
			_ = c.JSON(http.StatusInternalServerError, echo.Map{"error": "target lookup failed"})
		}
		return model.User{}, model.User{}, false
	}
	if !moderation.CanModify(actor.Role, target.Role) {
		_ = c.JSON(http.StatusForbidden, echo.Map{"error": "insufficient role"})
		return model.User{}, model.User{}, false
	}
	return actor, target, true
}

// record writes the audit entry and mirrors it to the broker. Both are
// post-success side effects; a broker failure is logged inside the
// publisher and never surfaces to the client.
func (h *AdminHandler) record(c echo.Context, ctx context.Context, actorID int64, action string, targetID int64, d audit.Details) {
	tid := targetID
	err := h.Audit.Append(ctx, model.AuditLogEntry{
		AdminID:      actorID,
		Action:       action,
		TargetUserID: &tid,
		Details:      d.Encode(),
		IPAddress:    c.RealIP(),
	})
	if err != nil {
		c.Logger().Errorf("audit append for %s: %v", action, err)
	}
	_ = service.PublishModerationAction(ctx, queue.ModerationActionEvent{
		Action:       action,
		ActorID:      actorID,
		TargetUserID: targetID,
		Reason:       d.Reason,
		Duration:     d.Duration,
		OccurredAt:   time.Now().UTC().Format(time.RFC3339),
	})
}

type banReq struct {
	Reason   string `json:"reason"`
	Duration string `json:"duration"` // "", "permanent", "7d", or a Go duration like "24h"
}

// parseBanDuration turns the request duration into an expiry. Empty or
// "permanent" means no expiry. A trailing "d" is days, since Go's duration
// syntax stops at hours.
func parseBanDuration(s string, now time.Time) (*time.Time, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == "permanent" {
		return nil, nil
	}
	if strings.HasSuffix(s, "d") {
		n, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid duration %q", s)
		}
		t := now.Add(time.Duration(n) * 24 * time.Hour)
		return &t, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return nil, fmt.Errorf("invalid duration %q", s)
	}
	t := now.Add(d)
	return &t, nil
}

// BanUser bans the target. The actor must strictly outrank the target.
func (h *AdminHandler) BanUser(c echo.Context) error {
	targetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || targetID < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	var req banReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if req.Reason == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reason required"})
	}
	expiresAt, err := parseBanDuration(req.Duration, time.Now().UTC())
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	actor, target, ok := h.actor(c, ctx, targetID)
	if !ok {
		return nil
	}

	if err := h.Engine.Ban(ctx, target.ID, actor.ID, req.Reason, expiresAt, c.RealIP()); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "ban failed"})
	}

	h.record(c, ctx, actor.ID, "ban_user", target.ID, audit.Details{
		Message:  fmt.Sprintf("Banned %s (%d)", target.Name, target.ID),
		Target:   target.Name,
		Reason:   req.Reason,
		Duration: req.Duration,
	})
	return c.JSON(http.StatusOK, echo.Map{"status": "banned"})
}

// UnbanUser lifts the target's ban. Idempotent at the storage layer, but
// still role-gated and audited.
func (h *AdminHandler) UnbanUser(c echo.Context) error {
	targetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || targetID < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	actor, target, ok := h.actor(c, ctx, targetID)
	if !ok {
		return nil
	}

	if err := h.Engine.Unban(ctx, target.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "unban failed"})
	}

	h.record(c, ctx, actor.ID, "unban_user", target.ID, audit.Details{
		Message: fmt.Sprintf("Unbanned %s (%d)", target.Name, target.ID),
		Target:  target.Name,
	})
	return c.JSON(http.StatusOK, echo.Map{"status": "unbanned"})
}

// RestrictUser blocks the target from commenting.
func (h *AdminHandler) RestrictUser(c echo.Context) error {
	targetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || targetID < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	var req banReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if req.Reason == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reason required"})
	}
	expiresAt, err := parseBanDuration(req.Duration, time.Now().UTC())
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	actor, target, ok := h.actor(c, ctx, targetID)
	if !ok {
		return nil
	}

	if err := h.Engine.Restrict(ctx, target.ID, actor.ID, req.Reason, expiresAt); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "restrict failed"})
	}

	h.record(c, ctx, actor.ID, "restrict_user", target.ID, audit.Details{
		Message:  fmt.Sprintf("Restricted %s (%d) from commenting", target.Name, target.ID),
		Target:   target.Name,
		Reason:   req.Reason,
		Duration: req.Duration,
	})
	return c.JSON(http.StatusOK, echo.Map{"status": "restricted"})
}

// UnrestrictUser lifts the comment restriction.
func (h *AdminHandler) UnrestrictUser(c echo.Context) error {
	targetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || targetID < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	actor, target, ok := h.actor(c, ctx, targetID)
	if !ok {
		return nil
	}

	if err := h.Engine.Unrestrict(ctx, target.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "unrestrict failed"})
	}

	h.record(c, ctx, actor.ID, "unrestrict_user", target.ID, audit.Details{
		Message: fmt.Sprintf("Lifted comment restriction on %s (%d)", target.Name, target.ID),
		Target:  target.Name,
	})
	return c.JSON(http.StatusOK, echo.Map{"status": "unrestricted"})
}

type roleReq struct {
	Role string `json:"role"`
}

// ChangeRole assigns a new role to the target. The actor must outrank both
// the target's current role and the role being assigned.
func (h *AdminHandler) ChangeRole(c echo.Context) error {
	targetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || targetID < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	var req roleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if !moderation.ValidRole(req.Role) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown role"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	actor, target, ok := h.actor(c, ctx, targetID)
	if !ok {
		return nil
	}
	if !moderation.CanAssign(actor.Role, req.Role) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "cannot assign that role"})
	}

	if err := h.Users.UpdateRole(ctx, target.ID, req.Role); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "role update failed"})
	}

	h.record(c, ctx, actor.ID, "change_role", target.ID, audit.Details{
		Message: fmt.Sprintf("Changed role of %s (%d) from %s to %s", target.Name, target.ID, target.Role, req.Role),
		Target:  target.Name,
		Extras:  map[string]string{"from": target.Role, "to": req.Role},
	})
	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "role": req.Role})
}

// DeleteComment soft-deletes a comment. Deleting an already deleted comment
// returns 409 so each audit entry maps to exactly one removal.
func (h *AdminHandler) DeleteComment(c echo.Context) error {
	commentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || commentID < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid comment id"})
	}
	uid, err := middleware.UserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cm, err := h.Comments.GetByID(ctx, commentID)
	if err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "comment not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}

	if err := h.Comments.SoftDelete(ctx, commentID, uid); err != nil {
		switch err {
		case repository.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "comment not found"})
		case repository.ErrConflict:
			return c.JSON(http.StatusConflict, echo.Map{"error": "comment already deleted"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
		}
	}

	h.record(c, ctx, uid, "delete_comment", cm.UserID, audit.Details{
		Message: fmt.Sprintf("Deleted comment %d by user %d", cm.ID, cm.UserID),
		Extras:  map[string]string{"comment_id": strconv.FormatInt(cm.ID, 10)},
	})
	return c.JSON(http.StatusOK, echo.Map{"status": "deleted"})
}
