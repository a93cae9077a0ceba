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
	"github.com/versefeed/versefeed/internal/repository"
)

// AnnouncementHandler manages the draft/schedule/sent lifecycle. Actual
// dispatch is the announcer service's job; the handlers only move rows
// between states.
type AnnouncementHandler struct {
	Announcements *repository.AnnouncementRepo
	Audit         *repository.AuditRepo
}

func NewAnnouncementHandler(a *repository.AnnouncementRepo, au *repository.AuditRepo) *AnnouncementHandler {
	return &AnnouncementHandler{Announcements: a, Audit: au}
}

type announcementReq struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type announcementPart struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	Status      string     `json:"status"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
	CreatedBy   int64      `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toAnnouncementPart(a model.Announcement) announcementPart {
	return announcementPart{
		ID: a.ID, Title: a.Title, Body: a.Body, Status: a.Status,
		ScheduledAt: a.ScheduledAt, SentAt: a.SentAt,
		CreatedBy: a.CreatedBy, CreatedAt: a.CreatedAt,
	}
}

func (h *AnnouncementHandler) auditEntry(c echo.Context, ctx context.Context, actorID int64, action, message string) {
	err := h.Audit.Append(ctx, model.AuditLogEntry{
		AdminID:   actorID,
		Action:    action,
		Details:   audit.Details{Message: message}.Encode(),
		IPAddress: c.RealIP(),
	})
	if err != nil {
		c.Logger().Errorf("audit append for %s: %v", action, err)
	}
}

// Create adds a draft announcement.
func (h *AnnouncementHandler) Create(c echo.Context) error {
	uid, err := middleware.UserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req announcementReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Body = strings.TrimSpace(req.Body)
	if req.Title == "" || req.Body == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title and body required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	a, err := h.Announcements.Create(ctx, req.Title, req.Body, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	h.auditEntry(c, ctx, uid, "create_announcement", fmt.Sprintf("Created announcement %d: %q", a.ID, a.Title))
	return c.JSON(http.StatusCreated, toAnnouncementPart(a))
}

// List returns announcements, newest first.
func (h *AnnouncementHandler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Announcements.List(ctx, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list failed"})
	}
	out := make([]announcementPart, 0, len(items))
	for _, a := range items {
		out = append(out, toAnnouncementPart(a))
	}
	return c.JSON(http.StatusOK, echo.Map{"announcements": out})
}

// Update edits a draft. Scheduled or sent announcements are immutable and
// return 409.
func (h *AnnouncementHandler) Update(c echo.Context) error {
	uid, err := middleware.UserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid announcement id"})
	}
	var req announcementReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Body = strings.TrimSpace(req.Body)
	if req.Title == "" || req.Body == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title and body required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Announcements.UpdateDraft(ctx, id, req.Title, req.Body); err != nil {
		switch err {
		case repository.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "announcement not found"})
		case repository.ErrConflict:
			return c.JSON(http.StatusConflict, echo.Map{"error": "only drafts can be edited"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
		}
	}
	h.auditEntry(c, ctx, uid, "update_announcement", fmt.Sprintf("Updated announcement %d", id))
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

type scheduleReq struct {
	At time.Time `json:"at"`
}

// Schedule moves a draft to scheduled at a future time.
func (h *AnnouncementHandler) Schedule(c echo.Context) error {
	uid, err := middleware.UserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid announcement id"})
	}
	var req scheduleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.At.IsZero() || req.At.Before(time.Now().UTC()) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "scheduled time must be in the future"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Announcements.Schedule(ctx, id, req.At); err != nil {
		switch err {
		case repository.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "announcement not found"})
		case repository.ErrConflict:
			return c.JSON(http.StatusConflict, echo.Map{"error": "only drafts can be scheduled"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "schedule failed"})
		}
	}
	h.auditEntry(c, ctx, uid, "schedule_announcement",
		fmt.Sprintf("Scheduled announcement %d for %s", id, req.At.UTC().Format(time.RFC3339)))
	return c.JSON(http.StatusOK, echo.Map{"status": "scheduled"})
}
