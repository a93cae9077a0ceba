package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/versefeed/versefeed/internal/audit"
	"github.com/versefeed/versefeed/internal/repository"
)

// AuditHandler serves the admin audit log view. Listing normalizes every
// row's details so legacy free-text entries render the same as structured
// ones.
type AuditHandler struct {
	Audit *repository.AuditRepo
}

func NewAuditHandler(a *repository.AuditRepo) *AuditHandler {
	return &AuditHandler{Audit: a}
}

type auditEntryPart struct {
	ID           int64     `json:"id"`
	AdminID      int64     `json:"admin_id"`
	Action       string    `json:"action"`
	TargetUserID *int64    `json:"target_user_id,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	Duration     string    `json:"duration,omitempty"`
	Message      string    `json:"message,omitempty"`
	IPAddress    string    `json:"ip_address,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// List returns one page of audit entries, newest first. Unlike the browse
// endpoints, pagination here is validated rather than clamped: out-of-range
// values are client errors.
func (h *AuditHandler) List(c echo.Context) error {
	page := 1
	if p := c.QueryParam("page"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "page must be >= 1"})
		}
		page = n
	}
	perPage := 50
	if pp := c.QueryParam("per_page"); pp != "" {
		n, err := strconv.Atoi(pp)
		if err != nil || n < 1 || n > 200 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "per_page must be 1..200"})
		}
		perPage = n
	}
	action := c.QueryParam("action")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	entries, total, err := h.Audit.List(ctx, action, page, perPage)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list failed"})
	}

	out := make([]auditEntryPart, 0, len(entries))
	for _, e := range entries {
		norm := audit.Normalize(e.Details)
		target := e.TargetUserID
		if target == nil {
			if id := audit.ExtractTargetUserID(e.Details); id > 0 {
				target = &id
			}
		}
		out = append(out, auditEntryPart{
			ID:           e.ID,
			AdminID:      e.AdminID,
			Action:       e.Action,
			TargetUserID: target,
			Reason:       norm.Reason,
			Duration:     norm.Duration,
			Message:      norm.Message,
			IPAddress:    e.IPAddress,
			Timestamp:    e.Timestamp,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"entries":  out,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}
