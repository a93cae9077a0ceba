package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/versefeed/versefeed/internal/audit"
	"github.com/versefeed/versefeed/internal/middleware"
	"github.com/versefeed/versefeed/internal/model"
	"github.com/versefeed/versefeed/internal/repository"
	"github.com/versefeed/versefeed/internal/scheduler"
)

// SettingsHandler reads and writes the runtime settings store. Writes are
// validated per key; verse_interval is additionally pushed into the live
// scheduler so the change takes effect without a restart.
type SettingsHandler struct {
	Settings *repository.SettingRepo
	Audit    *repository.AuditRepo
	Sched    *scheduler.Scheduler
}

func NewSettingsHandler(s *repository.SettingRepo, a *repository.AuditRepo, sched *scheduler.Scheduler) *SettingsHandler {
	return &SettingsHandler{Settings: s, Audit: a, Sched: sched}
}

// All returns every setting with defaults filled in.
func (h *SettingsHandler) All(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	settings, err := h.Settings.All(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"settings": settings})
}

type settingReq struct {
	Value string `json:"value"`
}

// validateSetting checks a value against its key's constraints. Unknown
// keys are rejected outright; the store is not a free-form bag.
func validateSetting(key, value string) error {
	intIn := func(lo, hi int) error {
		n, err := strconv.Atoi(value)
		if err != nil || n < lo || n > hi {
			return fmt.Errorf("%s must be an integer between %d and %d", key, lo, hi)
		}
		return nil
	}
	switch key {
	case "verse_interval":
		return intIn(scheduler.MinInterval, scheduler.MaxInterval)
	case "auto_refresh":
		return intIn(10, 300)
	case "audit_retention_days":
		return intIn(7, 365)
	case "safety_mode":
		switch value {
		case "strict", "balanced", "relaxed":
			return nil
		}
		return fmt.Errorf("safety_mode must be strict, balanced or relaxed")
	case "maintenance_mode":
		if value == "on" || value == "off" {
			return nil
		}
		return fmt.Errorf("maintenance_mode must be on or off")
	}
	return fmt.Errorf("unknown setting %q", key)
}

// Update validates and stores one setting, audits the change, and applies
// side effects (the live scheduler interval). A rejected value changes
// nothing and is not audited.
func (h *SettingsHandler) Update(c echo.Context) error {
	uid, err := middleware.UserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	key := c.Param("key")
	var req settingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := validateSetting(key, req.Value); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	old, err := h.Settings.Get(ctx, key)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	if err := h.Settings.Set(ctx, key, req.Value); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	if key == "verse_interval" && h.Sched != nil {
		if n, err := strconv.Atoi(req.Value); err == nil {
			if err := h.Sched.SetInterval(n); err != nil {
				c.Logger().Warnf("apply verse_interval: %v", err)
			}
		}
	}

	err = h.Audit.Append(ctx, model.AuditLogEntry{
		AdminID:   uid,
		Action:    "update_setting",
		Details:   audit.Details{Message: fmt.Sprintf("Changed %s from %q to %q", key, old, req.Value), Extras: map[string]string{"key": key, "from": old, "to": req.Value}}.Encode(),
		IPAddress: c.RealIP(),
	})
	if err != nil {
		c.Logger().Errorf("audit append for update_setting: %v", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"key": key, "value": req.Value})
}
