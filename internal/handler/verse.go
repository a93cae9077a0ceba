package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/versefeed/versefeed/internal/middleware"
	"github.com/versefeed/versefeed/internal/model"
	"github.com/versefeed/versefeed/internal/repository"
	"github.com/versefeed/versefeed/internal/scheduler"
)

// VerseHandler serves the verse read path: the currently published verse,
// the countdown, the recent feed, and per-verse likes and saves.
type VerseHandler struct {
	Sched        *scheduler.Scheduler
	Verses       *repository.VerseRepo
	Interactions *repository.InteractionRepo
	Stats        *repository.StatsRepo
}

func NewVerseHandler(s *scheduler.Scheduler, v *repository.VerseRepo, i *repository.InteractionRepo, st *repository.StatsRepo) *VerseHandler {
	return &VerseHandler{Sched: s, Verses: v, Interactions: i, Stats: st}
}

type versePart struct {
	ID          int64  `json:"id"`
	Reference   string `json:"reference"`
	Text        string `json:"text"`
	Translation string `json:"translation,omitempty"`
	Source      string `json:"source,omitempty"`
	Book        string `json:"book,omitempty"`
}

func toVersePart(v model.Verse) versePart {
	return versePart{
		ID:          v.ID,
		Reference:   v.Reference,
		Text:        v.Text,
		Translation: v.Translation,
		Source:      v.Source,
		Book:        v.Book,
	}
}

type currentResp struct {
	Verse        versePart `json:"verse"`
	SessionToken string    `json:"session_token"`
	TimeLeft     int       `json:"time_left"`
	Interval     int       `json:"interval"`
}

// Current returns the published verse snapshot. Clients poll this endpoint
// and compare session_token to detect a rotation.
func (h *VerseHandler) Current(c echo.Context) error {
	uid, _ := middleware.UserID(c)
	snap := h.Sched.CurrentFor(uid)
	return c.JSON(http.StatusOK, currentResp{
		Verse:        toVersePart(snap.Verse),
		SessionToken: snap.SessionToken,
		TimeLeft:     snap.TimeLeft,
		Interval:     snap.Interval,
	})
}

// TimeLeft returns only the countdown, for lightweight polling.
func (h *VerseHandler) TimeLeft(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"time_left": h.Sched.TimeLeft()})
}

// Feed returns the most recently fetched verses, newest first.
func (h *VerseHandler) Feed(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	verses, err := h.Verses.Recent(ctx, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "feed lookup failed"})
	}
	out := make([]versePart, 0, len(verses))
	for _, v := range verses {
		out = append(out, toVersePart(v))
	}
	return c.JSON(http.StatusOK, echo.Map{"verses": out})
}

// Random returns one uniformly random stored verse.
func (h *VerseHandler) Random(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	v, err := h.Verses.Random(ctx)
	if err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no verses stored yet"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	return c.JSON(http.StatusOK, toVersePart(v))
}

func (h *VerseHandler) verseID(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}

// Like records a like on a verse. Idempotent.
func (h *VerseHandler) Like(c echo.Context) error {
	return h.interaction(c, "like", h.Interactions.Like)
}

// Unlike removes a like. Idempotent.
func (h *VerseHandler) Unlike(c echo.Context) error {
	return h.interaction(c, "unlike", h.Interactions.Unlike)
}

// Save bookmarks a verse for the user. Idempotent.
func (h *VerseHandler) Save(c echo.Context) error {
	return h.interaction(c, "save", h.Interactions.Save)
}

// Unsave removes a bookmark. Idempotent.
func (h *VerseHandler) Unsave(c echo.Context) error {
	return h.interaction(c, "unsave", h.Interactions.Unsave)
}

func (h *VerseHandler) interaction(c echo.Context, action string, op func(context.Context, int64, int64) error) error {
	uid, err := middleware.UserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	vid, err := h.verseID(c)
	if err != nil || vid < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid verse id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := op(ctx, uid, vid); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": action + " failed"})
	}
	if h.Stats != nil {
		h.Stats.Record(ctx, uid, action)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

// Likes returns the like count for one verse.
func (h *VerseHandler) Likes(c echo.Context) error {
	vid, err := h.verseID(c)
	if err != nil || vid < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid verse id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	n, err := h.Interactions.LikeCount(ctx, vid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "count failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"verse_id": vid, "likes": n})
}

// Saved returns the caller's saved verses, newest save first.
func (h *VerseHandler) Saved(c echo.Context) error {
	uid, err := middleware.UserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	verses, err := h.Interactions.SavedByUser(ctx, uid, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	out := make([]versePart, 0, len(verses))
	for _, v := range verses {
		out = append(out, toVersePart(v))
	}
	return c.JSON(http.StatusOK, echo.Map{"verses": out})
}
