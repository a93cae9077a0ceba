package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/versefeed/versefeed/internal/middleware"
	"github.com/versefeed/versefeed/internal/model"
	"github.com/versefeed/versefeed/internal/moderation"
	"github.com/versefeed/versefeed/internal/repository"
)

const maxCommentLen = 2000

// CommentHandler serves the discussion surface under verses. Writing goes
// through the restriction check; reading does not.
type CommentHandler struct {
	Comments *repository.CommentRepo
	Engine   *moderation.Engine
	Stats    *repository.StatsRepo
}

func NewCommentHandler(cm *repository.CommentRepo, e *moderation.Engine, st *repository.StatsRepo) *CommentHandler {
	return &CommentHandler{Comments: cm, Engine: e, Stats: st}
}

type commentReq struct {
	Body string `json:"body"`
}

type commentPart struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	VerseID   int64     `json:"verse_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

func toCommentPart(cm model.Comment) commentPart {
	return commentPart{ID: cm.ID, UserID: cm.UserID, VerseID: cm.VerseID, Body: cm.Body, CreatedAt: cm.CreatedAt}
}

// Create posts a comment on a verse. A restricted user gets 403 with the
// restriction reason.
func (h *CommentHandler) Create(c echo.Context) error {
	uid, err := middleware.UserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	vid, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || vid < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid verse id"})
	}
	var req commentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Body = strings.TrimSpace(req.Body)
	if req.Body == "" || len(req.Body) > maxCommentLen {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "comment body required (max 2000 chars)"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if restr := h.Engine.CheckCommentRestriction(ctx, uid); restr.Banned {
		resp := echo.Map{"error": "comment restricted", "reason": restr.Reason}
		if restr.ExpiresAt != nil {
			resp["expires_at"] = restr.ExpiresAt
		}
		return c.JSON(http.StatusForbidden, resp)
	}

	id, err := h.Comments.Create(ctx, uid, vid, req.Body)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "comment failed"})
	}
	if h.Stats != nil {
		h.Stats.Record(ctx, uid, "comment")
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

// List returns a verse's non-deleted comments, oldest first.
func (h *CommentHandler) List(c echo.Context) error {
	vid, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || vid < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid verse id"})
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	comments, err := h.Comments.ListForVerse(ctx, vid, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	out := make([]commentPart, 0, len(comments))
	for _, cm := range comments {
		out = append(out, toCommentPart(cm))
	}
	return c.JSON(http.StatusOK, echo.Map{"comments": out})
}

// Reply posts a reply under a comment. Replies share the parent's
// restriction gate.
func (h *CommentHandler) Reply(c echo.Context) error {
	uid, err := middleware.UserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	cid, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || cid < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid comment id"})
	}
	var req commentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Body = strings.TrimSpace(req.Body)
	if req.Body == "" || len(req.Body) > maxCommentLen {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reply body required (max 2000 chars)"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if restr := h.Engine.CheckCommentRestriction(ctx, uid); restr.Banned {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "comment restricted", "reason": restr.Reason})
	}

	if err := h.Comments.Reply(ctx, cid, uid, req.Body); err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "comment not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reply failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"status": "ok"})
}

// Replies lists the non-deleted replies under a comment.
func (h *CommentHandler) Replies(c echo.Context) error {
	cid, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || cid < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid comment id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	replies, err := h.Comments.ListReplies(ctx, cid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"replies": replies})
}

type reactReq struct {
	Emoji string `json:"emoji"`
}

// React records an emoji reaction on a comment. Repeats are no-ops.
func (h *CommentHandler) React(c echo.Context) error {
	uid, err := middleware.UserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	cid, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || cid < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid comment id"})
	}
	var req reactReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Emoji) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "emoji required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Comments.React(ctx, cid, uid, req.Emoji); err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "comment not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reaction failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

// Unreact removes an emoji reaction. Idempotent.
func (h *CommentHandler) Unreact(c echo.Context) error {
	uid, err := middleware.UserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	cid, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || cid < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid comment id"})
	}
	var req reactReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Emoji) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "emoji required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Comments.Unreact(ctx, cid, uid, req.Emoji); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "remove reaction failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

// Reactions aggregates reactions per emoji for a comment.
func (h *CommentHandler) Reactions(c echo.Context) error {
	cid, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || cid < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid comment id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	counts, err := h.Comments.ReactionCounts(ctx, cid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"comment_id": cid, "reactions": counts})
}
