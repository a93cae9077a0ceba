package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/versefeed/versefeed/internal/database"
	"github.com/versefeed/versefeed/internal/model"
)

type CommentRepo struct{ DB *database.DB }

func NewCommentRepo(db *database.DB) *CommentRepo { return &CommentRepo{DB: db} }

// Create inserts a comment and returns its id.
func (r *CommentRepo) Create(ctx context.Context, userID, verseID int64, body string) (int64, error) {
	now := time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO comments (user_id, verse_id, body, created_at) VALUES (?,?,?,?)",
		userID, verseID, body, now)
	if err != nil {
		return 0, err
	}
	if id, err := res.LastInsertId(); err == nil && id > 0 {
		return id, nil
	}
	// pgx does not implement LastInsertId; re-read the row instead.
	var id int64
	err = r.DB.QueryRowContext(ctx,
		"SELECT id FROM comments WHERE user_id=? AND verse_id=? AND created_at=? ORDER BY id DESC LIMIT 1",
		userID, verseID, now).Scan(&id)
	return id, err
}

// GetByID fetches a comment, deleted or not.
func (r *CommentRepo) GetByID(ctx context.Context, id int64) (model.Comment, error) {
	var cm model.Comment
	var deletedAt sql.NullTime
	var deletedBy sql.NullInt64
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id, verse_id, body, created_at, deleted_at, deleted_by FROM comments WHERE id=? LIMIT 1",
		id).Scan(&cm.ID, &cm.UserID, &cm.VerseID, &cm.Body, &cm.CreatedAt, &deletedAt, &deletedBy)
	if err == sql.ErrNoRows {
		return cm, ErrNotFound
	}
	if err != nil {
		return cm, err
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		cm.DeletedAt = &t
	}
	if deletedBy.Valid {
		b := deletedBy.Int64
		cm.DeletedBy = &b
	}
	return cm, nil
}

// ListForVerse returns the verse's non-deleted comments, oldest first.
func (r *CommentRepo) ListForVerse(ctx context.Context, verseID int64, limit int) ([]model.Comment, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, user_id, verse_id, body, created_at FROM comments WHERE verse_id=? AND deleted_at IS NULL ORDER BY id LIMIT ?",
		verseID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Comment
	for rows.Next() {
		var cm model.Comment
		if err := rows.Scan(&cm.ID, &cm.UserID, &cm.VerseID, &cm.Body, &cm.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, cm)
	}
	return out, rows.Err()
}

// SoftDelete marks a comment deleted by an admin. Deleting an already
// deleted comment returns ErrConflict so moderation actions stay auditable
// one-to-one.
func (r *CommentRepo) SoftDelete(ctx context.Context, id, adminID int64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE comments SET deleted_at=?, deleted_by=? WHERE id=? AND deleted_at IS NULL",
		time.Now().UTC(), adminID, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrConflict
	}
	return nil
}

// Reply inserts a reply under a comment.
func (r *CommentRepo) Reply(ctx context.Context, commentID, userID int64, body string) error {
	if _, err := r.GetByID(ctx, commentID); err != nil {
		return err
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO comment_replies (comment_id, user_id, body, created_at) VALUES (?,?,?,?)",
		commentID, userID, body, time.Now().UTC())
	return err
}

// ListReplies returns the non-deleted replies under a comment.
func (r *CommentRepo) ListReplies(ctx context.Context, commentID int64) ([]model.CommentReply, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, comment_id, user_id, body, created_at FROM comment_replies WHERE comment_id=? AND deleted_at IS NULL ORDER BY id",
		commentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.CommentReply
	for rows.Next() {
		var rp model.CommentReply
		if err := rows.Scan(&rp.ID, &rp.CommentID, &rp.UserID, &rp.Body, &rp.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rp)
	}
	return out, rows.Err()
}

// React records an emoji reaction; repeating the same reaction is a no-op.
func (r *CommentRepo) React(ctx context.Context, commentID, userID int64, emoji string) error {
	if _, err := r.GetByID(ctx, commentID); err != nil {
		return err
	}
	_, err := r.DB.ExecContext(ctx, `
INSERT INTO comment_reactions (comment_id, user_id, emoji, created_at) VALUES (?,?,?,?)
ON CONFLICT (comment_id, user_id, emoji) DO NOTHING`,
		commentID, userID, emoji, time.Now().UTC())
	return err
}

// Unreact removes a reaction (idempotent).
func (r *CommentRepo) Unreact(ctx context.Context, commentID, userID int64, emoji string) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM comment_reactions WHERE comment_id=? AND user_id=? AND emoji=?",
		commentID, userID, emoji)
	return err
}

// ReactionCounts aggregates reactions per emoji for one comment.
func (r *CommentRepo) ReactionCounts(ctx context.Context, commentID int64) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT emoji, COUNT(*) FROM comment_reactions WHERE comment_id=? GROUP BY emoji", commentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var emoji string
		var n int
		if err := rows.Scan(&emoji, &n); err != nil {
			return nil, err
		}
		out[emoji] = n
	}
	return out, rows.Err()
}
