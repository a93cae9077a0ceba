package repository

import (
	"context"
	"time"

	"github.com/versefeed/versefeed/internal/database"
	"github.com/versefeed/versefeed/internal/model"
)

// InteractionRepo persists likes and saves. Both tables carry a unique
// (user_id, verse_id) pair, so re-liking is a no-op rather than a duplicate
// row.
type InteractionRepo struct{ DB *database.DB }

func NewInteractionRepo(db *database.DB) *InteractionRepo { return &InteractionRepo{DB: db} }

// Like records a like (idempotent).
func (r *InteractionRepo) Like(ctx context.Context, userID, verseID int64) error {
	_, err := r.DB.ExecContext(ctx, `
INSERT INTO verse_likes (user_id, verse_id, created_at) VALUES (?,?,?)
ON CONFLICT (user_id, verse_id) DO NOTHING`,
		userID, verseID, time.Now().UTC())
	return err
}

// Unlike removes a like (idempotent).
func (r *InteractionRepo) Unlike(ctx context.Context, userID, verseID int64) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM verse_likes WHERE user_id=? AND verse_id=?", userID, verseID)
	return err
}

// Save records a save (idempotent).
func (r *InteractionRepo) Save(ctx context.Context, userID, verseID int64) error {
	_, err := r.DB.ExecContext(ctx, `
INSERT INTO verse_saves (user_id, verse_id, created_at) VALUES (?,?,?)
ON CONFLICT (user_id, verse_id) DO NOTHING`,
		userID, verseID, time.Now().UTC())
	return err
}

// Unsave removes a save (idempotent).
func (r *InteractionRepo) Unsave(ctx context.Context, userID, verseID int64) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM verse_saves WHERE user_id=? AND verse_id=?", userID, verseID)
	return err
}

// LikeCount returns the number of likes for a verse.
func (r *InteractionRepo) LikeCount(ctx context.Context, verseID int64) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM verse_likes WHERE verse_id=?", verseID).Scan(&n)
	return n, err
}

// SavedByUser returns the verses a user has saved, newest save first.
func (r *InteractionRepo) SavedByUser(ctx context.Context, userID int64, limit int) ([]model.Verse, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx, `
SELECT v.id, v.reference, v.text, v.translation, v.source, v.book, v.created_at
FROM verse_saves s
JOIN verses v ON v.id = s.verse_id
WHERE s.user_id=?
ORDER BY s.id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Verse
	for rows.Next() {
		v, err := scanVerse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
