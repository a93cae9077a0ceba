package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/versefeed/versefeed/internal/database"
	"github.com/versefeed/versefeed/internal/model"
)

type VerseRepo struct{ DB *database.DB }

func NewVerseRepo(db *database.DB) *VerseRepo { return &VerseRepo{DB: db} }

// InsertIgnore persists a verse with insert-or-ignore semantics keyed on
// (reference, text), then looks up the row id. Repeated API hits returning
// the same passage therefore collapse into one row.
func (r *VerseRepo) InsertIgnore(ctx context.Context, v model.Verse) (int64, error) {
	_, err := r.DB.ExecContext(ctx, `
INSERT INTO verses (reference, text, translation, source, book, created_at)
VALUES (?,?,?,?,?,?)
ON CONFLICT (reference, text) DO NOTHING`,
		v.Reference, v.Text, v.Translation, v.Source, v.Book, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	var id int64
	err = r.DB.QueryRowContext(ctx,
		"SELECT id FROM verses WHERE reference=? AND text=? LIMIT 1",
		v.Reference, v.Text).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	return id, err
}

const verseCols = "id, reference, text, translation, source, book, created_at"

func scanVerse(row interface{ Scan(...any) error }) (model.Verse, error) {
	var v model.Verse
	err := row.Scan(&v.ID, &v.Reference, &v.Text, &v.Translation, &v.Source, &v.Book, &v.CreatedAt)
	if err == sql.ErrNoRows {
		return v, ErrNotFound
	}
	return v, err
}

// GetByID fetches a verse by id.
func (r *VerseRepo) GetByID(ctx context.Context, id int64) (model.Verse, error) {
	return scanVerse(r.DB.QueryRowContext(ctx,
		"SELECT "+verseCols+" FROM verses WHERE id=? LIMIT 1", id))
}

// Recent returns the latest fetched verses, newest first.
func (r *VerseRepo) Recent(ctx context.Context, limit int) ([]model.Verse, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+verseCols+" FROM verses ORDER BY id DESC LIMIT ?", limit)
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

// Random returns one uniformly random stored verse. RANDOM() is supported
// by both backends, which keeps "recommendation" a single query.
func (r *VerseRepo) Random(ctx context.Context) (model.Verse, error) {
	return scanVerse(r.DB.QueryRowContext(ctx,
		"SELECT "+verseCols+" FROM verses ORDER BY RANDOM() LIMIT 1"))
}
