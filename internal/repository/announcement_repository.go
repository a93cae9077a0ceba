package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/versefeed/versefeed/internal/database"
	"github.com/versefeed/versefeed/internal/model"
)

type AnnouncementRepo struct{ DB *database.DB }

func NewAnnouncementRepo(db *database.DB) *AnnouncementRepo { return &AnnouncementRepo{DB: db} }

// Create inserts a draft announcement and returns it.
func (r *AnnouncementRepo) Create(ctx context.Context, title, body string, createdBy int64) (model.Announcement, error) {
	now := time.Now().UTC()
	_, err := r.DB.ExecContext(ctx, `
INSERT INTO announcements (title, body, status, created_by, created_at, updated_at)
VALUES (?,?,?,?,?,?)`,
		title, body, model.AnnouncementDraft, createdBy, now, now)
	if err != nil {
		return model.Announcement{}, err
	}
	var id int64
	err = r.DB.QueryRowContext(ctx,
		"SELECT id FROM announcements WHERE created_by=? AND created_at=? ORDER BY id DESC LIMIT 1",
		createdBy, now).Scan(&id)
	if err != nil {
		return model.Announcement{}, err
	}
	return r.GetByID(ctx, id)
}

const announcementCols = "id, title, body, status, scheduled_at, sent_at, created_by, created_at, updated_at"

func scanAnnouncement(row interface{ Scan(...any) error }) (model.Announcement, error) {
	var a model.Announcement
	var sched, sent sql.NullTime
	err := row.Scan(&a.ID, &a.Title, &a.Body, &a.Status, &sched, &sent, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	if err != nil {
		return a, err
	}
	if sched.Valid {
		t := sched.Time
		a.ScheduledAt = &t
	}
	if sent.Valid {
		t := sent.Time
		a.SentAt = &t
	}
	return a, nil
}

// GetByID fetches one announcement.
func (r *AnnouncementRepo) GetByID(ctx context.Context, id int64) (model.Announcement, error) {
	return scanAnnouncement(r.DB.QueryRowContext(ctx,
		"SELECT "+announcementCols+" FROM announcements WHERE id=? LIMIT 1", id))
}

// List returns all announcements, newest first.
func (r *AnnouncementRepo) List(ctx context.Context, limit int) ([]model.Announcement, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+announcementCols+" FROM announcements ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Announcement
	for rows.Next() {
		a, err := scanAnnouncement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateDraft edits a draft's title and body. Scheduled or sent
// announcements are immutable; editing them returns ErrConflict.
func (r *AnnouncementRepo) UpdateDraft(ctx context.Context, id int64, title, body string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE announcements SET title=?, body=?, updated_at=? WHERE id=? AND status=?",
		title, body, time.Now().UTC(), id, model.AnnouncementDraft)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrConflict
	}
	return nil
}

// Schedule moves a draft to scheduled at the given time.
func (r *AnnouncementRepo) Schedule(ctx context.Context, id int64, at time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE announcements SET status=?, scheduled_at=?, updated_at=? WHERE id=? AND status=?",
		model.AnnouncementScheduled, at.UTC(), time.Now().UTC(), id, model.AnnouncementDraft)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrConflict
	}
	return nil
}

// DueScheduled returns scheduled announcements whose time has come.
func (r *AnnouncementRepo) DueScheduled(ctx context.Context, now time.Time) ([]model.Announcement, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+announcementCols+" FROM announcements WHERE status=? AND scheduled_at<=? ORDER BY scheduled_at",
		model.AnnouncementScheduled, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Announcement
	for rows.Next() {
		a, err := scanAnnouncement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// MarkSent transitions a scheduled announcement to sent. The status guard
// makes the transition happen at most once even if two dispatcher passes
// race on the same row.
func (r *AnnouncementRepo) MarkSent(ctx context.Context, id int64, at time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE announcements SET status=?, sent_at=?, updated_at=? WHERE id=? AND status=?",
		model.AnnouncementSent, at.UTC(), time.Now().UTC(), id, model.AnnouncementScheduled)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
