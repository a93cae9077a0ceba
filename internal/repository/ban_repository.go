package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/versefeed/versefeed/internal/database"
	"github.com/versefeed/versefeed/internal/model"
)

// BanRepo persists bans and comment restrictions. Both tables carry a
// unique user_id, so a new ban for an already-banned user replaces the old
// row (one active ban per user, last write wins).
type BanRepo struct{ DB *database.DB }

func NewBanRepo(db *database.DB) *BanRepo { return &BanRepo{DB: db} }

// UpsertBan inserts or replaces the user's ban.
func (r *BanRepo) UpsertBan(ctx context.Context, b model.Ban) error {
	_, err := r.DB.ExecContext(ctx, `
INSERT INTO bans (user_id, reason, banned_by, banned_at, expires_at, ip_address)
VALUES (?,?,?,?,?,?)
ON CONFLICT (user_id) DO UPDATE SET
  reason=excluded.reason,
  banned_by=excluded.banned_by,
  banned_at=excluded.banned_at,
  expires_at=excluded.expires_at,
  ip_address=excluded.ip_address`,
		b.UserID, b.Reason, b.BannedBy, b.BannedAt.UTC(), b.ExpiresAt, b.IPAddress)
	return err
}

// DeleteBan removes the user's ban row. Missing rows are not an error so
// unban and lazy expiry cleanup stay idempotent.
func (r *BanRepo) DeleteBan(ctx context.Context, userID int64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM bans WHERE user_id=?", userID)
	return err
}

const banCols = "id, user_id, reason, banned_by, banned_at, expires_at, ip_address"

func scanBan(row interface{ Scan(...any) error }) (model.Ban, error) {
	var b model.Ban
	var exp sql.NullTime
	err := row.Scan(&b.ID, &b.UserID, &b.Reason, &b.BannedBy, &b.BannedAt, &exp, &b.IPAddress)
	if err == sql.ErrNoRows {
		return b, ErrNotFound
	}
	if err != nil {
		return b, err
	}
	if exp.Valid {
		t := exp.Time
		b.ExpiresAt = &t
	}
	return b, nil
}

// GetBan fetches the user's ban row (expired or not).
func (r *BanRepo) GetBan(ctx context.Context, userID int64) (model.Ban, error) {
	return scanBan(r.DB.QueryRowContext(ctx,
		"SELECT "+banCols+" FROM bans WHERE user_id=? LIMIT 1", userID))
}

// ActiveBanByIP finds a non-expired ban whose recorded ip_address matches.
func (r *BanRepo) ActiveBanByIP(ctx context.Context, ip string, now time.Time) (model.Ban, error) {
	return scanBan(r.DB.QueryRowContext(ctx,
		"SELECT "+banCols+" FROM bans WHERE ip_address=? AND ip_address<>'' AND (expires_at IS NULL OR expires_at>?) LIMIT 1",
		ip, now.UTC()))
}

// ActiveBanBySignupIP joins ban rows through the signup log, catching users
// who were banned without their IP ever landing on the ban row itself.
func (r *BanRepo) ActiveBanBySignupIP(ctx context.Context, ip string, now time.Time) (model.Ban, error) {
	return scanBan(r.DB.QueryRowContext(ctx, `
SELECT b.id, b.user_id, b.reason, b.banned_by, b.banned_at, b.expires_at, b.ip_address
FROM bans b
JOIN signup_logs s ON s.user_id = b.user_id
WHERE s.ip_address=? AND (b.expires_at IS NULL OR b.expires_at>?)
LIMIT 1`, ip, now.UTC()))
}

// UpsertRestriction inserts or replaces the user's comment restriction.
func (r *BanRepo) UpsertRestriction(ctx context.Context, cr model.CommentRestriction) error {
	_, err := r.DB.ExecContext(ctx, `
INSERT INTO comment_restrictions (user_id, reason, restricted_by, restricted_at, expires_at, ip_address)
VALUES (?,?,?,?,?,?)
ON CONFLICT (user_id) DO UPDATE SET
  reason=excluded.reason,
  restricted_by=excluded.restricted_by,
  restricted_at=excluded.restricted_at,
  expires_at=excluded.expires_at,
  ip_address=excluded.ip_address`,
		cr.UserID, cr.Reason, cr.RestrictedBy, cr.RestrictedAt.UTC(), cr.ExpiresAt, cr.IPAddress)
	return err
}

// DeleteRestriction removes the user's restriction row (idempotent).
func (r *BanRepo) DeleteRestriction(ctx context.Context, userID int64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM comment_restrictions WHERE user_id=?", userID)
	return err
}

// GetRestriction fetches the user's restriction row (expired or not).
func (r *BanRepo) GetRestriction(ctx context.Context, userID int64) (model.CommentRestriction, error) {
	var cr model.CommentRestriction
	var exp sql.NullTime
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id, reason, restricted_by, restricted_at, expires_at, ip_address FROM comment_restrictions WHERE user_id=? LIMIT 1",
		userID).Scan(&cr.ID, &cr.UserID, &cr.Reason, &cr.RestrictedBy, &cr.RestrictedAt, &exp, &cr.IPAddress)
	if err == sql.ErrNoRows {
		return cr, ErrNotFound
	}
	if err != nil {
		return cr, err
	}
	if exp.Valid {
		t := exp.Time
		cr.ExpiresAt = &t
	}
	return cr, nil
}
