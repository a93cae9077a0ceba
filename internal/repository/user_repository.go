package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/versefeed/versefeed/internal/database"
	"github.com/versefeed/versefeed/internal/model"
)

type UserRepo struct{ DB *database.DB }

func NewUserRepo(db *database.DB) *UserRepo { return &UserRepo{DB: db} }

// UpsertFromOAuth creates the user on first sign-in and refreshes the
// provider-reported profile fields on every later one. The returned bool is
// true when the row was created in this call (the only moment the signup IP
// is recorded and the evasion check runs).
func (r *UserRepo) UpsertFromOAuth(ctx context.Context, externalID, email, name, picture string) (model.User, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := r.GetByExternalID(ctx, externalID)
	if err == nil {
		_, err = r.DB.ExecContext(ctx,
			"UPDATE users SET email=?, name=?, picture=? WHERE id=?",
			email, name, picture, u.ID)
		if err != nil {
			return model.User{}, false, err
		}
		u.Email, u.Name, u.Picture = email, name, picture
		return u, false, nil
	}
	if err != ErrNotFound {
		return model.User{}, false, err
	}

	now := time.Now().UTC()
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO users (external_id, email, name, picture, role, is_banned, created_at) VALUES (?,?,?,?,?,?,?)",
		externalID, email, name, picture, "user", false, now)
	if err != nil {
		// Concurrent first sign-ins race on the external_id unique
		// constraint; the loser re-reads the winner's row.
		if existing, gerr := r.GetByExternalID(ctx, externalID); gerr == nil {
			return existing, false, nil
		}
		return model.User{}, false, err
	}
	u, err = r.GetByExternalID(ctx, externalID)
	return u, err == nil, err
}

const userCols = "id, external_id, email, name, picture, role, is_banned, ban_expires_at, ban_reason, created_at"

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var u model.User
	var banExp sql.NullTime
	var banReason sql.NullString
	err := row.Scan(&u.ID, &u.ExternalID, &u.Email, &u.Name, &u.Picture,
		&u.Role, &u.IsBanned, &banExp, &banReason, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	if err != nil {
		return u, err
	}
	if banExp.Valid {
		t := banExp.Time
		u.BanExpiresAt = &t
	}
	if banReason.Valid {
		s := banReason.String
		u.BanReason = &s
	}
	return u, nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE id=? LIMIT 1", id))
}

// GetByExternalID fetches a user by the provider-issued subject id.
func (r *UserRepo) GetByExternalID(ctx context.Context, externalID string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE external_id=? LIMIT 1", externalID))
}

// UserFilter narrows List. Zero values mean "no filter".
type UserFilter struct {
	Query  string // substring match on email or name
	Role   string // exact role match
	Banned *bool  // filter on is_banned
}

// List returns a page of users plus the filtered total.
func (r *UserRepo) List(ctx context.Context, f UserFilter, page, perPage int) ([]model.User, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 25
	}
	if perPage > 200 {
		perPage = 200
	}

	where := "WHERE 1=1"
	var args []any
	if q := strings.TrimSpace(f.Query); q != "" {
		where += " AND (email LIKE ? OR name LIKE ?)"
		pat := "%" + q + "%"
		args = append(args, pat, pat)
	}
	if f.Role != "" {
		where += " AND role=?"
		args = append(args, f.Role)
	}
	if f.Banned != nil {
		where += " AND is_banned=?"
		args = append(args, *f.Banned)
	}

	var total int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, perPage, (page-1)*perPage)
	rows, err := r.DB.QueryContext(ctx, fmt.Sprintf(
		"SELECT %s FROM users %s ORDER BY id LIMIT ? OFFSET ?", userCols, where), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

// UpdateRole sets a user's role.
func (r *UserRepo) UpdateRole(ctx context.Context, id int64, role string) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET role=? WHERE id=?", role, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetBanFields mirrors ban state onto the user row so the gate can answer
// from a single lookup. Clearing passes banned=false with nil reason/expiry.
func (r *UserRepo) SetBanFields(ctx context.Context, id int64, banned bool, reason *string, expiresAt *time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET is_banned=?, ban_reason=?, ban_expires_at=? WHERE id=?",
		banned, reason, expiresAt, id)
	return err
}

// RecordSignup appends the signup IP of a freshly created account.
func (r *UserRepo) RecordSignup(ctx context.Context, userID int64, ip string) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO signup_logs (user_id, ip_address, created_at) VALUES (?,?,?)",
		userID, ip, time.Now().UTC())
	return err
}
