package repository

import (
	"context"
	"log"
	"time"

	"github.com/versefeed/versefeed/internal/database"
	"github.com/versefeed/versefeed/internal/model"
)

// StatsRepo records user activity and answers the coarse analytics the
// admin panel shows. Every read here fails soft: on a data-access error the
// result is zero and the cause is logged, so a transient backend fault
// never breaks the dashboard.
type StatsRepo struct{ DB *database.DB }

func NewStatsRepo(db *database.DB) *StatsRepo { return &StatsRepo{DB: db} }

// Record appends one activity event. Errors are logged and swallowed;
// analytics are not worth failing a user action over.
func (r *StatsRepo) Record(ctx context.Context, userID int64, action string) {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO user_activity (user_id, action, created_at) VALUES (?,?,?)",
		userID, action, time.Now().UTC())
	if err != nil {
		log.Printf("stats: record activity: %v", err)
	}
}

func (r *StatsRepo) countQuery(ctx context.Context, query string, args ...any) int {
	var n int
	if err := r.DB.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		log.Printf("stats: %v", err)
		return 0
	}
	return n
}

// DAU counts users with any activity in the last 24 hours.
func (r *StatsRepo) DAU(ctx context.Context) int {
	return r.countQuery(ctx,
		"SELECT COUNT(DISTINCT user_id) FROM user_activity WHERE created_at>?",
		time.Now().UTC().Add(-24*time.Hour))
}

// Retention counts users created between 14 and 7 days ago who were active
// within the last 7 days, over that cohort's size. Returned as a percentage
// (0 when the cohort is empty).
func (r *StatsRepo) Retention(ctx context.Context) float64 {
	now := time.Now().UTC()
	cohortStart := now.Add(-14 * 24 * time.Hour)
	cohortEnd := now.Add(-7 * 24 * time.Hour)

	cohort := r.countQuery(ctx,
		"SELECT COUNT(*) FROM users WHERE created_at>=? AND created_at<?",
		cohortStart, cohortEnd)
	if cohort == 0 {
		return 0
	}
	retained := r.countQuery(ctx, `
SELECT COUNT(DISTINCT u.id) FROM users u
JOIN user_activity a ON a.user_id = u.id AND a.created_at>?
WHERE u.created_at>=? AND u.created_at<?`,
		cohortEnd, cohortStart, cohortEnd)
	return float64(retained) / float64(cohort) * 100
}

// Conversion is the share of all accounts that have performed at least one
// interaction, as a percentage.
func (r *StatsRepo) Conversion(ctx context.Context) float64 {
	total := r.countQuery(ctx, "SELECT COUNT(*) FROM users")
	if total == 0 {
		return 0
	}
	active := r.countQuery(ctx, "SELECT COUNT(DISTINCT user_id) FROM user_activity")
	return float64(active) / float64(total) * 100
}

// RecentByUser returns the user's latest recorded actions, newest first.
// Unlike the aggregate reads this one returns its error: the activity view
// should fail loudly rather than render as an empty history.
func (r *StatsRepo) RecentByUser(ctx context.Context, userID int64, limit int) ([]model.UserActivity, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, user_id, action, created_at FROM user_activity WHERE user_id=? ORDER BY id DESC LIMIT ?",
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.UserActivity
	for rows.Next() {
		var a model.UserActivity
		if err := rows.Scan(&a.ID, &a.UserID, &a.Action, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Totals returns headline counts for the dashboard.
func (r *StatsRepo) Totals(ctx context.Context) (users, verses, comments int) {
	users = r.countQuery(ctx, "SELECT COUNT(*) FROM users")
	verses = r.countQuery(ctx, "SELECT COUNT(*) FROM verses")
	comments = r.countQuery(ctx, "SELECT COUNT(*) FROM comments WHERE deleted_at IS NULL")
	return
}
