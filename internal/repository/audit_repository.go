package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/versefeed/versefeed/internal/database"
	"github.com/versefeed/versefeed/internal/model"
)

// AuditRepo appends and lists audit log entries. Rows are append-only;
// nothing here mutates an existing entry.
type AuditRepo struct{ DB *database.DB }

func NewAuditRepo(db *database.DB) *AuditRepo { return &AuditRepo{DB: db} }

// Append writes one entry. Details must already be the structured JSON
// payload produced by audit.Details; legacy free-text rows only exist from
// older deployments and are handled on the read side.
func (r *AuditRepo) Append(ctx context.Context, e model.AuditLogEntry) error {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := r.DB.ExecContext(ctx, `
INSERT INTO audit_logs (admin_id, action, target_user_id, details, ip_address, created_at, timestamp)
VALUES (?,?,?,?,?,?,?)`,
		e.AdminID, e.Action, e.TargetUserID, e.Details, e.IPAddress, ts, ts)
	return err
}

// List returns one page of entries, newest first, optionally filtered by
// action. Pagination is clamped to page>=1 and 1..200 per page.
func (r *AuditRepo) List(ctx context.Context, action string, page, perPage int) ([]model.AuditLogEntry, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 50
	}
	if perPage > 200 {
		perPage = 200
	}

	where := ""
	var args []any
	if action != "" {
		where = "WHERE action=?"
		args = append(args, action)
	}

	var total int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM audit_logs "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, perPage, (page-1)*perPage)
	rows, err := r.DB.QueryContext(ctx, `
SELECT id, admin_id, action, target_user_id, details, ip_address, timestamp
FROM audit_logs `+where+`
ORDER BY id DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []model.AuditLogEntry
	for rows.Next() {
		var e model.AuditLogEntry
		var target sql.NullInt64
		var details sql.NullString
		if err := rows.Scan(&e.ID, &e.AdminID, &e.Action, &target, &details, &e.IPAddress, &e.Timestamp); err != nil {
			return nil, 0, err
		}
		if target.Valid {
			t := target.Int64
			e.TargetUserID = &t
		}
		e.Details = details.String
		out = append(out, e)
	}
	return out, total, rows.Err()
}

// PruneOlderThan deletes entries past the retention window and reports how
// many were removed.
func (r *AuditRepo) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM audit_logs WHERE timestamp < ?", cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
