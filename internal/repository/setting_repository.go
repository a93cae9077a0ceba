package repository

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/versefeed/versefeed/internal/database"
)

// SettingDefaults are merged into every read of the system_settings store,
// so absent keys behave as if they held their default value.
var SettingDefaults = map[string]string{
	"verse_interval":       "60",
	"auto_refresh":         "30",
	"audit_retention_days": "90",
	"safety_mode":          "balanced",
	"maintenance_mode":     "off",
}

// SettingRepo reads and writes the generic key/value settings store shared
// by the app and the admin panel.
type SettingRepo struct{ DB *database.DB }

func NewSettingRepo(db *database.DB) *SettingRepo { return &SettingRepo{DB: db} }

// Get returns the stored value for key, or its default when absent. Unknown
// keys with no stored row return "".
func (r *SettingRepo) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := r.DB.QueryRowContext(ctx,
		"SELECT value FROM system_settings WHERE key=? LIMIT 1", key).Scan(&v)
	if err == sql.ErrNoRows {
		return SettingDefaults[key], nil
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

// GetInt is Get with integer conversion; the default kicks in when the
// stored value fails to parse.
func (r *SettingRepo) GetInt(ctx context.Context, key string, def int) (int, error) {
	v, err := r.Get(ctx, key)
	if err != nil {
		return def, err
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n, nil
	}
	return def, nil
}

// Set upserts one setting.
func (r *SettingRepo) Set(ctx context.Context, key, value string) error {
	_, err := r.DB.ExecContext(ctx, `
INSERT INTO system_settings (key, value, updated_at) VALUES (?,?,?)
ON CONFLICT (key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		key, value, time.Now().UTC())
	return err
}

// All returns the defaults overlaid with every stored row.
func (r *SettingRepo) All(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string, len(SettingDefaults))
	for k, v := range SettingDefaults {
		out[k] = v
	}
	rows, err := r.DB.QueryContext(ctx, "SELECT key, value FROM system_settings")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}
