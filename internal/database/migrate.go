package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"
)

// The schema is managed by a single ordered migration list executed once at
// startup.  Each migration is identified by a stable id recorded in the
// schema_migrations table, so running Migrate repeatedly (or from several
// instances racing at deploy time) applies each step at most once.
//
// DDL differs between the two backends (serial vs autoincrement keys, jsonb
// vs text), so migrations are expressed against a small dialect struct
// instead of raw .sql files.

type dialect struct {
	PK   string // auto-incrementing integer primary key
	TS   string // timestamp column type
	JSON string // json document column type
	Bool string // boolean column type
}

func dialectFor(kind Kind) dialect {
	if kind == KindPostgres {
		return dialect{PK: "BIGSERIAL PRIMARY KEY", TS: "TIMESTAMP", JSON: "JSONB", Bool: "BOOLEAN"}
	}
	return dialect{PK: "INTEGER PRIMARY KEY AUTOINCREMENT", TS: "TIMESTAMP", JSON: "TEXT", Bool: "BOOLEAN"}
}

type migration struct {
	id  string
	run func(ctx context.Context, db *DB, d dialect) error
}

// Migrate brings the schema up to date.  It is idempotent: applied
// migrations are skipped via the version table, and the additive
// column/index steps tolerate already-applied DDL so a half-recorded
// deploy cannot wedge startup.
func Migrate(ctx context.Context, db *DB) error {
	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
  id TEXT PRIMARY KEY,
  applied_at TIMESTAMP NOT NULL
)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	d := dialectFor(db.Kind)
	for _, m := range migrations {
		applied, err := isApplied(ctx, db, m.id)
		if err != nil {
			return err
		}
		if applied {
			continue
		}
		if err := m.run(ctx, db, d); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.id, err)
		}
		if _, err := db.ExecContext(ctx,
			"INSERT INTO schema_migrations (id, applied_at) VALUES (?,?)",
			m.id, time.Now().UTC()); err != nil {
			return fmt.Errorf("record migration %s: %w", m.id, err)
		}
	}
	return nil
}

func isApplied(ctx context.Context, db *DB, id string) (bool, error) {
	var one int
	err := db.QueryRowContext(ctx,
		"SELECT 1 FROM schema_migrations WHERE id=? LIMIT 1", id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Columns returns the lower-cased column names of a table, or an empty set
// when the probe fails (callers treat "no columns" as "table absent").
func Columns(ctx context.Context, db *DB, table string) map[string]bool {
	var rows *sql.Rows
	var err error
	if db.Kind == KindPostgres {
		rows, err = db.QueryContext(ctx,
			"SELECT column_name FROM information_schema.columns WHERE table_name=?", table)
	} else {
		rows, err = db.DB.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	}
	if err != nil {
		return map[string]bool{}
	}
	defer rows.Close()

	cols := map[string]bool{}
	for rows.Next() {
		var name string
		if db.Kind == KindPostgres {
			if err := rows.Scan(&name); err != nil {
				continue
			}
		} else {
			// PRAGMA table_info: cid, name, type, notnull, dflt_value, pk
			var cid int
			var typ string
			var notnull int
			var dflt sql.NullString
			var pk int
			if err := rows.Scan(&cid, &name, &typ, &notnull, &dflt, &pk); err != nil {
				continue
			}
		}
		cols[strings.ToLower(name)] = true
	}
	return cols
}

// execAll runs each statement, failing on the first error.
func execAll(ctx context.Context, db *DB, stmts ...string) error {
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("%s: %w", firstLine(s), err)
		}
	}
	return nil
}

// addColumn adds a column when the introspection probe says it is missing.
// sqlite has no ADD COLUMN IF NOT EXISTS, hence the probe.  A duplicate-
// column failure is logged and swallowed: an idempotent migration treats an
// individual already-applied statement as success.
func addColumn(ctx context.Context, db *DB, table, column, typ string) error {
	if Columns(ctx, db, table)[strings.ToLower(column)] {
		return nil
	}
	if _, err := db.ExecContext(ctx,
		fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, typ)); err != nil {
		log.Printf("migrate: add column %s.%s: %v (assuming already applied)", table, column, err)
	}
	return nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 60 {
		s = s[:60]
	}
	return s
}

var migrations = []migration{
	{id: "0001_core", run: func(ctx context.Context, db *DB, d dialect) error {
		return execAll(ctx, db,
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS users (
  id %s,
  external_id TEXT NOT NULL UNIQUE,
  email TEXT NOT NULL,
  name TEXT NOT NULL DEFAULT '',
  picture TEXT NOT NULL DEFAULT '',
  role TEXT NOT NULL DEFAULT 'user',
  is_banned %s NOT NULL DEFAULT FALSE,
  ban_expires_at %s,
  ban_reason TEXT,
  created_at %s NOT NULL
)`, d.PK, d.Bool, d.TS, d.TS),
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS verses (
  id %s,
  reference TEXT NOT NULL,
  text TEXT NOT NULL,
  translation TEXT NOT NULL DEFAULT '',
  source TEXT NOT NULL DEFAULT '',
  created_at %s NOT NULL,
  CONSTRAINT verses_ref_text UNIQUE (reference, text)
)`, d.PK, d.TS),
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS system_settings (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_at %s NOT NULL
)`, d.TS),
		)
	}},
	{id: "0002_social", run: func(ctx context.Context, db *DB, d dialect) error {
		return execAll(ctx, db,
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS verse_likes (
  id %s,
  user_id BIGINT NOT NULL,
  verse_id BIGINT NOT NULL,
  created_at %s NOT NULL,
  CONSTRAINT likes_user_verse UNIQUE (user_id, verse_id)
)`, d.PK, d.TS),
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS verse_saves (
  id %s,
  user_id BIGINT NOT NULL,
  verse_id BIGINT NOT NULL,
  created_at %s NOT NULL,
  CONSTRAINT saves_user_verse UNIQUE (user_id, verse_id)
)`, d.PK, d.TS),
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS comments (
  id %s,
  user_id BIGINT NOT NULL,
  verse_id BIGINT NOT NULL,
  body TEXT NOT NULL,
  created_at %s NOT NULL,
  deleted_at %s,
  deleted_by BIGINT
)`, d.PK, d.TS, d.TS),
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS comment_replies (
  id %s,
  comment_id BIGINT NOT NULL,
  user_id BIGINT NOT NULL,
  body TEXT NOT NULL,
  created_at %s NOT NULL,
  deleted_at %s
)`, d.PK, d.TS, d.TS),
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS comment_reactions (
  id %s,
  comment_id BIGINT NOT NULL,
  user_id BIGINT NOT NULL,
  emoji TEXT NOT NULL,
  created_at %s NOT NULL,
  CONSTRAINT reactions_unique UNIQUE (comment_id, user_id, emoji)
)`, d.PK, d.TS),
		)
	}},
	{id: "0003_moderation", run: func(ctx context.Context, db *DB, d dialect) error {
		return execAll(ctx, db,
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS bans (
  id %s,
  user_id BIGINT NOT NULL UNIQUE,
  reason TEXT NOT NULL DEFAULT '',
  banned_by BIGINT NOT NULL,
  banned_at %s NOT NULL,
  expires_at %s
)`, d.PK, d.TS, d.TS),
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS comment_restrictions (
  id %s,
  user_id BIGINT NOT NULL UNIQUE,
  reason TEXT NOT NULL DEFAULT '',
  restricted_by BIGINT NOT NULL,
  restricted_at %s NOT NULL,
  expires_at %s
)`, d.PK, d.TS, d.TS),
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS signup_logs (
  id %s,
  user_id BIGINT NOT NULL,
  ip_address TEXT NOT NULL,
  created_at %s NOT NULL
)`, d.PK, d.TS),
			"CREATE INDEX IF NOT EXISTS idx_signup_logs_ip ON signup_logs (ip_address)",
		)
	}},
	{id: "0004_audit", run: func(ctx context.Context, db *DB, d dialect) error {
		return execAll(ctx, db,
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS audit_logs (
  id %s,
  admin_id BIGINT NOT NULL,
  action TEXT NOT NULL,
  target_user_id BIGINT,
  details %s,
  ip_address TEXT NOT NULL DEFAULT '',
  created_at %s NOT NULL
)`, d.PK, d.JSON, d.TS),
			"CREATE INDEX IF NOT EXISTS idx_audit_logs_action ON audit_logs (action)",
		)
	}},
	{id: "0005_announcements", run: func(ctx context.Context, db *DB, d dialect) error {
		return execAll(ctx, db,
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS announcements (
  id %s,
  title TEXT NOT NULL,
  body TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'draft',
  scheduled_at %s,
  sent_at %s,
  created_by BIGINT NOT NULL,
  created_at %s NOT NULL,
  updated_at %s NOT NULL
)`, d.PK, d.TS, d.TS, d.TS, d.TS),
		)
	}},
	{id: "0006_activity", run: func(ctx context.Context, db *DB, d dialect) error {
		return execAll(ctx, db,
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS user_activity (
  id %s,
  user_id BIGINT NOT NULL,
  action TEXT NOT NULL,
  created_at %s NOT NULL
)`, d.PK, d.TS),
			"CREATE INDEX IF NOT EXISTS idx_user_activity_user_time ON user_activity (user_id, created_at)",
			"CREATE INDEX IF NOT EXISTS idx_user_activity_time ON user_activity (created_at)",
		)
	}},
	// Columns introduced after the initial release.  These go through the
	// introspection probe because sqlite lacks ADD COLUMN IF NOT EXISTS.
	{id: "0007_verse_book", run: func(ctx context.Context, db *DB, d dialect) error {
		return addColumn(ctx, db, "verses", "book", "TEXT NOT NULL DEFAULT ''")
	}},
	{id: "0008_ban_ip", run: func(ctx context.Context, db *DB, d dialect) error {
		if err := addColumn(ctx, db, "bans", "ip_address", "TEXT NOT NULL DEFAULT ''"); err != nil {
			return err
		}
		return addColumn(ctx, db, "comment_restrictions", "ip_address", "TEXT NOT NULL DEFAULT ''")
	}},
	{id: "0009_audit_timestamp", run: func(ctx context.Context, db *DB, d dialect) error {
		// Older rows only carry created_at; newer code reads "timestamp".
		// Backfill once so the read path never needs to fall back.
		if err := addColumn(ctx, db, "audit_logs", "timestamp", d.TS); err != nil {
			return err
		}
		_, err := db.ExecContext(ctx,
			"UPDATE audit_logs SET timestamp = created_at WHERE timestamp IS NULL")
		return err
	}},
	{id: "0010_default_settings", run: func(ctx context.Context, db *DB, d dialect) error {
		// Seed fixed reference rows via upsert (no-op when already present
		// or when an admin has changed the value).
		now := time.Now().UTC()
		for key, value := range map[string]string{
			"verse_interval":       "60",
			"auto_refresh":         "30",
			"audit_retention_days": "90",
			"safety_mode":          "balanced",
			"maintenance_mode":     "off",
		} {
			if _, err := db.ExecContext(ctx, `
INSERT INTO system_settings (key, value, updated_at) VALUES (?,?,?)
ON CONFLICT (key) DO NOTHING`, key, value, now); err != nil {
				return err
			}
		}
		return nil
	}},
}
