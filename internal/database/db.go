// Package database opens and wraps the application's SQL store.  Two
// backends are supported: an embedded sqlite file for single-box and dev
// deployments, and postgres for hosted production.  Every query in the
// repository layer is written once with '?' placeholders; the DB wrapper
// rebinds them to the postgres '$n' form so call sites never branch on the
// active backend.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/versefeed/versefeed/internal/config"
)

// Kind identifies which SQL engine a DB talks to.  It determines the DDL
// dialect used by the migration runner; placeholder differences are hidden
// by Rebind.
type Kind string

const (
	KindSQLite   Kind = "sqlite"
	KindPostgres Kind = "postgres"
)

// DB bundles the connection pool with its backend kind.
type DB struct {
	*sql.DB
	Kind Kind
}

// Open selects a backend and connects to it.
//
// Selection policy: an explicit DB_MODE forces one backend; otherwise a
// DATABASE_URL with a postgres scheme selects postgres, and anything else
// falls back to the embedded sqlite file.  In strict mode (DB_STRICT or
// APP_ENV=prod) a configured-but-unreachable postgres target is a fatal
// error rather than a silent fallback, so data can never quietly land in a
// local file on a production host.
func Open(cfg config.Config) (*DB, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.DBMode))
	wantPostgres := mode == "postgres" || (mode == "" && hasPostgresScheme(cfg.DatabaseURL))

	if wantPostgres {
		db, err := openPostgres(cfg.DatabaseURL)
		if err == nil {
			return db, nil
		}
		if cfg.Strict() {
			return nil, fmt.Errorf("postgres unreachable in strict mode: %w", err)
		}
		log.Printf("database: postgres unreachable (%v); falling back to sqlite", err)
	} else if mode == "" && cfg.Strict() && cfg.DatabaseURL == "" {
		// A hosted deployment with no database target is a configuration
		// error, not an invitation to create a local file.
		return nil, fmt.Errorf("strict mode requires DATABASE_URL or DB_MODE=sqlite")
	}

	return openSQLite(cfg.SQLitePath)
}

func hasPostgresScheme(dsn string) bool {
	u, err := url.Parse(dsn)
	if err != nil {
		return false
	}
	return u.Scheme == "postgres" || u.Scheme == "postgresql"
}

// openPostgres connects via the pgx stdlib driver.  SSL is required on the
// client/server backend unless the DSN already pins a mode.
func openPostgres(dsn string) (*DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty DATABASE_URL")
	}
	if !strings.Contains(dsn, "sslmode=") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "sslmode=require"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{DB: db, Kind: KindPostgres}, nil
}

// openSQLite opens (creating if necessary) the embedded database file and
// applies the tuning pragmas once per pool.  WAL plus a busy timeout keeps
// reader/writer contention from surfacing as SQLITE_BUSY during request
// bursts.
func openSQLite(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// modernc's driver serializes writes; a single writer connection avoids
	// database-locked errors without a cgo dependency.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA cache_size=-8000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}
	return &DB{DB: db, Kind: KindSQLite}, nil
}

// OpenMemory returns an in-memory sqlite DB.  Used by tests.
func OpenMemory() (*DB, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, err
	}
	// One connection only: each new connection to ":memory:" would see a
	// fresh, empty database.
	db.SetMaxOpenConns(1)
	return &DB{DB: db, Kind: KindSQLite}, nil
}

// Rebind converts '?' placeholders to the numbered '$n' form when the
// active backend is postgres.  Literal question marks do not occur in this
// codebase's SQL, so a straight scan is sufficient.
func (d *DB) Rebind(query string) string {
	if d.Kind != KindPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// ExecContext rebinds and executes a statement.
func (d *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.DB.ExecContext(ctx, d.Rebind(query), args...)
}

// QueryContext rebinds and runs a query.
func (d *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.DB.QueryContext(ctx, d.Rebind(query), args...)
}

// QueryRowContext rebinds and runs a single-row query.
func (d *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return d.DB.QueryRowContext(ctx, d.Rebind(query), args...)
}
