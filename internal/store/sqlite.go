// ABOUTME: SQL implementation of the Store interface (SQLite via modernc.org/sqlite)
// ABOUTME: Owns connection setup, schema creation, dialect helpers and time encoding

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// timeLayout is fixed width so that TEXT timestamps sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// dialect captures the differences between the supported SQL backends.
type dialect struct {
	name     string
	serialPK string // auto-increment primary key column definition
	numbered bool   // placeholders are $1, $2, ... instead of ?
}

var (
	sqliteDialect = dialect{
		name:     "sqlite",
		serialPK: "INTEGER PRIMARY KEY AUTOINCREMENT",
	}
	postgresDialect = dialect{
		name:     "postgres",
		serialPK: "BIGSERIAL PRIMARY KEY",
		numbered: true,
	}
)

// SQLStore implements Store on top of database/sql
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	logger  *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite allows a single writer; one connection keeps writes serialized
	// and the per-connection pragmas in force.
	db.SetMaxOpenConns(1)

	s, err := newSQLStore(db, sqliteDialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

func newSQLStore(db *sql.DB, d dialect) (*SQLStore, error) {
	s := &SQLStore{
		db:      db,
		dialect: d,
		logger:  slog.Default().With("component", "store", "driver", d.name),
	}

	if err := s.createSchema(); err != nil {
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	if err := s.runMigrations(); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLStore) createSchema() error {
	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS accounts (
			identity       %[1]s,
			matrix_user_id TEXT NOT NULL UNIQUE,
			room_id        TEXT
		);

		CREATE TABLE IF NOT EXISTS members (
			id           BIGINT PRIMARY KEY,
			full_name    TEXT NOT NULL,
			phone        TEXT NOT NULL UNIQUE,
			handle       TEXT,
			gender       TEXT,
			birth_date   TEXT,
			has_children INTEGER NOT NULL DEFAULT 0,
			created_at   TEXT NOT NULL,

			CHECK (gender IN ('male', 'female'))
		);

		CREATE TABLE IF NOT EXISTS events (
			id          %[1]s,
			title       TEXT NOT NULL,
			description TEXT NOT NULL,
			photo_ref   TEXT,
			created_at  TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_events_created ON events(created_at);

		CREATE TABLE IF NOT EXISTS applications (
			id           %[1]s,
			member_id    BIGINT NOT NULL REFERENCES members(id) ON DELETE CASCADE,
			event_id     BIGINT REFERENCES events(id) ON DELETE CASCADE,
			announcement INTEGER NOT NULL DEFAULT 0,
			applied_at   TEXT NOT NULL,

			CHECK ((event_id IS NULL AND announcement = 1) OR (event_id IS NOT NULL AND announcement = 0))
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_applications_announcement
			ON applications(member_id) WHERE announcement = 1;

		CREATE UNIQUE INDEX IF NOT EXISTS idx_applications_event
			ON applications(member_id, event_id) WHERE event_id IS NOT NULL;

		CREATE INDEX IF NOT EXISTS idx_applications_event_id ON applications(event_id);

		-- The announcement singleton ("rocket info"): at most one row
		CREATE TABLE IF NOT EXISTS announcement (
			id          INTEGER PRIMARY KEY CHECK (id = 1),
			title       TEXT,
			description TEXT,
			photo_ref   TEXT,
			updated_at  TEXT NOT NULL
		);
	`, s.dialect.serialPK)

	_, err := s.db.Exec(schema)
	return err
}

// runMigrations applies schema migrations for existing databases.
// These are idempotent - safe to run multiple times.
func (s *SQLStore) runMigrations() error {
	migrations := []struct {
		table  string
		column string
		apply  string
	}{
		{
			table:  "members",
			column: "handle",
			apply:  `ALTER TABLE members ADD COLUMN handle TEXT`,
		},
		{
			table:  "accounts",
			column: "room_id",
			apply:  `ALTER TABLE accounts ADD COLUMN room_id TEXT`,
		},
	}

	for _, m := range migrations {
		exists, err := s.columnExists(m.table, m.column)
		if err != nil {
			return fmt.Errorf("checking %s.%s: %w", m.table, m.column, err)
		}
		if exists {
			continue
		}
		if _, err := s.db.Exec(m.apply); err != nil {
			return fmt.Errorf("adding %s column to %s: %w", m.column, m.table, err)
		}
		s.logger.Info("applied migration", "column", m.column, "table", m.table)
	}
	return nil
}

func (s *SQLStore) columnExists(table, column string) (bool, error) {
	var query string
	if s.dialect.name == postgresDialect.name {
		query = `SELECT 1 FROM information_schema.columns WHERE table_name = ? AND column_name = ?`
	} else {
		query = `SELECT 1 FROM pragma_table_info(?) WHERE name = ?`
	}

	var one int
	err := s.db.QueryRow(s.rebind(query), table, column).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	s.logger.Info("closing store")
	return s.db.Close()
}

// rebind rewrites ? placeholders for dialects that use numbered parameters.
func (s *SQLStore) rebind(query string) string {
	if !s.dialect.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// inTx runs fn inside a transaction, committing on success.
func (s *SQLStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// isUniqueViolation checks if the error is a UNIQUE constraint violation
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isForeignKeyViolation checks if the error is a FOREIGN KEY constraint violation
func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23503"
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing time %q: %w", s, err)
	}
	return t, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
