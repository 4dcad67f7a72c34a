// ABOUTME: Postgres constructor for the SQL store using github.com/lib/pq
// ABOUTME: Shares schema and queries with SQLite through the dialect helpers

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// NewPostgresStore connects to Postgres at the given URL and prepares the schema.
func NewPostgresStore(ctx context.Context, url string) (*SQLStore, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s, err := newSQLStore(db, postgresDialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.logger.Info("Postgres store initialized")
	return s, nil
}

// Open selects a backend by driver name ("sqlite" or "postgres").
func Open(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	switch driver {
	case "", "sqlite":
		return NewSQLiteStore(dsn)
	case "postgres":
		return NewPostgresStore(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
}
