// ABOUTME: Event persistence: create, read, list newest first, partial update
// ABOUTME: Deleting an event removes its applications in the same transaction

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// CreateEvent inserts an event and fills in its ID and CreatedAt.
func (s *SQLStore) CreateEvent(ctx context.Context, e *Event) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO events (title, description, photo_ref, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, s.rebind(query),
		e.Title,
		e.Description,
		e.PhotoRef,
		formatTime(e.CreatedAt),
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}

	s.logger.Debug("created event", "event_id", e.ID)
	return nil
}

// GetEvent retrieves an event by ID
func (s *SQLStore) GetEvent(ctx context.Context, id int64) (*Event, error) {
	return getEvent(ctx, s.db, s.rebind, id)
}

func getEvent(ctx context.Context, q queryer, rebind func(string) string, id int64) (*Event, error) {
	query := `SELECT id, title, description, photo_ref, created_at FROM events WHERE id = ?`
	e, err := scanEvent(q.QueryRowContext(ctx, rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying event: %w", err)
	}
	return e, nil
}

// ListEvents returns every event, newest first.
func (s *SQLStore) ListEvents(ctx context.Context) ([]*Event, error) {
	query := `SELECT id, title, description, photo_ref, created_at FROM events ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}
	return events, nil
}

// UpdateEvent applies a partial update and returns the resulting event.
// Title and description cannot be cleared. Only patched columns appear in
// the UPDATE, so a concurrent edit of another field is not overwritten.
func (s *SQLStore) UpdateEvent(ctx context.Context, id int64, patch EventPatch) (*Event, error) {
	if patch.Title.IsClear() || patch.Description.IsClear() {
		return nil, ErrRequiredField
	}

	fields := []struct {
		col   string
		value Optional[string]
	}{
		{"title", patch.Title},
		{"description", patch.Description},
		{"photo_ref", patch.PhotoRef},
	}

	var (
		sets []string
		args []any
	)
	for _, f := range fields {
		if v, ok := f.value.Value(); ok {
			sets = append(sets, f.col+" = ?")
			args = append(args, v)
		} else if f.value.IsClear() {
			sets = append(sets, f.col+" = NULL")
		}
	}
	if len(sets) == 0 {
		return s.GetEvent(ctx, id)
	}
	args = append(args, id)

	query := `UPDATE events SET ` + strings.Join(sets, ", ") + ` WHERE id = ?
		RETURNING id, title, description, photo_ref, created_at`
	e, err := scanEvent(s.db.QueryRowContext(ctx, s.rebind(query), args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updating event: %w", err)
	}
	return e, nil
}

// DeleteEvent removes an event and all of its applications.
// Deleting a missing event is a no-op that reports found=false.
func (s *SQLStore) DeleteEvent(ctx context.Context, id int64) (bool, error) {
	found := false
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM applications WHERE event_id = ?`), id); err != nil {
			return fmt.Errorf("deleting event applications: %w", err)
		}

		res, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM events WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("deleting event: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("checking rows affected: %w", err)
		}
		found = n > 0
		return nil
	})
	if err != nil {
		return false, err
	}

	if found {
		s.logger.Info("deleted event", "event_id", id)
	}
	return found, nil
}

func scanEvent(row rowScanner) (*Event, error) {
	var (
		e         Event
		photoRef  sql.NullString
		createdAt string
	)
	if err := row.Scan(&e.ID, &e.Title, &e.Description, &photoRef, &createdAt); err != nil {
		return nil, err
	}

	t, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	e.CreatedAt = t
	e.PhotoRef = nullString(photoRef)
	return &e, nil
}
