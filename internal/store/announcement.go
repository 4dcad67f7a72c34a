// ABOUTME: Announcement singleton persistence with per-field partial updates
// ABOUTME: Every field is nullable; the row is created on first write

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// GetAnnouncement returns the announcement, or ErrNotFound if none was ever saved.
func (s *SQLStore) GetAnnouncement(ctx context.Context) (*Announcement, error) {
	return getAnnouncement(ctx, s.db)
}

func getAnnouncement(ctx context.Context, q queryer) (*Announcement, error) {
	a, err := scanAnnouncement(q.QueryRowContext(ctx,
		`SELECT title, description, photo_ref, updated_at FROM announcement WHERE id = 1`,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying announcement: %w", err)
	}
	return a, nil
}

func scanAnnouncement(row rowScanner) (*Announcement, error) {
	var (
		a                  Announcement
		title, desc, photo sql.NullString
		updatedAt          string
	)
	if err := row.Scan(&title, &desc, &photo, &updatedAt); err != nil {
		return nil, err
	}

	t, err := parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	a.Title = nullString(title)
	a.Description = nullString(desc)
	a.PhotoRef = nullString(photo)
	a.UpdatedAt = t
	return &a, nil
}

// UpsertAnnouncement applies a partial update, creating the singleton if needed.
// Fields left as Keep retain their stored values. The merge happens inside
// one statement, so concurrent edits of different fields both survive.
func (s *SQLStore) UpsertAnnouncement(ctx context.Context, patch AnnouncementPatch) (*Announcement, error) {
	fields := []struct {
		col   string
		value Optional[string]
	}{
		{"title", patch.Title},
		{"description", patch.Description},
		{"photo_ref", patch.PhotoRef},
	}

	args := make([]any, 0, len(fields)+1)
	sets := make([]string, 0, len(fields)+1)
	for _, f := range fields {
		v, ok := f.value.Value()
		switch {
		case ok:
			args = append(args, v)
			sets = append(sets, fmt.Sprintf("%s = excluded.%s", f.col, f.col))
		case f.value.IsClear():
			args = append(args, nil)
			sets = append(sets, f.col+" = NULL")
		default:
			args = append(args, nil)
			sets = append(sets, fmt.Sprintf("%s = announcement.%s", f.col, f.col))
		}
	}
	args = append(args, formatTime(time.Now().UTC().Truncate(time.Microsecond)))
	sets = append(sets, "updated_at = excluded.updated_at")

	query := `
		INSERT INTO announcement (id, title, description, photo_ref, updated_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET ` + strings.Join(sets, ", ") + `
		RETURNING title, description, photo_ref, updated_at
	`
	a, err := scanAnnouncement(s.db.QueryRowContext(ctx, s.rebind(query), args...))
	if err != nil {
		return nil, fmt.Errorf("upserting announcement: %w", err)
	}
	return a, nil
}
