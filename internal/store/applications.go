// ABOUTME: Application persistence with database-enforced uniqueness
// ABOUTME: Inserts are a single conditional statement so concurrent duplicates cannot both succeed

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// InsertApplication records an application for the target.
// It returns the new ID and created=true, or created=false when the member
// already holds an application for the same target. A missing member or
// event surfaces as ErrNotFound.
func (s *SQLStore) InsertApplication(ctx context.Context, memberID int64, target ApplicationTarget) (int64, bool, error) {
	var eventID *int64
	if !target.Announcement {
		id := target.EventID
		eventID = &id
	}

	query := `
		INSERT INTO applications (member_id, event_id, announcement, applied_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT DO NOTHING
		RETURNING id
	`

	var id int64
	err := s.db.QueryRowContext(ctx, s.rebind(query),
		memberID,
		eventID,
		boolInt(target.Announcement),
		formatTime(time.Now()),
	).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0, false, nil
	case isForeignKeyViolation(err):
		return 0, false, ErrNotFound
	case err != nil:
		return 0, false, fmt.Errorf("inserting application: %w", err)
	}
	return id, true, nil
}

// ListApplications returns applications joined with member and event data,
// oldest first.
func (s *SQLStore) ListApplications(ctx context.Context, filter ApplicationFilter) ([]*ApplicationRow, error) {
	query := `
		SELECT a.id, a.member_id, m.full_name, m.phone, m.handle, m.gender, m.birth_date,
		       e.title, a.announcement, a.applied_at
		FROM applications a
		JOIN members m ON m.id = a.member_id
		LEFT JOIN events e ON e.id = a.event_id
	`
	var args []any
	if filter.EventID != nil {
		query += ` WHERE a.event_id = ?`
		args = append(args, *filter.EventID)
	}
	query += ` ORDER BY a.applied_at ASC, a.id ASC`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying applications: %w", err)
	}
	defer rows.Close()

	var result []*ApplicationRow
	for rows.Next() {
		var (
			r                                     ApplicationRow
			handle, gender, birthDate, eventTitle sql.NullString
			announcement                          int
			appliedAt                             string
		)
		if err := rows.Scan(&r.ID, &r.MemberID, &r.FullName, &r.Phone, &handle, &gender, &birthDate,
			&eventTitle, &announcement, &appliedAt); err != nil {
			return nil, fmt.Errorf("scanning application: %w", err)
		}
		t, err := parseTime(appliedAt)
		if err != nil {
			return nil, err
		}
		r.AppliedAt = t
		r.Handle = nullString(handle)
		r.Gender = nullString(gender)
		r.BirthDate = nullString(birthDate)
		r.EventTitle = nullString(eventTitle)
		r.Announcement = announcement != 0
		result = append(result, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating applications: %w", err)
	}
	return result, nil
}

// Stats returns aggregate counters for the admin stats screen.
func (s *SQLStore) Stats(ctx context.Context) (*Stats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM members),
			(SELECT COUNT(*) FROM events),
			(SELECT COUNT(*) FROM applications),
			(SELECT COUNT(*) FROM applications WHERE announcement = 1)
	`
	var st Stats
	if err := s.db.QueryRowContext(ctx, query).Scan(
		&st.Members, &st.Events, &st.Applications, &st.AnnouncementApplications,
	); err != nil {
		return nil, fmt.Errorf("querying stats: %w", err)
	}
	return &st, nil
}
