// ABOUTME: Member persistence: upsert keyed by identity, phone ownership lookups
// ABOUTME: Segment listing backs broadcast audience selection

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const memberColumns = `m.id, m.full_name, m.phone, m.handle, m.gender, m.birth_date, m.has_children, m.created_at`

// UpsertMember inserts a member or updates the existing row with the same ID.
// Demographic fields that are nil keep their stored values.
// Returns ErrDuplicatePhone if the phone belongs to a different member.
func (s *SQLStore) UpsertMember(ctx context.Context, m *Member) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO members (id, full_name, phone, handle, gender, birth_date, has_children, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			full_name    = excluded.full_name,
			phone        = excluded.phone,
			handle       = COALESCE(excluded.handle, members.handle),
			gender       = COALESCE(excluded.gender, members.gender),
			birth_date   = COALESCE(excluded.birth_date, members.birth_date),
			has_children = CASE WHEN excluded.has_children = 1 THEN 1 ELSE members.has_children END
	`

	_, err := s.db.ExecContext(ctx, s.rebind(query),
		m.ID,
		m.FullName,
		m.Phone,
		m.Handle,
		m.Gender,
		m.BirthDate,
		boolInt(m.HasChildren),
		formatTime(m.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicatePhone
		}
		return fmt.Errorf("upserting member: %w", err)
	}
	return nil
}

// GetMember retrieves a member by identity
func (s *SQLStore) GetMember(ctx context.Context, id int64) (*Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members m WHERE m.id = ?`
	m, err := scanMember(s.db.QueryRowContext(ctx, s.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying member: %w", err)
	}
	return m, nil
}

// PhoneOwner returns the identity that registered the phone, or ErrNotFound.
func (s *SQLStore) PhoneOwner(ctx context.Context, phone string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT id FROM members WHERE phone = ?`), phone).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("querying phone owner: %w", err)
	}
	return id, nil
}

// ListMembers returns members matching the filter, oldest registration first.
func (s *SQLStore) ListMembers(ctx context.Context, filter MemberFilter) ([]*Member, error) {
	var (
		where []string
		args  []any
	)
	if filter.AnnouncementApplicants {
		where = append(where, `EXISTS (SELECT 1 FROM applications a WHERE a.member_id = m.id AND a.announcement = 1)`)
	}
	if filter.EventApplicants != nil {
		where = append(where, `EXISTS (SELECT 1 FROM applications a WHERE a.member_id = m.id AND a.event_id = ?)`)
		args = append(args, *filter.EventApplicants)
	}

	query := `SELECT ` + memberColumns + ` FROM members m`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY m.created_at ASC, m.id ASC`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying members: %w", err)
	}
	defer rows.Close()

	var members []*Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating members: %w", err)
	}
	return members, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (*Member, error) {
	var (
		m                         Member
		handle, gender, birthDate sql.NullString
		hasChildren               int
		createdAt                 string
	)
	if err := row.Scan(&m.ID, &m.FullName, &m.Phone, &handle, &gender, &birthDate, &hasChildren, &createdAt); err != nil {
		return nil, err
	}

	t, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	m.CreatedAt = t
	m.Handle = nullString(handle)
	m.Gender = nullString(gender)
	m.BirthDate = nullString(birthDate)
	m.HasChildren = hasChildren != 0
	return &m, nil
}
