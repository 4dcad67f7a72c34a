// ABOUTME: Transport accounts mapping Matrix user IDs to numeric identities
// ABOUTME: Also remembers the direct room used to reach each account

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// EnsureAccount returns the identity for a Matrix user, allocating one on first sight.
func (s *SQLStore) EnsureAccount(ctx context.Context, matrixUserID string) (int64, error) {
	query := `
		INSERT INTO accounts (matrix_user_id) VALUES (?)
		ON CONFLICT (matrix_user_id) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, s.rebind(query), matrixUserID); err != nil {
		return 0, fmt.Errorf("inserting account: %w", err)
	}

	var identity int64
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT identity FROM accounts WHERE matrix_user_id = ?`), matrixUserID,
	).Scan(&identity)
	if err != nil {
		return 0, fmt.Errorf("querying account: %w", err)
	}
	return identity, nil
}

// GetAccount retrieves an account by identity
func (s *SQLStore) GetAccount(ctx context.Context, identity int64) (*Account, error) {
	var (
		a      Account
		roomID sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT identity, matrix_user_id, room_id FROM accounts WHERE identity = ?`), identity,
	).Scan(&a.Identity, &a.MatrixUserID, &roomID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying account: %w", err)
	}
	a.RoomID = nullString(roomID)
	return &a, nil
}

// SetAccountRoom records the direct room used to deliver messages to an account.
func (s *SQLStore) SetAccountRoom(ctx context.Context, identity int64, roomID string) error {
	res, err := s.db.ExecContext(ctx,
		s.rebind(`UPDATE accounts SET room_id = ? WHERE identity = ?`), roomID, identity)
	if err != nil {
		return fmt.Errorf("updating account room: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Ensure SQLStore implements Store
var _ Store = (*SQLStore)(nil)
