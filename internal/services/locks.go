package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// lockGameForUpdate takes the per-user row lock that serializes every game
// mutation for one player. All mutating game operations, including the
// admin board refresh, grab this lock first so a refresh and an in-flight
// toggle cannot interleave.
func lockGameForUpdate(ctx context.Context, q DBConn, userID uuid.UUID) error {
	var lockedID uuid.UUID
	err := q.QueryRow(ctx, `SELECT user_id FROM bingo_games WHERE user_id = $1 FOR UPDATE`, userID).Scan(&lockedID)
	if errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	if err != nil {
		return fmt.Errorf("lock game: %w", err)
	}
	return nil
}

// lockUserForUpdate serializes game creation for a user who has no game row
// yet, so two concurrent first requests produce exactly one board.
func lockUserForUpdate(ctx context.Context, q DBConn, userID uuid.UUID) error {
	var lockedID uuid.UUID
	err := q.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&lockedID)
	if errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	if err != nil {
		return fmt.Errorf("lock user: %w", err)
	}
	return nil
}
