package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ecofest/ecobingo/internal/logging"
	"github.com/ecofest/ecobingo/internal/models"
)

const (
	DefaultLeaderboardLimit = 25
	MaxLeaderboardLimit     = 100

	// anonymousName is shown when the profile lookup for a ranked player
	// fails; the ranking itself never fails on a lookup error.
	anonymousName = "Anonymous Player"
)

// ProfileLookup is the external identity collaborator used to put a name on
// each leaderboard row.
type ProfileLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// LeaderboardServiceInterface is the read-side surface handlers depend on.
type LeaderboardServiceInterface interface {
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
	Stats(ctx context.Context) (*models.GameStats, error)
}

// LeaderboardService derives ranked summaries from persisted game records.
// It only reads; ranking is recomputed per request.
type LeaderboardService struct {
	db       DBConn
	profiles ProfileLookup
}

func NewLeaderboardService(db DBConn, profiles ProfileLookup) *LeaderboardService {
	return &LeaderboardService{db: db, profiles: profiles}
}

// Leaderboard returns the top players ordered by points, then bingo count,
// then completed count, with earlier updates winning exact ties. Ranks are
// 1-based and gapless even on ties.
func (s *LeaderboardService) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		limit = MaxLeaderboardLimit
	}

	rows, err := s.db.Query(ctx, `
		SELECT user_id, total_points,
		       jsonb_array_length(bingos_achieved) AS bingo_count,
		       jsonb_array_length(completed_items) AS completed_count,
		       is_completed, updated_at
		FROM bingo_games
		ORDER BY total_points DESC,
		         jsonb_array_length(bingos_achieved) DESC,
		         jsonb_array_length(completed_items) DESC,
		         updated_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying leaderboard: %w", err)
	}
	defer rows.Close()

	entries := []models.LeaderboardEntry{}
	for rows.Next() {
		var entry models.LeaderboardEntry
		err := rows.Scan(
			&entry.UserID, &entry.TotalPoints, &entry.BingoCount,
			&entry.CompletedCount, &entry.IsCompleted, &entry.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning leaderboard row: %w", err)
		}
		entry.Rank = len(entries) + 1
		entry.Username = s.lookupName(ctx, entry.UserID)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating leaderboard: %w", err)
	}
	return entries, nil
}

// lookupName enriches an entry best-effort: any lookup failure degrades to a
// placeholder instead of failing the whole leaderboard.
func (s *LeaderboardService) lookupName(ctx context.Context, userID uuid.UUID) string {
	user, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			logging.Warn("Leaderboard profile lookup failed", map[string]interface{}{
				"user_id": userID.String(),
				"error":   err.Error(),
			})
		}
		return anonymousName
	}
	if user.Username == "" {
		return anonymousName
	}
	return user.Username
}

// Stats aggregates progress across all games.
func (s *LeaderboardService) Stats(ctx context.Context) (*models.GameStats, error) {
	stats := &models.GameStats{}
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE is_completed),
		       COALESCE(SUM(jsonb_array_length(bingos_achieved)), 0),
		       COALESCE(AVG(jsonb_array_length(completed_items)::float / $1), 0)
		FROM bingo_games
	`, models.TotalSquares).Scan(
		&stats.TotalGames, &stats.CompletedGames, &stats.TotalBingos, &stats.AverageCompletionRate,
	)
	if err != nil {
		return nil, fmt.Errorf("querying game stats: %w", err)
	}
	return stats, nil
}
