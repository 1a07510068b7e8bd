package models

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	BoardSize    = 4
	TotalSquares = BoardSize * BoardSize // 16

	ItemPoints  = 10  // awarded per completed item
	BingoPoints = 200 // awarded per achieved pattern
)

const (
	PatternRow      = "ROW"
	PatternColumn   = "COLUMN"
	PatternDiagonal = "DIAGONAL"
)

// BoardEntry pins a catalog item to one of the 16 board positions.
type BoardEntry struct {
	ItemID   uuid.UUID `json:"item_id"`
	Position int       `json:"position"`
}

// CompletedItem records a completed board item. Position is copied from the
// board entry at completion time and never recomputed, so a later board edit
// cannot shift credit to a different cell.
type CompletedItem struct {
	ItemID      uuid.UUID `json:"item_id"`
	Position    int       `json:"position"`
	CompletedAt time.Time `json:"completed_at"`
}

// BingoPattern is an achieved row, column or diagonal.
type BingoPattern struct {
	Type          string    `json:"type"`
	Positions     []int     `json:"positions"`
	AchievedAt    time.Time `json:"achieved_at"`
	PointsAwarded int       `json:"points_awarded"`
}

// Key returns the order-independent identity of the pattern's position set.
// Two patterns covering the same cells compare equal regardless of the order
// positions were recorded in.
func (p BingoPattern) Key() string {
	return PositionKey(p.Positions)
}

// PositionKey normalizes a position set into a comparable string key.
func PositionKey(positions []int) string {
	sorted := make([]int, len(positions))
	copy(sorted, positions)
	sort.Ints(sorted)
	parts := make([]string, len(sorted))
	for i, p := range sorted {
		parts[i] = fmt.Sprintf("%d", p)
	}
	return strings.Join(parts, ",")
}

// BingoGame is the single per-player game record and the unit of consistency
// for all game mutations.
type BingoGame struct {
	UserID          uuid.UUID       `json:"user_id"`
	Board           []BoardEntry    `json:"board"`
	CompletedItems  []CompletedItem `json:"completed_items"`
	BingosAchieved  []BingoPattern  `json:"bingos_achieved"`
	TotalPoints     int             `json:"total_points"`
	IsCompleted     bool            `json:"is_completed"`
	GameStartedAt   time.Time       `json:"game_started_at"`
	GameCompletedAt *time.Time      `json:"game_completed_at,omitempty"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// BoardEntryFor returns the board entry holding itemID, if any.
func (g *BingoGame) BoardEntryFor(itemID uuid.UUID) (BoardEntry, bool) {
	for _, entry := range g.Board {
		if entry.ItemID == itemID {
			return entry, true
		}
	}
	return BoardEntry{}, false
}

// IsItemCompleted reports whether itemID is currently completed.
func (g *BingoGame) IsItemCompleted(itemID uuid.UUID) bool {
	for _, c := range g.CompletedItems {
		if c.ItemID == itemID {
			return true
		}
	}
	return false
}

// CompletedPositions returns the set of currently completed cell positions.
func (g *BingoGame) CompletedPositions() map[int]bool {
	positions := make(map[int]bool, len(g.CompletedItems))
	for _, c := range g.CompletedItems {
		positions[c.Position] = true
	}
	return positions
}

// AchievedKeys returns the normalized position-set keys of all achieved
// patterns.
func (g *BingoGame) AchievedKeys() map[string]bool {
	keys := make(map[string]bool, len(g.BingosAchieved))
	for _, p := range g.BingosAchieved {
		keys[p.Key()] = true
	}
	return keys
}

// LeaderboardEntry is one ranked row of the public leaderboard.
type LeaderboardEntry struct {
	Rank           int       `json:"rank"`
	UserID         uuid.UUID `json:"user_id"`
	Username       string    `json:"username"`
	TotalPoints    int       `json:"total_points"`
	BingoCount     int       `json:"bingo_count"`
	CompletedCount int       `json:"completed_count"`
	IsCompleted    bool      `json:"is_completed"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// GameStats aggregates progress across all games.
type GameStats struct {
	TotalGames            int     `json:"total_games"`
	CompletedGames        int     `json:"completed_games"`
	TotalBingos           int     `json:"total_bingos"`
	AverageCompletionRate float64 `json:"average_completion_rate"`
}
