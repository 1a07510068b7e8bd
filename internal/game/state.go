package game

import (
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/ecofest/ecobingo/internal/models"
)

// ToggleResult describes one applied toggle: the next game state plus what
// happened, so the caller can persist the state and then emit events in
// order.
type ToggleResult struct {
	Game        models.BingoGame
	Completed   *models.CompletedItem // set only when the toggle completed the item
	NewPatterns []models.BingoPattern
}

// NewGame builds a zero-state game for userID on the given board.
func NewGame(userID uuid.UUID, board []models.BoardEntry, now time.Time) models.BingoGame {
	return models.BingoGame{
		UserID:         userID,
		Board:          board,
		CompletedItems: []models.CompletedItem{},
		BingosAchieved: []models.BingoPattern{},
		GameStartedAt:  now,
		UpdatedAt:      now,
	}
}

// GenerateBoard samples 16 distinct items from the active catalog and assigns
// them to positions 0..15 in sampled order. The caller guarantees rng is
// seeded; boards from successive calls are expected to differ.
func GenerateBoard(activeItems []models.BingoItem, rng *rand.Rand) ([]models.BoardEntry, error) {
	if len(activeItems) < models.TotalSquares {
		return nil, ErrInsufficientCatalog
	}

	indices := rng.Perm(len(activeItems))[:models.TotalSquares]
	board := make([]models.BoardEntry, models.TotalSquares)
	for pos, idx := range indices {
		board[pos] = models.BoardEntry{ItemID: activeItems[idx].ID, Position: pos}
	}
	return board, nil
}

// Toggle flips the completion state of itemID on an immutable snapshot of g
// and returns the next state. Completing an item re-runs pattern detection
// and recomputes the score; un-completing only removes the item, it never
// retracts a pattern that was already credited. The caller has already
// checked that itemID is on the board.
func Toggle(g models.BingoGame, itemID uuid.UUID, now time.Time) ToggleResult {
	next := cloneGame(g)
	next.UpdatedAt = now

	if next.IsItemCompleted(itemID) {
		kept := next.CompletedItems[:0]
		for _, c := range next.CompletedItems {
			if c.ItemID != itemID {
				kept = append(kept, c)
			}
		}
		next.CompletedItems = kept
		recomputeScore(&next)
		return ToggleResult{Game: next}
	}

	entry, _ := next.BoardEntryFor(itemID)
	completed := models.CompletedItem{
		ItemID:      itemID,
		Position:    entry.Position,
		CompletedAt: now,
	}
	next.CompletedItems = append(next.CompletedItems, completed)

	newPatterns := DetectPatterns(next.CompletedPositions(), next.AchievedKeys(), now)
	next.BingosAchieved = append(next.BingosAchieved, newPatterns...)
	recomputeScore(&next)

	if !next.IsCompleted && len(next.BingosAchieved) > 0 {
		next.IsCompleted = true
		completedAt := now
		next.GameCompletedAt = &completedAt
	}

	return ToggleResult{Game: next, Completed: &completed, NewPatterns: newPatterns}
}

// Reset clears all completion state but keeps the board, restarting the game
// clock.
func Reset(g models.BingoGame, now time.Time) models.BingoGame {
	next := cloneGame(g)
	next.CompletedItems = []models.CompletedItem{}
	next.BingosAchieved = []models.BingoPattern{}
	next.TotalPoints = 0
	next.IsCompleted = false
	next.GameCompletedAt = nil
	next.GameStartedAt = now
	next.UpdatedAt = now
	return next
}

// recomputeScore derives the score purely from the current sets, so repeated
// toggles of the same item stay consistent with the invariant
// totalPoints == 10*|completed| + sum(pointsAwarded).
func recomputeScore(g *models.BingoGame) {
	score := models.ItemPoints * len(g.CompletedItems)
	for _, p := range g.BingosAchieved {
		score += p.PointsAwarded
	}
	g.TotalPoints = score
}

func cloneGame(g models.BingoGame) models.BingoGame {
	next := g
	next.Board = append([]models.BoardEntry(nil), g.Board...)
	next.CompletedItems = append([]models.CompletedItem(nil), g.CompletedItems...)
	next.BingosAchieved = append([]models.BingoPattern(nil), g.BingosAchieved...)
	if g.GameCompletedAt != nil {
		completedAt := *g.GameCompletedAt
		next.GameCompletedAt = &completedAt
	}
	return next
}
