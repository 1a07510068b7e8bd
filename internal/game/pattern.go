// Package game holds the pure rules of the 4x4 sustainability bingo: pattern
// detection, toggle/reset transitions and the easy-item policy. Nothing in
// this package touches storage, so every rule is unit-testable on plain
// values.
package game

import (
	"time"

	"github.com/ecofest/ecobingo/internal/models"
)

// winningPatterns enumerates every pattern on the 4x4 board in detection
// order: rows top to bottom, columns left to right, then the two diagonals.
// Detection order is also event-emission order when one toggle completes
// several patterns at once.
var winningPatterns = buildWinningPatterns()

type candidatePattern struct {
	typ       string
	positions [4]int
}

func buildWinningPatterns() []candidatePattern {
	patterns := make([]candidatePattern, 0, 10)
	for r := 0; r < models.BoardSize; r++ {
		patterns = append(patterns, candidatePattern{
			typ:       models.PatternRow,
			positions: [4]int{4 * r, 4*r + 1, 4*r + 2, 4*r + 3},
		})
	}
	for c := 0; c < models.BoardSize; c++ {
		patterns = append(patterns, candidatePattern{
			typ:       models.PatternColumn,
			positions: [4]int{c, c + 4, c + 8, c + 12},
		})
	}
	patterns = append(patterns,
		candidatePattern{typ: models.PatternDiagonal, positions: [4]int{0, 5, 10, 15}},
		candidatePattern{typ: models.PatternDiagonal, positions: [4]int{3, 6, 9, 12}},
	)
	return patterns
}

// DetectPatterns returns the patterns fully covered by completedPositions
// whose normalized position-set is not already in achievedKeys. Calling it
// again with the returned patterns merged into achievedKeys yields nothing,
// so a pattern is only ever credited once.
func DetectPatterns(completedPositions map[int]bool, achievedKeys map[string]bool, now time.Time) []models.BingoPattern {
	var found []models.BingoPattern
	for _, candidate := range winningPatterns {
		complete := true
		for _, pos := range candidate.positions {
			if !completedPositions[pos] {
				complete = false
				break
			}
		}
		if !complete {
			continue
		}

		positions := []int{candidate.positions[0], candidate.positions[1], candidate.positions[2], candidate.positions[3]}
		if achievedKeys[models.PositionKey(positions)] {
			continue
		}

		found = append(found, models.BingoPattern{
			Type:          candidate.typ,
			Positions:     positions,
			AchievedAt:    now,
			PointsAwarded: models.BingoPoints,
		})
	}
	return found
}
