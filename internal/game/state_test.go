package game

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ecofest/ecobingo/internal/models"
)

func testCatalog(n int) []models.BingoItem {
	items := make([]models.BingoItem, n)
	for i := range items {
		items[i] = models.BingoItem{
			ID:       uuid.New(),
			Text:     "action",
			Category: "GENERAL",
			Points:   10,
			IsActive: true,
		}
	}
	return items
}

func testGame(t *testing.T) models.BingoGame {
	t.Helper()
	board, err := GenerateBoard(testCatalog(20), rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("generating board: %v", err)
	}
	return NewGame(uuid.New(), board, time.Now())
}

func itemAt(t *testing.T, g models.BingoGame, pos int) uuid.UUID {
	t.Helper()
	for _, entry := range g.Board {
		if entry.Position == pos {
			return entry.ItemID
		}
	}
	t.Fatalf("no board entry at position %d", pos)
	return uuid.Nil
}

func TestGenerateBoardCoversAllPositions(t *testing.T) {
	catalog := testCatalog(30)
	board, err := GenerateBoard(catalog, rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatalf("generating board: %v", err)
	}
	if len(board) != models.TotalSquares {
		t.Fatalf("expected %d entries, got %d", models.TotalSquares, len(board))
	}

	positions := make(map[int]bool)
	items := make(map[uuid.UUID]bool)
	for _, entry := range board {
		if entry.Position < 0 || entry.Position >= models.TotalSquares {
			t.Errorf("position out of range: %d", entry.Position)
		}
		if positions[entry.Position] {
			t.Errorf("duplicate position %d", entry.Position)
		}
		positions[entry.Position] = true
		if items[entry.ItemID] {
			t.Errorf("duplicate item %s", entry.ItemID)
		}
		items[entry.ItemID] = true
	}
	if len(positions) != models.TotalSquares {
		t.Errorf("expected positions 0..15 covered, got %d", len(positions))
	}
}

func TestGenerateBoardInsufficientCatalog(t *testing.T) {
	_, err := GenerateBoard(testCatalog(15), rand.New(rand.NewSource(1)))
	if err != ErrInsufficientCatalog {
		t.Fatalf("expected ErrInsufficientCatalog, got %v", err)
	}
}

func TestToggleCompletesItem(t *testing.T) {
	g := testGame(t)
	itemID := itemAt(t, g, 7)
	now := time.Now()

	result := Toggle(g, itemID, now)

	if result.Completed == nil {
		t.Fatal("expected a completion")
	}
	if result.Completed.Position != 7 {
		t.Errorf("expected position 7, got %d", result.Completed.Position)
	}
	if !result.Game.IsItemCompleted(itemID) {
		t.Error("item should be completed")
	}
	if result.Game.TotalPoints != models.ItemPoints {
		t.Errorf("expected %d points, got %d", models.ItemPoints, result.Game.TotalPoints)
	}
	if len(result.NewPatterns) != 0 {
		t.Errorf("expected no patterns, got %d", len(result.NewPatterns))
	}
	// input snapshot untouched
	if g.IsItemCompleted(itemID) {
		t.Error("input game mutated")
	}
}

func TestToggleRoundTrip(t *testing.T) {
	g := testGame(t)
	itemID := itemAt(t, g, 3)
	now := time.Now()

	once := Toggle(g, itemID, now)
	twice := Toggle(once.Game, itemID, now.Add(time.Second))

	if twice.Completed != nil {
		t.Error("second toggle should un-complete")
	}
	if twice.Game.IsItemCompleted(itemID) {
		t.Error("item should be un-completed after round trip")
	}
	if len(twice.Game.CompletedItems) != len(g.CompletedItems) {
		t.Errorf("expected membership restored, got %d items", len(twice.Game.CompletedItems))
	}
	if twice.Game.TotalPoints != 0 {
		t.Errorf("expected 0 points, got %d", twice.Game.TotalPoints)
	}
}

func TestToggleDetectsBingoAndCompletesGame(t *testing.T) {
	g := testGame(t)
	now := time.Now()

	for pos := 0; pos < 3; pos++ {
		g = Toggle(g, itemAt(t, g, pos), now).Game
	}
	if g.IsCompleted {
		t.Fatal("game should not be completed before the bingo")
	}

	result := Toggle(g, itemAt(t, g, 3), now)

	if len(result.NewPatterns) != 1 {
		t.Fatalf("expected 1 new pattern, got %d", len(result.NewPatterns))
	}
	if result.NewPatterns[0].Type != models.PatternRow {
		t.Errorf("expected ROW, got %s", result.NewPatterns[0].Type)
	}
	if !result.Game.IsCompleted {
		t.Error("game should be completed on first bingo")
	}
	if result.Game.GameCompletedAt == nil {
		t.Error("expected GameCompletedAt set")
	}
	wantPoints := 4*models.ItemPoints + models.BingoPoints
	if result.Game.TotalPoints != wantPoints {
		t.Errorf("expected %d points, got %d", wantPoints, result.Game.TotalPoints)
	}
}

func TestToggleOffKeepsAchievedBingo(t *testing.T) {
	// Bingos are permanent once achieved: un-toggling a cell of an achieved
	// row removes the item points but keeps the pattern credit.
	g := testGame(t)
	now := time.Now()
	for pos := 0; pos < 4; pos++ {
		g = Toggle(g, itemAt(t, g, pos), now).Game
	}
	completedAt := g.GameCompletedAt

	result := Toggle(g, itemAt(t, g, 0), now.Add(time.Second))

	if len(result.Game.BingosAchieved) != 1 {
		t.Fatalf("expected bingo kept, got %d", len(result.Game.BingosAchieved))
	}
	wantPoints := 3*models.ItemPoints + models.BingoPoints
	if result.Game.TotalPoints != wantPoints {
		t.Errorf("expected %d points, got %d", wantPoints, result.Game.TotalPoints)
	}
	if !result.Game.IsCompleted {
		t.Error("completion flag should persist")
	}
	if result.Game.GameCompletedAt == nil || !result.Game.GameCompletedAt.Equal(*completedAt) {
		t.Error("GameCompletedAt should not change")
	}
}

func TestToggleNeverDoubleCreditsPattern(t *testing.T) {
	g := testGame(t)
	now := time.Now()
	for pos := 0; pos < 4; pos++ {
		g = Toggle(g, itemAt(t, g, pos), now).Game
	}

	// Un-complete and re-complete a cell of the achieved row.
	g = Toggle(g, itemAt(t, g, 2), now).Game
	result := Toggle(g, itemAt(t, g, 2), now)

	if len(result.NewPatterns) != 0 {
		t.Fatalf("expected no new patterns, got %d", len(result.NewPatterns))
	}
	if len(result.Game.BingosAchieved) != 1 {
		t.Fatalf("expected single credited pattern, got %d", len(result.Game.BingosAchieved))
	}
}

func TestScoringInvariantAfterEveryToggle(t *testing.T) {
	g := testGame(t)
	now := time.Now()
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 100; i++ {
		itemID := itemAt(t, g, rng.Intn(models.TotalSquares))
		g = Toggle(g, itemID, now).Game

		want := models.ItemPoints * len(g.CompletedItems)
		for _, p := range g.BingosAchieved {
			want += p.PointsAwarded
		}
		if g.TotalPoints != want {
			t.Fatalf("step %d: totalPoints %d, want %d", i, g.TotalPoints, want)
		}
	}
}

func TestResetPreservesBoard(t *testing.T) {
	g := testGame(t)
	now := time.Now()
	for pos := 0; pos < 5; pos++ {
		g = Toggle(g, itemAt(t, g, pos), now).Game
	}

	reset := Reset(g, now.Add(time.Hour))

	if len(reset.CompletedItems) != 0 || len(reset.BingosAchieved) != 0 {
		t.Error("expected completion state cleared")
	}
	if reset.TotalPoints != 0 || reset.IsCompleted || reset.GameCompletedAt != nil {
		t.Error("expected score and completion flags cleared")
	}
	if !reset.GameStartedAt.After(g.GameStartedAt) {
		t.Error("expected GameStartedAt restarted")
	}
	if len(reset.Board) != len(g.Board) {
		t.Fatal("board length changed")
	}
	for i := range g.Board {
		if reset.Board[i] != g.Board[i] {
			t.Fatalf("board entry %d changed", i)
		}
	}
}
