package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ecofest/ecobingo/internal/events"
	"github.com/ecofest/ecobingo/internal/game"
	"github.com/ecofest/ecobingo/internal/logging"
	"github.com/ecofest/ecobingo/internal/models"
)

var (
	ErrGameNotFound        = errors.New("game not found")
	ErrItemNotOnBoard      = errors.New("item is not on this board")
	ErrGameAlreadyComplete = errors.New("game is already complete")
)

// GameServiceInterface is the game surface handlers depend on.
type GameServiceInterface interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.BingoGame, error)
	ToggleItem(ctx context.Context, userID, itemID uuid.UUID) (*models.BingoGame, error)
	CompleteEasyItem(ctx context.Context, userID uuid.UUID) (*models.BingoGame, *models.CompletedItem, error)
	EasyItems(ctx context.Context, userID uuid.UUID) ([]models.BingoItem, error)
	ResetGame(ctx context.Context, userID uuid.UUID) (*models.BingoGame, error)
	RefreshAllBoards(ctx context.Context) (int, error)
	BoardItems(ctx context.Context, g *models.BingoGame) ([]models.BingoItem, error)
}

// GameService owns the per-player game record. Every mutation runs as one
// transaction holding that player's row lock, then publishes its events
// after commit; publication is fire-and-forget and cannot fail the call.
type GameService struct {
	db      DB
	catalog *CatalogService
	bus     events.Bus
	policy  game.EasyItemPolicy
	easyCap int

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewGameService(db DB, catalog *CatalogService, bus events.Bus, policy game.EasyItemPolicy, easyCap int) *GameService {
	if easyCap <= 0 {
		easyCap = 3
	}
	return &GameService{
		db:      db,
		catalog: catalog,
		bus:     bus,
		policy:  policy,
		easyCap: easyCap,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

const gameColumns = "user_id, board, completed_items, bingos_achieved, total_points, is_completed, game_started_at, game_completed_at, updated_at"

func scanGame(row Row) (*models.BingoGame, error) {
	g := &models.BingoGame{}
	var board, completed, bingos []byte
	err := row.Scan(
		&g.UserID, &board, &completed, &bingos,
		&g.TotalPoints, &g.IsCompleted, &g.GameStartedAt, &g.GameCompletedAt, &g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(board, &g.Board); err != nil {
		return nil, fmt.Errorf("decoding board: %w", err)
	}
	if err := json.Unmarshal(completed, &g.CompletedItems); err != nil {
		return nil, fmt.Errorf("decoding completed items: %w", err)
	}
	if err := json.Unmarshal(bingos, &g.BingosAchieved); err != nil {
		return nil, fmt.Errorf("decoding achieved patterns: %w", err)
	}
	return g, nil
}

func loadGameForUpdate(ctx context.Context, q DBConn, userID uuid.UUID) (*models.BingoGame, error) {
	return scanGame(q.QueryRow(ctx,
		"SELECT "+gameColumns+" FROM bingo_games WHERE user_id = $1 FOR UPDATE", userID))
}

func loadGame(ctx context.Context, q DBConn, userID uuid.UUID) (*models.BingoGame, error) {
	return scanGame(q.QueryRow(ctx,
		"SELECT "+gameColumns+" FROM bingo_games WHERE user_id = $1", userID))
}

func encodeGame(g *models.BingoGame) (board, completed, bingos []byte, err error) {
	if board, err = json.Marshal(g.Board); err != nil {
		return nil, nil, nil, fmt.Errorf("encoding board: %w", err)
	}
	if completed, err = json.Marshal(g.CompletedItems); err != nil {
		return nil, nil, nil, fmt.Errorf("encoding completed items: %w", err)
	}
	if bingos, err = json.Marshal(g.BingosAchieved); err != nil {
		return nil, nil, nil, fmt.Errorf("encoding achieved patterns: %w", err)
	}
	return board, completed, bingos, nil
}

func insertGame(ctx context.Context, q DBConn, g *models.BingoGame) error {
	board, completed, bingos, err := encodeGame(g)
	if err != nil {
		return err
	}
	_, err = q.Exec(ctx,
		`INSERT INTO bingo_games (user_id, board, completed_items, bingos_achieved, total_points, is_completed, game_started_at, game_completed_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		g.UserID, board, completed, bingos, g.TotalPoints, g.IsCompleted, g.GameStartedAt, g.GameCompletedAt, g.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting game: %w", err)
	}
	return nil
}

func saveGame(ctx context.Context, q DBConn, g *models.BingoGame) error {
	board, completed, bingos, err := encodeGame(g)
	if err != nil {
		return err
	}
	tag, err := q.Exec(ctx,
		`UPDATE bingo_games
		 SET board = $1, completed_items = $2, bingos_achieved = $3, total_points = $4,
		     is_completed = $5, game_started_at = $6, game_completed_at = $7, updated_at = $8
		 WHERE user_id = $9`,
		board, completed, bingos, g.TotalPoints, g.IsCompleted, g.GameStartedAt, g.GameCompletedAt, g.UpdatedAt, g.UserID,
	)
	if err != nil {
		return fmt.Errorf("saving game: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrGameNotFound
	}
	return nil
}

func (s *GameService) generateBoard(ctx context.Context, q DBConn) ([]models.BoardEntry, error) {
	items, err := activeItems(ctx, q)
	if err != nil {
		return nil, err
	}
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return game.GenerateBoard(items, s.rng)
}

func activeItems(ctx context.Context, q DBConn) ([]models.BingoItem, error) {
	rows, err := q.Query(ctx, "SELECT "+itemColumns+" FROM bingo_items WHERE is_active")
	if err != nil {
		return nil, fmt.Errorf("listing active items: %w", err)
	}
	defer rows.Close()

	items := []models.BingoItem{}
	for rows.Next() {
		var item models.BingoItem
		if err := scanItem(rows, &item); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating items: %w", err)
	}
	return items, nil
}

// getOrCreateLocked loads the caller's game under its row lock, creating a
// fresh one on first contact. Creation is serialized behind the user row
// lock so two racing first requests draw exactly one board.
func (s *GameService) getOrCreateLocked(ctx context.Context, tx Tx, userID uuid.UUID) (*models.BingoGame, error) {
	g, err := loadGameForUpdate(ctx, tx, userID)
	if err == nil {
		return g, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("loading game: %w", err)
	}

	if err := lockUserForUpdate(ctx, tx, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	// Another request may have created the game while we waited on the
	// user lock.
	g, err = loadGameForUpdate(ctx, tx, userID)
	if err == nil {
		return g, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("loading game: %w", err)
	}

	board, err := s.generateBoard(ctx, tx)
	if err != nil {
		return nil, err
	}
	created := game.NewGame(userID, board, time.Now())
	if err := insertGame(ctx, tx, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (s *GameService) GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.BingoGame, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	g, err := s.getOrCreateLocked(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return g, nil
}

func (s *GameService) ToggleItem(ctx context.Context, userID, itemID uuid.UUID) (*models.BingoGame, error) {
	if _, err := s.catalog.GetByID(ctx, itemID); err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	g, err := s.getOrCreateLocked(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if _, ok := g.BoardEntryFor(itemID); !ok {
		return nil, ErrItemNotOnBoard
	}

	result := game.Toggle(*g, itemID, time.Now())
	if err := saveGame(ctx, tx, &result.Game); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}

	s.publishToggle(ctx, result)
	return &result.Game, nil
}

func (s *GameService) CompleteEasyItem(ctx context.Context, userID uuid.UUID) (*models.BingoGame, *models.CompletedItem, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	g, err := s.getOrCreateLocked(ctx, tx, userID)
	if err != nil {
		return nil, nil, err
	}
	if g.IsCompleted {
		return nil, nil, ErrGameAlreadyComplete
	}

	boardItems, err := s.boardItems(ctx, tx, g)
	if err != nil {
		return nil, nil, err
	}
	easy, err := game.PickEasyItem(*g, boardItems, s.policy)
	if err != nil {
		return nil, nil, err
	}

	result := game.Toggle(*g, easy.ID, time.Now())
	if err := saveGame(ctx, tx, &result.Game); err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("committing transaction: %w", err)
	}

	s.publishToggle(ctx, result)
	return &result.Game, result.Completed, nil
}

// EasyItems returns up to the configured number of easy, unplayed items for
// the caller's board, cheapest first.
func (s *GameService) EasyItems(ctx context.Context, userID uuid.UUID) ([]models.BingoItem, error) {
	g, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	boardItems, err := s.boardItems(ctx, s.db, g)
	if err != nil {
		return nil, err
	}
	return game.EasyItems(*g, boardItems, s.policy, s.easyCap), nil
}

func (s *GameService) ResetGame(ctx context.Context, userID uuid.UUID) (*models.BingoGame, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	g, err := loadGameForUpdate(ctx, tx, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading game: %w", err)
	}

	next := game.Reset(*g, time.Now())
	if err := saveGame(ctx, tx, &next); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}

	s.publishGameUpdated(ctx, next)
	return &next, nil
}

// RefreshAllBoards redraws every player's board from the current active
// catalog. Each player is refreshed in their own transaction behind their
// row lock, so an in-flight toggle either fully lands on the old board or
// sees the new one; the refresh starts a brand-new game state, completions
// against the old board are discarded, not merged.
func (s *GameService) RefreshAllBoards(ctx context.Context) (int, error) {
	rows, err := s.db.Query(ctx, "SELECT user_id FROM bingo_games")
	if err != nil {
		return 0, fmt.Errorf("listing games: %w", err)
	}
	userIDs := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning game row: %w", err)
		}
		userIDs = append(userIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterating games: %w", err)
	}

	refreshed := 0
	for _, userID := range userIDs {
		if err := s.refreshBoard(ctx, userID); err != nil {
			return refreshed, fmt.Errorf("refreshing board for %s: %w", userID, err)
		}
		refreshed++
	}
	return refreshed, nil
}

func (s *GameService) refreshBoard(ctx context.Context, userID uuid.UUID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockGameForUpdate(ctx, tx, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Player vanished between listing and locking; nothing to do.
			return nil
		}
		return err
	}

	board, err := s.generateBoard(ctx, tx)
	if err != nil {
		return err
	}
	next := game.NewGame(userID, board, time.Now())
	if err := saveGame(ctx, tx, &next); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.publishGameUpdated(ctx, next)
	return nil
}

// BoardItems resolves the catalog rows behind a game's board entries.
func (s *GameService) BoardItems(ctx context.Context, g *models.BingoGame) ([]models.BingoItem, error) {
	return s.boardItems(ctx, s.db, g)
}

func (s *GameService) boardItems(ctx context.Context, q DBConn, g *models.BingoGame) ([]models.BingoItem, error) {
	ids := make([]uuid.UUID, len(g.Board))
	for i, entry := range g.Board {
		ids[i] = entry.ItemID
	}
	return s.catalog.getByIDs(ctx, q, ids)
}

// publishToggle emits the event sequence for one applied toggle, in the
// contract order: item-completed, each new bingo in detection order, then
// the updated game last.
func (s *GameService) publishToggle(ctx context.Context, result game.ToggleResult) {
	if s.bus == nil {
		return
	}
	if result.Completed != nil {
		s.bus.Publish(ctx, events.Event{
			Topic:   events.TopicItemCompleted,
			Payload: events.ItemCompletedPayload{UserID: result.Game.UserID, Item: *result.Completed},
		})
	}
	for _, pattern := range result.NewPatterns {
		s.bus.Publish(ctx, events.Event{
			Topic:   events.TopicBingoAchieved,
			Payload: events.BingoAchievedPayload{UserID: result.Game.UserID, Pattern: pattern},
		})
		logging.Info("Bingo achieved", map[string]interface{}{
			"user_id": result.Game.UserID.String(),
			"type":    pattern.Type,
		})
	}
	s.publishGameUpdated(ctx, result.Game)
}

func (s *GameService) publishGameUpdated(ctx context.Context, g models.BingoGame) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, events.Event{
		Topic:   events.TopicGameUpdated,
		Payload: events.GameUpdatedPayload{UserID: g.UserID, Game: g},
	})
}
