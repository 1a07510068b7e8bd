package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ecofest/ecobingo/internal/models"
)

var (
	ErrItemNotFound    = errors.New("item not found")
	ErrInvalidItemText = errors.New("item text must be between 1 and 200 characters")
	ErrInvalidCategory = errors.New("invalid item category")
	ErrInvalidPoints   = errors.New("item points must not be negative")
)

const itemColumns = "id, text, category, points, is_active, created_by, created_at, updated_at"

// CatalogServiceInterface is the catalog surface handlers depend on.
type CatalogServiceInterface interface {
	ListActive(ctx context.Context) ([]models.BingoItem, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.BingoItem, error)
	Create(ctx context.Context, params models.CreateItemParams) (*models.BingoItem, error)
	Update(ctx context.Context, id uuid.UUID, params models.UpdateItemParams) (*models.BingoItem, error)
	Refresh(ctx context.Context) (int, error)
}

// CatalogService owns the universe of bingo items. Items referenced by a
// board are never deleted; deactivation hides them from future boards only.
type CatalogService struct {
	db DBConn
}

func NewCatalogService(db DBConn) *CatalogService {
	return &CatalogService{db: db}
}

func scanItem(row Row, item *models.BingoItem) error {
	return row.Scan(
		&item.ID, &item.Text, &item.Category, &item.Points,
		&item.IsActive, &item.CreatedBy, &item.CreatedAt, &item.UpdatedAt,
	)
}

func validateItemFields(text, category string, points int) error {
	if !models.IsValidItemText(text) {
		return ErrInvalidItemText
	}
	if !models.IsValidCategory(category) {
		return ErrInvalidCategory
	}
	if points < 0 {
		return ErrInvalidPoints
	}
	return nil
}

func (s *CatalogService) ListActive(ctx context.Context) ([]models.BingoItem, error) {
	rows, err := s.db.Query(ctx,
		"SELECT "+itemColumns+" FROM bingo_items WHERE is_active ORDER BY category, points, text")
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

func (s *CatalogService) GetByID(ctx context.Context, id uuid.UUID) (*models.BingoItem, error) {
	item := &models.BingoItem{}
	err := scanItem(s.db.QueryRow(ctx, "SELECT "+itemColumns+" FROM bingo_items WHERE id = $1", id), item)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// GetByIDs loads the catalog rows behind a board. Missing IDs are skipped,
// not errors: a deactivated item stays playable on boards that already hold
// it.
func (s *CatalogService) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]models.BingoItem, error) {
	return s.getByIDs(ctx, s.db, ids)
}

// getByIDs runs on the caller's connection so game transactions read their
// board rows through their own snapshot.
func (s *CatalogService) getByIDs(ctx context.Context, q DBConn, ids []uuid.UUID) ([]models.BingoItem, error) {
	if len(ids) == 0 {
		return []models.BingoItem{}, nil
	}

	rows, err := q.Query(ctx, "SELECT "+itemColumns+" FROM bingo_items WHERE id = ANY($1)", ids)
	if err != nil {
		return nil, fmt.Errorf("listing items by id: %w", err)
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

func (s *CatalogService) Create(ctx context.Context, params models.CreateItemParams) (*models.BingoItem, error) {
	if err := validateItemFields(params.Text, params.Category, params.Points); err != nil {
		return nil, err
	}

	item := &models.BingoItem{}
	err := scanItem(s.db.QueryRow(ctx,
		`INSERT INTO bingo_items (text, category, points, created_by)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+itemColumns,
		params.Text, params.Category, params.Points, params.CreatedBy,
	), item)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}
	return item, nil
}

func (s *CatalogService) Update(ctx context.Context, id uuid.UUID, params models.UpdateItemParams) (*models.BingoItem, error) {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	text := current.Text
	if params.Text != nil {
		text = *params.Text
	}
	category := current.Category
	if params.Category != nil {
		category = *params.Category
	}
	points := current.Points
	if params.Points != nil {
		points = *params.Points
	}
	isActive := current.IsActive
	if params.IsActive != nil {
		isActive = *params.IsActive
	}

	if err := validateItemFields(text, category, points); err != nil {
		return nil, err
	}

	item := &models.BingoItem{}
	err = scanItem(s.db.QueryRow(ctx,
		`UPDATE bingo_items
		 SET text = $1, category = $2, points = $3, is_active = $4, updated_at = NOW()
		 WHERE id = $5
		 RETURNING `+itemColumns,
		text, category, points, isActive, id,
	), item)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updating item: %w", err)
	}
	return item, nil
}

// Refresh reseeds the built-in default catalog: known items are reactivated
// and updated in place, new ones inserted. Returns the number of rows
// touched.
func (s *CatalogService) Refresh(ctx context.Context) (int, error) {
	touched := 0
	for _, seed := range DefaultCatalog {
		tag, err := s.db.Exec(ctx,
			`INSERT INTO bingo_items (text, category, points, is_active)
			 VALUES ($1, $2, $3, true)
			 ON CONFLICT (LOWER(text))
			 DO UPDATE SET category = EXCLUDED.category,
			               points = EXCLUDED.points,
			               is_active = true,
			               updated_at = NOW()`,
			seed.Text, seed.Category, seed.Points,
		)
		if err != nil {
			return touched, fmt.Errorf("seeding item %q: %w", seed.Text, err)
		}
		touched += int(tag.RowsAffected())
	}
	return touched, nil
}

// EnsureSeeded populates an empty catalog at startup so the first player can
// draw a board.
func (s *CatalogService) EnsureSeeded(ctx context.Context) error {
	var count int
	if err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM bingo_items").Scan(&count); err != nil {
		return fmt.Errorf("counting items: %w", err)
	}
	if count > 0 {
		return nil
	}
	_, err := s.Refresh(ctx)
	return err
}
