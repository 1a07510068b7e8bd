package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ecofest/ecobingo/internal/models"
)

// fakeStore is an in-memory stand-in for the games/items/users tables. It
// routes the small set of SQL statements the services issue, so service
// tests run without Postgres.
type fakeStore struct {
	users map[uuid.UUID]*models.User
	items []models.BingoItem
	games map[uuid.UUID]*models.BingoGame

	failNext error // next query/exec returns this error once
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users: map[uuid.UUID]*models.User{},
		games: map[uuid.UUID]*models.BingoGame{},
	}
}

func (f *fakeStore) addUser(username string) *models.User {
	user := &models.User{
		ID:            uuid.New(),
		Email:         username + "@example.com",
		Username:      username,
		Role:          models.RolePlayer,
		EmailVerified: true,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	f.users[user.ID] = user
	return user
}

func (f *fakeStore) addItems(n int, category string, points int) {
	for i := 0; i < n; i++ {
		f.items = append(f.items, models.BingoItem{
			ID:        uuid.New(),
			Text:      fmt.Sprintf("%s action %d", strings.ToLower(category), len(f.items)),
			Category:  category,
			Points:    points,
			IsActive:  true,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		})
	}
}

func (f *fakeStore) consumeFailure() error {
	err := f.failNext
	f.failNext = nil
	return err
}

func (f *fakeStore) Exec(_ context.Context, sql string, args ...any) (CommandTag, error) {
	if err := f.consumeFailure(); err != nil {
		return fakeTag(0), err
	}
	switch {
	case strings.Contains(sql, "INSERT INTO bingo_games"):
		g, err := decodeGameArgs(args[0].(uuid.UUID), args[1], args[2], args[3], args[4].(int), args[5].(bool), args[6].(time.Time), args[7], args[8].(time.Time))
		if err != nil {
			return fakeTag(0), err
		}
		f.games[g.UserID] = g
		return fakeTag(1), nil
	case strings.Contains(sql, "UPDATE bingo_games"):
		userID := args[8].(uuid.UUID)
		if _, ok := f.games[userID]; !ok {
			return fakeTag(0), nil
		}
		g, err := decodeGameArgs(userID, args[0], args[1], args[2], args[3].(int), args[4].(bool), args[5].(time.Time), args[6], args[7].(time.Time))
		if err != nil {
			return fakeTag(0), err
		}
		f.games[userID] = g
		return fakeTag(1), nil
	case strings.Contains(sql, "INSERT INTO bingo_items"):
		// Refresh upsert, keyed on lower(text).
		text := args[0].(string)
		for i := range f.items {
			if strings.EqualFold(f.items[i].Text, text) {
				f.items[i].Category = args[1].(string)
				f.items[i].Points = args[2].(int)
				f.items[i].IsActive = true
				f.items[i].UpdatedAt = time.Now()
				return fakeTag(1), nil
			}
		}
		f.items = append(f.items, models.BingoItem{
			ID:        uuid.New(),
			Text:      text,
			Category:  args[1].(string),
			Points:    args[2].(int),
			IsActive:  true,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		})
		return fakeTag(1), nil
	case strings.Contains(sql, "UPDATE users SET email_verified"):
		userID := args[0].(uuid.UUID)
		user, ok := f.users[userID]
		if !ok || user.EmailVerified {
			return fakeTag(0), nil
		}
		now := time.Now()
		user.EmailVerified = true
		user.EmailVerifiedAt = &now
		user.UpdatedAt = now
		return fakeTag(1), nil
	}
	return fakeTag(0), fmt.Errorf("fakeStore: unsupported exec %q", sql)
}

func decodeGameArgs(userID uuid.UUID, board, completed, bingos any, totalPoints int, isCompleted bool, startedAt time.Time, completedAt any, updatedAt time.Time) (*models.BingoGame, error) {
	g := &models.BingoGame{
		UserID:        userID,
		TotalPoints:   totalPoints,
		IsCompleted:   isCompleted,
		GameStartedAt: startedAt,
		UpdatedAt:     updatedAt,
	}
	if err := json.Unmarshal(board.([]byte), &g.Board); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(completed.([]byte), &g.CompletedItems); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(bingos.([]byte), &g.BingosAchieved); err != nil {
		return nil, err
	}
	if at, ok := completedAt.(*time.Time); ok && at != nil {
		g.GameCompletedAt = at
	}
	return g, nil
}

func (f *fakeStore) Query(_ context.Context, sql string, args ...any) (Rows, error) {
	if err := f.consumeFailure(); err != nil {
		return nil, err
	}
	switch {
	case strings.Contains(sql, "FROM bingo_items WHERE is_active"):
		var rows []scanFunc
		for _, item := range f.items {
			if item.IsActive {
				rows = append(rows, itemScanner(item))
			}
		}
		return &fakeRows{rows: rows}, nil
	case strings.Contains(sql, "FROM bingo_items WHERE id = ANY"):
		ids := args[0].([]uuid.UUID)
		wanted := map[uuid.UUID]bool{}
		for _, id := range ids {
			wanted[id] = true
		}
		var rows []scanFunc
		for _, item := range f.items {
			if wanted[item.ID] {
				rows = append(rows, itemScanner(item))
			}
		}
		return &fakeRows{rows: rows}, nil
	case strings.Contains(sql, "SELECT user_id FROM bingo_games"):
		var rows []scanFunc
		for id := range f.games {
			userID := id
			rows = append(rows, func(dest ...any) error {
				*dest[0].(*uuid.UUID) = userID
				return nil
			})
		}
		return &fakeRows{rows: rows}, nil
	}
	return nil, fmt.Errorf("fakeStore: unsupported query %q", sql)
}

func (f *fakeStore) QueryRow(_ context.Context, sql string, args ...any) Row {
	if err := f.consumeFailure(); err != nil {
		return fakeRow{scan: func(...any) error { return err }}
	}
	switch {
	case strings.Contains(sql, "FROM bingo_games WHERE user_id"):
		userID := args[0].(uuid.UUID)
		g, ok := f.games[userID]
		if !ok {
			return fakeRow{scan: func(...any) error { return pgx.ErrNoRows }}
		}
		if strings.Contains(sql, "SELECT user_id FROM") {
			// lock-only query
			return fakeRow{scan: func(dest ...any) error {
				*dest[0].(*uuid.UUID) = g.UserID
				return nil
			}}
		}
		return fakeRow{scan: gameScanner(g)}
	case strings.Contains(sql, "FROM users WHERE id"):
		userID := args[0].(uuid.UUID)
		user, ok := f.users[userID]
		if !ok {
			return fakeRow{scan: func(...any) error { return pgx.ErrNoRows }}
		}
		if strings.Contains(sql, "SELECT id FROM users") {
			return fakeRow{scan: func(dest ...any) error {
				*dest[0].(*uuid.UUID) = user.ID
				return nil
			}}
		}
		return fakeRow{scan: userScanner(user)}
	case strings.Contains(sql, "FROM bingo_items WHERE id ="):
		itemID := args[0].(uuid.UUID)
		for _, item := range f.items {
			if item.ID == itemID {
				return fakeRow{scan: itemScanner(item)}
			}
		}
		return fakeRow{scan: func(...any) error { return pgx.ErrNoRows }}
	case strings.Contains(sql, "SELECT COUNT(*) FROM bingo_items"):
		count := len(f.items)
		return fakeRow{scan: func(dest ...any) error {
			*dest[0].(*int) = count
			return nil
		}}
	case strings.Contains(sql, "SELECT EXISTS(SELECT 1 FROM users WHERE email"):
		email := args[0].(string)
		found := false
		for _, user := range f.users {
			if user.Email == email {
				found = true
			}
		}
		return fakeRow{scan: func(dest ...any) error {
			*dest[0].(*bool) = found
			return nil
		}}
	case strings.Contains(sql, "SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(username)"):
		username := args[0].(string)
		found := false
		for _, user := range f.users {
			if strings.EqualFold(user.Username, username) {
				found = true
			}
		}
		return fakeRow{scan: func(dest ...any) error {
			*dest[0].(*bool) = found
			return nil
		}}
	case strings.Contains(sql, "INSERT INTO users"):
		now := time.Now()
		user := &models.User{
			ID:           uuid.New(),
			Email:        args[0].(string),
			PasswordHash: args[1].(string),
			Username:     args[2].(string),
			Role:         args[3].(string),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		f.users[user.ID] = user
		return fakeRow{scan: userScanner(user)}
	case strings.Contains(sql, "FROM users WHERE email"):
		email := args[0].(string)
		for _, user := range f.users {
			if user.Email == email {
				return fakeRow{scan: userScanner(user)}
			}
		}
		return fakeRow{scan: func(...any) error { return pgx.ErrNoRows }}
	case strings.Contains(sql, "INSERT INTO bingo_items"):
		now := time.Now()
		item := models.BingoItem{
			ID:        uuid.New(),
			Text:      args[0].(string),
			Category:  args[1].(string),
			Points:    args[2].(int),
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if by, ok := args[3].(*uuid.UUID); ok {
			item.CreatedBy = by
		}
		f.items = append(f.items, item)
		return fakeRow{scan: itemScanner(item)}
	case strings.Contains(sql, "UPDATE bingo_items"):
		itemID := args[4].(uuid.UUID)
		for i := range f.items {
			if f.items[i].ID == itemID {
				f.items[i].Text = args[0].(string)
				f.items[i].Category = args[1].(string)
				f.items[i].Points = args[2].(int)
				f.items[i].IsActive = args[3].(bool)
				f.items[i].UpdatedAt = time.Now()
				return fakeRow{scan: itemScanner(f.items[i])}
			}
		}
		return fakeRow{scan: func(...any) error { return pgx.ErrNoRows }}
	}
	return fakeRow{scan: func(...any) error {
		return fmt.Errorf("fakeStore: unsupported query row %q", sql)
	}}
}

func (f *fakeStore) Begin(_ context.Context) (Tx, error) {
	return &fakeTx{store: f}, nil
}

// fakeTx applies statements directly; tests exercise service logic, not
// rollback semantics.
type fakeTx struct {
	store *fakeStore
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	return t.store.Exec(ctx, sql, args...)
}

func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	return t.store.Query(ctx, sql, args...)
}

func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return t.store.QueryRow(ctx, sql, args...)
}

func (t *fakeTx) Commit(context.Context) error   { return nil }
func (t *fakeTx) Rollback(context.Context) error { return nil }

type scanFunc func(dest ...any) error

type fakeRow struct {
	scan scanFunc
}

func (r fakeRow) Scan(dest ...any) error { return r.scan(dest...) }

type fakeRows struct {
	rows []scanFunc
	idx  int
}

func (r *fakeRows) Close()     {}
func (r *fakeRows) Err() error { return nil }
func (r *fakeRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	return r.rows[r.idx-1](dest...)
}

type fakeTag int64

func (t fakeTag) RowsAffected() int64 { return int64(t) }

func gameScanner(g *models.BingoGame) scanFunc {
	return func(dest ...any) error {
		board, _ := json.Marshal(g.Board)
		completed, _ := json.Marshal(g.CompletedItems)
		bingos, _ := json.Marshal(g.BingosAchieved)
		*dest[0].(*uuid.UUID) = g.UserID
		*dest[1].(*[]byte) = board
		*dest[2].(*[]byte) = completed
		*dest[3].(*[]byte) = bingos
		*dest[4].(*int) = g.TotalPoints
		*dest[5].(*bool) = g.IsCompleted
		*dest[6].(*time.Time) = g.GameStartedAt
		*dest[7].(**time.Time) = g.GameCompletedAt
		*dest[8].(*time.Time) = g.UpdatedAt
		return nil
	}
}

func itemScanner(item models.BingoItem) scanFunc {
	return func(dest ...any) error {
		*dest[0].(*uuid.UUID) = item.ID
		*dest[1].(*string) = item.Text
		*dest[2].(*string) = item.Category
		*dest[3].(*int) = item.Points
		*dest[4].(*bool) = item.IsActive
		*dest[5].(**uuid.UUID) = item.CreatedBy
		*dest[6].(*time.Time) = item.CreatedAt
		*dest[7].(*time.Time) = item.UpdatedAt
		return nil
	}
}

func userScanner(user *models.User) scanFunc {
	return func(dest ...any) error {
		*dest[0].(*uuid.UUID) = user.ID
		*dest[1].(*string) = user.Email
		*dest[2].(*string) = user.PasswordHash
		*dest[3].(*string) = user.Username
		*dest[4].(*string) = user.Role
		*dest[5].(*bool) = user.EmailVerified
		*dest[6].(**time.Time) = user.EmailVerifiedAt
		*dest[7].(*time.Time) = user.CreatedAt
		*dest[8].(*time.Time) = user.UpdatedAt
		return nil
	}
}
