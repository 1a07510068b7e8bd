package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/ecofest/ecobingo/internal/models"
)

type stubLeaderboardService struct {
	LeaderboardFunc func(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
	StatsFunc       func(ctx context.Context) (*models.GameStats, error)
}

func (s *stubLeaderboardService) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	return s.LeaderboardFunc(ctx, limit)
}

func (s *stubLeaderboardService) Stats(ctx context.Context) (*models.GameStats, error) {
	return s.StatsFunc(ctx)
}

func TestLeaderboardList(t *testing.T) {
	var gotLimit int
	h := NewLeaderboardHandler(&stubLeaderboardService{
		LeaderboardFunc: func(_ context.Context, limit int) ([]models.LeaderboardEntry, error) {
			gotLimit = limit
			return []models.LeaderboardEntry{
				{Rank: 1, UserID: uuid.New(), Username: "ash", TotalPoints: 240},
			}, nil
		},
	})

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/leaderboard?limit=5", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotLimit != 5 {
		t.Errorf("limit = %d, want 5", gotLimit)
	}

	var resp struct {
		Leaderboard []models.LeaderboardEntry `json:"leaderboard"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Leaderboard) != 1 || resp.Leaderboard[0].Username != "ash" {
		t.Errorf("unexpected leaderboard: %+v", resp.Leaderboard)
	}
}

func TestLeaderboardListBadLimitFallsBack(t *testing.T) {
	var gotLimit int
	h := NewLeaderboardHandler(&stubLeaderboardService{
		LeaderboardFunc: func(_ context.Context, limit int) ([]models.LeaderboardEntry, error) {
			gotLimit = limit
			return nil, nil
		},
	})

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/leaderboard?limit=abc", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotLimit != 0 {
		t.Errorf("limit = %d, want 0 so the service applies its default", gotLimit)
	}
}

func TestLeaderboardListStoreError(t *testing.T) {
	h := NewLeaderboardHandler(&stubLeaderboardService{
		LeaderboardFunc: func(context.Context, int) ([]models.LeaderboardEntry, error) {
			return nil, context.DeadlineExceeded
		},
	})

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if code := errorCode(t, rec); code != CodeTransientStore {
		t.Errorf("code = %s, want %s", code, CodeTransientStore)
	}
}

func TestLeaderboardStats(t *testing.T) {
	h := NewLeaderboardHandler(&stubLeaderboardService{
		StatsFunc: func(context.Context) (*models.GameStats, error) {
			return &models.GameStats{TotalGames: 12, CompletedGames: 2}, nil
		},
	})

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Stats models.GameStats `json:"stats"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Stats.TotalGames != 12 {
		t.Errorf("TotalGames = %d, want 12", resp.Stats.TotalGames)
	}
}
