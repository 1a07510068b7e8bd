package handlers

import (
	"net/http"
	"strconv"

	"github.com/ecofest/ecobingo/internal/services"
)

type LeaderboardHandler struct {
	leaderboard services.LeaderboardServiceInterface
}

func NewLeaderboardHandler(leaderboard services.LeaderboardServiceInterface) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboard: leaderboard}
}

// List returns the ranked top players. An invalid limit falls back to the
// service default rather than erroring.
func (h *LeaderboardHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	entries, err := h.leaderboard.Leaderboard(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": entries})
}

// Stats returns event-wide aggregates for the organizer dashboard.
func (h *LeaderboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.leaderboard.Stats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stats": stats})
}
