package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/ecofest/ecobingo/internal/services"
)

type GameHandler struct {
	games services.GameServiceInterface
}

func NewGameHandler(games services.GameServiceInterface) *GameHandler {
	return &GameHandler{games: games}
}

// Get returns the caller's game, drawing a board on first contact. Board
// entries come back with the catalog rows resolved so the client renders
// in one round trip.
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	g, err := h.games.GetOrCreate(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	items, err := h.games.BoardItems(r.Context(), g)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"game": g, "items": items})
}

type toggleRequest struct {
	ItemID uuid.UUID `json:"item_id"`
}

func (h *GameHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req toggleRequest
	if err := decodeJSON(r, &req); err != nil || req.ItemID == uuid.Nil {
		WriteError(w, http.StatusBadRequest, CodeValidation, "item_id required")
		return
	}

	g, err := h.games.ToggleItem(r.Context(), user.ID, req.ItemID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"game": g})
}

// CompleteEasy marks the cheapest remaining quick-win item done.
func (h *GameHandler) CompleteEasy(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	g, completed, err := h.games.CompleteEasyItem(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"game": g, "completed": completed})
}

// EasyItems suggests up to three quick wins left on the board.
func (h *GameHandler) EasyItems(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	items, err := h.games.EasyItems(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *GameHandler) Reset(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	g, err := h.games.ResetGame(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"game": g})
}

// Image renders the caller's board as a shareable PNG.
func (h *GameHandler) Image(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	g, err := h.games.GetOrCreate(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	items, err := h.games.BoardItems(r.Context(), g)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	png, err := services.RenderBoardPNG(*g, items, user.Username)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// RefreshBoards redraws every player's board from the current catalog.
// Admin only; progress on old boards is discarded.
func (h *GameHandler) RefreshBoards(w http.ResponseWriter, r *http.Request) {
	refreshed, err := h.games.RefreshAllBoards(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"refreshed": refreshed})
}
