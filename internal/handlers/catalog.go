package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/ecofest/ecobingo/internal/models"
	"github.com/ecofest/ecobingo/internal/services"
)

type CatalogHandler struct {
	catalog services.CatalogServiceInterface
}

func NewCatalogHandler(catalog services.CatalogServiceInterface) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// List returns the active catalog. Public: players browse actions before
// signing up.
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.ListActive(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

type createItemRequest struct {
	Text     string `json:"text"`
	Category string `json:"category"`
	Points   int    `json:"points"`
}

func (h *CatalogHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		WriteError(w, http.StatusUnauthorized, CodeUnauthorized, "Authentication required")
		return
	}

	var req createItemRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, CodeValidation, "Invalid request body")
		return
	}

	item, err := h.catalog.Create(r.Context(), models.CreateItemParams{
		Text:      req.Text,
		Category:  req.Category,
		Points:    req.Points,
		CreatedBy: &user.ID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"item": item})
}

type updateItemRequest struct {
	Text     *string `json:"text"`
	Category *string `json:"category"`
	Points   *int    `json:"points"`
	IsActive *bool   `json:"is_active"`
}

func (h *CatalogHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, CodeValidation, "Invalid item ID")
		return
	}

	var req updateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, CodeValidation, "Invalid request body")
		return
	}

	item, err := h.catalog.Update(r.Context(), id, models.UpdateItemParams{
		Text:     req.Text,
		Category: req.Category,
		Points:   req.Points,
		IsActive: req.IsActive,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"item": item})
}

// Refresh reseeds the default catalog.
func (h *CatalogHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	touched, err := h.catalog.Refresh(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"touched": touched})
}
