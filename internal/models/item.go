package models

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const MaxItemTextLength = 200

const (
	CategoryTransport = "TRANSPORT" // Getting around sustainably
	CategoryEnergy    = "ENERGY"    // Saving energy
	CategoryWaste     = "WASTE"     // Reducing and sorting waste
	CategoryWater     = "WATER"     // Saving water
	CategoryFood      = "FOOD"      // Sustainable eating
	CategoryCommunity = "COMMUNITY" // Doing things together
	CategoryDigital   = "DIGITAL"   // Digital sustainability
	CategoryGeneral   = "GENERAL"   // Everything else
)

// ValidCategories defines the allowed item categories
var ValidCategories = []string{
	CategoryTransport,
	CategoryEnergy,
	CategoryWaste,
	CategoryWater,
	CategoryFood,
	CategoryCommunity,
	CategoryDigital,
	CategoryGeneral,
}

// CategoryNames maps category IDs to display names
var CategoryNames = map[string]string{
	CategoryTransport: "Transport",
	CategoryEnergy:    "Energy",
	CategoryWaste:     "Waste",
	CategoryWater:     "Water",
	CategoryFood:      "Food",
	CategoryCommunity: "Community",
	CategoryDigital:   "Digital",
	CategoryGeneral:   "General",
}

// IsValidCategory checks if a category string is valid
func IsValidCategory(category string) bool {
	for _, c := range ValidCategories {
		if c == category {
			return true
		}
	}
	return false
}

// IsValidItemText checks length bounds on the action description.
func IsValidItemText(text string) bool {
	n := utf8.RuneCountInString(text)
	return n >= 1 && n <= MaxItemTextLength
}

// BingoItem is one sustainability action in the catalog. Items referenced by
// a board are never deleted; admins deactivate them instead.
type BingoItem struct {
	ID        uuid.UUID  `json:"id"`
	Text      string     `json:"text"`
	Category  string     `json:"category"`
	Points    int        `json:"points"`
	IsActive  bool       `json:"is_active"`
	CreatedBy *uuid.UUID `json:"created_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type CreateItemParams struct {
	Text      string
	Category  string
	Points    int
	CreatedBy *uuid.UUID
}

type UpdateItemParams struct {
	Text     *string
	Category *string
	Points   *int
	IsActive *bool
}
