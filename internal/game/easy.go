package game

import (
	"errors"
	"sort"
	"strings"

	"github.com/ecofest/ecobingo/internal/models"
)

var (
	ErrInsufficientCatalog = errors.New("not enough active items to fill a board")
	ErrNoEasyItem          = errors.New("no easy item available")
)

// EasyItemPolicy decides which catalog items count as quick wins. It is
// version-tagged configuration, injected by the composition root rather than
// hard-coded, so the rule can change without touching game logic.
type EasyItemPolicy struct {
	Version    int
	Categories []string // qualifying categories
	Keywords   []string // case-insensitive substrings of the item text
}

// DefaultEasyItemPolicy matches actions people can do on the spot at the
// event: digital and energy habits, plus text that signals a one-minute task.
func DefaultEasyItemPolicy() EasyItemPolicy {
	return EasyItemPolicy{
		Version:    1,
		Categories: []string{"DIGITAL", "ENERGY"},
		Keywords:   []string{"turn off", "unplug", "switch off", "recycle", "reusable", "refill", "walk"},
	}
}

// Qualifies reports whether item counts as easy under the policy.
func (p EasyItemPolicy) Qualifies(item models.BingoItem) bool {
	for _, c := range p.Categories {
		if item.Category == c {
			return true
		}
	}
	text := strings.ToLower(item.Text)
	for _, kw := range p.Keywords {
		if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// EasyItems returns the not-yet-completed board items qualifying under the
// policy, cheapest first, capped at limit. boardItems must hold the catalog
// rows for the game's board entries.
func EasyItems(g models.BingoGame, boardItems []models.BingoItem, policy EasyItemPolicy, limit int) []models.BingoItem {
	byID := make(map[string]models.BingoItem, len(boardItems))
	for _, item := range boardItems {
		byID[item.ID.String()] = item
	}

	var candidates []models.BingoItem
	for _, entry := range g.Board {
		item, ok := byID[entry.ItemID.String()]
		if !ok {
			continue
		}
		if g.IsItemCompleted(item.ID) || !policy.Qualifies(item) {
			continue
		}
		candidates = append(candidates, item)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Points < candidates[j].Points
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

// PickEasyItem selects the lowest-point easy item remaining on the board.
func PickEasyItem(g models.BingoGame, boardItems []models.BingoItem, policy EasyItemPolicy) (models.BingoItem, error) {
	candidates := EasyItems(g, boardItems, policy, 1)
	if len(candidates) == 0 {
		return models.BingoItem{}, ErrNoEasyItem
	}
	return candidates[0], nil
}
