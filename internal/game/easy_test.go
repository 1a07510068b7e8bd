package game

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ecofest/ecobingo/internal/models"
)

func easyTestBoard(items []models.BingoItem) models.BingoGame {
	board := make([]models.BoardEntry, len(items))
	for i, item := range items {
		board[i] = models.BoardEntry{ItemID: item.ID, Position: i}
	}
	return NewGame(uuid.New(), board, time.Now())
}

func TestEasyItemPolicyQualifiesByCategory(t *testing.T) {
	policy := DefaultEasyItemPolicy()

	if !policy.Qualifies(models.BingoItem{Category: "DIGITAL", Text: "Delete old cloud files"}) {
		t.Error("DIGITAL should qualify")
	}
	if !policy.Qualifies(models.BingoItem{Category: "ENERGY", Text: "Lower the thermostat"}) {
		t.Error("ENERGY should qualify")
	}
	if policy.Qualifies(models.BingoItem{Category: "TRANSPORT", Text: "Bike to the venue"}) {
		t.Error("TRANSPORT without keywords should not qualify")
	}
}

func TestEasyItemPolicyQualifiesByKeyword(t *testing.T) {
	policy := DefaultEasyItemPolicy()

	if !policy.Qualifies(models.BingoItem{Category: "WASTE", Text: "Recycle a bottle at the blue bin"}) {
		t.Error("keyword match should qualify")
	}
	if !policy.Qualifies(models.BingoItem{Category: "GENERAL", Text: "TURN OFF the hallway lights"}) {
		t.Error("keyword match must be case-insensitive")
	}
}

func TestPickEasyItemLowestPoints(t *testing.T) {
	items := []models.BingoItem{
		{ID: uuid.New(), Category: "DIGITAL", Text: "Empty your spam folder", Points: 30},
		{ID: uuid.New(), Category: "ENERGY", Text: "Unplug a charger", Points: 5},
		{ID: uuid.New(), Category: "FOOD", Text: "Cook a vegetarian meal", Points: 40},
		{ID: uuid.New(), Category: "DIGITAL", Text: "Dim your screen", Points: 10},
	}
	g := easyTestBoard(items)

	picked, err := PickEasyItem(g, items, DefaultEasyItemPolicy())
	if err != nil {
		t.Fatalf("picking easy item: %v", err)
	}
	if picked.ID != items[1].ID {
		t.Errorf("expected cheapest easy item, got %q", picked.Text)
	}
}

func TestPickEasyItemSkipsCompleted(t *testing.T) {
	items := []models.BingoItem{
		{ID: uuid.New(), Category: "ENERGY", Text: "Unplug a charger", Points: 5},
		{ID: uuid.New(), Category: "DIGITAL", Text: "Dim your screen", Points: 10},
	}
	g := easyTestBoard(items)
	g = Toggle(g, items[0].ID, time.Now()).Game

	picked, err := PickEasyItem(g, items, DefaultEasyItemPolicy())
	if err != nil {
		t.Fatalf("picking easy item: %v", err)
	}
	if picked.ID != items[1].ID {
		t.Errorf("expected second item, got %q", picked.Text)
	}
}

func TestPickEasyItemNoneAvailable(t *testing.T) {
	items := []models.BingoItem{
		{ID: uuid.New(), Category: "TRANSPORT", Text: "Carpool with a colleague", Points: 20},
		{ID: uuid.New(), Category: "FOOD", Text: "Visit the farmers market", Points: 30},
	}
	g := easyTestBoard(items)

	if _, err := PickEasyItem(g, items, DefaultEasyItemPolicy()); err != ErrNoEasyItem {
		t.Fatalf("expected ErrNoEasyItem, got %v", err)
	}
}

func TestEasyItemsLimit(t *testing.T) {
	items := []models.BingoItem{
		{ID: uuid.New(), Category: "DIGITAL", Text: "a", Points: 4},
		{ID: uuid.New(), Category: "DIGITAL", Text: "b", Points: 3},
		{ID: uuid.New(), Category: "DIGITAL", Text: "c", Points: 2},
		{ID: uuid.New(), Category: "DIGITAL", Text: "d", Points: 1},
	}
	g := easyTestBoard(items)

	easy := EasyItems(g, items, DefaultEasyItemPolicy(), 3)
	if len(easy) != 3 {
		t.Fatalf("expected 3 items, got %d", len(easy))
	}
	if easy[0].Points != 1 || easy[1].Points != 2 || easy[2].Points != 3 {
		t.Errorf("expected cheapest first, got %v", []int{easy[0].Points, easy[1].Points, easy[2].Points})
	}
}
