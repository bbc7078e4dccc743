package services

import (
	"testing"
	"time"

	"github.com/codyseavey/sorcery-tracker/internal/models"
)

func TestFinishPriority(t *testing.T) {
	if FinishPriority("Standard") >= FinishPriority("Foil") {
		t.Error("Standard must rank before Foil")
	}
	if FinishPriority("Foil") >= FinishPriority("Rainbow") {
		t.Error("Foil must rank before Rainbow")
	}
	// Alphabetically "Etched" < "Foil" < "Standard"; unknown finishes still go last
	if FinishPriority("Etched") <= FinishPriority("Rainbow") {
		t.Error("unknown finishes rank after every known one")
	}
	if FinishPriority(" standard ") != 0 {
		t.Error("finish lookup ignores case and padding")
	}
}

func TestDefaultVariants(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	variants := []models.Variant{
		{ID: "a-etched", CardID: "a", Finish: "Etched", CreatedAt: base},
		{ID: "a-foil", CardID: "a", Finish: "Foil", CreatedAt: base},
		{ID: "b-std-late", CardID: "b", Finish: "Standard", CreatedAt: base.Add(time.Hour)},
		{ID: "b-std-early", CardID: "b", Finish: "Standard", CreatedAt: base},
		{ID: "c-2", CardID: "c", Finish: "Standard", CreatedAt: base},
		{ID: "c-1", CardID: "c", Finish: "Standard", CreatedAt: base},
	}
	defaults := DefaultVariants(variants)

	want := map[string]string{"a": "a-foil", "b": "b-std-early", "c": "c-1"}
	for card, id := range want {
		if defaults[card].ID != id {
			t.Errorf("default for %s = %s, want %s", card, defaults[card].ID, id)
		}
	}
	if variants[0].ID != "a-etched" {
		t.Error("DefaultVariants must not reorder its input")
	}
}
