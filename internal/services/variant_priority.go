package services

import (
	"sort"
	"strings"

	"github.com/codyseavey/sorcery-tracker/internal/models"
)

// finishPriority orders finishes when picking a card's default variant.
// Finishes missing from the table sort after every listed one.
var finishPriority = map[string]int{
	"standard": 0,
	"foil":     1,
	"rainbow":  2,
}

// FinishPriority returns the sort rank of a finish name.
func FinishPriority(finish string) int {
	if p, ok := finishPriority[strings.ToLower(strings.TrimSpace(finish))]; ok {
		return p
	}
	return len(finishPriority)
}

// SortVariants orders variants by finish priority, then earliest creation,
// then ID.
func SortVariants(variants []models.Variant) {
	sort.SliceStable(variants, func(i, j int) bool {
		pi, pj := FinishPriority(variants[i].Finish), FinishPriority(variants[j].Finish)
		if pi != pj {
			return pi < pj
		}
		if !variants[i].CreatedAt.Equal(variants[j].CreatedAt) {
			return variants[i].CreatedAt.Before(variants[j].CreatedAt)
		}
		return variants[i].ID < variants[j].ID
	})
}

// DefaultVariants picks the default variant for each card that has one.
func DefaultVariants(variants []models.Variant) map[string]models.Variant {
	sorted := make([]models.Variant, len(variants))
	copy(sorted, variants)
	SortVariants(sorted)

	defaults := make(map[string]models.Variant)
	for _, v := range sorted {
		if _, ok := defaults[v.CardID]; !ok {
			defaults[v.CardID] = v
		}
	}
	return defaults
}
