package metrics

import (
	"log"

	"gorm.io/gorm"

	"github.com/codyseavey/sorcery-tracker/internal/models"
)

// UpdateCollectionMetrics queries the database and updates collection-related Prometheus metrics.
// Call this after collection changes or periodically.
func UpdateCollectionMetrics(db *gorm.DB) {
	if db == nil {
		return
	}

	var totalCards int64
	if err := db.Model(&models.CollectionCard{}).Select("COALESCE(SUM(quantity), 0)").Scan(&totalCards).Error; err != nil {
		log.Printf("Metrics: failed to count collection cards: %v", err)
	} else {
		CollectionCardsTotal.Set(float64(totalCards))
	}

	type typeCount struct {
		Type     string
		Quantity int64
	}
	var typeCounts []typeCount
	if err := db.Model(&models.CollectionCard{}).
		Select("cards.type, COALESCE(SUM(collection_cards.quantity), 0) as quantity").
		Joins("JOIN cards ON cards.id = collection_cards.card_id").
		Group("cards.type").
		Scan(&typeCounts).Error; err != nil {
		log.Printf("Metrics: failed to count cards by type: %v", err)
	} else {
		for _, tc := range typeCounts {
			CollectionCardsByType.WithLabelValues(tc.Type).Set(float64(tc.Quantity))
		}
	}

	// Latest market snapshot per pricing product, weighted by owned quantity
	var totalValue float64
	if err := db.Raw(`
		SELECT COALESCE(SUM(cc.quantity * ps.market), 0)
		FROM collection_cards cc
		JOIN variants v ON v.id = cc.variant_id
		JOIN price_snapshots ps ON ps.product_id = v.pricing_product_id
		WHERE ps.market IS NOT NULL AND ps.recorded_at = (
			SELECT MAX(p2.recorded_at) FROM price_snapshots p2
			WHERE p2.product_id = ps.product_id AND p2.market IS NOT NULL
		)
	`).Scan(&totalValue).Error; err != nil {
		log.Printf("Metrics: failed to calculate collection value: %v", err)
	} else {
		CollectionValueUSD.Set(totalValue)
	}

	var cardCount int64
	if err := db.Model(&models.Card{}).Count(&cardCount).Error; err != nil {
		log.Printf("Metrics: failed to count cards: %v", err)
	} else {
		CardDatabaseSize.Set(float64(cardCount))
	}
}
