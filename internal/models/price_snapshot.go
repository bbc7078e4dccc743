package models

import (
	"time"
)

// PricingProduct is an external marketplace listing that one or more variants
// are priced against.
type PricingProduct struct {
	ID         uint            `json:"id" gorm:"primaryKey"`
	ExternalID string          `json:"external_id" gorm:"not null;uniqueIndex"`
	Snapshots  []PriceSnapshot `json:"snapshots,omitempty" gorm:"foreignKey:ProductID"`
	CreatedAt  time.Time       `json:"created_at"`
}

// PriceSnapshot is one observation of a product's market prices.
type PriceSnapshot struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	ProductID  uint      `json:"product_id" gorm:"not null;index:idx_product_recorded"`
	Market     *float64  `json:"market"`
	Low        *float64  `json:"low"`
	Median     *float64  `json:"median"`
	Source     string    `json:"source"`
	RecordedAt time.Time `json:"recorded_at" gorm:"not null;index:idx_product_recorded"`
	CreatedAt  time.Time `json:"created_at"`
}

// LatestSnapshot returns the most recently recorded snapshot, or nil when
// there are none.
func LatestSnapshot(snapshots []PriceSnapshot) *PriceSnapshot {
	var latest *PriceSnapshot
	for i := range snapshots {
		if latest == nil || snapshots[i].RecordedAt.After(latest.RecordedAt) {
			latest = &snapshots[i]
		}
	}
	return latest
}

// LatestMarket returns the latest snapshot's market price. Snapshots without a
// market value are skipped so a partial observation doesn't hide an older price.
func LatestMarket(snapshots []PriceSnapshot) *float64 {
	var latest *PriceSnapshot
	for i := range snapshots {
		if snapshots[i].Market == nil {
			continue
		}
		if latest == nil || snapshots[i].RecordedAt.After(latest.RecordedAt) {
			latest = &snapshots[i]
		}
	}
	if latest == nil {
		return nil
	}
	return latest.Market
}
