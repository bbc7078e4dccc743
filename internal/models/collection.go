package models

import (
	"time"
)

type Condition string

const (
	ConditionMint      Condition = "M"
	ConditionNearMint  Condition = "NM"
	ConditionExcellent Condition = "EX"
	ConditionGood      Condition = "GD"
	ConditionLightPlay Condition = "LP"
	ConditionPlayed    Condition = "PL"
	ConditionPoor      Condition = "PR"
)

// NormalizeCondition maps free-form condition text (codes or full names) to a
// Condition, defaulting to Near Mint.
func NormalizeCondition(s string) Condition {
	switch normalizeKey(s) {
	case "m", "mint":
		return ConditionMint
	case "ex", "excellent":
		return ConditionExcellent
	case "gd", "good":
		return ConditionGood
	case "lp", "lightplay", "lightlyplayed":
		return ConditionLightPlay
	case "pl", "played":
		return ConditionPlayed
	case "pr", "poor", "damaged":
		return ConditionPoor
	default:
		return ConditionNearMint
	}
}

func normalizeKey(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		case r >= 'a' && r <= 'z':
			out = append(out, r)
		}
	}
	return string(out)
}

// Collection is a user's single card container.
type Collection struct {
	ID        string           `json:"id" gorm:"primaryKey"`
	OwnerID   string           `json:"owner_id" gorm:"not null;uniqueIndex"`
	Cards     []CollectionCard `json:"cards,omitempty" gorm:"foreignKey:CollectionID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// CollectionCard is the owned quantity of one variant. There is at most one
// row per (collection, variant).
type CollectionCard struct {
	ID            uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	CollectionID  string    `json:"collection_id" gorm:"not null;uniqueIndex:idx_collection_variant"`
	CardID        string    `json:"card_id" gorm:"not null;index"`
	Card          *Card     `json:"card,omitempty" gorm:"foreignKey:CardID"`
	VariantID     string    `json:"variant_id" gorm:"not null;uniqueIndex:idx_collection_variant"`
	Variant       *Variant  `json:"variant,omitempty" gorm:"foreignKey:VariantID"`
	Quantity      int       `json:"quantity" gorm:"not null;default:1"`
	Condition     Condition `json:"condition" gorm:"default:'NM'"`
	PurchasePrice *float64  `json:"purchase_price"`
	PurchasedAt   time.Time `json:"purchased_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	// Populated at read time from the latest price snapshot
	MarketPrice *float64 `json:"market_price,omitempty" gorm:"-"`
}

type AddToCollectionRequest struct {
	VariantID     string     `json:"variant_id" binding:"required"`
	Quantity      int        `json:"quantity"`
	Condition     *Condition `json:"condition"`
	PurchasePrice *float64   `json:"purchase_price"`
}

type UpdateCollectionRequest struct {
	Quantity      *int       `json:"quantity"`
	Condition     *Condition `json:"condition"`
	PurchasePrice *float64   `json:"purchase_price"`
}

// BatchCollectionItem is one line of a batched collection add. VariantID
// overrides default variant resolution when set.
type BatchCollectionItem struct {
	CardID        string    `json:"card_id" binding:"required"`
	Quantity      int       `json:"quantity"`
	VariantID     string    `json:"variant_id,omitempty"`
	Condition     Condition `json:"condition,omitempty"`
	PurchasePrice *float64  `json:"purchase_price,omitempty"`
}

type BatchCollectionRequest struct {
	Items []BatchCollectionItem `json:"items" binding:"required"`
}

type BatchRemoveItem struct {
	CardID   string `json:"card_id" binding:"required"`
	Quantity int    `json:"quantity"`
}

type BatchRemoveRequest struct {
	Items []BatchRemoveItem `json:"items" binding:"required"`
}

type BatchRemoveResponse struct {
	Removed int `json:"removed"`
}

type CollectionStats struct {
	TotalCards     int              `json:"total_cards"`
	UniqueCards    int              `json:"unique_cards"`
	UniqueVariants int              `json:"unique_variants"`
	TotalValue     float64          `json:"total_value"`
	TotalCost      float64          `json:"total_cost"`
	ByType         map[CardType]int `json:"by_type"`
}

// CollectionValueSnapshot stores a daily collection value for historical tracking
type CollectionValueSnapshot struct {
	ID           uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	CollectionID string    `json:"collection_id" gorm:"not null;uniqueIndex:idx_collection_snapshot_date"`
	SnapshotDate time.Time `json:"snapshot_date" gorm:"not null;uniqueIndex:idx_collection_snapshot_date"`
	TotalCards   int       `json:"total_cards"`
	UniqueCards  int       `json:"unique_cards"`
	TotalValue   float64   `json:"total_value"`
	CreatedAt    time.Time `json:"created_at"`
}

// ValueHistoryResponse is the API response for value history
type ValueHistoryResponse struct {
	Snapshots []CollectionValueSnapshot `json:"snapshots"`
	Period    string                    `json:"period"` // "week", "month", "year", "all"
}
