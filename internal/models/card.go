package models

import (
	"sort"
	"time"

	"gorm.io/datatypes"
)

// CardType is the printed type line of a card.
type CardType string

const (
	CardTypeAvatar   CardType = "Avatar"
	CardTypeSite     CardType = "Site"
	CardTypeMinion   CardType = "Minion"
	CardTypeMagic    CardType = "Magic"
	CardTypeArtifact CardType = "Artifact"
	CardTypeAura     CardType = "Aura"
)

// Rarity tiers. An empty rarity means the card has none recorded.
type Rarity string

const (
	RarityOrdinary    Rarity = "Ordinary"
	RarityExceptional Rarity = "Exceptional"
	RarityElite       Rarity = "Elite"
	RarityUnique      Rarity = "Unique"
)

// Set is a product release. Slug is the short lowercase identifier used by search.
type Set struct {
	ID         uint       `json:"id" gorm:"primaryKey"`
	Slug       string     `json:"slug" gorm:"not null;uniqueIndex"`
	Name       string     `json:"name" gorm:"not null"`
	ReleasedAt *time.Time `json:"released_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

type Card struct {
	CreatedAt      time.Time                   `json:"created_at"`
	UpdatedAt      time.Time                   `json:"updated_at"`
	ID             string                      `json:"id" gorm:"primaryKey"`
	Name           string                      `json:"name" gorm:"not null;index"`
	Type           CardType                    `json:"type" gorm:"not null;index"`
	Rarity         Rarity                      `json:"rarity"`
	RulesText      string                      `json:"rules_text"`
	Cost           *int                        `json:"cost"`
	Attack         *int                        `json:"attack"`
	Defence        *int                        `json:"defence"`
	Life           *int                        `json:"life"`
	Elements       datatypes.JSONSlice[string] `json:"elements"`
	Keywords       datatypes.JSONSlice[string] `json:"keywords"`
	SubTypes       datatypes.JSONSlice[string] `json:"sub_types"`
	ThresholdAir   int                         `json:"threshold_air"`
	ThresholdEarth int                         `json:"threshold_earth"`
	ThresholdFire  int                         `json:"threshold_fire"`
	ThresholdWater int                         `json:"threshold_water"`
	Sets           []CardSet                   `json:"sets,omitempty" gorm:"foreignKey:CardID;references:ID"`
}

// CardSet is a card's membership in a set. Any non-nil override replaces the
// card-level attribute for that printing.
type CardSet struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CardID    string    `json:"card_id" gorm:"not null;uniqueIndex:idx_card_set"`
	SetID     uint      `json:"set_id" gorm:"not null;uniqueIndex:idx_card_set"`
	Set       Set       `json:"set" gorm:"foreignKey:SetID"`
	Type      *CardType `json:"type,omitempty"`
	Rarity    *Rarity   `json:"rarity,omitempty"`
	RulesText *string   `json:"rules_text,omitempty"`
	Cost      *int      `json:"cost,omitempty"`
	Attack    *int      `json:"attack,omitempty"`
	Defence   *int      `json:"defence,omitempty"`
	Life      *int      `json:"life,omitempty"`
}

// Apply returns a copy of card with this membership's overrides applied.
func (m CardSet) Apply(card Card) Card {
	if m.Type != nil {
		card.Type = *m.Type
	}
	if m.Rarity != nil {
		card.Rarity = *m.Rarity
	}
	if m.RulesText != nil {
		card.RulesText = *m.RulesText
	}
	if m.Cost != nil {
		card.Cost = m.Cost
	}
	if m.Attack != nil {
		card.Attack = m.Attack
	}
	if m.Defence != nil {
		card.Defence = m.Defence
	}
	if m.Life != nil {
		card.Life = m.Life
	}
	return card
}

// Memberships returns card's set memberships oldest release first. Sets
// without a release date sort before dated ones; ties go by set ID. Sets must
// be preloaded with their Set.
func (c Card) Memberships() []CardSet {
	memberships := make([]CardSet, len(c.Sets))
	copy(memberships, c.Sets)
	sort.SliceStable(memberships, func(i, j int) bool {
		a, b := memberships[i].Set.ReleasedAt, memberships[j].Set.ReleasedAt
		switch {
		case a == nil && b == nil:
			return memberships[i].SetID < memberships[j].SetID
		case a == nil:
			return true
		case b == nil:
			return false
		case !a.Equal(*b):
			return a.Before(*b)
		}
		return memberships[i].SetID < memberships[j].SetID
	})
	return memberships
}

// Effective returns the card as its newest printing defines it: the newest
// membership's overrides applied to the base attributes.
func (c Card) Effective() Card {
	memberships := c.Memberships()
	if len(memberships) == 0 {
		return c
	}
	return memberships[len(memberships)-1].Apply(c)
}

// Variant is one physical printing of a card within a set.
type Variant struct {
	ID               string          `json:"id" gorm:"primaryKey"`
	CardID           string          `json:"card_id" gorm:"not null;index"`
	SetID            uint            `json:"set_id" gorm:"not null;index"`
	Set              Set             `json:"set" gorm:"foreignKey:SetID"`
	Finish           string          `json:"finish" gorm:"not null;default:'Standard'"`
	Product          string          `json:"product"`
	Artist           string          `json:"artist"`
	FlavorText       string          `json:"flavor_text"`
	ImageURL         string          `json:"image_url"`
	PricingProductID *uint           `json:"pricing_product_id" gorm:"index"`
	PricingProduct   *PricingProduct `json:"pricing_product,omitempty" gorm:"foreignKey:PricingProductID"`
	CreatedAt        time.Time       `json:"created_at"`
}
