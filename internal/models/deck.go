package models

import (
	"time"
)

// Section is a deck zone.
type Section string

const (
	SectionAvatar    Section = "avatar"
	SectionAtlas     Section = "atlas"
	SectionSpellbook Section = "spellbook"
	SectionSideboard Section = "sideboard"
)

// AllSections returns the deck sections in display order
func AllSections() []Section {
	return []Section{SectionAvatar, SectionAtlas, SectionSpellbook, SectionSideboard}
}

// Valid reports whether s names a known section.
func (s Section) Valid() bool {
	switch s {
	case SectionAvatar, SectionAtlas, SectionSpellbook, SectionSideboard:
		return true
	}
	return false
}

type Deck struct {
	ID        string     `json:"id" gorm:"primaryKey"`
	Name      string     `json:"name" gorm:"not null"`
	OwnerID   string     `json:"owner_id" gorm:"not null;index"`
	Cards     []DeckCard `json:"cards,omitempty" gorm:"foreignKey:DeckID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// DeckCard is one (card, section) cell of a deck.
type DeckCard struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	DeckID    string    `json:"deck_id" gorm:"not null;uniqueIndex:idx_deck_card_section"`
	CardID    string    `json:"card_id" gorm:"not null;uniqueIndex:idx_deck_card_section"`
	Card      *Card     `json:"card,omitempty" gorm:"foreignKey:CardID"`
	Section   Section   `json:"section" gorm:"not null;uniqueIndex:idx_deck_card_section"`
	Quantity  int       `json:"quantity" gorm:"not null;default:1"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateDeckRequest struct {
	Name string `json:"name" binding:"required"`
}

type UpdateDeckRequest struct {
	Name string `json:"name" binding:"required"`
}

type AddDeckCardRequest struct {
	CardID  string  `json:"card_id" binding:"required"`
	Section Section `json:"section" binding:"required"`
}

// BatchDeckItem is one line of a batched deck add. Section is derived from the
// card type when empty.
type BatchDeckItem struct {
	CardID   string  `json:"card_id" binding:"required"`
	Quantity int     `json:"quantity"`
	Section  Section `json:"section,omitempty"`
}

type BatchDeckRequest struct {
	Items []BatchDeckItem `json:"items" binding:"required"`
}

type BatchAddResponse struct {
	Added int `json:"added"`
}

// DeckSummary reports section totals and any rule problems found in a deck.
type DeckSummary struct {
	DeckID        string          `json:"deck_id"`
	SectionTotals map[Section]int `json:"section_totals"`
	HasAvatar     bool            `json:"has_avatar"`
	Problems      []string        `json:"problems"`
}
