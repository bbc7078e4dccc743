package services

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/codyseavey/sorcery-tracker/internal/metrics"
	"github.com/codyseavey/sorcery-tracker/internal/models"
)

// DeckService applies deck mutations transactionally. Every rule check runs
// against a DeckPlan built from the rows read inside the same transaction.
type DeckService struct {
	db *gorm.DB
}

func NewDeckService(db *gorm.DB) *DeckService {
	return &DeckService{db: db}
}

func (s *DeckService) CreateDeck(ownerID, name string) (*models.Deck, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("Deck name is required")
	}
	deck := models.Deck{ID: uuid.New().String(), Name: name, OwnerID: ownerID}
	if err := s.db.Create(&deck).Error; err != nil {
		return nil, fmt.Errorf("create deck: %w", err)
	}
	metrics.DeckMutationsTotal.WithLabelValues("create", "ok").Inc()
	return &deck, nil
}

func (s *DeckService) ListDecks(ownerID string) ([]models.Deck, error) {
	var decks []models.Deck
	if err := s.db.Where("owner_id = ?", ownerID).Order("updated_at DESC").Find(&decks).Error; err != nil {
		return nil, err
	}
	return decks, nil
}

// GetDeck loads a deck with its cells and their cards.
func (s *DeckService) GetDeck(ownerID, deckID string) (*models.Deck, error) {
	deck, err := loadDeck(s.db, ownerID, deckID)
	if err != nil {
		return nil, err
	}
	if err := s.db.Preload("Card.Sets.Set").Where("deck_id = ?", deck.ID).Order("section, id").Find(&deck.Cards).Error; err != nil {
		return nil, err
	}
	return deck, nil
}

func (s *DeckService) RenameDeck(ownerID, deckID, name string) (*models.Deck, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("Deck name is required")
	}
	deck, err := loadDeck(s.db, ownerID, deckID)
	if err != nil {
		return nil, err
	}
	deck.Name = name
	if err := s.db.Save(deck).Error; err != nil {
		return nil, err
	}
	return deck, nil
}

func (s *DeckService) DeleteDeck(ownerID, deckID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		deck, err := loadDeck(tx, ownerID, deckID)
		if err != nil {
			return err
		}
		if err := tx.Where("deck_id = ?", deck.ID).Delete(&models.DeckCard{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(deck).Error; err != nil {
			return err
		}
		metrics.DeckMutationsTotal.WithLabelValues("delete", "ok").Inc()
		return nil
	})
}

// AddCard adds one copy of a card to a section. Adding an avatar replaces the
// current one; adding the current avatar again changes nothing.
func (s *DeckService) AddCard(ownerID, deckID, cardID string, section models.Section) (*models.DeckCard, error) {
	var cell models.DeckCard
	err := s.db.Transaction(func(tx *gorm.DB) error {
		deck, err := loadDeck(tx, ownerID, deckID)
		if err != nil {
			return err
		}
		var card models.Card
		if err := tx.Preload("Sets.Set").First(&card, "id = ?", cardID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("card %s: %w", cardID, ErrNotFound)
			}
			return err
		}
		// Rules apply to the card as its newest printing defines it, as in search
		card = card.Effective()
		if section == "" {
			section = DefaultSection(card.Type)
		}

		var rows []models.DeckCard
		if err := tx.Where("deck_id = ?", deck.ID).Find(&rows).Error; err != nil {
			return err
		}
		plan := NewDeckPlan(rows)
		if err := plan.CheckAdd(card, section); err != nil {
			return err
		}

		if section == models.SectionAvatar {
			plan.SetAvatar(card.ID)
		} else {
			plan.Add(card.ID, section, 1)
		}
		if err := applyPlan(tx, deck.ID, rows, plan); err != nil {
			return err
		}
		if err := tx.Where("deck_id = ? AND card_id = ? AND section = ?", deck.ID, card.ID, section).First(&cell).Error; err != nil {
			return err
		}
		return touchDeck(tx, deck)
	})
	metrics.DeckMutationsTotal.WithLabelValues("add", metrics.Result(err)).Inc()
	if err != nil {
		return nil, err
	}
	return &cell, nil
}

// RemoveCard removes one copy from a cell, deleting the cell at zero. The
// returned cell is nil when it was deleted.
func (s *DeckService) RemoveCard(ownerID string, cellID uint) (*models.DeckCard, error) {
	var remaining *models.DeckCard
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var cell models.DeckCard
		if err := tx.First(&cell, cellID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("deck card %d: %w", cellID, ErrNotFound)
			}
			return err
		}
		deck, err := loadDeck(tx, ownerID, cell.DeckID)
		if err != nil {
			return err
		}

		if cell.Quantity <= 1 {
			if err := tx.Delete(&cell).Error; err != nil {
				return err
			}
		} else {
			cell.Quantity--
			if err := tx.Save(&cell).Error; err != nil {
				return err
			}
			remaining = &cell
		}
		return touchDeck(tx, deck)
	})
	metrics.DeckMutationsTotal.WithLabelValues("remove", metrics.Result(err)).Inc()
	return remaining, err
}

// BatchAdd adds every item it can and returns the quantity added. Items that
// cannot be applied are skipped rather than failing the batch.
func (s *DeckService) BatchAdd(ownerID, deckID string, items []models.BatchDeckItem) (int, error) {
	var added int
	err := s.db.Transaction(func(tx *gorm.DB) error {
		deck, err := loadDeck(tx, ownerID, deckID)
		if err != nil {
			return err
		}
		cards, err := cardsByID(tx, batchDeckCardIDs(items))
		if err != nil {
			return err
		}

		var rows []models.DeckCard
		if err := tx.Where("deck_id = ?", deck.ID).Find(&rows).Error; err != nil {
			return err
		}
		plan := NewDeckPlan(rows)
		var skipped int
		added, skipped = plan.AddBatch(items, cards)
		if skipped > 0 {
			log.Printf("Deck service: batch add to %s skipped %d of %d items", deck.ID, skipped, len(items))
			metrics.BatchItemsSkipped.WithLabelValues("deck").Add(float64(skipped))
		}
		if added == 0 {
			return nil
		}
		if err := applyPlan(tx, deck.ID, rows, plan); err != nil {
			return err
		}
		return touchDeck(tx, deck)
	})
	metrics.DeckMutationsTotal.WithLabelValues("batch_add", metrics.Result(err)).Inc()
	if err != nil {
		return 0, err
	}
	return added, nil
}

// Validate summarizes a deck's section totals and rule problems.
func (s *DeckService) Validate(ownerID, deckID string) (*models.DeckSummary, error) {
	deck, err := s.GetDeck(ownerID, deckID)
	if err != nil {
		return nil, err
	}
	summary := &models.DeckSummary{
		DeckID:        deck.ID,
		SectionTotals: make(map[models.Section]int),
		Problems:      Problems(deck.Cards),
	}
	for _, section := range models.AllSections() {
		summary.SectionTotals[section] = 0
	}
	for _, row := range deck.Cards {
		summary.SectionTotals[row.Section] += row.Quantity
		if row.Section == models.SectionAvatar {
			summary.HasAvatar = true
		}
	}
	return summary, nil
}

func loadDeck(db *gorm.DB, ownerID, deckID string) (*models.Deck, error) {
	var deck models.Deck
	if err := db.First(&deck, "id = ?", deckID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("deck %s: %w", deckID, ErrNotFound)
		}
		return nil, err
	}
	if deck.OwnerID != ownerID {
		return nil, fmt.Errorf("deck %s: %w", deckID, ErrNotOwned)
	}
	return &deck, nil
}

func touchDeck(tx *gorm.DB, deck *models.Deck) error {
	return tx.Model(deck).Update("updated_at", gorm.Expr("CURRENT_TIMESTAMP")).Error
}

// applyPlan writes the plan's staged cells over rows.
func applyPlan(tx *gorm.DB, deckID string, rows []models.DeckCard, plan *DeckPlan) error {
	existing := make(map[cellKey]models.DeckCard, len(rows))
	for _, row := range rows {
		existing[cellKey{CardID: row.CardID, Section: row.Section}] = row
	}

	for _, change := range plan.Changes() {
		key := cellKey{CardID: change.CardID, Section: change.Section}
		switch {
		case change.Quantity == 0:
			row := existing[key]
			if err := tx.Delete(&row).Error; err != nil {
				return err
			}
		case change.Existed:
			row := existing[key]
			if err := tx.Model(&row).Update("quantity", change.Quantity).Error; err != nil {
				return err
			}
		default:
			row := models.DeckCard{DeckID: deckID, CardID: change.CardID, Section: change.Section, Quantity: change.Quantity}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func cardsByID(db *gorm.DB, ids []string) (map[string]models.Card, error) {
	cards := make(map[string]models.Card, len(ids))
	if len(ids) == 0 {
		return cards, nil
	}
	var found []models.Card
	if err := db.Preload("Sets.Set").Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, err
	}
	for _, card := range found {
		cards[card.ID] = card.Effective()
	}
	return cards, nil
}

func batchDeckCardIDs(items []models.BatchDeckItem) []string {
	seen := make(map[string]bool, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if !seen[item.CardID] {
			seen[item.CardID] = true
			ids = append(ids, item.CardID)
		}
	}
	return ids
}
