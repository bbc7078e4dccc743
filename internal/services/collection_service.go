package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codyseavey/sorcery-tracker/internal/metrics"
	"github.com/codyseavey/sorcery-tracker/internal/models"
)

// CollectionService reconciles additions and removals against a user's
// collection. Each call runs in one transaction.
type CollectionService struct {
	db *gorm.DB
}

func NewCollectionService(db *gorm.DB) *CollectionService {
	return &CollectionService{db: db}
}

// GetOrCreate returns the owner's collection, creating it on first use.
func (s *CollectionService) GetOrCreate(ownerID string) (*models.Collection, error) {
	return collectionFor(s.db, ownerID)
}

func collectionFor(db *gorm.DB, ownerID string) (*models.Collection, error) {
	var collection models.Collection
	err := db.Where(models.Collection{OwnerID: ownerID}).
		Attrs(models.Collection{ID: uuid.New().String()}).
		FirstOrCreate(&collection).Error
	if err != nil {
		return nil, fmt.Errorf("collection for %s: %w", ownerID, err)
	}
	return &collection, nil
}

// Add adds a variant to the collection, merging into the existing row for
// that variant. New rows default their purchase price to the latest market
// price.
func (s *CollectionService) Add(ownerID string, req models.AddToCollectionRequest) (*models.CollectionCard, error) {
	quantity := req.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	var row models.CollectionCard
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var variant models.Variant
		if err := tx.First(&variant, "id = ?", req.VariantID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("variant %s: %w", req.VariantID, ErrNotFound)
			}
			return err
		}
		collection, err := collectionFor(tx, ownerID)
		if err != nil {
			return err
		}

		err = tx.Where("collection_id = ? AND variant_id = ?", collection.ID, variant.ID).First(&row).Error
		switch {
		case err == nil:
			row.Quantity += quantity
			if req.Condition != nil {
				row.Condition = models.NormalizeCondition(string(*req.Condition))
			}
			if req.PurchasePrice != nil {
				row.PurchasePrice = req.PurchasePrice
			}
			return tx.Save(&row).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			row = models.CollectionCard{
				CollectionID:  collection.ID,
				CardID:        variant.CardID,
				VariantID:     variant.ID,
				Quantity:      quantity,
				Condition:     models.ConditionNearMint,
				PurchasePrice: req.PurchasePrice,
				PurchasedAt:   time.Now(),
			}
			if req.Condition != nil {
				row.Condition = models.NormalizeCondition(string(*req.Condition))
			}
			if row.PurchasePrice == nil {
				market, err := NewPriceService(tx).LatestMarketPrice(variant.ID)
				if err != nil {
					return err
				}
				row.PurchasePrice = market
			}
			return tx.Create(&row).Error
		default:
			return err
		}
	})
	metrics.CollectionMutationsTotal.WithLabelValues("add", metrics.Result(err)).Inc()
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Remove deletes a collection row outright.
func (s *CollectionService) Remove(ownerID string, rowID uint) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		row, err := ownedRow(tx, ownerID, rowID)
		if err != nil {
			return err
		}
		return tx.Delete(row).Error
	})
	metrics.CollectionMutationsTotal.WithLabelValues("remove", metrics.Result(err)).Inc()
	return err
}

// UpdateRow edits a row's quantity, condition or purchase price. A quantity
// of zero or less deletes the row and nil is returned.
func (s *CollectionService) UpdateRow(ownerID string, rowID uint, req models.UpdateCollectionRequest) (*models.CollectionCard, error) {
	var updated *models.CollectionCard
	err := s.db.Transaction(func(tx *gorm.DB) error {
		row, err := ownedRow(tx, ownerID, rowID)
		if err != nil {
			return err
		}
		if req.Quantity != nil && *req.Quantity <= 0 {
			return tx.Delete(row).Error
		}
		if req.Quantity != nil {
			row.Quantity = *req.Quantity
		}
		if req.Condition != nil {
			row.Condition = models.NormalizeCondition(string(*req.Condition))
		}
		if req.PurchasePrice != nil {
			row.PurchasePrice = req.PurchasePrice
		}
		if err := tx.Save(row).Error; err != nil {
			return err
		}
		updated = row
		return nil
	})
	metrics.CollectionMutationsTotal.WithLabelValues("update", metrics.Result(err)).Inc()
	return updated, err
}

func ownedRow(tx *gorm.DB, ownerID string, rowID uint) (*models.CollectionCard, error) {
	var row models.CollectionCard
	if err := tx.First(&row, rowID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("collection row %d: %w", rowID, ErrNotFound)
		}
		return nil, err
	}
	var collection models.Collection
	if err := tx.First(&collection, "id = ?", row.CollectionID).Error; err != nil {
		return nil, err
	}
	if collection.OwnerID != ownerID {
		return nil, fmt.Errorf("collection row %d: %w", rowID, ErrNotOwned)
	}
	return &row, nil
}

type collectionKey struct {
	CardID    string
	VariantID string
}

type pendingRow struct {
	quantity      int
	condition     models.Condition
	purchasePrice *float64
}

// BatchAdd adds every item it can resolve and returns the quantity added.
// Items without an explicit variant use the card's default variant; items
// whose card has no variant are skipped.
func (s *CollectionService) BatchAdd(ownerID string, items []models.BatchCollectionItem) (int, error) {
	var added int
	err := s.db.Transaction(func(tx *gorm.DB) error {
		collection, err := collectionFor(tx, ownerID)
		if err != nil {
			return err
		}
		resolved, err := resolveVariants(tx, items)
		if err != nil {
			return err
		}

		pending := make(map[collectionKey]*pendingRow)
		var order []collectionKey
		skipped := 0
		for i, item := range items {
			variantID, ok := resolved[i]
			if !ok {
				skipped++
				continue
			}
			quantity := item.Quantity
			if quantity <= 0 {
				quantity = 1
			}
			key := collectionKey{CardID: item.CardID, VariantID: variantID}
			p, ok := pending[key]
			if !ok {
				p = &pendingRow{}
				pending[key] = p
				order = append(order, key)
			}
			p.quantity += quantity
			if item.Condition != "" {
				p.condition = models.NormalizeCondition(string(item.Condition))
			}
			if item.PurchasePrice != nil {
				p.purchasePrice = item.PurchasePrice
			}
		}
		if skipped > 0 {
			log.Printf("Collection service: batch add skipped %d of %d items without a variant", skipped, len(items))
			metrics.BatchItemsSkipped.WithLabelValues("collection").Add(float64(skipped))
		}
		if len(order) == 0 {
			return nil
		}

		variantIDs := make([]string, 0, len(order))
		for _, key := range order {
			variantIDs = append(variantIDs, key.VariantID)
		}
		var existingRows []models.CollectionCard
		if err := tx.Where("collection_id = ? AND variant_id IN ?", collection.ID, variantIDs).Find(&existingRows).Error; err != nil {
			return err
		}
		existing := make(map[collectionKey]models.CollectionCard, len(existingRows))
		for _, row := range existingRows {
			existing[collectionKey{CardID: row.CardID, VariantID: row.VariantID}] = row
		}
		prices, err := NewPriceService(tx).MarketPrices(variantIDs)
		if err != nil {
			return err
		}

		now := time.Now()
		for _, key := range order {
			p := pending[key]
			if row, ok := existing[key]; ok {
				row.Quantity += p.quantity
				if p.condition != "" {
					row.Condition = p.condition
				}
				if p.purchasePrice != nil {
					row.PurchasePrice = p.purchasePrice
				}
				if err := tx.Save(&row).Error; err != nil {
					return err
				}
			} else {
				row := models.CollectionCard{
					CollectionID:  collection.ID,
					CardID:        key.CardID,
					VariantID:     key.VariantID,
					Quantity:      p.quantity,
					Condition:     p.condition,
					PurchasePrice: p.purchasePrice,
					PurchasedAt:   now,
				}
				if row.Condition == "" {
					row.Condition = models.ConditionNearMint
				}
				if row.PurchasePrice == nil {
					if market, ok := prices[key.VariantID]; ok {
						row.PurchasePrice = &market
					}
				}
				if err := tx.Create(&row).Error; err != nil {
					return err
				}
			}
			added += p.quantity
		}
		return nil
	})
	metrics.CollectionMutationsTotal.WithLabelValues("batch_add", metrics.Result(err)).Inc()
	if err != nil {
		return 0, err
	}
	return added, nil
}

// resolveVariants maps each item index to the variant it adds to. Items with
// no resolvable variant are left out.
func resolveVariants(tx *gorm.DB, items []models.BatchCollectionItem) (map[int]string, error) {
	cardIDs := make([]string, 0, len(items))
	var explicitIDs []string
	seen := make(map[string]bool)
	for _, item := range items {
		if item.VariantID != "" {
			explicitIDs = append(explicitIDs, item.VariantID)
			continue
		}
		if !seen[item.CardID] {
			seen[item.CardID] = true
			cardIDs = append(cardIDs, item.CardID)
		}
	}

	defaults := map[string]models.Variant{}
	if len(cardIDs) > 0 {
		var variants []models.Variant
		if err := tx.Where("card_id IN ?", cardIDs).Find(&variants).Error; err != nil {
			return nil, err
		}
		defaults = DefaultVariants(variants)
	}
	explicit := make(map[string]models.Variant)
	if len(explicitIDs) > 0 {
		var variants []models.Variant
		if err := tx.Where("id IN ?", explicitIDs).Find(&variants).Error; err != nil {
			return nil, err
		}
		for _, v := range variants {
			explicit[v.ID] = v
		}
	}

	resolved := make(map[int]string, len(items))
	for i, item := range items {
		if item.VariantID != "" {
			if v, ok := explicit[item.VariantID]; ok && v.CardID == item.CardID {
				resolved[i] = v.ID
			}
			continue
		}
		if v, ok := defaults[item.CardID]; ok {
			resolved[i] = v.ID
		}
	}
	return resolved, nil
}

// BatchRemove removes quantities per card, consuming the oldest rows first.
// A card with fewer copies than requested has all of them removed.
func (s *CollectionService) BatchRemove(ownerID string, items []models.BatchRemoveItem) (int, error) {
	var removed int
	err := s.db.Transaction(func(tx *gorm.DB) error {
		collection, err := collectionFor(tx, ownerID)
		if err != nil {
			return err
		}
		cardIDs := make([]string, 0, len(items))
		for _, item := range items {
			cardIDs = append(cardIDs, item.CardID)
		}
		var rows []models.CollectionCard
		if err := tx.Where("collection_id = ? AND card_id IN ?", collection.ID, cardIDs).
			Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
			return err
		}

		byCard := make(map[string][]*models.CollectionCard)
		for i := range rows {
			byCard[rows[i].CardID] = append(byCard[rows[i].CardID], &rows[i])
		}
		touched := make(map[uint]*models.CollectionCard)
		for _, item := range items {
			want := item.Quantity
			if want <= 0 {
				want = 1
			}
			for _, row := range byCard[item.CardID] {
				if want == 0 {
					break
				}
				if row.Quantity == 0 {
					continue
				}
				take := min(want, row.Quantity)
				row.Quantity -= take
				want -= take
				removed += take
				touched[row.ID] = row
			}
		}

		for i := range rows {
			row, ok := touched[rows[i].ID]
			if !ok {
				continue
			}
			if row.Quantity == 0 {
				if err := tx.Delete(row).Error; err != nil {
					return err
				}
				continue
			}
			if err := tx.Model(row).Update("quantity", row.Quantity).Error; err != nil {
				return err
			}
		}
		return nil
	})
	metrics.CollectionMutationsTotal.WithLabelValues("batch_remove", metrics.Result(err)).Inc()
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// Get returns the owner's rows with card, variant and latest market price.
func (s *CollectionService) Get(ownerID string) ([]models.CollectionCard, error) {
	collection, err := collectionFor(s.db, ownerID)
	if err != nil {
		return nil, err
	}
	return collectionRows(s.db, collection.ID)
}

func collectionRows(db *gorm.DB, collectionID string) ([]models.CollectionCard, error) {
	var rows []models.CollectionCard
	if err := db.Preload("Card").Preload("Variant").Preload("Variant.Set").
		Where("collection_id = ?", collectionID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	variantIDs := make([]string, 0, len(rows))
	for _, row := range rows {
		variantIDs = append(variantIDs, row.VariantID)
	}
	prices, err := NewPriceService(db).MarketPrices(variantIDs)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		if p, ok := prices[rows[i].VariantID]; ok {
			rows[i].MarketPrice = &p
		}
	}
	return rows, nil
}

// Stats summarizes the owner's collection at latest market prices.
func (s *CollectionService) Stats(ownerID string) (*models.CollectionStats, error) {
	collection, err := collectionFor(s.db, ownerID)
	if err != nil {
		return nil, err
	}
	rows, err := collectionRows(s.db, collection.ID)
	if err != nil {
		return nil, err
	}
	return summarize(rows), nil
}

func summarize(rows []models.CollectionCard) *models.CollectionStats {
	stats := &models.CollectionStats{ByType: make(map[models.CardType]int)}
	cards := make(map[string]bool)
	for _, row := range rows {
		stats.TotalCards += row.Quantity
		stats.UniqueVariants++
		cards[row.CardID] = true
		if row.MarketPrice != nil {
			stats.TotalValue += *row.MarketPrice * float64(row.Quantity)
		}
		if row.PurchasePrice != nil {
			stats.TotalCost += *row.PurchasePrice * float64(row.Quantity)
		}
		if row.Card != nil {
			stats.ByType[row.Card.Type] += row.Quantity
		}
	}
	stats.UniqueCards = len(cards)
	return stats
}

// OwnedCardIDs returns the set of card IDs the owner has at least one of.
func (s *CollectionService) OwnedCardIDs(ownerID string) (map[string]bool, error) {
	var ids []string
	err := s.db.Model(&models.CollectionCard{}).
		Joins("JOIN collections ON collections.id = collection_cards.collection_id").
		Where("collections.owner_id = ? AND collection_cards.quantity > 0", ownerID).
		Distinct().Pluck("collection_cards.card_id", &ids).Error
	if err != nil {
		return nil, err
	}
	owned := make(map[string]bool, len(ids))
	for _, id := range ids {
		owned[id] = true
	}
	return owned, nil
}

// RecordValueSnapshot stores today's value for a collection, replacing any
// snapshot already taken today.
func (s *CollectionService) RecordValueSnapshot(collectionID string, now time.Time) (*models.CollectionValueSnapshot, error) {
	rows, err := collectionRows(s.db, collectionID)
	if err != nil {
		return nil, err
	}
	stats := summarize(rows)
	snapshot := models.CollectionValueSnapshot{
		CollectionID: collectionID,
		SnapshotDate: now.UTC().Truncate(24 * time.Hour),
		TotalCards:   stats.TotalCards,
		UniqueCards:  stats.UniqueCards,
		TotalValue:   stats.TotalValue,
	}
	err = s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection_id"}, {Name: "snapshot_date"}},
		DoUpdates: clause.AssignmentColumns([]string{"total_cards", "unique_cards", "total_value"}),
	}).Create(&snapshot).Error
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// History returns the owner's value snapshots within period, oldest first.
func (s *CollectionService) History(ownerID, period string) (*models.ValueHistoryResponse, error) {
	collection, err := collectionFor(s.db, ownerID)
	if err != nil {
		return nil, err
	}

	query := s.db.Where("collection_id = ?", collection.ID)
	now := time.Now()
	switch period {
	case "week":
		query = query.Where("snapshot_date >= ?", now.AddDate(0, 0, -7))
	case "month":
		query = query.Where("snapshot_date >= ?", now.AddDate(0, -1, 0))
	case "year":
		query = query.Where("snapshot_date >= ?", now.AddDate(-1, 0, 0))
	case "all":
	default:
		return nil, invalid(fmt.Sprintf("Unknown period %q", period))
	}

	resp := &models.ValueHistoryResponse{Period: period, Snapshots: []models.CollectionValueSnapshot{}}
	if err := query.Order("snapshot_date ASC").Find(&resp.Snapshots).Error; err != nil {
		return nil, err
	}
	return resp, nil
}
