package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/codyseavey/sorcery-tracker/internal/models"
)

const (
	// PriceStalenessThreshold is how old a price can be before it's considered stale
	PriceStalenessThreshold = 24 * time.Hour
)

// PriceService reads and records market price snapshots for variants.
type PriceService struct {
	db *gorm.DB
}

func NewPriceService(db *gorm.DB) *PriceService {
	return &PriceService{db: db}
}

// RecordPriceRequest is one observed price for an external product. Variants
// listed in VariantIDs are linked to the product.
type RecordPriceRequest struct {
	ExternalID string     `json:"external_id" binding:"required"`
	VariantIDs []string   `json:"variant_ids"`
	Market     *float64   `json:"market"`
	Low        *float64   `json:"low"`
	Median     *float64   `json:"median"`
	Source     string     `json:"source"`
	RecordedAt *time.Time `json:"recorded_at"`
}

// VariantPrices is a variant's price history, newest first.
type VariantPrices struct {
	VariantID string                 `json:"variant_id"`
	Latest    *models.PriceSnapshot  `json:"latest"`
	Market    *float64               `json:"market"`
	Stale     bool                   `json:"stale"`
	Snapshots []models.PriceSnapshot `json:"snapshots"`
}

// LatestMarketPrice returns the variant's latest known market price, or nil
// when it has none.
func (s *PriceService) LatestMarketPrice(variantID string) (*float64, error) {
	prices, err := marketPrices(s.db, []string{variantID})
	if err != nil {
		return nil, err
	}
	if p, ok := prices[variantID]; ok {
		return &p, nil
	}
	return nil, nil
}

// MarketPrices returns the latest market price of every listed variant that has one.
func (s *PriceService) MarketPrices(variantIDs []string) (map[string]float64, error) {
	return marketPrices(s.db, variantIDs)
}

// PricesForVariant returns up to limit snapshots for a variant's pricing product.
func (s *PriceService) PricesForVariant(variantID string, limit int) (*VariantPrices, error) {
	var variant models.Variant
	if err := s.db.First(&variant, "id = ?", variantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("variant %s: %w", variantID, ErrNotFound)
		}
		return nil, err
	}

	result := &VariantPrices{VariantID: variant.ID, Snapshots: []models.PriceSnapshot{}}
	if variant.PricingProductID == nil {
		return result, nil
	}

	query := s.db.Where("product_id = ?", *variant.PricingProductID).Order("recorded_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&result.Snapshots).Error; err != nil {
		return nil, err
	}
	result.Latest = models.LatestSnapshot(result.Snapshots)
	result.Market = models.LatestMarket(result.Snapshots)
	result.Stale = result.Latest == nil || !s.isFresh(&result.Latest.RecordedAt)
	return result, nil
}

// RecordSnapshot stores one price observation, creating the pricing product
// on first sight.
func (s *PriceService) RecordSnapshot(req RecordPriceRequest) (*models.PriceSnapshot, error) {
	externalID := strings.TrimSpace(req.ExternalID)
	if externalID == "" {
		return nil, invalid("external_id is required")
	}
	if req.Market == nil && req.Low == nil && req.Median == nil {
		return nil, invalid("at least one of market, low or median is required")
	}

	snapshot := models.PriceSnapshot{
		Market:     req.Market,
		Low:        req.Low,
		Median:     req.Median,
		Source:     req.Source,
		RecordedAt: time.Now(),
	}
	if req.RecordedAt != nil {
		snapshot.RecordedAt = *req.RecordedAt
	}
	if snapshot.Source == "" {
		snapshot.Source = "manual"
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var product models.PricingProduct
		if err := tx.Where(models.PricingProduct{ExternalID: externalID}).FirstOrCreate(&product).Error; err != nil {
			return err
		}
		snapshot.ProductID = product.ID
		if err := tx.Create(&snapshot).Error; err != nil {
			return err
		}
		if len(req.VariantIDs) > 0 {
			result := tx.Model(&models.Variant{}).Where("id IN ?", req.VariantIDs).Update("pricing_product_id", product.ID)
			if result.Error != nil {
				return result.Error
			}
			if int(result.RowsAffected) < len(req.VariantIDs) {
				log.Printf("Price service: %d of %d variants for product %s not found", len(req.VariantIDs)-int(result.RowsAffected), len(req.VariantIDs), externalID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// isFresh checks if a price update time is within the staleness threshold
func (s *PriceService) isFresh(updatedAt *time.Time) bool {
	if updatedAt == nil {
		return false
	}
	return time.Since(*updatedAt) < PriceStalenessThreshold
}

// marketPrices looks up latest market prices through db. Callers inside a
// transaction build a PriceService over their tx.
func marketPrices(db *gorm.DB, variantIDs []string) (map[string]float64, error) {
	prices := make(map[string]float64)
	if len(variantIDs) == 0 {
		return prices, nil
	}

	var variants []models.Variant
	if err := db.Select("id", "pricing_product_id").
		Where("id IN ? AND pricing_product_id IS NOT NULL", variantIDs).
		Find(&variants).Error; err != nil {
		return nil, err
	}
	if len(variants) == 0 {
		return prices, nil
	}

	productIDs := make([]uint, 0, len(variants))
	for _, v := range variants {
		productIDs = append(productIDs, *v.PricingProductID)
	}
	var snapshots []models.PriceSnapshot
	if err := db.Where("product_id IN ? AND market IS NOT NULL", productIDs).Find(&snapshots).Error; err != nil {
		return nil, err
	}

	byProduct := make(map[uint][]models.PriceSnapshot)
	for _, snap := range snapshots {
		byProduct[snap.ProductID] = append(byProduct[snap.ProductID], snap)
	}
	for _, v := range variants {
		if market := models.LatestMarket(byProduct[*v.PricingProductID]); market != nil {
			prices[v.ID] = *market
		}
	}
	return prices, nil
}
