package services

import (
	"errors"
	"testing"
	"time"

	"github.com/codyseavey/sorcery-tracker/internal/models"
)

func TestPriceServiceRecordAndRead(t *testing.T) {
	db := setupTestDB(t)
	seedCatalog(t, db)
	svc := NewPriceService(db)

	old := time.Now().Add(-72 * time.Hour)
	if _, err := svc.RecordSnapshot(RecordPriceRequest{
		ExternalID: "tcgp-1001",
		VariantIDs: []string{"fb-std", "missing-variant"},
		Market:     floatPtr(0.75),
		RecordedAt: &old,
	}); err != nil {
		t.Fatalf("RecordSnapshot: %v", err)
	}

	prices, err := svc.PricesForVariant("fb-std", 10)
	if err != nil {
		t.Fatalf("PricesForVariant: %v", err)
	}
	if !prices.Stale || prices.Market == nil || *prices.Market != 0.75 {
		t.Errorf("prices = %+v", prices)
	}

	// A newer observation without a market value keeps the older market price
	if _, err := svc.RecordSnapshot(RecordPriceRequest{ExternalID: "tcgp-1001", Low: floatPtr(0.50)}); err != nil {
		t.Fatalf("second RecordSnapshot: %v", err)
	}
	prices, _ = svc.PricesForVariant("fb-std", 0)
	if len(prices.Snapshots) != 2 || prices.Stale {
		t.Errorf("snapshots = %d, stale = %v", len(prices.Snapshots), prices.Stale)
	}
	if prices.Latest == nil || prices.Latest.Low == nil || *prices.Latest.Low != 0.50 {
		t.Errorf("latest = %+v", prices.Latest)
	}
	market, err := svc.LatestMarketPrice("fb-std")
	if err != nil || market == nil || *market != 0.75 {
		t.Errorf("LatestMarketPrice = %v, %v", market, err)
	}

	var products int64
	db.Model(&models.PricingProduct{}).Count(&products)
	if products != 1 {
		t.Errorf("products = %d, want 1", products)
	}
}

func TestPriceServiceRejectsEmptyObservation(t *testing.T) {
	db := setupTestDB(t)
	svc := NewPriceService(db)

	var verr *ValidationError
	if _, err := svc.RecordSnapshot(RecordPriceRequest{ExternalID: "x"}); !errors.As(err, &verr) {
		t.Errorf("expected validation error, got %v", err)
	}
	if _, err := svc.RecordSnapshot(RecordPriceRequest{Market: floatPtr(1)}); !errors.As(err, &verr) {
		t.Errorf("expected validation error for missing external id, got %v", err)
	}
}

func TestPriceServiceUnpricedVariant(t *testing.T) {
	db := setupTestDB(t)
	seedCatalog(t, db)
	svc := NewPriceService(db)

	market, err := svc.LatestMarketPrice("aw-std")
	if err != nil || market != nil {
		t.Errorf("LatestMarketPrice = %v, %v; want nil, nil", market, err)
	}
	prices, err := svc.PricesForVariant("aw-std", 5)
	if err != nil || len(prices.Snapshots) != 0 || !prices.Stale {
		t.Errorf("PricesForVariant = %+v, %v", prices, err)
	}
	if _, err := svc.PricesForVariant("missing", 5); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing variant: %v", err)
	}
}
