package services

import (
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/codyseavey/sorcery-tracker/internal/database"
	"github.com/codyseavey/sorcery-tracker/internal/models"
)

const (
	testOwner = "user-1"
	otherUser = "user-2"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenInMemory()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func mustCreate(t *testing.T, db *gorm.DB, value interface{}) {
	t.Helper()
	if err := db.Create(value).Error; err != nil {
		t.Fatalf("create %T: %v", value, err)
	}
}

// seedCatalog inserts a small catalog: two sets, one card of each type and
// rarity the tests need, and variants for some of them.
func seedCatalog(t *testing.T, db *gorm.DB) {
	t.Helper()
	alphaRelease := time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC)
	betaRelease := time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC)
	mustCreate(t, db, &models.Set{ID: 1, Slug: "alpha", Name: "Alpha", ReleasedAt: &alphaRelease})
	mustCreate(t, db, &models.Set{ID: 2, Slug: "beta", Name: "Beta", ReleasedAt: &betaRelease})

	cards := []models.Card{
		{ID: "sorcerer", Name: "Sorcerer", Type: models.CardTypeAvatar, Rarity: models.RarityUnique, Attack: intPtr(1), Life: intPtr(20)},
		{ID: "geomancer", Name: "Geomancer", Type: models.CardTypeAvatar, Rarity: models.RarityUnique, Attack: intPtr(1), Life: intPtr(20)},
		{ID: "spire", Name: "Spire", Type: models.CardTypeSite, Rarity: models.RarityOrdinary, Elements: []string{"Air"}, ThresholdAir: 1},
		{ID: "valley", Name: "Valley", Type: models.CardTypeSite, Rarity: models.RarityOrdinary, Elements: []string{"Earth"}, ThresholdEarth: 1},
		{ID: "death-dealer", Name: "Death Dealer", Type: models.CardTypeMinion, Rarity: models.RarityElite, Cost: intPtr(3), Attack: intPtr(4), Defence: intPtr(4), Elements: []string{"Fire"}, ThresholdFire: 2},
		{ID: "apprentice-wizard", Name: "Apprentice Wizard", Type: models.CardTypeMinion, Rarity: models.RarityOrdinary, Cost: intPtr(1), Attack: intPtr(1), Defence: intPtr(1), Elements: []string{"Air"}, Keywords: []string{"Spellcaster"}, ThresholdAir: 1},
		{ID: "fireball", Name: "Fireball", Type: models.CardTypeMagic, Rarity: models.RarityExceptional, Cost: intPtr(4), Elements: []string{"Fire"}, RulesText: "Deal 4 damage to target minion.", ThresholdFire: 2},
		{ID: "crown", Name: "Crown of the Victor", Type: models.CardTypeArtifact, Rarity: models.RarityUnique, Cost: intPtr(2)},
		{ID: "pebble", Name: "Pebble", Type: models.CardTypeArtifact, Cost: intPtr(0)},
	}
	for i := range cards {
		mustCreate(t, db, &cards[i])
	}

	for _, m := range []models.CardSet{
		{CardID: "sorcerer", SetID: 1}, {CardID: "geomancer", SetID: 1},
		{CardID: "spire", SetID: 1}, {CardID: "valley", SetID: 2},
		{CardID: "death-dealer", SetID: 1}, {CardID: "apprentice-wizard", SetID: 1},
		{CardID: "fireball", SetID: 1}, {CardID: "crown", SetID: 2}, {CardID: "pebble", SetID: 2},
	} {
		m := m
		mustCreate(t, db, &m)
	}

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	variants := []models.Variant{
		// Foil created first so default resolution can't rely on creation order alone
		{ID: "dd-foil", CardID: "death-dealer", SetID: 1, Finish: "Foil", Product: "Booster", CreatedAt: base},
		{ID: "dd-std", CardID: "death-dealer", SetID: 1, Finish: "Standard", Product: "Booster", CreatedAt: base.Add(time.Hour)},
		{ID: "dd-std-box", CardID: "death-dealer", SetID: 1, Finish: "Standard", Product: "Box Topper", CreatedAt: base.Add(2 * time.Hour)},
		{ID: "fb-std", CardID: "fireball", SetID: 1, Finish: "Standard", Product: "Booster", CreatedAt: base},
		{ID: "aw-std", CardID: "apprentice-wizard", SetID: 1, Finish: "Standard", Product: "Booster", CreatedAt: base},
		{ID: "spire-std", CardID: "spire", SetID: 1, Finish: "Standard", Product: "Booster", CreatedAt: base},
	}
	for i := range variants {
		mustCreate(t, db, &variants[i])
	}
}

// seedPrice links variantID to a new pricing product with one market snapshot.
func seedPrice(t *testing.T, db *gorm.DB, variantID string, market float64, recordedAt time.Time) {
	t.Helper()
	product := models.PricingProduct{ExternalID: "ext-" + variantID}
	if err := db.Where(models.PricingProduct{ExternalID: product.ExternalID}).FirstOrCreate(&product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	mustCreate(t, db, &models.PriceSnapshot{ProductID: product.ID, Market: floatPtr(market), RecordedAt: recordedAt})
	if err := db.Model(&models.Variant{}).Where("id = ?", variantID).Update("pricing_product_id", product.ID).Error; err != nil {
		t.Fatalf("link product: %v", err)
	}
}
