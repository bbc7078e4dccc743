package database

import (
	"log"

	"gorm.io/gorm"
)

// RunMigrations runs any custom data migrations after schema changes
func RunMigrations(db *gorm.DB) error {
	if err := backfillVariantFinish(db); err != nil {
		return err
	}
	if err := backfillCollectionCondition(db); err != nil {
		return err
	}
	return nil
}

// backfillVariantFinish gives variants imported before finish was tracked the
// Standard finish. Safe to run repeatedly.
func backfillVariantFinish(db *gorm.DB) error {
	result := db.Exec(`UPDATE variants SET finish = 'Standard' WHERE finish IS NULL OR finish = ''`)
	if result.Error != nil {
		log.Printf("Warning: failed to backfill variant finish: %v", result.Error)
		return nil
	}
	if result.RowsAffected > 0 {
		log.Printf("Migrated %d variants to Standard finish", result.RowsAffected)
	}
	return nil
}

// backfillCollectionCondition sets Near Mint on rows saved without a condition
// and copies created_at into purchased_at where it was never recorded.
func backfillCollectionCondition(db *gorm.DB) error {
	result := db.Exec(`UPDATE collection_cards SET condition = 'NM' WHERE condition IS NULL OR condition = ''`)
	if result.Error != nil {
		log.Printf("Warning: failed to backfill collection conditions: %v", result.Error)
	} else if result.RowsAffected > 0 {
		log.Printf("Migrated %d collection rows to NM condition", result.RowsAffected)
	}

	if db.Migrator().HasColumn("collection_cards", "purchased_at") {
		db.Exec(`UPDATE collection_cards SET purchased_at = created_at WHERE purchased_at IS NULL OR purchased_at < '1900-01-01'`)
	}
	return nil
}
