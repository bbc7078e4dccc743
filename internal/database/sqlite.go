package database

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/codyseavey/sorcery-tracker/internal/models"
)

var DB *gorm.DB

// Initialize opens the application database, migrates it and stores it in DB.
func Initialize(dbPath, logLevel string) error {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := Open(dbPath, logLevel)
	if err != nil {
		return err
	}

	log.Println("Database connected successfully")

	if err := Migrate(db); err != nil {
		return err
	}

	log.Println("Database migration completed")
	DB = db
	return nil
}

// Open connects to a SQLite database without migrating it.
func Open(dsn, logLevel string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(parseLogLevel(logLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite serializes writers; a single connection keeps transactions from
	// tripping over "database is locked".
	sqlDB.SetMaxOpenConns(1)

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates every table and then runs data migrations.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Set{},
		&models.Card{},
		&models.CardSet{},
		&models.PricingProduct{},
		&models.PriceSnapshot{},
		&models.Variant{},
		&models.Deck{},
		&models.DeckCard{},
		&models.Collection{},
		&models.CollectionCard{},
		&models.CollectionValueSnapshot{},
	)
	if err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return RunMigrations(db)
}

// OpenInMemory opens a private, migrated in-memory database.
func OpenInMemory() (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := Open(dsn, "silent")
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func GetDB() *gorm.DB {
	return DB
}

func parseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
