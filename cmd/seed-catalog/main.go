// seed-catalog loads a JSON card catalog export into the tracker database and
// can create an API user for local development.
//
// Usage: go run ./cmd/seed-catalog -catalog=catalog.json [-config=config.toml] [-user=<name>]
//
// The catalog file holds sets, cards (with their set memberships) and
// variants. Loading is an upsert, so the same export can be applied again
// after it changes. Running servers need POST /api/admin/catalog/reload to
// pick the changes up.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"

	"github.com/codyseavey/sorcery-tracker/internal/config"
	"github.com/codyseavey/sorcery-tracker/internal/database"
	"github.com/codyseavey/sorcery-tracker/internal/models"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to the TOML config file")
	catalogPath := flag.String("catalog", "", "path to the JSON catalog export")
	userName := flag.String("user", "", "create an API user with this name")
	flag.Parse()

	if *catalogPath == "" && *userName == "" {
		fmt.Fprintln(os.Stderr, "Usage: seed-catalog -catalog=<file> [-config=<file>] [-user=<name>]")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := database.Initialize(cfg.Database.Path, cfg.Database.LogLevel); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	db := database.GetDB()

	if *catalogPath != "" {
		f, err := os.Open(*catalogPath)
		if err != nil {
			log.Fatalf("Failed to open catalog: %v", err)
		}
		dump, err := ReadDump(f)
		f.Close()
		if err != nil {
			log.Fatalf("Failed to read catalog: %v", err)
		}
		result, err := Seed(db, dump)
		if err != nil {
			log.Fatalf("Failed to seed catalog: %v", err)
		}
		log.Printf("Seeded %d sets, %d cards, %d variants", result.Sets, result.Cards, result.Variants)
	}

	if *userName != "" {
		user := models.User{ID: uuid.NewString(), Name: *userName, APIToken: uuid.NewString()}
		if err := db.Create(&user).Error; err != nil {
			log.Fatalf("Failed to create user: %v", err)
		}
		fmt.Printf("Created user %s (%s)\nAPI token: %s\n", user.Name, user.ID, user.APIToken)
	}
}
