package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codyseavey/sorcery-tracker/internal/models"
)

// Dump is the JSON catalog format produced by the card data export.
type Dump struct {
	Sets     []DumpSet     `json:"sets"`
	Cards    []DumpCard    `json:"cards"`
	Variants []DumpVariant `json:"variants"`
}

type DumpSet struct {
	Slug       string `json:"slug"`
	Name       string `json:"name"`
	ReleasedAt string `json:"released_at"` // YYYY-MM-DD
}

type DumpThresholds struct {
	Air   int `json:"air"`
	Earth int `json:"earth"`
	Fire  int `json:"fire"`
	Water int `json:"water"`
}

// DumpMembership is a card's appearance in a set with any per-set overrides.
type DumpMembership struct {
	Set       string           `json:"set"`
	Type      *models.CardType `json:"type,omitempty"`
	Rarity    *models.Rarity   `json:"rarity,omitempty"`
	RulesText *string          `json:"rules_text,omitempty"`
	Cost      *int             `json:"cost,omitempty"`
	Attack    *int             `json:"attack,omitempty"`
	Defence   *int             `json:"defence,omitempty"`
	Life      *int             `json:"life,omitempty"`
}

type DumpCard struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Type       models.CardType  `json:"type"`
	Rarity     models.Rarity    `json:"rarity"`
	RulesText  string           `json:"rules_text"`
	Cost       *int             `json:"cost"`
	Attack     *int             `json:"attack"`
	Defence    *int             `json:"defence"`
	Life       *int             `json:"life"`
	Elements   []string         `json:"elements"`
	Keywords   []string         `json:"keywords"`
	SubTypes   []string         `json:"sub_types"`
	Thresholds DumpThresholds   `json:"thresholds"`
	Sets       []DumpMembership `json:"sets"`
}

type DumpVariant struct {
	ID         string `json:"id"`
	CardID     string `json:"card_id"`
	Set        string `json:"set"`
	Finish     string `json:"finish"`
	Product    string `json:"product"`
	Artist     string `json:"artist"`
	FlavorText string `json:"flavor_text"`
	ImageURL   string `json:"image_url"`
}

type SeedResult struct {
	Sets     int
	Cards    int
	Variants int
}

func ReadDump(r io.Reader) (*Dump, error) {
	var dump Dump
	if err := json.NewDecoder(r).Decode(&dump); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return &dump, nil
}

// Seed upserts the dump in one transaction. Running it twice with the same
// dump leaves the database unchanged.
func Seed(db *gorm.DB, dump *Dump) (*SeedResult, error) {
	result := &SeedResult{}
	err := db.Transaction(func(tx *gorm.DB) error {
		setIDs := make(map[string]uint, len(dump.Sets))
		for _, ds := range dump.Sets {
			set := models.Set{Slug: ds.Slug, Name: ds.Name}
			if ds.ReleasedAt != "" {
				released, err := time.Parse("2006-01-02", ds.ReleasedAt)
				if err != nil {
					return fmt.Errorf("set %s: released_at: %w", ds.Slug, err)
				}
				set.ReleasedAt = &released
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "slug"}},
				DoUpdates: clause.AssignmentColumns([]string{"name", "released_at"}),
			}).Create(&set).Error
			if err != nil {
				return fmt.Errorf("set %s: %w", ds.Slug, err)
			}
			// The upsert doesn't report the existing row's ID on conflict
			if err := tx.Where("slug = ?", ds.Slug).First(&set).Error; err != nil {
				return err
			}
			setIDs[ds.Slug] = set.ID
			result.Sets++
		}

		for _, dc := range dump.Cards {
			card := models.Card{
				ID:             dc.ID,
				Name:           dc.Name,
				Type:           dc.Type,
				Rarity:         dc.Rarity,
				RulesText:      dc.RulesText,
				Cost:           dc.Cost,
				Attack:         dc.Attack,
				Defence:        dc.Defence,
				Life:           dc.Life,
				Elements:       dc.Elements,
				Keywords:       dc.Keywords,
				SubTypes:       dc.SubTypes,
				ThresholdAir:   dc.Thresholds.Air,
				ThresholdEarth: dc.Thresholds.Earth,
				ThresholdFire:  dc.Thresholds.Fire,
				ThresholdWater: dc.Thresholds.Water,
			}
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Omit("Sets").Create(&card).Error; err != nil {
				return fmt.Errorf("card %s: %w", dc.ID, err)
			}

			for _, m := range dc.Sets {
				setID, ok := setIDs[m.Set]
				if !ok {
					return fmt.Errorf("card %s: unknown set %q", dc.ID, m.Set)
				}
				membership := models.CardSet{
					CardID:    dc.ID,
					SetID:     setID,
					Type:      m.Type,
					Rarity:    m.Rarity,
					RulesText: m.RulesText,
					Cost:      m.Cost,
					Attack:    m.Attack,
					Defence:   m.Defence,
					Life:      m.Life,
				}
				err := tx.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "card_id"}, {Name: "set_id"}},
					DoUpdates: clause.AssignmentColumns([]string{"type", "rarity", "rules_text", "cost", "attack", "defence", "life"}),
				}).Create(&membership).Error
				if err != nil {
					return fmt.Errorf("card %s in %s: %w", dc.ID, m.Set, err)
				}
			}
			result.Cards++
		}

		for _, dv := range dump.Variants {
			setID, ok := setIDs[dv.Set]
			if !ok {
				return fmt.Errorf("variant %s: unknown set %q", dv.ID, dv.Set)
			}
			finish := dv.Finish
			if finish == "" {
				finish = "Standard"
			}
			variant := models.Variant{
				ID:         dv.ID,
				CardID:     dv.CardID,
				SetID:      setID,
				Finish:     finish,
				Product:    dv.Product,
				Artist:     dv.Artist,
				FlavorText: dv.FlavorText,
				ImageURL:   dv.ImageURL,
			}
			// Pricing links and creation time belong to the existing row
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{"card_id", "set_id", "finish", "product", "artist", "flavor_text", "image_url"}),
			}).Omit("Set", "PricingProduct").Create(&variant).Error
			if err != nil {
				return fmt.Errorf("variant %s: %w", dv.ID, err)
			}
			result.Variants++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
