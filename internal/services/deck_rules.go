package services

import (
	"fmt"
	"sort"

	"github.com/codyseavey/sorcery-tracker/internal/models"
)

// Section capacities
const (
	AvatarCapacity    = 1
	AtlasCapacity     = 30
	SpellbookCapacity = 60
	SideboardCapacity = 10
)

// SectionCapacity returns the maximum total quantity a section may hold.
func SectionCapacity(section models.Section) int {
	switch section {
	case models.SectionAvatar:
		return AvatarCapacity
	case models.SectionAtlas:
		return AtlasCapacity
	case models.SectionSpellbook:
		return SpellbookCapacity
	case models.SectionSideboard:
		return SideboardCapacity
	}
	return 0
}

// CopyLimit returns how many copies of a card of the given rarity one section
// may hold. Cards without a recorded rarity count as Ordinary.
func CopyLimit(rarity models.Rarity) int {
	switch rarity {
	case models.RarityElite:
		return 2
	case models.RarityUnique:
		return 1
	default:
		return 4
	}
}

// DefaultSection is the section a card goes to when none is given.
func DefaultSection(cardType models.CardType) models.Section {
	switch cardType {
	case models.CardTypeAvatar:
		return models.SectionAvatar
	case models.CardTypeSite:
		return models.SectionAtlas
	default:
		return models.SectionSpellbook
	}
}

// SectionLabel is the display name of a section.
func SectionLabel(section models.Section) string {
	switch section {
	case models.SectionAvatar:
		return "Avatar"
	case models.SectionAtlas:
		return "Atlas"
	case models.SectionSpellbook:
		return "Spellbook"
	case models.SectionSideboard:
		return "Sideboard"
	}
	return string(section)
}

// CheckSection reports whether a card of cardType may be placed in section.
func CheckSection(cardType models.CardType, section models.Section) error {
	switch section {
	case models.SectionAvatar:
		if cardType != models.CardTypeAvatar {
			return invalid("Only Avatar cards can be in the Avatar slot")
		}
	case models.SectionAtlas:
		if cardType != models.CardTypeSite {
			return invalid("Only Site cards can be in the Atlas")
		}
	case models.SectionSpellbook:
		if cardType == models.CardTypeAvatar || cardType == models.CardTypeSite {
			return invalid("Avatar and Site cards cannot be in the Spellbook")
		}
	case models.SectionSideboard:
		if cardType == models.CardTypeAvatar {
			return invalid("Avatar cards cannot be in the Sideboard")
		}
	default:
		return invalid(fmt.Sprintf("Unknown section %q", section))
	}
	return nil
}

func rarityLabel(rarity models.Rarity) string {
	if rarity == "" {
		return string(models.RarityOrdinary)
	}
	return string(rarity)
}

type cellKey struct {
	CardID  string
	Section models.Section
}

// DeckPlan is an in-memory copy of a deck's cells used to check and stage
// mutations. Every change is applied to the running totals so later checks
// see earlier ones.
type DeckPlan struct {
	cells     map[cellKey]int
	original  map[cellKey]int
	totals    map[models.Section]int
	avatar    string
	installed bool
}

// NewDeckPlan snapshots the given deck rows.
func NewDeckPlan(rows []models.DeckCard) *DeckPlan {
	p := &DeckPlan{
		cells:    make(map[cellKey]int, len(rows)),
		original: make(map[cellKey]int, len(rows)),
		totals:   make(map[models.Section]int),
	}
	for _, row := range rows {
		key := cellKey{CardID: row.CardID, Section: row.Section}
		p.cells[key] += row.Quantity
		p.original[key] += row.Quantity
		p.totals[row.Section] += row.Quantity
		if row.Section == models.SectionAvatar {
			p.avatar = row.CardID
		}
	}
	return p
}

// Quantity returns the staged quantity of a cell.
func (p *DeckPlan) Quantity(cardID string, section models.Section) int {
	return p.cells[cellKey{CardID: cardID, Section: section}]
}

// Total returns the staged total quantity of a section.
func (p *DeckPlan) Total(section models.Section) int {
	return p.totals[section]
}

// Avatar returns the staged avatar card ID, or "" when there is none.
func (p *DeckPlan) Avatar() string {
	return p.avatar
}

// CheckAdd validates adding one copy of card to section.
func (p *DeckPlan) CheckAdd(card models.Card, section models.Section) error {
	if err := CheckSection(card.Type, section); err != nil {
		return err
	}
	if section == models.SectionAvatar {
		return nil
	}
	if capacity := SectionCapacity(section); p.totals[section] >= capacity {
		return invalid(fmt.Sprintf("%s is full (%d cards)", SectionLabel(section), capacity))
	}
	if limit := CopyLimit(card.Rarity); p.Quantity(card.ID, section) >= limit {
		return invalid(fmt.Sprintf("Max %d copies of %s cards", limit, rarityLabel(card.Rarity)))
	}
	return nil
}

// Appliable returns how many of the requested copies fit, limited by the
// card's copy limit and the section's remaining capacity.
func (p *DeckPlan) Appliable(card models.Card, section models.Section, requested int) int {
	n := requested
	if room := CopyLimit(card.Rarity) - p.Quantity(card.ID, section); room < n {
		n = room
	}
	if room := SectionCapacity(section) - p.totals[section]; room < n {
		n = room
	}
	if n < 0 {
		return 0
	}
	return n
}

// Add stages n more copies of a non-avatar cell.
func (p *DeckPlan) Add(cardID string, section models.Section, n int) {
	p.cells[cellKey{CardID: cardID, Section: section}] += n
	p.totals[section] += n
}

// SetAvatar stages cardID as the deck's only avatar. It reports false when
// cardID already is the avatar.
func (p *DeckPlan) SetAvatar(cardID string) bool {
	if p.avatar == cardID {
		return false
	}
	if p.avatar != "" {
		delete(p.cells, cellKey{CardID: p.avatar, Section: models.SectionAvatar})
	}
	p.cells[cellKey{CardID: cardID, Section: models.SectionAvatar}] = 1
	p.totals[models.SectionAvatar] = 1
	p.avatar = cardID
	return true
}

// AddBatch stages a batch against the plan in input order and returns the
// quantity actually added. Items naming an unknown card, an incompatible
// section or no remaining room are skipped. Only the first avatar item that
// changes the avatar is applied.
func (p *DeckPlan) AddBatch(items []models.BatchDeckItem, cards map[string]models.Card) (added, skipped int) {
	for _, item := range items {
		card, ok := cards[item.CardID]
		if !ok {
			skipped++
			continue
		}
		section := item.Section
		if section == "" {
			section = DefaultSection(card.Type)
		}
		if err := CheckSection(card.Type, section); err != nil {
			skipped++
			continue
		}
		requested := item.Quantity
		if requested <= 0 {
			requested = 1
		}

		if section == models.SectionAvatar {
			if card.ID == p.avatar {
				continue
			}
			if p.installed {
				skipped++
				continue
			}
			p.SetAvatar(card.ID)
			p.installed = true
			added++
			continue
		}

		n := p.Appliable(card, section, requested)
		if n <= 0 {
			skipped++
			continue
		}
		p.Add(card.ID, section, n)
		added += n
	}
	return added, skipped
}

// CellChange is the staged end state of one cell. Quantity 0 means delete.
type CellChange struct {
	CardID   string
	Section  models.Section
	Quantity int
	Existed  bool
}

// Changes lists every cell whose staged quantity differs from the snapshot,
// ordered so deletions come first.
func (p *DeckPlan) Changes() []CellChange {
	var changes []CellChange
	for key, before := range p.original {
		if after := p.cells[key]; after != before {
			changes = append(changes, CellChange{CardID: key.CardID, Section: key.Section, Quantity: after, Existed: true})
		}
	}
	for key, after := range p.cells {
		if _, ok := p.original[key]; !ok && after > 0 {
			changes = append(changes, CellChange{CardID: key.CardID, Section: key.Section, Quantity: after})
		}
	}
	sort.Slice(changes, func(i, j int) bool {
		if (changes[i].Quantity == 0) != (changes[j].Quantity == 0) {
			return changes[i].Quantity == 0
		}
		if changes[i].Section != changes[j].Section {
			return changes[i].Section < changes[j].Section
		}
		return changes[i].CardID < changes[j].CardID
	})
	return changes
}

// Problems checks a deck's rows against every deck rule and returns
// display-ready descriptions of what is wrong or incomplete.
func Problems(rows []models.DeckCard) []string {
	problems := []string{}
	totals := make(map[models.Section]int)
	avatars := 0
	for _, row := range rows {
		totals[row.Section] += row.Quantity
		if row.Section == models.SectionAvatar {
			avatars++
		}
		if row.Card == nil {
			continue
		}
		card := row.Card.Effective()
		if err := CheckSection(card.Type, row.Section); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %s", card.Name, err))
		}
		if limit := CopyLimit(card.Rarity); row.Section != models.SectionAvatar && row.Quantity > limit {
			problems = append(problems, fmt.Sprintf("%s: Max %d copies of %s cards", card.Name, limit, rarityLabel(card.Rarity)))
		}
	}

	switch {
	case avatars == 0:
		problems = append(problems, "Deck has no Avatar")
	case avatars > 1:
		problems = append(problems, fmt.Sprintf("Deck has %d Avatars", avatars))
	}
	for _, section := range []models.Section{models.SectionAtlas, models.SectionSpellbook, models.SectionSideboard} {
		total, capacity := totals[section], SectionCapacity(section)
		switch {
		case total > capacity:
			problems = append(problems, fmt.Sprintf("%s is over capacity (%d of %d cards)", SectionLabel(section), total, capacity))
		case total < capacity && section != models.SectionSideboard:
			problems = append(problems, fmt.Sprintf("%s has %d of %d cards", SectionLabel(section), total, capacity))
		}
	}
	return problems
}
