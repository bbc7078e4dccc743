package importer

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/codyseavey/sorcery-tracker/internal/models"
)

// DeckLine is one card line of a decklist.
type DeckLine struct {
	Line     int
	Quantity int
	Name     string
	Set      string
	Section  models.Section
}

var (
	// "2x Death Dealer (Alpha)", "2 Death Dealer", "Death Dealer"
	deckLineRe = regexp.MustCompile(`^(?:(\d+)\s*[xX]?\s+)?(.+?)(?:\s+\(([^()]+)\))?$`)
	// "Spellbook", "Atlas:", "Sideboard (10)", "Atlas (30):"
	sectionHeaderRe = regexp.MustCompile(`^(?i)(avatar|atlas|spellbook|sideboard)\s*:?\s*(?:\(\d+\))?\s*:?$`)
)

// ParseDecklist reads decklist text. Section header lines set the section of
// the lines after them; lines before any header leave Section empty so it is
// derived from the card type.
func ParseDecklist(text string) ([]DeckLine, []Problem) {
	var lines []DeckLine
	var problems []Problem
	var section models.Section

	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}
		if m := sectionHeaderRe.FindStringSubmatch(line); m != nil {
			section = models.Section(strings.ToLower(m[1]))
			continue
		}

		m := deckLineRe.FindStringSubmatch(line)
		if m == nil {
			problems = append(problems, Problem{Line: i + 1, Message: fmt.Sprintf("could not parse %q", line)})
			continue
		}
		quantity := 1
		if m[1] != "" {
			n, err := strconv.Atoi(m[1])
			if err != nil || n <= 0 {
				problems = append(problems, Problem{Line: i + 1, Message: fmt.Sprintf("invalid quantity %q", m[1])})
				continue
			}
			quantity = n
		}
		lines = append(lines, DeckLine{
			Line:     i + 1,
			Quantity: quantity,
			Name:     strings.TrimSpace(m[2]),
			Set:      strings.TrimSpace(m[3]),
			Section:  section,
		})
	}
	return lines, problems
}

// DeckBatch resolves decklist lines to batch items, reporting unknown cards.
func DeckBatch(lines []DeckLine, resolver Resolver) ([]models.BatchDeckItem, []Problem) {
	items := make([]models.BatchDeckItem, 0, len(lines))
	var problems []Problem
	for _, line := range lines {
		card, ok := resolver.ResolveName(line.Name)
		if !ok {
			problems = append(problems, Problem{Line: line.Line, Message: fmt.Sprintf("unknown card %q", line.Name)})
			continue
		}
		items = append(items, models.BatchDeckItem{CardID: card.ID, Quantity: line.Quantity, Section: line.Section})
	}
	return items, problems
}

// FormatDecklist renders a deck grouped by section in the import format.
// Cells need Card loaded; the set shown is the card's earliest loaded set.
func FormatDecklist(cells []models.DeckCard) string {
	bySection := make(map[models.Section][]models.DeckCard)
	for _, cell := range cells {
		bySection[cell.Section] = append(bySection[cell.Section], cell)
	}

	var b strings.Builder
	for _, section := range models.AllSections() {
		group := bySection[section]
		if len(group) == 0 {
			continue
		}
		sort.Slice(group, func(i, j int) bool {
			return cellName(group[i]) < cellName(group[j])
		})
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		total := 0
		for _, cell := range group {
			total += cell.Quantity
		}
		fmt.Fprintf(&b, "%s (%d)\n", sectionTitle(section), total)
		for _, cell := range group {
			fmt.Fprintf(&b, "%dx %s", cell.Quantity, cellName(cell))
			if set := cellSet(cell); set != "" {
				fmt.Fprintf(&b, " (%s)", set)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func sectionTitle(section models.Section) string {
	s := string(section)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func cellName(cell models.DeckCard) string {
	if cell.Card == nil {
		return cell.CardID
	}
	return cell.Card.Name
}

func cellSet(cell models.DeckCard) string {
	if cell.Card == nil || len(cell.Card.Sets) == 0 {
		return ""
	}
	earliest := cell.Card.Sets[0].Set
	for _, m := range cell.Card.Sets[1:] {
		if m.Set.ReleasedAt != nil && (earliest.ReleasedAt == nil || m.Set.ReleasedAt.Before(*earliest.ReleasedAt)) {
			earliest = m.Set
		}
	}
	return earliest.Name
}
