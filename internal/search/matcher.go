package search

import (
	"strings"
)

// Thresholds are a card's elemental threshold requirements.
type Thresholds struct {
	Air   int `json:"air"`
	Earth int `json:"earth"`
	Fire  int `json:"fire"`
	Water int `json:"water"`
}

// Card is the read-only view of a catalog card that queries run against.
// Nil numeric attributes never satisfy a numeric comparison.
type Card struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Type       string     `json:"type"`
	Rarity     string     `json:"rarity,omitempty"`
	RulesText  string     `json:"rules_text,omitempty"`
	Cost       *int       `json:"cost"`
	Attack     *int       `json:"attack"`
	Defence    *int       `json:"defence"`
	Life       *int       `json:"life"`
	Elements   []string   `json:"elements"`
	Keywords   []string   `json:"keywords"`
	SubTypes   []string   `json:"sub_types"`
	Thresholds Thresholds `json:"thresholds"`
	Sets       []string   `json:"sets"`
}

// Groups partitions tokens into AND-groups separated by OR tokens. Empty
// groups are dropped.
func Groups(tokens []Token) [][]Token {
	var groups [][]Token
	var current []Token
	for _, tok := range tokens {
		if tok.Kind == TokenOr {
			if len(current) > 0 {
				groups = append(groups, current)
			}
			current = nil
			continue
		}
		current = append(current, tok)
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

// MatchesTokens reports whether card satisfies every token of at least one
// AND-group. An empty query matches every card.
func MatchesTokens(card Card, tokens []Token) bool {
	groups := Groups(tokens)
	if len(groups) == 0 {
		return true
	}

	var text string
	for _, group := range groups {
		ok := true
		for _, tok := range group {
			var matched bool
			if tok.Kind == TokenText || tok.Kind == TokenPhrase {
				if text == "" {
					text = searchText(card)
				}
				matched = strings.Contains(text, strings.ToLower(tok.Value))
			} else {
				matched = matchField(card, tok)
			}
			if matched == tok.Negated {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

// Filter returns the cards matching tokens, preserving input order.
func Filter(cards []Card, tokens []Token) []Card {
	out := make([]Card, 0, len(cards))
	for _, card := range cards {
		if MatchesTokens(card, tokens) {
			out = append(out, card)
		}
	}
	return out
}

func searchText(card Card) string {
	parts := make([]string, 0, 4+len(card.SubTypes)+len(card.Keywords))
	parts = append(parts, card.Name, card.RulesText, card.Type)
	parts = append(parts, card.SubTypes...)
	parts = append(parts, card.Keywords...)
	return strings.ToLower(strings.Join(parts, "\n"))
}

func matchField(card Card, tok Token) bool {
	if IsNumericField(tok.Field) {
		if !tok.HasOperand() {
			return false
		}
		value, ok := numericValue(card, tok.Field)
		if !ok {
			return false
		}
		return compare(value, tok.Op, tok.Operand)
	}

	for _, want := range tok.Values() {
		if matchValue(card, tok.Field, want) {
			return true
		}
	}
	return false
}

// matchValue tests a single lowercase value against a multi-value field.
func matchValue(card Card, field, want string) bool {
	switch field {
	case FieldType:
		return strings.ToLower(card.Type) == want
	case FieldRarity:
		return card.Rarity != "" && strings.ToLower(card.Rarity) == want
	case FieldElement:
		for _, el := range card.Elements {
			if strings.ToLower(el) == want {
				return true
			}
		}
	case FieldSet:
		for _, slug := range card.Sets {
			slug = strings.ToLower(slug)
			if slug == want || strings.Contains(slug, want) {
				return true
			}
		}
	case FieldKeyword:
		return containsAny(card.Keywords, want)
	case FieldSubtype:
		return containsAny(card.SubTypes, want)
	}
	return false
}

func containsAny(list []string, want string) bool {
	for _, entry := range list {
		if strings.Contains(strings.ToLower(entry), want) {
			return true
		}
	}
	return false
}

func numericValue(card Card, field string) (int, bool) {
	var ptr *int
	switch field {
	case FieldCost:
		ptr = card.Cost
	case FieldAttack:
		ptr = card.Attack
	case FieldDefence:
		ptr = card.Defence
	case FieldLife:
		ptr = card.Life
	case FieldAir:
		return card.Thresholds.Air, true
	case FieldEarth:
		return card.Thresholds.Earth, true
	case FieldFire:
		return card.Thresholds.Fire, true
	case FieldWater:
		return card.Thresholds.Water, true
	}
	if ptr == nil {
		return 0, false
	}
	return *ptr, true
}

func compare(value int, op Comparator, operand int) bool {
	switch op {
	case CompareEq:
		return value == operand
	case CompareGt:
		return value > operand
	case CompareGte:
		return value >= operand
	case CompareLt:
		return value < operand
	case CompareLte:
		return value <= operand
	}
	return false
}
