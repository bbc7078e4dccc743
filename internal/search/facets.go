package search

import (
	"sort"
	"strings"
)

// FacetOption is one candidate value of a facet with the number of cards that
// would match if it were selected alongside every other active constraint.
type FacetOption struct {
	Value    string `json:"value"`
	Count    int    `json:"count"`
	Active   bool   `json:"active"`
	Disabled bool   `json:"disabled"`
}

// StripField removes field's tokens from every AND-group. A group left empty
// by the removal had no other constraint, so the whole query then matches
// everything and nil is returned.
func StripField(tokens []Token, field string) []Token {
	groups := Groups(tokens)
	var out []Token
	for _, group := range groups {
		kept := make([]Token, 0, len(group))
		for _, tok := range group {
			if tok.Kind == TokenField && tok.Field == field {
				continue
			}
			kept = append(kept, tok)
		}
		if len(kept) == 0 {
			return nil
		}
		if len(out) > 0 {
			out = append(out, Token{Kind: TokenOr})
		}
		out = append(out, kept...)
	}
	return out
}

// CountWithout returns the cards matching tokens once field's own constraints
// are removed. Every other field's constraints still apply.
func CountWithout(cards []Card, tokens []Token, field string) []Card {
	return Filter(cards, StripField(tokens, canonical(field)))
}

// OwnedOnly restricts cards to those whose ID is in owned.
func OwnedOnly(cards []Card, owned map[string]bool) []Card {
	out := make([]Card, 0, len(owned))
	for _, card := range cards {
		if owned[card.ID] {
			out = append(out, card)
		}
	}
	return out
}

// CardValues returns card's lowercase values for a multi-value field.
func CardValues(card Card, field string) []string {
	switch field {
	case FieldType:
		if card.Type == "" {
			return nil
		}
		return []string{strings.ToLower(card.Type)}
	case FieldRarity:
		if card.Rarity == "" {
			return nil
		}
		return []string{strings.ToLower(card.Rarity)}
	case FieldElement:
		return lowerAll(card.Elements)
	case FieldSet:
		return lowerAll(card.Sets)
	case FieldKeyword:
		return lowerAll(card.Keywords)
	case FieldSubtype:
		return lowerAll(card.SubTypes)
	}
	return nil
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, strings.ToLower(v))
		}
	}
	return out
}

// FacetValues returns the sorted distinct values of field across cards.
func FacetValues(cards []Card, field string) []string {
	seen := make(map[string]bool)
	var values []string
	for _, card := range cards {
		for _, v := range CardValues(card, field) {
			if !seen[v] {
				seen[v] = true
				values = append(values, v)
			}
		}
	}
	sort.Strings(values)
	return values
}

// FacetCounts counts, for each candidate, the cards that match the query with
// field's own constraints removed and that carry the candidate value.
// Zero-count candidates stay listed but are disabled unless already active.
func FacetCounts(cards []Card, tokens []Token, field string, candidates []string, active MultiFilter) []FacetOption {
	field = canonical(field)
	counts := make(map[string]int)
	for _, card := range CountWithout(cards, tokens, field) {
		seen := make(map[string]bool)
		for _, v := range CardValues(card, field) {
			if !seen[v] {
				seen[v] = true
				counts[v]++
			}
		}
	}

	options := make([]FacetOption, 0, len(candidates))
	for _, candidate := range candidates {
		isActive := active.Contains(candidate)
		count := counts[candidate]
		options = append(options, FacetOption{
			Value:    candidate,
			Count:    count,
			Active:   isActive,
			Disabled: count == 0 && !isActive,
		})
	}
	return options
}

// ComputeFacets builds the options for every multi-value field. Candidates
// are the values present in base plus any active value not found there, so a
// stale selection can always be deselected.
func ComputeFacets(base []Card, tokens []Token, filters ActiveFilters) map[string][]FacetOption {
	facets := make(map[string][]FacetOption, len(MultiFields))
	for _, field := range MultiFields {
		active := filters.Multi[field]
		candidates := FacetValues(base, field)
		for _, v := range active.Values {
			i := sort.SearchStrings(candidates, v)
			if i >= len(candidates) || candidates[i] != v {
				candidates = append(candidates, "")
				copy(candidates[i+1:], candidates[i:])
				candidates[i] = v
			}
		}
		facets[field] = FacetCounts(base, tokens, field, candidates, active)
	}
	return facets
}
