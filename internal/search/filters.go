package search

import (
	"strconv"
	"strings"
)

// Mode is how a multi-value field combines its selected values.
type Mode string

const (
	ModeAny  Mode = "any"
	ModeAll  Mode = "all"
	ModeNone Mode = "none"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeAny || m == ModeAll || m == ModeNone
}

var (
	// MultiFields are the discrete facets, in display order.
	MultiFields = []string{FieldElement, FieldType, FieldRarity, FieldSet, FieldSubtype, FieldKeyword}
	// RangeFields take an optional {min, max}.
	RangeFields = []string{FieldCost, FieldAttack, FieldDefence, FieldLife}
	// ThresholdFields take an optional {comparator, value}.
	ThresholdFields = []string{FieldAir, FieldEarth, FieldFire, FieldWater}
)

func isMultiField(field string) bool {
	for _, f := range MultiFields {
		if f == field {
			return true
		}
	}
	return false
}

func isRangeField(field string) bool {
	for _, f := range RangeFields {
		if f == field {
			return true
		}
	}
	return false
}

type MultiFilter struct {
	Mode   Mode     `json:"mode"`
	Values []string `json:"values"`
}

// Contains reports whether value (case-insensitive) is selected.
func (m MultiFilter) Contains(value string) bool {
	value = strings.ToLower(value)
	for _, v := range m.Values {
		if v == value {
			return true
		}
	}
	return false
}

type Range struct {
	Min *int `json:"min,omitempty"`
	Max *int `json:"max,omitempty"`
}

type Threshold struct {
	Comparator Comparator `json:"comparator"`
	Value      int        `json:"value"`
}

// ActiveFilters is the structured form of a query's field constraints. Multi
// always has an entry for every multi-value field; Ranges and Thresholds only
// hold fields that are constrained.
type ActiveFilters struct {
	Multi      map[string]MultiFilter `json:"multi"`
	Ranges     map[string]Range       `json:"ranges"`
	Thresholds map[string]Threshold   `json:"thresholds"`
}

// Count returns the number of active constraints across all fields.
func (f ActiveFilters) Count() int {
	n := len(f.Ranges) + len(f.Thresholds)
	for _, m := range f.Multi {
		n += len(m.Values)
	}
	return n
}

// ExtractFilters derives the structured filter state from tokens. Positive
// tokens for a field take precedence over negated ones: one positive token is
// mode any (its comma list), several are mode all (even when they repeat the
// same value), and only-negated is mode none.
func ExtractFilters(tokens []Token) ActiveFilters {
	filters := ActiveFilters{
		Multi:      make(map[string]MultiFilter, len(MultiFields)),
		Ranges:     make(map[string]Range),
		Thresholds: make(map[string]Threshold),
	}

	type collected struct {
		posTokens int
		pos       []string
		neg       []string
	}
	multi := make(map[string]*collected)
	for _, f := range MultiFields {
		multi[f] = &collected{}
	}

	for _, tok := range tokens {
		if tok.Kind != TokenField {
			continue
		}
		switch {
		case isMultiField(tok.Field):
			c := multi[tok.Field]
			if tok.Negated {
				c.neg = appendUnique(c.neg, tok.Values()...)
			} else {
				c.posTokens++
				c.pos = appendUnique(c.pos, tok.Values()...)
			}
		case isRangeField(tok.Field):
			if tok.Negated || !tok.HasOperand() {
				continue
			}
			filters.Ranges[tok.Field] = narrowRange(filters.Ranges[tok.Field], tok.Op, tok.Operand)
		case IsNumericField(tok.Field):
			if tok.Negated || !tok.HasOperand() {
				continue
			}
			filters.Thresholds[tok.Field] = Threshold{Comparator: tok.Op, Value: tok.Operand}
		}
	}

	for _, f := range MultiFields {
		c := multi[f]
		switch {
		case c.posTokens > 1:
			filters.Multi[f] = MultiFilter{Mode: ModeAll, Values: c.pos}
		case c.posTokens == 1:
			filters.Multi[f] = MultiFilter{Mode: ModeAny, Values: c.pos}
		case len(c.neg) > 0:
			filters.Multi[f] = MultiFilter{Mode: ModeNone, Values: c.neg}
		default:
			filters.Multi[f] = MultiFilter{Mode: ModeAny, Values: []string{}}
		}
	}

	return filters
}

func narrowRange(r Range, op Comparator, operand int) Range {
	raiseMin := func(v int) {
		if r.Min == nil || v > *r.Min {
			r.Min = &v
		}
	}
	lowerMax := func(v int) {
		if r.Max == nil || v < *r.Max {
			r.Max = &v
		}
	}
	switch op {
	case CompareEq:
		raiseMin(operand)
		lowerMax(operand)
	case CompareGte:
		raiseMin(operand)
	case CompareGt:
		raiseMin(operand + 1)
	case CompareLte:
		lowerMax(operand)
	case CompareLt:
		lowerMax(operand - 1)
	}
	return r
}

func appendUnique(list []string, values ...string) []string {
	for _, v := range values {
		found := false
		for _, existing := range list {
			if existing == v {
				found = true
				break
			}
		}
		if !found {
			list = append(list, v)
		}
	}
	return list
}

// ToggleFieldValue adds value to field's selection, or removes it if already
// selected, and re-encodes the field using mode. An empty mode keeps the
// field's current mode.
func ToggleFieldValue(query, field, value string, mode Mode) string {
	field = canonical(field)
	value = strings.ToLower(strings.TrimSpace(value))
	if !isMultiField(field) || value == "" {
		return query
	}

	current := ExtractFilters(Tokenize(query)).Multi[field]
	if !mode.Valid() {
		mode = current.Mode
	}

	values := make([]string, 0, len(current.Values)+1)
	removed := false
	for _, v := range current.Values {
		if v == value {
			removed = true
			continue
		}
		values = append(values, v)
	}
	if !removed {
		values = append(values, value)
	}

	return rewriteField(query, field, encodeMulti(field, values, mode))
}

// SetFieldMode re-encodes field's current selection under mode. A field with
// no values has no tokens to carry a mode, so the query is returned unchanged;
// pass the mode with the first ToggleFieldValue instead.
func SetFieldMode(query, field string, mode Mode) string {
	field = canonical(field)
	if !isMultiField(field) || !mode.Valid() {
		return query
	}
	current := ExtractFilters(Tokenize(query)).Multi[field]
	if len(current.Values) == 0 {
		return query
	}
	return rewriteField(query, field, encodeMulti(field, current.Values, mode))
}

// SetFieldRange replaces field's numeric range. Nil bounds are open; both nil
// clears the field.
func SetFieldRange(query, field string, minValue, maxValue *int) string {
	field = canonical(field)
	if !isRangeField(field) {
		return query
	}

	var toks []Token
	switch {
	case minValue != nil && maxValue != nil && *minValue == *maxValue:
		toks = append(toks, Token{Kind: TokenField, Field: field, Op: CompareEq, Operand: *minValue})
	default:
		if minValue != nil {
			toks = append(toks, Token{Kind: TokenField, Field: field, Op: CompareGte, Operand: *minValue})
		}
		if maxValue != nil {
			toks = append(toks, Token{Kind: TokenField, Field: field, Op: CompareLte, Operand: *maxValue})
		}
	}
	return rewriteField(query, field, toks)
}

// SetFieldNumeric replaces a threshold field's comparison. A nil value clears it.
func SetFieldNumeric(query, field string, cmp Comparator, value *int) string {
	field = canonical(field)
	if !IsNumericField(field) || isRangeField(field) {
		return query
	}
	if value == nil || cmp == CompareNone {
		return rewriteField(query, field, nil)
	}
	return rewriteField(query, field, []Token{{Kind: TokenField, Field: field, Op: cmp, Operand: *value}})
}

// ClearAllFields drops every field token, keeping free text and phrases.
func ClearAllFields(query string) string {
	var kept []Token
	for _, tok := range Tokenize(query) {
		if tok.Kind != TokenField {
			kept = append(kept, tok)
		}
	}
	return Serialize(tidyOr(kept))
}

func canonical(field string) string {
	if f, ok := ResolveField(field); ok {
		return f
	}
	return strings.ToLower(field)
}

func encodeMulti(field string, values []string, mode Mode) []Token {
	if len(values) == 0 {
		return nil
	}
	switch mode {
	case ModeAll:
		toks := make([]Token, 0, len(values)+1)
		for _, v := range values {
			toks = append(toks, Token{Kind: TokenField, Field: field, Value: v})
		}
		// One value would read back as mode any; repeating it keeps two
		// positive tokens and matches the same cards.
		if len(toks) == 1 {
			toks = append(toks, toks[0])
		}
		return toks
	case ModeNone:
		toks := make([]Token, 0, len(values))
		for _, v := range values {
			toks = append(toks, Token{Kind: TokenField, Field: field, Value: v, Negated: true})
		}
		return toks
	default:
		return []Token{{Kind: TokenField, Field: field, Value: strings.Join(values, ",")}}
	}
}

// rewriteField removes field's tokens from query and appends replacement.
func rewriteField(query, field string, replacement []Token) string {
	var kept []Token
	for _, tok := range Tokenize(query) {
		if tok.Kind == TokenField && tok.Field == field {
			continue
		}
		kept = append(kept, tok)
	}
	kept = tidyOr(kept)
	return Serialize(append(kept, replacement...))
}

// tidyOr drops leading, trailing and repeated OR tokens.
func tidyOr(tokens []Token) []Token {
	out := make([]Token, 0, len(tokens))
	for _, tok := range tokens {
		if tok.Kind == TokenOr && (len(out) == 0 || out[len(out)-1].Kind == TokenOr) {
			continue
		}
		out = append(out, tok)
	}
	if len(out) > 0 && out[len(out)-1].Kind == TokenOr {
		out = out[:len(out)-1]
	}
	return out
}

// Serialize renders tokens back into query syntax that Tokenize reads as the
// same tokens.
func Serialize(tokens []Token) string {
	parts := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		var b strings.Builder
		if tok.Negated && tok.Kind != TokenOr {
			b.WriteByte('-')
		}
		switch tok.Kind {
		case TokenOr:
			b.WriteString("OR")
		case TokenPhrase:
			b.WriteByte('"')
			b.WriteString(tok.Value)
			b.WriteByte('"')
		case TokenField:
			b.WriteString(tok.Field)
			b.WriteByte(':')
			b.WriteString(encodeFieldValue(tok))
		default:
			b.WriteString(tok.Value)
		}
		parts = append(parts, b.String())
	}
	return strings.Join(parts, " ")
}

func encodeFieldValue(tok Token) string {
	if IsNumericField(tok.Field) {
		if !tok.HasOperand() {
			return tok.Value
		}
		return comparatorPrefix(tok.Op) + strconv.Itoa(tok.Operand)
	}
	values := tok.Values()
	for i, v := range values {
		if strings.ContainsAny(v, " \t") {
			values[i] = `"` + v + `"`
		}
	}
	return strings.Join(values, ",")
}

func comparatorPrefix(op Comparator) string {
	switch op {
	case CompareGt:
		return ">"
	case CompareGte:
		return ">="
	case CompareLt:
		return "<"
	case CompareLte:
		return "<="
	}
	return ""
}
