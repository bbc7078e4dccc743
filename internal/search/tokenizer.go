// Package search implements the card query language: tokenizing free-text
// queries, matching tokens against cards, facet counting, and converting
// between query strings and structured filter state.
//
// Everything here is pure and synchronous. Functions never fail on malformed
// input; unparseable fragments become plain text or inert field tokens.
package search

import (
	"strconv"
	"strings"
)

type TokenKind int

const (
	TokenText TokenKind = iota
	TokenPhrase
	TokenField
	TokenOr
)

func (k TokenKind) String() string {
	switch k {
	case TokenText:
		return "text"
	case TokenPhrase:
		return "phrase"
	case TokenField:
		return "field"
	case TokenOr:
		return "or"
	default:
		return "unknown"
	}
}

// Comparator is a numeric field operator. CompareNone means the token carried
// no parseable operand and matches nothing.
type Comparator string

const (
	CompareNone Comparator = ""
	CompareEq   Comparator = "eq"
	CompareGt   Comparator = "gt"
	CompareGte  Comparator = "gte"
	CompareLt   Comparator = "lt"
	CompareLte  Comparator = "lte"
)

// Canonical field names
const (
	FieldType    = "type"
	FieldElement = "element"
	FieldRarity  = "rarity"
	FieldSet     = "set"
	FieldKeyword = "keyword"
	FieldSubtype = "subtype"
	FieldCost    = "cost"
	FieldAttack  = "attack"
	FieldDefence = "defence"
	FieldLife    = "life"
	FieldAir     = "air"
	FieldEarth   = "earth"
	FieldFire    = "fire"
	FieldWater   = "water"
)

var fieldAliases = map[string]string{
	"t":               FieldType,
	"type":            FieldType,
	"e":               FieldElement,
	"el":              FieldElement,
	"element":         FieldElement,
	"r":               FieldRarity,
	"rarity":          FieldRarity,
	"s":               FieldSet,
	"set":             FieldSet,
	"k":               FieldKeyword,
	"kw":              FieldKeyword,
	"keyword":         FieldKeyword,
	"st":              FieldSubtype,
	"sub":             FieldSubtype,
	"tribe":           FieldSubtype,
	"subtype":         FieldSubtype,
	"c":               FieldCost,
	"cost":            FieldCost,
	"mana":            FieldCost,
	"atk":             FieldAttack,
	"pow":             FieldAttack,
	"power":           FieldAttack,
	"attack":          FieldAttack,
	"d":               FieldDefence,
	"def":             FieldDefence,
	"defence":         FieldDefence,
	"defense":         FieldDefence,
	"l":               FieldLife,
	"hp":              FieldLife,
	"life":            FieldLife,
	"air":             FieldAir,
	"threshold-air":   FieldAir,
	"earth":           FieldEarth,
	"threshold-earth": FieldEarth,
	"fire":            FieldFire,
	"threshold-fire":  FieldFire,
	"water":           FieldWater,
	"threshold-water": FieldWater,
}

var numericFields = map[string]bool{
	FieldCost:    true,
	FieldAttack:  true,
	FieldDefence: true,
	FieldLife:    true,
	FieldAir:     true,
	FieldEarth:   true,
	FieldFire:    true,
	FieldWater:   true,
}

// ResolveField maps a field alias to its canonical name.
func ResolveField(alias string) (string, bool) {
	field, ok := fieldAliases[strings.ToLower(alias)]
	return field, ok
}

// IsNumericField reports whether field takes a comparator and integer operand.
func IsNumericField(field string) bool {
	return numericFields[field]
}

// Token is one unit of a parsed query. Field tokens carry a canonical field
// name; numeric field tokens additionally carry Op and Operand when the value
// parsed. Multi-value field values are lowercase, comma-separated alternatives.
type Token struct {
	Kind    TokenKind  `json:"kind"`
	Negated bool       `json:"negated,omitempty"`
	Field   string     `json:"field,omitempty"`
	Value   string     `json:"value,omitempty"`
	Op      Comparator `json:"op,omitempty"`
	Operand int        `json:"operand,omitempty"`
}

// HasOperand reports whether a numeric field token parsed successfully.
func (t Token) HasOperand() bool {
	return t.Op != CompareNone
}

// Values splits a multi-value field token into its alternatives.
func (t Token) Values() []string {
	var out []string
	for _, part := range strings.Split(t.Value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Tokenize parses a query string. It is total: every input yields a token
// list, possibly empty.
func Tokenize(query string) []Token {
	var tokens []Token
	n := len(query)
	i := 0

	for i < n {
		if isSpace(query[i]) {
			i++
			continue
		}

		negated := false
		if query[i] == '-' && i+1 < n && !isSpace(query[i+1]) {
			negated = true
			i++
		}

		if query[i] == '"' {
			if end := strings.IndexByte(query[i+1:], '"'); end >= 0 {
				value := query[i+1 : i+1+end]
				i += end + 2
				if value != "" {
					tokens = append(tokens, Token{Kind: TokenPhrase, Negated: negated, Value: value})
				}
				continue
			}
			// Unterminated quote: read it as part of a plain word
		}

		j := scanWord(query, i)
		tokens = append(tokens, parseWord(query[i:j], negated))
		i = j
	}

	return tokens
}

// scanWord returns the end of the word starting at i. A quote directly after
// a field colon or list comma extends the word to the closing quote.
func scanWord(s string, i int) int {
	j := i
	for j < len(s) && !isSpace(s[j]) {
		if s[j] == '"' && j > i && (s[j-1] == ':' || s[j-1] == ',') {
			if end := strings.IndexByte(s[j+1:], '"'); end >= 0 {
				j += end + 2
				continue
			}
		}
		j++
	}
	return j
}

func parseWord(word string, negated bool) Token {
	if !negated && strings.EqualFold(word, "OR") {
		return Token{Kind: TokenOr}
	}

	if idx := strings.IndexByte(word, ':'); idx > 0 {
		if field, ok := ResolveField(word[:idx]); ok {
			if tok, ok := fieldToken(field, word[idx+1:], negated); ok {
				return tok
			}
		}
	}

	return Token{Kind: TokenText, Negated: negated, Value: word}
}

func fieldToken(field, raw string, negated bool) (Token, bool) {
	if IsNumericField(field) {
		value := unquote(raw)
		if value == "" {
			return Token{}, false
		}
		tok := Token{Kind: TokenField, Negated: negated, Field: field, Value: value}
		if op, operand, ok := parseComparator(value); ok {
			tok.Op = op
			tok.Operand = operand
		}
		return tok, true
	}

	var parts []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.ToLower(strings.TrimSpace(unquote(part))); part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return Token{}, false
	}
	return Token{Kind: TokenField, Negated: negated, Field: field, Value: strings.Join(parts, ",")}, true
}

// Longest prefixes first so ">=" isn't read as ">".
var comparatorPrefixes = []struct {
	prefix string
	op     Comparator
}{
	{">=", CompareGte},
	{"<=", CompareLte},
	{">", CompareGt},
	{"<", CompareLt},
	{"=", CompareEq},
}

func parseComparator(value string) (Comparator, int, bool) {
	op := CompareEq
	rest := value
	for _, p := range comparatorPrefixes {
		if strings.HasPrefix(value, p.prefix) {
			op = p.op
			rest = value[len(p.prefix):]
			break
		}
	}
	n, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil {
		return CompareNone, 0, false
	}
	return op, n, true
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == '\v'
}
