package search

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected []Token
	}{
		{
			name:     "empty query",
			query:    "",
			expected: nil,
		},
		{
			name:     "whitespace only",
			query:    "   \t ",
			expected: nil,
		},
		{
			name:  "plain words",
			query: "death dealer",
			expected: []Token{
				{Kind: TokenText, Value: "death"},
				{Kind: TokenText, Value: "dealer"},
			},
		},
		{
			name:  "phrase keeps inner spaces",
			query: `"death dealer" wizard`,
			expected: []Token{
				{Kind: TokenPhrase, Value: "death dealer"},
				{Kind: TokenText, Value: "wizard"},
			},
		},
		{
			name:  "unterminated quote falls back to a word",
			query: `"death dealer`,
			expected: []Token{
				{Kind: TokenText, Value: `"death`},
				{Kind: TokenText, Value: "dealer"},
			},
		},
		{
			name:  "negated word and phrase",
			query: `-wizard -"deal damage"`,
			expected: []Token{
				{Kind: TokenText, Value: "wizard", Negated: true},
				{Kind: TokenPhrase, Value: "deal damage", Negated: true},
			},
		},
		{
			name:     "lone dash is text",
			query:    "-",
			expected: []Token{{Kind: TokenText, Value: "-"}},
		},
		{
			name:  "OR is case-insensitive",
			query: "fire or water",
			expected: []Token{
				{Kind: TokenText, Value: "fire"},
				{Kind: TokenOr},
				{Kind: TokenText, Value: "water"},
			},
		},
		{
			name:     "negated OR is text",
			query:    "-OR",
			expected: []Token{{Kind: TokenText, Value: "OR", Negated: true}},
		},
		{
			name:  "field aliases resolve",
			query: "t:Minion el:Fire tribe:Beast kw:Airborne",
			expected: []Token{
				{Kind: TokenField, Field: FieldType, Value: "minion"},
				{Kind: TokenField, Field: FieldElement, Value: "fire"},
				{Kind: TokenField, Field: FieldSubtype, Value: "beast"},
				{Kind: TokenField, Field: FieldKeyword, Value: "airborne"},
			},
		},
		{
			name:     "unknown alias is text",
			query:    "color:red",
			expected: []Token{{Kind: TokenText, Value: "color:red"}},
		},
		{
			name:     "empty field value is text",
			query:    "type:",
			expected: []Token{{Kind: TokenText, Value: "type:"}},
		},
		{
			name:  "numeric comparators",
			query: "atk:>3 cost:<=2 def:>=1 hp:<20 mana:4",
			expected: []Token{
				{Kind: TokenField, Field: FieldAttack, Value: ">3", Op: CompareGt, Operand: 3},
				{Kind: TokenField, Field: FieldCost, Value: "<=2", Op: CompareLte, Operand: 2},
				{Kind: TokenField, Field: FieldDefence, Value: ">=1", Op: CompareGte, Operand: 1},
				{Kind: TokenField, Field: FieldLife, Value: "<20", Op: CompareLt, Operand: 20},
				{Kind: TokenField, Field: FieldCost, Value: "4", Op: CompareEq, Operand: 4},
			},
		},
		{
			name:     "unparseable numeric keeps field without operator",
			query:    "cost:>abc",
			expected: []Token{{Kind: TokenField, Field: FieldCost, Value: ">abc"}},
		},
		{
			name:     "threshold field",
			query:    "fire:>=2",
			expected: []Token{{Kind: TokenField, Field: FieldFire, Value: ">=2", Op: CompareGte, Operand: 2}},
		},
		{
			name:     "negated field",
			query:    "-rarity:Unique",
			expected: []Token{{Kind: TokenField, Field: FieldRarity, Value: "unique", Negated: true}},
		},
		{
			name:     "quoted field value",
			query:    `kw:"First Strike" x`,
			expected: []Token{{Kind: TokenField, Field: FieldKeyword, Value: "first strike"}, {Kind: TokenText, Value: "x"}},
		},
		{
			name:     "comma list with quoted entry",
			query:    `kw:lethal,"first strike"`,
			expected: []Token{{Kind: TokenField, Field: FieldKeyword, Value: "lethal,first strike"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Tokenize(tt.query)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("Tokenize(%q)\n got: %+v\nwant: %+v", tt.query, result, tt.expected)
			}
		})
	}
}

func TestTokenizeIsDeterministic(t *testing.T) {
	queries := []string{
		`type:minion atk:>3 "deal damage" -fire OR set:alpha`,
		`"unterminated -x: y:z OR OR`,
		`-- - "" ::: cost:>=`,
	}
	for _, q := range queries {
		first := Tokenize(q)
		second := Tokenize(q)
		if !reflect.DeepEqual(first, second) {
			t.Errorf("Tokenize(%q) not deterministic", q)
		}
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	queries := []string{
		`type:minion atk:>3`,
		`"death dealer" -wizard OR element:fire,water`,
		`kw:"first strike" -rarity:unique cost:<=2`,
		`--dash fire:>=1 cost:>abc`,
	}
	for _, q := range queries {
		t.Run(q, func(t *testing.T) {
			tokens := Tokenize(q)
			again := Tokenize(Serialize(tokens))
			if !reflect.DeepEqual(tokens, again) {
				t.Errorf("round trip changed tokens\n got: %+v\nwant: %+v", again, tokens)
			}
		})
	}
}
