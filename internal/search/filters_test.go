package search

import (
	"reflect"
	"testing"
)

func TestExtractFilters(t *testing.T) {
	filters := ExtractFilters(Tokenize(`type:minion,magic e:fire e:water -rarity:unique -rarity:elite cost:>=2 cost:<5 atk:3 fire:>1 goblin`))

	if got := filters.Multi[FieldType]; got.Mode != ModeAny || !reflect.DeepEqual(got.Values, []string{"minion", "magic"}) {
		t.Errorf("type filter = %+v", got)
	}
	if got := filters.Multi[FieldElement]; got.Mode != ModeAll || !reflect.DeepEqual(got.Values, []string{"fire", "water"}) {
		t.Errorf("element filter = %+v", got)
	}
	if got := filters.Multi[FieldRarity]; got.Mode != ModeNone || !reflect.DeepEqual(got.Values, []string{"unique", "elite"}) {
		t.Errorf("rarity filter = %+v", got)
	}
	if got := filters.Multi[FieldSet]; got.Mode != ModeAny || len(got.Values) != 0 {
		t.Errorf("set filter should be empty, got %+v", got)
	}

	cost := filters.Ranges[FieldCost]
	if cost.Min == nil || *cost.Min != 2 || cost.Max == nil || *cost.Max != 4 {
		t.Errorf("cost range = %+v", cost)
	}
	attack := filters.Ranges[FieldAttack]
	if attack.Min == nil || *attack.Min != 3 || attack.Max == nil || *attack.Max != 3 {
		t.Errorf("attack range = %+v", attack)
	}
	if _, ok := filters.Ranges[FieldDefence]; ok {
		t.Error("defence should be unconstrained")
	}
	if got := filters.Thresholds[FieldFire]; got != (Threshold{Comparator: CompareGt, Value: 1}) {
		t.Errorf("fire threshold = %+v", got)
	}
	if filters.Count() != 2+2+2+2+1 {
		t.Errorf("Count() = %d", filters.Count())
	}
}

func TestToggleFieldValue(t *testing.T) {
	queries := []string{
		"",
		"goblin",
		`"deal damage" type:magic`,
		"type:minion,site cost:>=2",
		"-type:aura OR fire",
		"element:fire element:water",
	}
	modes := []Mode{ModeAny, ModeAll, ModeNone}

	for _, q := range queries {
		for _, mode := range modes {
			on := ToggleFieldValue(q, "type", "Minion", mode)
			filters := ExtractFilters(Tokenize(on))
			typeFilter := filters.Multi[FieldType]

			alreadyOn := ExtractFilters(Tokenize(q)).Multi[FieldType].Contains("minion")
			if alreadyOn == typeFilter.Contains("minion") {
				t.Errorf("ToggleFieldValue(%q, type, minion, %s) = %q; selection not flipped", q, mode, on)
			}

			back := ToggleFieldValue(on, "type", "minion", mode)
			if ExtractFilters(Tokenize(back)).Multi[FieldType].Contains("minion") != alreadyOn {
				t.Errorf("toggling twice from %q did not restore selection (got %q)", q, back)
			}
		}
	}
}

func TestToggleFieldValuePreservesOtherFields(t *testing.T) {
	q := `"deal damage" e:fire cost:>=2 -rarity:unique`
	out := ToggleFieldValue(q, "type", "minion", ModeAny)
	before := ExtractFilters(Tokenize(q))
	after := ExtractFilters(Tokenize(out))

	for _, field := range []string{FieldElement, FieldRarity} {
		if !reflect.DeepEqual(before.Multi[field], after.Multi[field]) {
			t.Errorf("field %s changed: %+v -> %+v", field, before.Multi[field], after.Multi[field])
		}
	}
	if !reflect.DeepEqual(before.Ranges, after.Ranges) {
		t.Errorf("ranges changed: %+v -> %+v", before.Ranges, after.Ranges)
	}
	tokens := Tokenize(out)
	if tokens[0].Kind != TokenPhrase || tokens[0].Value != "deal damage" {
		t.Errorf("phrase lost: %q", out)
	}
}

func TestModeRoundTrip(t *testing.T) {
	q := ""
	q = ToggleFieldValue(q, "element", "fire", ModeAny)
	q = ToggleFieldValue(q, "element", "water", ModeAny)

	for _, mode := range []Mode{ModeAll, ModeNone, ModeAny} {
		q = SetFieldMode(q, "element", mode)
		got := ExtractFilters(Tokenize(q)).Multi[FieldElement]
		if got.Mode != mode {
			t.Errorf("after SetFieldMode(%s) query %q extracted mode %s", mode, q, got.Mode)
		}
		if !reflect.DeepEqual(got.Values, []string{"fire", "water"}) {
			t.Errorf("values changed under mode %s: %v", mode, got.Values)
		}
	}

	// Adding a third value keeps the chosen mode
	q = SetFieldMode(q, "element", ModeNone)
	q = ToggleFieldValue(q, "element", "air", "")
	got := ExtractFilters(Tokenize(q)).Multi[FieldElement]
	if got.Mode != ModeNone || len(got.Values) != 3 {
		t.Errorf("expected 3 values in none mode, got %+v from %q", got, q)
	}
}

func TestModeEncodingMatchesSemantics(t *testing.T) {
	cards := testCards()
	q := ToggleFieldValue("", "element", "air", ModeAll)
	q = ToggleFieldValue(q, "element", "water", ModeAll)
	if got := names(Filter(cards, Tokenize(q))); !reflect.DeepEqual(got, []string{"Spire"}) {
		t.Errorf("all mode %q matched %v", q, got)
	}

	q = SetFieldMode(q, "element", ModeAny)
	if got := names(Filter(cards, Tokenize(q))); !reflect.DeepEqual(got, []string{"Apprentice Wizard", "Spire"}) {
		t.Errorf("any mode %q matched %v", q, got)
	}

	q = SetFieldMode(q, "element", ModeNone)
	if got := names(Filter(cards, Tokenize(q))); !reflect.DeepEqual(got, []string{"Death Dealer", "Fireball", "Sorcerer"}) {
		t.Errorf("none mode %q matched %v", q, got)
	}
}

func TestSingleValueKeepsAllMode(t *testing.T) {
	cards := testCards()

	t.Run("toggle off and on under all", func(t *testing.T) {
		q0 := "element:fire element:water"
		q1 := ToggleFieldValue(q0, "element", "water", "")
		if got := ExtractFilters(Tokenize(q1)).Multi[FieldElement]; got.Mode != ModeAll || !reflect.DeepEqual(got.Values, []string{"fire"}) {
			t.Fatalf("after removing water %q extracted %+v", q1, got)
		}
		if got, want := names(Filter(cards, Tokenize(q1))), names(Filter(cards, Tokenize("element:fire"))); !reflect.DeepEqual(got, want) {
			t.Errorf("single all value %q matched %v, want %v", q1, got, want)
		}

		q2 := ToggleFieldValue(q1, "element", "water", "")
		got := ExtractFilters(Tokenize(q2)).Multi[FieldElement]
		if got.Mode != ModeAll || !reflect.DeepEqual(got.Values, []string{"fire", "water"}) {
			t.Errorf("after re-adding water %q extracted %+v", q2, got)
		}
		if a, b := names(Filter(cards, Tokenize(q2))), names(Filter(cards, Tokenize(q0))); !reflect.DeepEqual(a, b) {
			t.Errorf("toggle twice changed matches: %v vs %v", a, b)
		}
	})

	t.Run("empty mode after first all selection", func(t *testing.T) {
		q := ToggleFieldValue("", "element", "fire", ModeAll)
		q = ToggleFieldValue(q, "element", "water", "")
		got := ExtractFilters(Tokenize(q)).Multi[FieldElement]
		if got.Mode != ModeAll || !reflect.DeepEqual(got.Values, []string{"fire", "water"}) {
			t.Errorf("query %q extracted %+v", q, got)
		}
	})

	t.Run("set mode on a single value", func(t *testing.T) {
		q := SetFieldMode("type:minion", "type", ModeAll)
		if got := ExtractFilters(Tokenize(q)).Multi[FieldType]; got.Mode != ModeAll || !reflect.DeepEqual(got.Values, []string{"minion"}) {
			t.Errorf("query %q extracted %+v", q, got)
		}
		q = SetFieldMode(q, "type", ModeAny)
		if q != "type:minion" {
			t.Errorf("back to any = %q", q)
		}
	})
}

func TestSetFieldRange(t *testing.T) {
	tests := []struct {
		name     string
		min, max *int
	}{
		{"both bounds", intPtr(2), intPtr(5)},
		{"min only", intPtr(3), nil},
		{"max only", nil, intPtr(1)},
		{"exact", intPtr(4), intPtr(4)},
		{"cleared", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := SetFieldRange("goblin cost:>=9", "mana", tt.min, tt.max)
			r, ok := ExtractFilters(Tokenize(q)).Ranges[FieldCost]
			if tt.min == nil && tt.max == nil {
				if ok {
					t.Errorf("expected cost cleared, got %+v from %q", r, q)
				}
				return
			}
			if !reflect.DeepEqual(r, Range{Min: tt.min, Max: tt.max}) {
				t.Errorf("range = %+v, want {%v %v} from %q", r, tt.min, tt.max, q)
			}
		})
	}
}

func TestSetFieldNumeric(t *testing.T) {
	q := SetFieldNumeric("type:minion", "fire", CompareGte, intPtr(2))
	got, ok := ExtractFilters(Tokenize(q)).Thresholds[FieldFire]
	if !ok || got != (Threshold{Comparator: CompareGte, Value: 2}) {
		t.Fatalf("threshold = %+v from %q", got, q)
	}

	q = SetFieldNumeric(q, "fire", CompareLt, intPtr(1))
	got = ExtractFilters(Tokenize(q)).Thresholds[FieldFire]
	if got != (Threshold{Comparator: CompareLt, Value: 1}) {
		t.Errorf("replaced threshold = %+v from %q", got, q)
	}

	q = SetFieldNumeric(q, "fire", CompareGte, nil)
	if _, ok := ExtractFilters(Tokenize(q)).Thresholds[FieldFire]; ok {
		t.Errorf("threshold should be cleared, query %q", q)
	}
	if q != "type:minion" {
		t.Errorf("expected only the type token left, got %q", q)
	}

	if SetFieldNumeric("x", "cost", CompareGt, intPtr(1)) != "x" {
		t.Error("range fields are not set through SetFieldNumeric")
	}
}

func TestClearAllFields(t *testing.T) {
	tests := []struct {
		query    string
		expected string
	}{
		{`type:minion "deal damage" cost:>=2 goblin`, `"deal damage" goblin`},
		{`type:minion OR fire`, `fire`},
		{`type:minion OR e:fire`, ``},
		{`a OR type:minion OR b`, `a OR b`},
		{``, ``},
	}
	for _, tt := range tests {
		if got := ClearAllFields(tt.query); got != tt.expected {
			t.Errorf("ClearAllFields(%q) = %q, want %q", tt.query, got, tt.expected)
		}
	}
}

func TestCodecIgnoresUnknownFields(t *testing.T) {
	if got := ToggleFieldValue("goblin", "colour", "red", ModeAny); got != "goblin" {
		t.Errorf("unknown field changed query: %q", got)
	}
	if got := SetFieldRange("goblin", "fire", intPtr(1), nil); got != "goblin" {
		t.Errorf("threshold field changed through SetFieldRange: %q", got)
	}
	if got := SetFieldMode("goblin", "type", Mode("some")); got != "goblin" {
		t.Errorf("invalid mode changed query: %q", got)
	}
}
