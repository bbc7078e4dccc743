package selection

import (
	"reflect"
	"sync"
	"testing"
)

func TestStoreActions(t *testing.T) {
	s := NewStore()

	s.Add("fireball", 2)
	s.Add("spire", 1)
	s.Add("fireball", 1)
	if got := s.Quantity("fireball"); got != 3 {
		t.Errorf("fireball = %d, want 3", got)
	}

	if got := s.SetQty("spire", 4); got != 4 {
		t.Errorf("SetQty returned %d", got)
	}
	want := []Item{{CardID: "fireball", Quantity: 3}, {CardID: "spire", Quantity: 4}}
	if got := s.Items(); !reflect.DeepEqual(got, want) {
		t.Errorf("Items = %+v, want %+v", got, want)
	}
	if s.Total() != 7 || s.Len() != 2 {
		t.Errorf("Total = %d, Len = %d", s.Total(), s.Len())
	}

	s.Remove("fireball")
	if s.Quantity("fireball") != 0 || s.Len() != 1 {
		t.Errorf("Remove left %+v", s.Items())
	}

	s.Clear()
	if s.Len() != 0 || s.Total() != 0 || len(s.Items()) != 0 {
		t.Errorf("Clear left %+v", s.Items())
	}
}

func TestStoreNonPositiveQuantityRemoves(t *testing.T) {
	tests := []struct {
		name string
		op   func(s *Store)
	}{
		{"set zero", func(s *Store) { s.SetQty("spire", 0) }},
		{"set negative", func(s *Store) { s.SetQty("spire", -3) }},
		{"add below zero", func(s *Store) { s.Add("spire", -5) }},
		{"add exactly to zero", func(s *Store) { s.Add("spire", -2) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			s.Add("spire", 2)
			s.Add("valley", 1)
			tt.op(s)
			if s.Quantity("spire") != 0 {
				t.Errorf("spire still selected: %+v", s.Items())
			}
			if got := s.Items(); len(got) != 1 || got[0].CardID != "valley" {
				t.Errorf("Items = %+v", got)
			}
		})
	}
}

func TestStoreIgnoresEmptyCardID(t *testing.T) {
	s := NewStore()
	s.Add("", 3)
	if s.Len() != 0 {
		t.Errorf("empty card id was stored")
	}
}

func TestRegistryIsolatesUsers(t *testing.T) {
	r := NewRegistry()
	r.For("user-1").Add("spire", 2)
	r.For("user-2").Add("fireball", 1)

	if r.For("user-1").Quantity("fireball") != 0 {
		t.Error("selections leaked between users")
	}
	if r.For("user-1") != r.For("user-1") {
		t.Error("registry must return the same store for a user")
	}
	if got := r.Users(); !reflect.DeepEqual(got, []string{"user-1", "user-2"}) {
		t.Errorf("Users = %v", got)
	}
}

func TestStoreConcurrentAdds(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Add("spire", 1)
		}()
	}
	wg.Wait()
	if s.Quantity("spire") != 50 {
		t.Errorf("spire = %d, want 50", s.Quantity("spire"))
	}
}

func TestStoreDeductKeepsLaterPicks(t *testing.T) {
	s := NewStore()
	s.Add("fireball", 2)
	s.Add("spire", 1)
	committed := s.Items()

	// Picked while the commit was running
	s.Add("fireball", 1)
	s.Add("death-dealer", 4)

	s.Deduct(committed)
	want := []Item{{CardID: "fireball", Quantity: 1}, {CardID: "death-dealer", Quantity: 4}}
	if got := s.Items(); !reflect.DeepEqual(got, want) {
		t.Errorf("Items() = %+v, want %+v", got, want)
	}

	// A card removed meanwhile stays removed
	s.Remove("death-dealer")
	s.Deduct([]Item{{CardID: "death-dealer", Quantity: 4}, {CardID: "fireball", Quantity: 5}})
	if s.Len() != 0 {
		t.Errorf("Len() = %d after deducting everything", s.Len())
	}
}
