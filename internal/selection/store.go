// Package selection holds the transient "cards picked but not yet committed"
// state for each user. It is in-memory only and never persisted.
package selection

import (
	"sort"
	"sync"
)

// Item is one selected card and how many copies are picked.
type Item struct {
	CardID   string `json:"card_id"`
	Quantity int    `json:"quantity"`
}

// Store is a single user's selection. The zero value is not usable; call
// NewStore.
type Store struct {
	mu    sync.RWMutex
	items map[string]int
	order []string
}

func NewStore() *Store {
	return &Store{items: make(map[string]int)}
}

// Add increases the selected quantity of cardID by n. A result <= 0 removes
// the entry.
func (s *Store) Add(cardID string, n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set(cardID, s.items[cardID]+n)
}

// Remove drops cardID from the selection.
func (s *Store) Remove(cardID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set(cardID, 0)
}

// SetQty replaces the selected quantity of cardID; qty <= 0 removes it.
func (s *Store) SetQty(cardID string, qty int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set(cardID, qty)
}

// Deduct subtracts each item's quantity from the selection, removing entries
// that reach zero. Picks made after items was read are left in place.
func (s *Store) Deduct(items []Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		if current, ok := s.items[item.CardID]; ok {
			s.set(item.CardID, current-item.Quantity)
		}
	}
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]int)
	s.order = nil
}

// set must be called with mu held.
func (s *Store) set(cardID string, qty int) int {
	if cardID == "" {
		return 0
	}
	_, exists := s.items[cardID]
	if qty <= 0 {
		if exists {
			delete(s.items, cardID)
			for i, id := range s.order {
				if id == cardID {
					s.order = append(s.order[:i], s.order[i+1:]...)
					break
				}
			}
		}
		return 0
	}
	if !exists {
		s.order = append(s.order, cardID)
	}
	s.items[cardID] = qty
	return qty
}

// Items returns the selection in the order cards were first picked.
func (s *Store) Items() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]Item, 0, len(s.order))
	for _, id := range s.order {
		items = append(items, Item{CardID: id, Quantity: s.items[id]})
	}
	return items
}

func (s *Store) Quantity(cardID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items[cardID]
}

// Total is the sum of all selected quantities.
func (s *Store) Total() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, qty := range s.items {
		total += qty
	}
	return total
}

// Len is the number of distinct selected cards.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Registry hands out one Store per user.
type Registry struct {
	mu     sync.Mutex
	stores map[string]*Store
}

func NewRegistry() *Registry {
	return &Registry{stores: make(map[string]*Store)}
}

// For returns the user's store, creating an empty one on first use.
func (r *Registry) For(userID string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	store, ok := r.stores[userID]
	if !ok {
		store = NewStore()
		r.stores[userID] = store
	}
	return store
}

// Users lists the users that currently hold a store, sorted.
func (r *Registry) Users() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	users := make([]string, 0, len(r.stores))
	for id := range r.stores {
		users = append(users, id)
	}
	sort.Strings(users)
	return users
}
