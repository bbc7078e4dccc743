package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sahilm/fuzzy"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/codyseavey/sorcery-tracker/internal/metrics"
	"github.com/codyseavey/sorcery-tracker/internal/models"
	"github.com/codyseavey/sorcery-tracker/internal/search"
)

const (
	defaultSearchCacheSize = 256
	defaultSearchLimit     = 60
	maxSearchLimit         = 500
)

// CatalogService serves card, set and variant reads. Searches run over an
// in-memory snapshot of the whole catalog that is loaded once and reused
// until Invalidate is called.
type CatalogService struct {
	db    *gorm.DB
	group singleflight.Group
	cache *lru.Cache

	mu       sync.RWMutex
	snapshot *catalogSnapshot
	version  uint64
}

type catalogSnapshot struct {
	version  uint64
	cards    []search.Card
	byID     map[string]int
	byName   map[string]int
	names    cardNames
	loadedAt time.Time
}

// cardNames implements fuzzy.Source over the snapshot's card names
type cardNames []string

func (n cardNames) String(i int) string { return n[i] }
func (n cardNames) Len() int            { return len(n) }

type searchCacheKey struct {
	version uint64
	query   string
}

type cachedSearch struct {
	matched []search.Card
	filters search.ActiveFilters
	facets  map[string][]search.FacetOption
}

// SearchRequest is a catalog query. When Owned is non-nil only cards in it
// are searched and faceted.
type SearchRequest struct {
	Query  string
	Owned  map[string]bool
	Limit  int
	Offset int
}

type SearchResult struct {
	Query   string                          `json:"query"`
	Cards   []search.Card                   `json:"cards"`
	Total   int                             `json:"total"`
	Limit   int                             `json:"limit"`
	Offset  int                             `json:"offset"`
	Filters search.ActiveFilters            `json:"filters"`
	Facets  map[string][]search.FacetOption `json:"facets"`
}

func NewCatalogService(db *gorm.DB, cacheSize int) *CatalogService {
	if cacheSize <= 0 {
		cacheSize = defaultSearchCacheSize
	}
	cache, _ := lru.New(cacheSize)
	return &CatalogService{db: db, cache: cache}
}

// Snapshot returns the current catalog snapshot, loading it if needed.
// Concurrent callers share a single load.
func (s *CatalogService) Snapshot() ([]search.Card, error) {
	snap, err := s.current()
	if err != nil {
		return nil, err
	}
	return snap.cards, nil
}

func (s *CatalogService) current() (*catalogSnapshot, error) {
	s.mu.RLock()
	snap := s.snapshot
	s.mu.RUnlock()
	if snap != nil {
		return snap, nil
	}

	v, err, _ := s.group.Do("snapshot", func() (interface{}, error) {
		s.mu.RLock()
		version := s.version
		s.mu.RUnlock()

		loaded, err := s.load(version)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		if s.version == version {
			s.snapshot = loaded
		}
		s.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*catalogSnapshot), nil
}

func (s *CatalogService) load(version uint64) (*catalogSnapshot, error) {
	start := time.Now()
	var cards []models.Card
	if err := s.db.Preload("Sets.Set").Order("name ASC, id ASC").Find(&cards).Error; err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	snap := &catalogSnapshot{
		version:  version,
		cards:    make([]search.Card, 0, len(cards)),
		byID:     make(map[string]int, len(cards)),
		byName:   make(map[string]int, len(cards)),
		names:    make(cardNames, 0, len(cards)),
		loadedAt: time.Now(),
	}
	for _, card := range cards {
		sc := ToSearchCard(card)
		snap.byID[sc.ID] = len(snap.cards)
		if _, dup := snap.byName[strings.ToLower(sc.Name)]; !dup {
			snap.byName[strings.ToLower(sc.Name)] = len(snap.cards)
		}
		snap.names = append(snap.names, strings.ToLower(sc.Name))
		snap.cards = append(snap.cards, sc)
	}

	metrics.CatalogReloadsTotal.Inc()
	metrics.CardDatabaseSize.Set(float64(len(snap.cards)))
	log.Printf("Catalog service: loaded %d cards in %v", len(snap.cards), time.Since(start).Round(time.Millisecond))
	return snap, nil
}

// Invalidate drops the snapshot and every cached search. The next read loads
// the catalog again.
func (s *CatalogService) Invalidate() {
	s.mu.Lock()
	s.snapshot = nil
	s.version++
	s.mu.Unlock()
	s.cache.Purge()
}

// Reload invalidates and immediately loads a fresh snapshot, returning its size.
func (s *CatalogService) Reload() (int, error) {
	s.Invalidate()
	cards, err := s.Snapshot()
	if err != nil {
		return 0, err
	}
	return len(cards), nil
}

// ToSearchCard flattens a card and its set memberships into the form the
// search engine matches against. Overrides from the most recently released
// set win.
func ToSearchCard(card models.Card) search.Card {
	slugs := make([]string, 0, len(card.Sets))
	for _, m := range card.Memberships() {
		if m.Set.Slug != "" {
			slugs = append(slugs, m.Set.Slug)
		}
	}
	effective := card.Effective()

	return search.Card{
		ID:        effective.ID,
		Name:      effective.Name,
		Type:      string(effective.Type),
		Rarity:    string(effective.Rarity),
		RulesText: effective.RulesText,
		Cost:      effective.Cost,
		Attack:    effective.Attack,
		Defence:   effective.Defence,
		Life:      effective.Life,
		Elements:  []string(effective.Elements),
		Keywords:  []string(effective.Keywords),
		SubTypes:  []string(effective.SubTypes),
		Thresholds: search.Thresholds{
			Air:   effective.ThresholdAir,
			Earth: effective.ThresholdEarth,
			Fire:  effective.ThresholdFire,
			Water: effective.ThresholdWater,
		},
		Sets: slugs,
	}
}

// Search runs a query over the catalog and returns one page of matches
// together with the active filters and facet counts.
func (s *CatalogService) Search(req SearchRequest) (*SearchResult, error) {
	snap, err := s.current()
	if err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	offset := req.Offset
	if offset < 0 {
		offset = 0
	}

	tokens := search.Tokenize(req.Query)
	normalized := search.Serialize(tokens)

	var computed *cachedSearch
	if req.Owned == nil {
		key := searchCacheKey{version: snap.version, query: normalized}
		if v, ok := s.cache.Get(key); ok {
			metrics.SearchCacheHits.Inc()
			computed = v.(*cachedSearch)
		} else {
			metrics.SearchCacheMisses.Inc()
			computed = compute(snap.cards, tokens)
			s.cache.Add(key, computed)
		}
	} else {
		computed = compute(search.OwnedOnly(snap.cards, req.Owned), tokens)
	}

	total := len(computed.matched)
	page := []search.Card{}
	if offset < total {
		end := min(offset+limit, total)
		page = computed.matched[offset:end]
	}
	return &SearchResult{
		Query:   normalized,
		Cards:   page,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		Filters: computed.filters,
		Facets:  computed.facets,
	}, nil
}

func compute(base []search.Card, tokens []search.Token) *cachedSearch {
	filters := search.ExtractFilters(tokens)
	return &cachedSearch{
		matched: search.Filter(base, tokens),
		filters: filters,
		facets:  search.ComputeFacets(base, tokens, filters),
	}
}

// GetCard loads a card with its set memberships.
func (s *CatalogService) GetCard(id string) (*models.Card, error) {
	var card models.Card
	if err := s.db.Preload("Sets.Set").First(&card, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("card %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &card, nil
}

// Variants returns a card's variants, default variant first.
func (s *CatalogService) Variants(cardID string) ([]models.Variant, error) {
	var variants []models.Variant
	if err := s.db.Preload("Set").Where("card_id = ?", cardID).Find(&variants).Error; err != nil {
		return nil, err
	}
	SortVariants(variants)
	return variants, nil
}

// ResolveName finds a card by name: exact (case-insensitive) first, then the
// best fuzzy match.
func (s *CatalogService) ResolveName(name string) (search.Card, bool) {
	snap, err := s.current()
	if err != nil {
		log.Printf("Catalog service: resolve %q: %v", name, err)
		return search.Card{}, false
	}
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return search.Card{}, false
	}
	if i, ok := snap.byName[key]; ok {
		return snap.cards[i], true
	}
	matches := fuzzy.FindFrom(key, snap.names)
	if len(matches) == 0 {
		return search.Card{}, false
	}
	return snap.cards[matches[0].Index], true
}

// ResolveVariant picks the variant of cardID printed in setName with the given
// finish and product. Empty criteria match anything; when nothing matches the
// card's default variant is returned.
func (s *CatalogService) ResolveVariant(cardID, setName, finish, product string) (*models.Variant, error) {
	variants, err := s.Variants(cardID)
	if err != nil {
		return nil, err
	}
	if len(variants) == 0 {
		return nil, fmt.Errorf("variants of %s: %w", cardID, ErrNotFound)
	}
	for i, v := range variants {
		if setName != "" && !strings.EqualFold(v.Set.Name, setName) && !strings.EqualFold(v.Set.Slug, setName) {
			continue
		}
		if finish != "" && !strings.EqualFold(v.Finish, finish) {
			continue
		}
		if product != "" && !strings.EqualFold(v.Product, product) {
			continue
		}
		return &variants[i], nil
	}
	return &variants[0], nil
}

// CardsByID returns the listed cards from the snapshot, skipping unknown IDs.
func (s *CatalogService) CardsByID(ids []string) ([]search.Card, error) {
	snap, err := s.current()
	if err != nil {
		return nil, err
	}
	out := make([]search.Card, 0, len(ids))
	for _, id := range ids {
		if i, ok := snap.byID[id]; ok {
			out = append(out, snap.cards[i])
		}
	}
	return out, nil
}

func (s *CatalogService) Sets() ([]models.Set, error) {
	var sets []models.Set
	if err := s.db.Order("released_at ASC, id ASC").Find(&sets).Error; err != nil {
		return nil, err
	}
	return sets, nil
}
