package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/codyseavey/sorcery-tracker/internal/database"
	"github.com/codyseavey/sorcery-tracker/internal/models"
	"github.com/codyseavey/sorcery-tracker/internal/search"
	"github.com/codyseavey/sorcery-tracker/internal/selection"
	"github.com/codyseavey/sorcery-tracker/internal/services"
)

const (
	token1   = "token-1"
	token2   = "token-2"
	adminKey = "admin-secret"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
}

func intPtr(v int) *int { return &v }

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := database.OpenInMemory()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	release := time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []interface{}{
		&models.User{ID: "user-1", Name: "Ada", APIToken: token1},
		&models.User{ID: "user-2", Name: "Grace", APIToken: token2},
		&models.Set{ID: 1, Slug: "alpha", Name: "Alpha", ReleasedAt: &release},
		&models.Card{ID: "sorcerer", Name: "Sorcerer", Type: models.CardTypeAvatar, Rarity: models.RarityUnique, Life: intPtr(20)},
		&models.Card{ID: "spire", Name: "Spire", Type: models.CardTypeSite, Rarity: models.RarityOrdinary, Elements: []string{"Air"}, ThresholdAir: 1},
		&models.Card{ID: "death-dealer", Name: "Death Dealer", Type: models.CardTypeMinion, Rarity: models.RarityElite, Cost: intPtr(3), Elements: []string{"Fire"}, ThresholdFire: 2},
		&models.Card{ID: "fireball", Name: "Fireball", Type: models.CardTypeMagic, Rarity: models.RarityExceptional, Cost: intPtr(4), Elements: []string{"Fire"}, ThresholdFire: 2},
		&models.CardSet{CardID: "sorcerer", SetID: 1},
		&models.CardSet{CardID: "spire", SetID: 1},
		&models.CardSet{CardID: "death-dealer", SetID: 1},
		&models.CardSet{CardID: "fireball", SetID: 1},
		&models.Variant{ID: "sorc-std", CardID: "sorcerer", SetID: 1, Finish: "Standard", Product: "Booster", CreatedAt: base},
		&models.Variant{ID: "spire-std", CardID: "spire", SetID: 1, Finish: "Standard", Product: "Booster", CreatedAt: base},
		&models.Variant{ID: "dd-std", CardID: "death-dealer", SetID: 1, Finish: "Standard", Product: "Booster", CreatedAt: base},
		&models.Variant{ID: "dd-foil", CardID: "death-dealer", SetID: 1, Finish: "Foil", Product: "Booster", CreatedAt: base},
		&models.Variant{ID: "fb-std", CardID: "fireball", SetID: 1, Finish: "Standard", Product: "Booster", CreatedAt: base},
	}
	for _, r := range records {
		if err := db.Create(r).Error; err != nil {
			t.Fatalf("seed %T: %v", r, err)
		}
	}

	collections := services.NewCollectionService(db)
	router := NewRouter(Deps{
		DB:          db,
		Catalog:     services.NewCatalogService(db, 16),
		Decks:       services.NewDeckService(db),
		Collections: collections,
		Prices:      services.NewPriceService(db),
		Snapshots:   services.NewValueSnapshotWorker(db, collections, time.Hour),
		Selections:  selection.NewRegistry(),
		AdminKey:    adminKey,
	})
	return &testServer{t: t, db: db, router: router}
}

// do sends a request; a string body is sent as-is, anything else as JSON.
func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			s.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if _, ok := body.(string); !ok && body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d; body %s", w.Code, want, w.Body.String())
	}
}

func TestHealthAndAuth(t *testing.T) {
	s := newTestServer(t)

	expectStatus(t, s.do(http.MethodGet, "/health", "", nil), http.StatusOK)
	expectStatus(t, s.do(http.MethodGet, "/api/auth/status", "", nil), http.StatusOK)
	expectStatus(t, s.do(http.MethodGet, "/api/cards", "", nil), http.StatusUnauthorized)
	expectStatus(t, s.do(http.MethodGet, "/api/cards", "bogus", nil), http.StatusUnauthorized)
	expectStatus(t, s.do(http.MethodPost, "/api/auth/verify", token1, nil), http.StatusOK)
	expectStatus(t, s.do(http.MethodPost, "/api/admin/catalog/reload", token1, nil), http.StatusUnauthorized)
	expectStatus(t, s.do(http.MethodPost, "/api/admin/catalog/reload", adminKey, nil), http.StatusOK)
}

func TestSearchEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/api/cards?q=element:fire&limit=1", token1, nil)
	expectStatus(t, w, http.StatusOK)
	var result services.SearchResult
	decode(t, w, &result)
	if result.Total != 2 || len(result.Cards) != 1 || result.Limit != 1 {
		t.Errorf("result = %+v", result)
	}
	if len(result.Facets[search.FieldType]) == 0 {
		t.Error("expected type facets")
	}

	w = s.do(http.MethodGet, "/api/cards?limit=ten", token1, nil)
	expectStatus(t, w, http.StatusBadRequest)

	// Only owned cards are searched once owned=true
	expectStatus(t, s.do(http.MethodPost, "/api/collection", token1, map[string]interface{}{"variant_id": "fb-std"}), http.StatusOK)
	w = s.do(http.MethodGet, "/api/cards?q=element:fire&owned=true", token1, nil)
	decode(t, w, &result)
	if result.Total != 1 || result.Cards[0].ID != "fireball" {
		t.Errorf("owned result = %+v", result)
	}

	w = s.do(http.MethodGet, "/api/cards/death-dealer/variants", token1, nil)
	expectStatus(t, w, http.StatusOK)
	var variants struct {
		Variants []models.Variant `json:"variants"`
	}
	decode(t, w, &variants)
	if len(variants.Variants) != 2 || variants.Variants[0].ID != "dd-std" {
		t.Errorf("variants = %+v", variants.Variants)
	}
	expectStatus(t, s.do(http.MethodGet, "/api/cards/nope", token1, nil), http.StatusNotFound)
}

func TestEditQueryEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/api/search/edit?op=toggle&field=element&value=fire", token1, nil)
	expectStatus(t, w, http.StatusOK)
	var edited struct {
		Query   string               `json:"query"`
		Filters search.ActiveFilters `json:"filters"`
	}
	decode(t, w, &edited)
	if got := edited.Filters.Multi[search.FieldElement].Values; len(got) != 1 || got[0] != "fire" {
		t.Errorf("filters = %+v (query %q)", edited.Filters, edited.Query)
	}

	w = s.do(http.MethodGet, "/api/search/edit?op=range&field=cost&min=2&max=5", token1, nil)
	decode(t, w, &edited)
	if edited.Query != "cost:>=2 cost:<=5" {
		t.Errorf("range query = %q", edited.Query)
	}

	w = s.do(http.MethodGet, "/api/search/edit?op=clear&q=dragon+cost:>=2", token1, nil)
	decode(t, w, &edited)
	if edited.Query != "dragon" {
		t.Errorf("clear query = %q", edited.Query)
	}

	expectStatus(t, s.do(http.MethodGet, "/api/search/edit?op=explode", token1, nil), http.StatusBadRequest)
	expectStatus(t, s.do(http.MethodGet, "/api/search/edit?op=numeric&field=fire&value=2&cmp=~", token1, nil), http.StatusBadRequest)
}

func TestDeckLifecycle(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/decks", token1, map[string]string{"name": "Fire Aggro"})
	expectStatus(t, w, http.StatusCreated)
	var deck models.Deck
	decode(t, w, &deck)
	base := "/api/decks/" + deck.ID

	expectStatus(t, s.do(http.MethodPost, base+"/cards", token1, map[string]string{"card_id": "sorcerer", "section": "avatar"}), http.StatusOK)
	expectStatus(t, s.do(http.MethodPost, base+"/cards", token1, map[string]string{"card_id": "death-dealer", "section": "spellbook"}), http.StatusOK)
	w = s.do(http.MethodPost, base+"/cards", token1, map[string]string{"card_id": "death-dealer", "section": "spellbook"})
	expectStatus(t, w, http.StatusOK)
	var cell models.DeckCard
	decode(t, w, &cell)
	if cell.Quantity != 2 {
		t.Errorf("cell quantity = %d", cell.Quantity)
	}

	w = s.do(http.MethodPost, base+"/cards", token1, map[string]string{"card_id": "death-dealer", "section": "spellbook"})
	expectStatus(t, w, http.StatusBadRequest)
	if !strings.Contains(w.Body.String(), "Max 2 copies of Elite cards") {
		t.Errorf("body = %s", w.Body.String())
	}
	w = s.do(http.MethodPost, base+"/cards", token1, map[string]string{"card_id": "spire", "section": "spellbook"})
	expectStatus(t, w, http.StatusBadRequest)

	// Other users can't see or change the deck
	expectStatus(t, s.do(http.MethodGet, base, token2, nil), http.StatusForbidden)
	expectStatus(t, s.do(http.MethodPost, base+"/cards", token2, map[string]string{"card_id": "fireball", "section": "spellbook"}), http.StatusForbidden)
	expectStatus(t, s.do(http.MethodGet, "/api/decks/missing", token1, nil), http.StatusNotFound)

	w = s.do(http.MethodPost, base+"/import", token1, map[string]string{"decklist": "Atlas\n3 Spire\nQqqzzz Xxyy"})
	expectStatus(t, w, http.StatusOK)
	var imported struct {
		Added    int `json:"added"`
		Problems []struct {
			Line int `json:"line"`
		} `json:"problems"`
	}
	decode(t, w, &imported)
	if imported.Added != 3 || len(imported.Problems) != 1 || imported.Problems[0].Line != 3 {
		t.Errorf("import = %+v", imported)
	}

	w = s.do(http.MethodGet, base+"/export", token1, nil)
	expectStatus(t, w, http.StatusOK)
	for _, want := range []string{"Avatar (1)", "1x Sorcerer (Alpha)", "3x Spire (Alpha)", "2x Death Dealer (Alpha)"} {
		if !strings.Contains(w.Body.String(), want) {
			t.Errorf("export missing %q:\n%s", want, w.Body.String())
		}
	}

	w = s.do(http.MethodGet, base+"/validate", token1, nil)
	expectStatus(t, w, http.StatusOK)
	var summary models.DeckSummary
	decode(t, w, &summary)
	if !summary.HasAvatar || summary.SectionTotals[models.SectionAtlas] != 3 {
		t.Errorf("summary = %+v", summary)
	}

	w = s.do(http.MethodDelete, "/api/decks/cards/"+itoa(cell.ID), token1, nil)
	expectStatus(t, w, http.StatusOK)
	expectStatus(t, s.do(http.MethodDelete, "/api/decks/cards/abc", token1, nil), http.StatusBadRequest)

	expectStatus(t, s.do(http.MethodDelete, base, token1, nil), http.StatusOK)
	expectStatus(t, s.do(http.MethodGet, base, token1, nil), http.StatusNotFound)
}

func TestCollectionEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/collection", token1, map[string]interface{}{"variant_id": "fb-std", "quantity": 2})
	expectStatus(t, w, http.StatusOK)
	var row models.CollectionCard
	decode(t, w, &row)

	csv := "Card Name,Set,Finish,Quantity\nDeath Dealer,Alpha,Foil,1\nSpire,,,4\nNot A Card,,,1\n"
	w = s.do(http.MethodPost, "/api/collection/import", token1, csv)
	expectStatus(t, w, http.StatusOK)
	var imported struct {
		Added int `json:"added"`
		Rows  int `json:"rows"`
	}
	decode(t, w, &imported)
	if imported.Added != 5 || imported.Rows != 3 {
		t.Errorf("import = %+v", imported)
	}

	w = s.do(http.MethodGet, "/api/collection/stats", token1, nil)
	var stats models.CollectionStats
	decode(t, w, &stats)
	if stats.TotalCards != 7 || stats.UniqueCards != 3 {
		t.Errorf("stats = %+v", stats)
	}

	w = s.do(http.MethodGet, "/api/collection/export", token1, nil)
	expectStatus(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), "Death Dealer,Alpha,Foil,Booster,1,NM") {
		t.Errorf("export = %s", w.Body.String())
	}

	expectStatus(t, s.do(http.MethodPatch, "/api/collection/"+itoa(row.ID), token2, map[string]int{"quantity": 5}), http.StatusForbidden)
	w = s.do(http.MethodPatch, "/api/collection/"+itoa(row.ID), token1, map[string]int{"quantity": 0})
	expectStatus(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), `"deleted":true`) {
		t.Errorf("body = %s", w.Body.String())
	}

	w = s.do(http.MethodPost, "/api/collection/batch-remove", token1, map[string]interface{}{
		"items": []map[string]interface{}{{"card_id": "spire", "quantity": 10}},
	})
	expectStatus(t, w, http.StatusOK)
	var removed models.BatchRemoveResponse
	decode(t, w, &removed)
	if removed.Removed != 4 {
		t.Errorf("removed = %d, want 4", removed.Removed)
	}

	expectStatus(t, s.do(http.MethodGet, "/api/collection/history?period=decade", token1, nil), http.StatusBadRequest)
	expectStatus(t, s.do(http.MethodPost, "/api/admin/snapshots/run", adminKey, nil), http.StatusOK)
	w = s.do(http.MethodGet, "/api/collection/history?period=all", token1, nil)
	var history models.ValueHistoryResponse
	decode(t, w, &history)
	if len(history.Snapshots) != 1 || history.Snapshots[0].TotalCards != 1 {
		t.Errorf("history = %+v", history)
	}
}

func TestSelectionCommit(t *testing.T) {
	s := newTestServer(t)

	s.do(http.MethodPost, "/api/selection", token1, map[string]interface{}{"card_id": "fireball", "quantity": 2})
	s.do(http.MethodPost, "/api/selection", token1, map[string]interface{}{"card_id": "spire"})
	s.do(http.MethodPost, "/api/selection", token1, map[string]interface{}{"card_id": "death-dealer", "quantity": 3})
	w := s.do(http.MethodPost, "/api/selection", token1, map[string]interface{}{"card_id": "death-dealer", "op": "set", "quantity": 0})
	var sel struct {
		Items []selection.Item `json:"items"`
		Total int              `json:"total"`
	}
	decode(t, w, &sel)
	if len(sel.Items) != 2 || sel.Total != 3 {
		t.Errorf("selection = %+v", sel)
	}
	var detailed struct {
		Items []struct {
			CardID string `json:"card_id"`
			Card   *struct {
				Name string `json:"name"`
			} `json:"card"`
		} `json:"items"`
	}
	decode(t, s.do(http.MethodGet, "/api/selection", token1, nil), &detailed)
	if len(detailed.Items) != 2 || detailed.Items[0].Card == nil || detailed.Items[0].Card.Name != "Fireball" {
		t.Errorf("selection items should carry card details: %+v", detailed.Items)
	}

	// Selections are per user
	w = s.do(http.MethodGet, "/api/selection", token2, nil)
	decode(t, w, &sel)
	if len(sel.Items) != 0 {
		t.Errorf("user-2 selection = %+v", sel)
	}

	expectStatus(t, s.do(http.MethodPost, "/api/selection/commit", token1, map[string]string{"target": "binder"}), http.StatusBadRequest)
	w = s.do(http.MethodPost, "/api/selection/commit", token1, map[string]string{"target": "collection"})
	expectStatus(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), `"added":3`) {
		t.Errorf("commit = %s", w.Body.String())
	}

	w = s.do(http.MethodGet, "/api/selection", token1, nil)
	decode(t, w, &sel)
	if len(sel.Items) != 0 {
		t.Errorf("selection not cleared: %+v", sel)
	}
	expectStatus(t, s.do(http.MethodPost, "/api/selection/commit", token1, map[string]string{"target": "collection"}), http.StatusBadRequest)
}

func TestAdminPrices(t *testing.T) {
	s := newTestServer(t)

	body := []map[string]interface{}{{"external_id": "tcgp-9", "variant_ids": []string{"fb-std"}, "market": 1.25}}
	expectStatus(t, s.do(http.MethodPost, "/api/admin/prices", "", body), http.StatusUnauthorized)
	expectStatus(t, s.do(http.MethodPost, "/api/admin/prices", adminKey, body), http.StatusOK)

	w := s.do(http.MethodGet, "/api/variants/fb-std/prices", token1, nil)
	expectStatus(t, w, http.StatusOK)
	var prices services.VariantPrices
	decode(t, w, &prices)
	if prices.Market == nil || *prices.Market != 1.25 || prices.Stale {
		t.Errorf("prices = %+v", prices)
	}

	// New rows pick up the market price as their purchase price
	w = s.do(http.MethodPost, "/api/collection", token1, map[string]interface{}{"variant_id": "fb-std"})
	var row models.CollectionCard
	decode(t, w, &row)
	if row.PurchasePrice == nil || *row.PurchasePrice != 1.25 {
		t.Errorf("purchase price = %v", row.PurchasePrice)
	}

	bad := []map[string]interface{}{{"external_id": "tcgp-10"}}
	expectStatus(t, s.do(http.MethodPost, "/api/admin/prices", adminKey, bad), http.StatusBadRequest)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
