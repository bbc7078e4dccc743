package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/sorcery-tracker/internal/models"
	"github.com/codyseavey/sorcery-tracker/internal/search"
	"github.com/codyseavey/sorcery-tracker/internal/selection"
	"github.com/codyseavey/sorcery-tracker/internal/services"
)

type SelectionHandler struct {
	registry    *selection.Registry
	catalog     *services.CatalogService
	collections *services.CollectionService
	decks       *services.DeckService
}

func NewSelectionHandler(registry *selection.Registry, catalog *services.CatalogService, collections *services.CollectionService, decks *services.DeckService) *SelectionHandler {
	return &SelectionHandler{registry: registry, catalog: catalog, collections: collections, decks: decks}
}

type selectionRequest struct {
	CardID   string `json:"card_id" binding:"required"`
	Quantity int    `json:"quantity"`
	// "add" (default) increments by Quantity, "set" replaces it
	Op string `json:"op"`
}

type commitRequest struct {
	Target string `json:"target" binding:"required"` // "collection" or "deck"
	DeckID string `json:"deck_id"`
}

type selectionItem struct {
	selection.Item
	Card *search.Card `json:"card,omitempty"`
}

// selectionBody renders the store with card details. Cards missing from the
// catalog are listed without them.
func (h *SelectionHandler) selectionBody(store *selection.Store) gin.H {
	items := store.Items()
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.CardID)
	}
	byID := make(map[string]search.Card, len(ids))
	if cards, err := h.catalog.CardsByID(ids); err != nil {
		log.Printf("Selection handler: load cards: %v", err)
	} else {
		for _, card := range cards {
			byID[card.ID] = card
		}
	}

	out := make([]selectionItem, 0, len(items))
	for _, item := range items {
		entry := selectionItem{Item: item}
		if card, ok := byID[item.CardID]; ok {
			entry.Card = &card
		}
		out = append(out, entry)
	}
	return gin.H{
		"items": out,
		"total": store.Total(),
		"count": store.Len(),
	}
}

func (h *SelectionHandler) GetSelection(c *gin.Context) {
	c.JSON(http.StatusOK, h.selectionBody(h.registry.For(ownerID(c))))
}

// UpdateSelection adds to or sets a card's selected quantity; a resulting
// quantity of 0 or less drops the card.
// POST /api/selection
func (h *SelectionHandler) UpdateSelection(c *gin.Context) {
	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	store := h.registry.For(ownerID(c))
	switch req.Op {
	case "", "add":
		n := req.Quantity
		if n == 0 {
			n = 1
		}
		store.Add(req.CardID, n)
	case "set":
		store.SetQty(req.CardID, req.Quantity)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "op must be add or set"})
		return
	}
	c.JSON(http.StatusOK, h.selectionBody(store))
}

// ClearSelection drops one card (?card_id=) or the whole selection.
// DELETE /api/selection
func (h *SelectionHandler) ClearSelection(c *gin.Context) {
	store := h.registry.For(ownerID(c))
	if cardID := c.Query("card_id"); cardID != "" {
		store.Remove(cardID)
	} else {
		store.Clear()
	}
	c.JSON(http.StatusOK, h.selectionBody(store))
}

// CommitSelection batch-adds the selection to the collection or a deck, then
// deducts what was committed. Cards picked during the commit stay selected, and
// the selection is kept if the batch fails.
// POST /api/selection/commit
func (h *SelectionHandler) CommitSelection(c *gin.Context) {
	var req commitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	owner := ownerID(c)
	store := h.registry.For(owner)
	items := store.Items()
	if len(items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "selection is empty"})
		return
	}

	var added int
	var err error
	switch req.Target {
	case "collection":
		batch := make([]models.BatchCollectionItem, 0, len(items))
		for _, item := range items {
			batch = append(batch, models.BatchCollectionItem{CardID: item.CardID, Quantity: item.Quantity})
		}
		added, err = h.collections.BatchAdd(owner, batch)
	case "deck":
		if req.DeckID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "deck_id is required"})
			return
		}
		batch := make([]models.BatchDeckItem, 0, len(items))
		for _, item := range items {
			batch = append(batch, models.BatchDeckItem{CardID: item.CardID, Quantity: item.Quantity})
		}
		added, err = h.decks.BatchAdd(owner, req.DeckID, batch)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "target must be collection or deck"})
		return
	}
	if err != nil {
		respondError(c, err, "failed to commit selection")
		return
	}

	store.Deduct(items)
	c.JSON(http.StatusOK, gin.H{"added": added, "target": req.Target})
}
