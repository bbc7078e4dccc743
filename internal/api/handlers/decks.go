package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/sorcery-tracker/internal/importer"
	"github.com/codyseavey/sorcery-tracker/internal/models"
	"github.com/codyseavey/sorcery-tracker/internal/services"
)

type DeckHandler struct {
	decks   *services.DeckService
	catalog *services.CatalogService
}

func NewDeckHandler(decks *services.DeckService, catalog *services.CatalogService) *DeckHandler {
	return &DeckHandler{decks: decks, catalog: catalog}
}

func (h *DeckHandler) ListDecks(c *gin.Context) {
	decks, err := h.decks.ListDecks(ownerID(c))
	if err != nil {
		respondError(c, err, "failed to load decks")
		return
	}
	c.JSON(http.StatusOK, gin.H{"decks": decks})
}

func (h *DeckHandler) CreateDeck(c *gin.Context) {
	var req models.CreateDeckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	deck, err := h.decks.CreateDeck(ownerID(c), req.Name)
	if err != nil {
		respondError(c, err, "failed to create deck")
		return
	}
	c.JSON(http.StatusCreated, deck)
}

// GetDeck returns the deck with its cells and a validation summary.
func (h *DeckHandler) GetDeck(c *gin.Context) {
	deck, err := h.decks.GetDeck(ownerID(c), c.Param("id"))
	if err != nil {
		respondError(c, err, "failed to load deck")
		return
	}
	summary, err := h.decks.Validate(ownerID(c), deck.ID)
	if err != nil {
		respondError(c, err, "failed to validate deck")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deck": deck, "summary": summary})
}

func (h *DeckHandler) RenameDeck(c *gin.Context) {
	var req models.UpdateDeckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	deck, err := h.decks.RenameDeck(ownerID(c), c.Param("id"), req.Name)
	if err != nil {
		respondError(c, err, "failed to rename deck")
		return
	}
	c.JSON(http.StatusOK, deck)
}

func (h *DeckHandler) DeleteDeck(c *gin.Context) {
	if err := h.decks.DeleteDeck(ownerID(c), c.Param("id")); err != nil {
		respondError(c, err, "failed to delete deck")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deck deleted"})
}

// AddCard adds one copy of a card to a section.
// POST /api/decks/:id/cards
func (h *DeckHandler) AddCard(c *gin.Context) {
	var req models.AddDeckCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cell, err := h.decks.AddCard(ownerID(c), c.Param("id"), req.CardID, req.Section)
	if err != nil {
		respondError(c, err, "failed to add card")
		return
	}
	c.JSON(http.StatusOK, cell)
}

// RemoveCard removes one copy from a cell. The cell is returned, or null
// once its last copy is gone.
// DELETE /api/decks/cards/:cellId
func (h *DeckHandler) RemoveCard(c *gin.Context) {
	cellID, ok := uintParam(c, "cellId")
	if !ok {
		return
	}
	cell, err := h.decks.RemoveCard(ownerID(c), cellID)
	if err != nil {
		respondError(c, err, "failed to remove card")
		return
	}
	c.JSON(http.StatusOK, gin.H{"cell": cell, "deleted": cell == nil})
}

// BatchAdd adds many cards at once, skipping any that break deck rules.
// POST /api/decks/:id/cards/batch
func (h *DeckHandler) BatchAdd(c *gin.Context) {
	var req models.BatchDeckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	added, err := h.decks.BatchAdd(ownerID(c), c.Param("id"), req.Items)
	if err != nil {
		respondError(c, err, "failed to add cards")
		return
	}
	c.JSON(http.StatusOK, models.BatchAddResponse{Added: added})
}

type importDecklistRequest struct {
	Decklist string `json:"decklist" binding:"required"`
}

// ImportDecklist parses a text decklist and batch-adds it.
// POST /api/decks/:id/import
func (h *DeckHandler) ImportDecklist(c *gin.Context) {
	var req importDecklistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lines, problems := importer.ParseDecklist(req.Decklist)
	items, unresolved := importer.DeckBatch(lines, h.catalog)
	problems = append(problems, unresolved...)

	added, err := h.decks.BatchAdd(ownerID(c), c.Param("id"), items)
	if err != nil {
		respondError(c, err, "failed to import decklist")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"added":    added,
		"problems": problems,
	})
}

// ExportDecklist renders the deck as a text decklist.
// GET /api/decks/:id/export
func (h *DeckHandler) ExportDecklist(c *gin.Context) {
	deck, err := h.decks.GetDeck(ownerID(c), c.Param("id"))
	if err != nil {
		respondError(c, err, "failed to load deck")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", deck.Name+".txt"))
	c.String(http.StatusOK, importer.FormatDecklist(deck.Cards))
}

func (h *DeckHandler) ValidateDeck(c *gin.Context) {
	summary, err := h.decks.Validate(ownerID(c), c.Param("id"))
	if err != nil {
		respondError(c, err, "failed to validate deck")
		return
	}
	c.JSON(http.StatusOK, summary)
}
