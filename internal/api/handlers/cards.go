package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/sorcery-tracker/internal/search"
	"github.com/codyseavey/sorcery-tracker/internal/services"
)

type CardHandler struct {
	catalog     *services.CatalogService
	collections *services.CollectionService
}

func NewCardHandler(catalog *services.CatalogService, collections *services.CollectionService) *CardHandler {
	return &CardHandler{catalog: catalog, collections: collections}
}

// SearchCards runs a catalog query and returns a page of cards plus the
// active filters and facet counts.
// GET /api/cards?q=&owned=true&limit=&offset=
func (h *CardHandler) SearchCards(c *gin.Context) {
	limit, ok := intQuery(c, "limit")
	if !ok {
		return
	}
	offset, ok := intQuery(c, "offset")
	if !ok {
		return
	}

	req := services.SearchRequest{Query: c.Query("q")}
	if limit != nil {
		req.Limit = *limit
	}
	if offset != nil {
		req.Offset = *offset
	}
	if c.Query("owned") == "true" {
		owned, err := h.collections.OwnedCardIDs(ownerID(c))
		if err != nil {
			respondError(c, err, "failed to load collection")
			return
		}
		req.Owned = owned
	}

	result, err := h.catalog.Search(req)
	if err != nil {
		respondError(c, err, "search failed")
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetCard returns one card with its set memberships.
func (h *CardHandler) GetCard(c *gin.Context) {
	card, err := h.catalog.GetCard(c.Param("id"))
	if err != nil {
		respondError(c, err, "failed to load card")
		return
	}
	c.JSON(http.StatusOK, card)
}

// GetVariants lists a card's printings, default first.
func (h *CardHandler) GetVariants(c *gin.Context) {
	cardID := c.Param("id")
	if _, err := h.catalog.GetCard(cardID); err != nil {
		respondError(c, err, "failed to load card")
		return
	}
	variants, err := h.catalog.Variants(cardID)
	if err != nil {
		respondError(c, err, "failed to load variants")
		return
	}
	c.JSON(http.StatusOK, gin.H{"card_id": cardID, "variants": variants})
}

func (h *CardHandler) ListSets(c *gin.Context) {
	sets, err := h.catalog.Sets()
	if err != nil {
		respondError(c, err, "failed to load sets")
		return
	}
	c.JSON(http.StatusOK, gin.H{"sets": sets})
}

// EditQuery applies one filter edit to a query string and returns the new
// query with its decoded filters, so clients never build query syntax.
// GET /api/search/edit?q=&op=toggle|range|numeric|mode|clear&field=&value=&mode=&min=&max=&cmp=
func (h *CardHandler) EditQuery(c *gin.Context) {
	query := c.Query("q")
	field := c.Query("field")

	var next string
	switch op := c.Query("op"); op {
	case "toggle":
		if field == "" || c.Query("value") == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "field and value are required"})
			return
		}
		next = search.ToggleFieldValue(query, field, c.Query("value"), search.Mode(c.Query("mode")))
	case "mode":
		mode := search.Mode(c.Query("mode"))
		if field == "" || !mode.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "field and a mode of any, all or none are required"})
			return
		}
		next = search.SetFieldMode(query, field, mode)
	case "range":
		minValue, ok := intQuery(c, "min")
		if !ok {
			return
		}
		maxValue, ok := intQuery(c, "max")
		if !ok {
			return
		}
		next = search.SetFieldRange(query, field, minValue, maxValue)
	case "numeric":
		value, ok := intQuery(c, "value")
		if !ok {
			return
		}
		cmp, ok := parseComparator(c.DefaultQuery("cmp", "gte"))
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cmp"})
			return
		}
		next = search.SetFieldNumeric(query, field, cmp, value)
	case "clear":
		next = search.ClearAllFields(query)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown op " + op})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query":   next,
		"filters": search.ExtractFilters(search.Tokenize(next)),
	})
}

func parseComparator(s string) (search.Comparator, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "=", "eq":
		return search.CompareEq, true
	case ">", "gt":
		return search.CompareGt, true
	case ">=", "gte":
		return search.CompareGte, true
	case "<", "lt":
		return search.CompareLt, true
	case "<=", "lte":
		return search.CompareLte, true
	}
	return search.CompareNone, false
}
