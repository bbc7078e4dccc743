package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/sorcery-tracker/internal/services"
)

const defaultPriceHistory = 30

type PriceHandler struct {
	priceService *services.PriceService
}

func NewPriceHandler(priceService *services.PriceService) *PriceHandler {
	return &PriceHandler{priceService: priceService}
}

// GetVariantPrices returns a variant's latest market price and recent snapshots.
// GET /api/variants/:id/prices?limit=
func (h *PriceHandler) GetVariantPrices(c *gin.Context) {
	variantID := c.Param("id")
	if variantID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "variant id is required"})
		return
	}
	limit, ok := intQuery(c, "limit")
	if !ok {
		return
	}
	n := defaultPriceHistory
	if limit != nil {
		n = *limit
	}

	prices, err := h.priceService.PricesForVariant(variantID, n)
	if err != nil {
		respondError(c, err, "failed to load prices")
		return
	}
	c.JSON(http.StatusOK, prices)
}
