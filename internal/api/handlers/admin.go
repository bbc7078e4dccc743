package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/sorcery-tracker/internal/services"
)

type AdminHandler struct {
	prices    *services.PriceService
	catalog   *services.CatalogService
	snapshots *services.ValueSnapshotWorker
}

func NewAdminHandler(prices *services.PriceService, catalog *services.CatalogService, snapshots *services.ValueSnapshotWorker) *AdminHandler {
	return &AdminHandler{prices: prices, catalog: catalog, snapshots: snapshots}
}

// RecordPrices stores price observations pushed by the ingestion process.
// POST /api/admin/prices
func (h *AdminHandler) RecordPrices(c *gin.Context) {
	var reqs []services.RecordPriceRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	recorded := 0
	for _, req := range reqs {
		if _, err := h.prices.RecordSnapshot(req); err != nil {
			respondError(c, err, "failed to record prices")
			return
		}
		recorded++
	}
	c.JSON(http.StatusOK, gin.H{"recorded": recorded})
}

// ReloadCatalog drops the cached catalog after the card database changes.
// POST /api/admin/catalog/reload
func (h *AdminHandler) ReloadCatalog(c *gin.Context) {
	start := time.Now()
	count, err := h.catalog.Reload()
	if err != nil {
		respondError(c, err, "failed to reload catalog")
		return
	}
	log.Printf("Admin: catalog reloaded, %d cards in %s", count, time.Since(start))
	c.JSON(http.StatusOK, gin.H{"cards": count})
}

// GetSnapshotStatus reports when collection values were last recorded.
// GET /api/admin/snapshots/status
func (h *AdminHandler) GetSnapshotStatus(c *gin.Context) {
	if h.snapshots == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "snapshot worker not running"})
		return
	}
	c.JSON(http.StatusOK, h.snapshots.GetStatus())
}

// RunSnapshots records today's value for every collection now.
// POST /api/admin/snapshots/run
func (h *AdminHandler) RunSnapshots(c *gin.Context) {
	if h.snapshots == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "snapshot worker not running"})
		return
	}
	recorded, err := h.snapshots.RunOnce(time.Now())
	if err != nil {
		respondError(c, err, "failed to record snapshots")
		return
	}
	c.JSON(http.StatusOK, gin.H{"recorded": recorded})
}
