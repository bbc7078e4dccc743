package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/sorcery-tracker/internal/importer"
	"github.com/codyseavey/sorcery-tracker/internal/models"
	"github.com/codyseavey/sorcery-tracker/internal/services"
)

// maxImportSize bounds CSV uploads.
const maxImportSize = 5 << 20

type CollectionHandler struct {
	collections *services.CollectionService
	catalog     *services.CatalogService
}

func NewCollectionHandler(collections *services.CollectionService, catalog *services.CatalogService) *CollectionHandler {
	return &CollectionHandler{collections: collections, catalog: catalog}
}

// GetCollection returns every owned row with its card, variant and market price.
func (h *CollectionHandler) GetCollection(c *gin.Context) {
	rows, err := h.collections.Get(ownerID(c))
	if err != nil {
		respondError(c, err, "failed to load collection")
		return
	}
	c.JSON(http.StatusOK, gin.H{"cards": rows})
}

func (h *CollectionHandler) AddToCollection(c *gin.Context) {
	var req models.AddToCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	row, err := h.collections.Add(ownerID(c), req)
	if err != nil {
		respondError(c, err, "failed to add to collection")
		return
	}
	c.JSON(http.StatusOK, row)
}

func (h *CollectionHandler) GetStats(c *gin.Context) {
	stats, err := h.collections.Stats(ownerID(c))
	if err != nil {
		respondError(c, err, "failed to compute stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// UpdateRow edits a row; a quantity of 0 or less deletes it.
// PATCH /api/collection/:rowId
func (h *CollectionHandler) UpdateRow(c *gin.Context) {
	rowID, ok := uintParam(c, "rowId")
	if !ok {
		return
	}
	var req models.UpdateCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	row, err := h.collections.UpdateRow(ownerID(c), rowID, req)
	if err != nil {
		respondError(c, err, "failed to update collection")
		return
	}
	if row == nil {
		c.JSON(http.StatusOK, gin.H{"deleted": true})
		return
	}
	c.JSON(http.StatusOK, row)
}

func (h *CollectionHandler) RemoveRow(c *gin.Context) {
	rowID, ok := uintParam(c, "rowId")
	if !ok {
		return
	}
	if err := h.collections.Remove(ownerID(c), rowID); err != nil {
		respondError(c, err, "failed to remove from collection")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// BatchAdd adds many cards at once. Unknown cards are skipped.
// POST /api/collection/batch
func (h *CollectionHandler) BatchAdd(c *gin.Context) {
	var req models.BatchCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	added, err := h.collections.BatchAdd(ownerID(c), req.Items)
	if err != nil {
		respondError(c, err, "failed to add cards")
		return
	}
	c.JSON(http.StatusOK, models.BatchAddResponse{Added: added})
}

// BatchRemove removes copies oldest row first.
// POST /api/collection/batch-remove
func (h *CollectionHandler) BatchRemove(c *gin.Context) {
	var req models.BatchRemoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	removed, err := h.collections.BatchRemove(ownerID(c), req.Items)
	if err != nil {
		respondError(c, err, "failed to remove cards")
		return
	}
	c.JSON(http.StatusOK, models.BatchRemoveResponse{Removed: removed})
}

// ImportCSV accepts a CSV either as a multipart "file" field or as the raw
// request body.
// POST /api/collection/import
func (h *CollectionHandler) ImportCSV(c *gin.Context) {
	var src io.Reader = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportSize)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		header, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}
		if header.Size > maxImportSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
			return
		}
		file, err := header.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		defer file.Close()
		src = file
	}

	rows, problems, err := importer.ParseCSV(src)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	items, unresolved := importer.CollectionBatch(rows, h.catalog)
	problems = append(problems, unresolved...)

	added, err := h.collections.BatchAdd(ownerID(c), items)
	if err != nil {
		respondError(c, err, "failed to import collection")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"added":    added,
		"rows":     len(rows),
		"problems": problems,
	})
}

// ExportCSV streams the collection in the import format.
// GET /api/collection/export
func (h *CollectionHandler) ExportCSV(c *gin.Context) {
	rows, err := h.collections.Get(ownerID(c))
	if err != nil {
		respondError(c, err, "failed to load collection")
		return
	}
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="collection.csv"`)
	c.Status(http.StatusOK)
	if err := importer.WriteCSV(c.Writer, rows); err != nil {
		_ = c.Error(err)
	}
}

// GetValueHistory returns daily value snapshots.
// GET /api/collection/history?period=week|month|year|all
func (h *CollectionHandler) GetValueHistory(c *gin.Context) {
	history, err := h.collections.History(ownerID(c), c.DefaultQuery("period", "month"))
	if err != nil {
		respondError(c, err, "failed to load value history")
		return
	}
	c.JSON(http.StatusOK, history)
}
