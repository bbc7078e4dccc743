package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/codyseavey/sorcery-tracker/internal/api/handlers"
	"github.com/codyseavey/sorcery-tracker/internal/metrics"
	"github.com/codyseavey/sorcery-tracker/internal/middleware"
	"github.com/codyseavey/sorcery-tracker/internal/selection"
	"github.com/codyseavey/sorcery-tracker/internal/services"
)

// Deps are the services the HTTP layer serves.
type Deps struct {
	DB          *gorm.DB
	Catalog     *services.CatalogService
	Decks       *services.DeckService
	Collections *services.CollectionService
	Prices      *services.PriceService
	Snapshots   *services.ValueSnapshotWorker
	Selections  *selection.Registry
	RateLimiter *middleware.RateLimiter

	AdminKey    string
	CORSOrigins []string
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(deps Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(metrics.HTTPMetrics())

	if len(deps.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     deps.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/health", func(c *gin.Context) {
		status := "ok"
		code := http.StatusOK
		if sqlDB, err := deps.DB.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			status = "database unavailable"
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	cardHandler := handlers.NewCardHandler(deps.Catalog, deps.Collections)
	deckHandler := handlers.NewDeckHandler(deps.Decks, deps.Catalog)
	collectionHandler := handlers.NewCollectionHandler(deps.Collections, deps.Catalog)
	selectionHandler := handlers.NewSelectionHandler(deps.Selections, deps.Catalog, deps.Collections, deps.Decks)
	priceHandler := handlers.NewPriceHandler(deps.Prices)
	adminHandler := handlers.NewAdminHandler(deps.Prices, deps.Catalog, deps.Snapshots)

	api := router.Group("/api")

	// Public
	api.GET("/auth/status", middleware.AuthStatus(deps.AdminKey))
	api.POST("/auth/verify", middleware.VerifyToken(deps.DB))

	user := api.Group("", middleware.UserAuth(deps.DB))
	limited := middleware.RateLimit(deps.RateLimiter)
	{
		user.GET("/cards", cardHandler.SearchCards)
		user.GET("/cards/:id", cardHandler.GetCard)
		user.GET("/cards/:id/variants", cardHandler.GetVariants)
		user.GET("/sets", cardHandler.ListSets)
		user.GET("/search/edit", cardHandler.EditQuery)
		user.GET("/variants/:id/prices", priceHandler.GetVariantPrices)

		user.GET("/decks", deckHandler.ListDecks)
		user.POST("/decks", limited, deckHandler.CreateDeck)
		user.GET("/decks/:id", deckHandler.GetDeck)
		user.PATCH("/decks/:id", limited, deckHandler.RenameDeck)
		user.DELETE("/decks/:id", limited, deckHandler.DeleteDeck)
		user.POST("/decks/:id/cards", limited, deckHandler.AddCard)
		user.POST("/decks/:id/cards/batch", limited, deckHandler.BatchAdd)
		user.POST("/decks/:id/import", limited, deckHandler.ImportDecklist)
		user.GET("/decks/:id/export", deckHandler.ExportDecklist)
		user.GET("/decks/:id/validate", deckHandler.ValidateDeck)
		user.DELETE("/decks/cards/:cellId", limited, deckHandler.RemoveCard)

		user.GET("/collection", collectionHandler.GetCollection)
		user.POST("/collection", limited, collectionHandler.AddToCollection)
		user.GET("/collection/stats", collectionHandler.GetStats)
		user.GET("/collection/history", collectionHandler.GetValueHistory)
		user.GET("/collection/export", collectionHandler.ExportCSV)
		user.POST("/collection/batch", limited, collectionHandler.BatchAdd)
		user.POST("/collection/batch-remove", limited, collectionHandler.BatchRemove)
		user.POST("/collection/import", limited, collectionHandler.ImportCSV)
		user.PATCH("/collection/:rowId", limited, collectionHandler.UpdateRow)
		user.DELETE("/collection/:rowId", limited, collectionHandler.RemoveRow)

		user.GET("/selection", selectionHandler.GetSelection)
		user.POST("/selection", selectionHandler.UpdateSelection)
		user.DELETE("/selection", selectionHandler.ClearSelection)
		user.POST("/selection/commit", limited, selectionHandler.CommitSelection)
	}

	admin := api.Group("/admin", middleware.AdminKeyAuth(deps.AdminKey))
	{
		admin.POST("/prices", adminHandler.RecordPrices)
		admin.POST("/catalog/reload", adminHandler.ReloadCatalog)
		admin.GET("/snapshots/status", adminHandler.GetSnapshotStatus)
		admin.POST("/snapshots/run", adminHandler.RunSnapshots)
	}

	return router
}
