package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/codyseavey/sorcery-tracker/internal/api"
	"github.com/codyseavey/sorcery-tracker/internal/config"
	"github.com/codyseavey/sorcery-tracker/internal/database"
	"github.com/codyseavey/sorcery-tracker/internal/metrics"
	"github.com/codyseavey/sorcery-tracker/internal/middleware"
	"github.com/codyseavey/sorcery-tracker/internal/selection"
	"github.com/codyseavey/sorcery-tracker/internal/services"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to the TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := database.Initialize(cfg.Database.Path, cfg.Database.LogLevel); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	db := database.GetDB()

	interval, _ := cfg.SnapshotInterval()
	catalog := services.NewCatalogService(db, cfg.Search.CacheSize)
	collections := services.NewCollectionService(db)
	decks := services.NewDeckService(db)
	prices := services.NewPriceService(db)

	// Warm the catalog so the first search doesn't pay for the load
	if cards, err := catalog.Snapshot(); err != nil {
		log.Printf("Catalog: initial load failed: %v", err)
	} else {
		log.Printf("Catalog: loaded %d cards", len(cards))
	}
	metrics.UpdateCollectionMetrics(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var snapshots *services.ValueSnapshotWorker
	if cfg.Snapshots.Enabled {
		snapshots = services.NewValueSnapshotWorker(db, collections, interval)
		go snapshots.Start(ctx)
	}

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.RPS > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	}
	if cfg.Server.AdminKey == "" {
		log.Println("Warning: admin_key is not set, admin routes are open")
	}

	router := api.NewRouter(api.Deps{
		DB:          db,
		Catalog:     catalog,
		Decks:       decks,
		Collections: collections,
		Prices:      prices,
		Snapshots:   snapshots,
		Selections:  selection.NewRegistry(),
		RateLimiter: limiter,
		AdminKey:    cfg.Server.AdminKey,
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	log.Println("Server stopped")
}
