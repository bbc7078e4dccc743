package services

import (
	"context"
	"log"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/codyseavey/sorcery-tracker/internal/metrics"
	"github.com/codyseavey/sorcery-tracker/internal/models"
)

const defaultSnapshotInterval = 6 * time.Hour

// ValueSnapshotWorker periodically records each collection's market value for
// the history chart and refreshes the collection gauges.
type ValueSnapshotWorker struct {
	db             *gorm.DB
	collections    *CollectionService
	updateInterval time.Duration
	mu             sync.RWMutex

	// Stats
	snapshotsToday int
	lastRunTime    time.Time
	lastRunDay     time.Time
}

type SnapshotStatus struct {
	LastRunTime    time.Time `json:"last_run_time"`
	NextRunTime    time.Time `json:"next_run_time"`
	SnapshotsToday int       `json:"snapshots_today"`
}

func NewValueSnapshotWorker(db *gorm.DB, collections *CollectionService, interval time.Duration) *ValueSnapshotWorker {
	if interval <= 0 {
		interval = defaultSnapshotInterval
	}
	return &ValueSnapshotWorker{
		db:             db,
		collections:    collections,
		updateInterval: interval,
	}
}

// Start runs the worker until ctx is cancelled.
func (w *ValueSnapshotWorker) Start(ctx context.Context) {
	log.Printf("Value snapshot worker started: interval %v", w.updateInterval)

	// Run immediately on startup
	if recorded, err := w.RunOnce(time.Now()); err != nil {
		log.Printf("Value snapshot worker: initial run failed: %v", err)
	} else {
		log.Printf("Value snapshot worker: initial run recorded %d snapshots", recorded)
	}

	ticker := time.NewTicker(w.updateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Value snapshot worker stopping...")
			return
		case <-ticker.C:
			if recorded, err := w.RunOnce(time.Now()); err != nil {
				log.Printf("Value snapshot worker: run failed: %v", err)
			} else if recorded > 0 {
				log.Printf("Value snapshot worker: recorded %d snapshots", recorded)
			}
		}
	}
}

// RunOnce records today's snapshot for every collection and returns how many
// were written. A collection that fails is logged and skipped.
func (w *ValueSnapshotWorker) RunOnce(now time.Time) (recorded int, err error) {
	var collections []models.Collection
	if err := w.db.Find(&collections).Error; err != nil {
		return 0, err
	}

	for _, c := range collections {
		if _, err := w.collections.RecordValueSnapshot(c.ID, now); err != nil {
			log.Printf("Value snapshot worker: collection %s failed: %v", c.ID, err)
			metrics.ValueSnapshotsTotal.WithLabelValues("error").Inc()
			continue
		}
		metrics.ValueSnapshotsTotal.WithLabelValues("ok").Inc()
		recorded++
	}

	metrics.UpdateCollectionMetrics(w.db)

	day := now.UTC().Truncate(24 * time.Hour)
	w.mu.Lock()
	if !w.lastRunDay.Equal(day) {
		w.snapshotsToday = 0
		w.lastRunDay = day
	}
	w.snapshotsToday += recorded
	w.lastRunTime = now
	w.mu.Unlock()

	return recorded, nil
}

// GetStatus returns the current status
func (w *ValueSnapshotWorker) GetStatus() SnapshotStatus {
	w.mu.RLock()
	defer w.mu.RUnlock()

	next := time.Now().Add(w.updateInterval)
	if !w.lastRunTime.IsZero() {
		next = w.lastRunTime.Add(w.updateInterval)
	}
	return SnapshotStatus{
		LastRunTime:    w.lastRunTime,
		NextRunTime:    next,
		SnapshotsToday: w.snapshotsToday,
	}
}
