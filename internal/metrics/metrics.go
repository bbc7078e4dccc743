package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sorcery_tracker"

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, route and status",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method and route",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	HTTPRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "http_requests_in_flight",
		Help:      "Requests currently being served",
	})

	CollectionCardsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "collection_cards_total",
		Help:      "Total card quantity across all collections",
	})

	CollectionCardsByType = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "collection_cards_by_type",
		Help:      "Collection card quantity by card type",
	}, []string{"type"})

	CollectionValueUSD = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "collection_value_usd",
		Help:      "Market value of all collections at latest prices",
	})

	CardDatabaseSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "card_database_size",
		Help:      "Number of cards in the catalog",
	})

	DeckMutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "deck_mutations_total",
		Help:      "Deck mutations by operation and result",
	}, []string{"op", "result"})

	CollectionMutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "collection_mutations_total",
		Help:      "Collection mutations by operation and result",
	}, []string{"op", "result"})

	BatchItemsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "batch_items_skipped_total",
		Help:      "Batch items that could not be applied, by target",
	}, []string{"target"})

	SearchCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "search_cache_hits_total",
		Help:      "Search requests served from the result cache",
	})

	SearchCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "search_cache_misses_total",
		Help:      "Search requests computed against the catalog snapshot",
	})

	CatalogReloadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "catalog_reloads_total",
		Help:      "Catalog snapshot loads from the database",
	})

	ValueSnapshotsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "value_snapshots_total",
		Help:      "Collection value snapshots by result",
	}, []string{"result"})
)

// Result returns the label used for an operation outcome.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
