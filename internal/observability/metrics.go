package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the ledger service.
type Metrics struct {
	// --- Core Processing ---
	CoreRequestsApplied  *prometheus.CounterVec
	CoreRequestsRejected *prometheus.CounterVec
	CoreRequestDuration  *prometheus.HistogramVec
	CoreJournals         *prometheus.CounterVec
	CoreSequence         prometheus.Gauge

	// --- Channel & Backpressure ---
	ChannelSize        *prometheus.GaugeVec
	ChannelCapacity    *prometheus.GaugeVec
	ChannelUtilization *prometheus.GaugeVec
	ProjectionDrops    *prometheus.CounterVec
	PersistBackpressure prometheus.Counter

	// --- Idempotency & Ordering ---
	IdempotencyDuplicates *prometheus.CounterVec
	DedupLRUSize          prometheus.Gauge
	DedupLRUEvictions     prometheus.Counter
	NonceRejections       *prometheus.CounterVec

	// --- Banking Domain ---
	InterestAccruedTotal  prometheus.Counter
	LoansOriginated       prometheus.Counter
	LoansClosed           prometheus.Counter
	LoanOutstanding       prometheus.Gauge
	OffersCreated         prometheus.Counter
	OffersMatched         prometheus.Counter
	OffersCancelled       prometheus.Counter

	// --- Persistence ---
	PersistRequestsWritten prometheus.Counter
	PersistJournalsWritten prometheus.Counter
	PersistBatchDur        prometheus.Histogram
	PersistErrors          *prometheus.CounterVec
	PersistRetry           prometheus.Counter
	PersistLastSequence    prometheus.Gauge

	// --- Snapshot & Replay ---
	SnapshotTaken     prometheus.Counter
	SnapshotDuration  prometheus.Histogram
	SnapshotLastSeq   prometheus.Gauge
	ReplayRequests    prometheus.Counter
	ReplayDuration    prometheus.Gauge

	// --- Projections ---
	ProjectionUpdateDur *prometheus.HistogramVec
	ProjectionSequence  prometheus.Gauge

	// --- Query API ---
	QueryRequests *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec
	QueryErrors   *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	latencyBuckets := []float64{
		0.000001, 0.000005, 0.00001, 0.000025, 0.00005,
		0.0001, 0.00025, 0.0005, 0.001, 0.002, 0.005, 0.01,
	}

	return &Metrics{
		// Core Processing
		CoreRequestsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bank_core_requests_applied_total",
			Help: "Requests successfully applied by core",
		}, []string{"request_type"}),

		CoreRequestsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bank_core_requests_rejected_total",
			Help: "Requests rejected (dedup, nonce, validation)",
		}, []string{"request_type", "reason"}),

		CoreRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bank_core_request_apply_duration_seconds",
			Help:    "Time to apply a single request in core",
			Buckets: latencyBuckets,
		}, []string{"request_type"}),

		CoreJournals: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bank_core_journals_generated_total",
			Help: "Journal entries generated",
		}, []string{"journal_type"}),

		CoreSequence: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "bank_core_sequence",
			Help: "Current global sequence number",
		}),

		// Channel & Backpressure
		ChannelSize: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bank_channel_size",
			Help: "Current items in channel",
		}, []string{"name"}),

		ChannelCapacity: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bank_channel_capacity",
			Help: "Channel capacity (constant)",
		}, []string{"name"}),

		ChannelUtilization: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bank_channel_utilization",
			Help: "Channel size / capacity (0.0-1.0)",
		}, []string{"name"}),

		ProjectionDrops: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bank_projection_drops_total",
			Help: "Outputs dropped due to full projection channel",
		}, []string{"projection"}),

		PersistBackpressure: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bank_persist_backpressure_total",
			Help: "Times core blocked on persist channel",
		}),

		// Idempotency & Ordering
		IdempotencyDuplicates: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bank_idempotency_duplicates_total",
			Help: "Duplicates caught (lru/postgres)",
		}, []string{"request_type", "tier"}),

		DedupLRUSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "bank_dedup_lru_size",
			Help: "Current LRU occupancy",
		}),

		DedupLRUEvictions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bank_dedup_lru_evictions_total",
			Help: "LRU evictions",
		}),

		NonceRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bank_nonce_rejections_total",
			Help: "Stale or gapped nonce rejections",
		}, []string{"request_type"}),

		// Banking Domain
		InterestAccruedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bank_interest_accrued_total",
			Help: "Total savings interest credited",
		}),

		LoansOriginated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bank_loans_originated_total",
			Help: "Bank loans disbursed",
		}),

		LoansClosed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bank_loans_closed_total",
			Help: "Bank loans fully repaid",
		}),

		LoanOutstanding: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "bank_loan_outstanding_principal",
			Help: "Outstanding bank loan principal",
		}),

		OffersCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bank_offers_created_total",
			Help: "P2P loan offers created",
		}),

		OffersMatched: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bank_offers_matched_total",
			Help: "P2P loan offers accepted",
		}),

		OffersCancelled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bank_offers_cancelled_total",
			Help: "P2P loan offers cancelled",
		}),

		// Persistence
		PersistRequestsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bank_persist_requests_written_total",
			Help: "Requests written to Postgres",
		}),

		PersistJournalsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bank_persist_journals_written_total",
			Help: "Journal entries written to Postgres",
		}),

		PersistBatchDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "bank_persist_batch_duration_seconds",
			Help:    "Postgres batch write duration",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),

		PersistErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bank_persist_errors_total",
			Help: "Persistence errors",
		}, []string{"error_type"}),

		PersistRetry: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bank_persist_retry_total",
			Help: "Persistence retries",
		}),

		PersistLastSequence: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "bank_persist_last_sequence",
			Help: "Last persisted sequence",
		}),

		// Snapshot & Replay
		SnapshotTaken: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bank_snapshot_taken_total",
			Help: "Snapshots created",
		}),

		SnapshotDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "bank_snapshot_duration_seconds",
			Help:    "Snapshot creation time",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0},
		}),

		SnapshotLastSeq: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "bank_snapshot_last_sequence",
			Help: "Sequence of last snapshot",
		}),

		ReplayRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bank_replay_requests_total",
			Help: "Requests replayed on startup",
		}),

		ReplayDuration: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "bank_replay_duration_seconds",
			Help: "Total replay time",
		}),

		// Projections
		ProjectionUpdateDur: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bank_projection_update_duration_seconds",
			Help:    "Projection table update duration",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
		}, []string{"projection"}),

		ProjectionSequence: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "bank_projection_sequence",
			Help: "Last sequence applied to projections",
		}),

		// Query API
		QueryRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bank_query_requests_total",
			Help: "Query requests",
		}, []string{"endpoint", "status"}),

		QueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bank_query_duration_seconds",
			Help:    "Query latency",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"endpoint"}),

		QueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bank_query_errors_total",
			Help: "Query errors",
		}, []string{"endpoint", "code"}),
	}
}

// SetChannelMetrics updates channel utilization metrics.
func (m *Metrics) SetChannelMetrics(name string, size, capacity int) {
	m.ChannelSize.WithLabelValues(name).Set(float64(size))
	m.ChannelCapacity.WithLabelValues(name).Set(float64(capacity))
	if capacity > 0 {
		m.ChannelUtilization.WithLabelValues(name).Set(float64(size) / float64(capacity))
	}
}
