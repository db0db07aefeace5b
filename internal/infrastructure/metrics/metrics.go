package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iho/godeposit/internal/usecase"
)

const namespace = "godeposit"

// Metrics holds all Prometheus metrics. It implements usecase.Observer and
// the Solana client's call observer.
type Metrics struct {
	// Deposit metrics
	DepositsRecorded  *prometheus.CounterVec
	DepositDuplicates prometheus.Counter
	ScanAnomalies     *prometheus.CounterVec

	// Reconciliation metrics
	ReconcileRuns      *prometheus.CounterVec
	ReconcileDuration  prometheus.Histogram
	CheckpointSlot     *prometheus.GaugeVec
	CheckpointAdvances prometheus.Counter

	// Notification metrics
	NotificationsPublished *prometheus.CounterVec
	NotificationsConsumed  *prometheus.CounterVec
	OutboxRelays           prometheus.Counter

	// Chain RPC metrics
	ChainCalls    *prometheus.CounterVec
	ChainDuration *prometheus.HistogramVec

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

var _ usecase.Observer = (*Metrics)(nil)

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		DepositsRecorded: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "deposits_recorded_total",
				Help:      "Deposits newly applied to the ledger",
			},
			[]string{"asset"},
		),
		DepositDuplicates: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deposit_duplicates_total",
			Help:      "Deposits skipped because the tx id was already recorded",
		}),
		ScanAnomalies: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scan_anomalies_total",
				Help:      "Transactions skipped during a scan, by reason",
			},
			[]string{"reason"},
		),

		ReconcileRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconcile_runs_total",
				Help:      "Reconciliation runs by outcome",
			},
			[]string{"outcome"},
		),
		ReconcileDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconcile_duration_seconds",
			Help:      "Duration of one account reconciliation",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}),
		CheckpointSlot: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "checkpoint_slot",
				Help:      "Last checkpointed slot per address",
			},
			[]string{"address"},
		),
		CheckpointAdvances: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkpoint_advances_total",
			Help:      "Checkpoint writes that moved a cursor forward",
		}),

		NotificationsPublished: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_published_total",
				Help:      "Deposit notifications handed to the broker, by status",
			},
			[]string{"status"},
		),
		NotificationsConsumed: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_consumed_total",
				Help:      "Deposit notifications handled by the consumer, by outcome",
			},
			[]string{"outcome"},
		),
		OutboxRelays: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_relayed_total",
			Help:      "Outbox events republished by the relay",
		}),

		ChainCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chain_rpc_calls_total",
				Help:      "Solana RPC attempts by method and status",
			},
			[]string{"method", "status"},
		),
		ChainDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "chain_rpc_duration_seconds",
				Help:      "Solana RPC attempt duration",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),

		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_duration_seconds",
				Help:      "HTTP request duration",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

func (m *Metrics) DepositRecorded(asset string) {
	m.DepositsRecorded.WithLabelValues(asset).Inc()
}

func (m *Metrics) DepositDuplicate() {
	m.DepositDuplicates.Inc()
}

func (m *Metrics) ScanAnomaly(reason string) {
	m.ScanAnomalies.WithLabelValues(reason).Inc()
}

func (m *Metrics) ReconcileFinished(outcome string, elapsed time.Duration) {
	m.ReconcileRuns.WithLabelValues(outcome).Inc()
	m.ReconcileDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) CheckpointAdvanced(address string, slot uint64) {
	m.CheckpointAdvances.Inc()
	m.CheckpointSlot.WithLabelValues(address).Set(float64(slot))
}

func (m *Metrics) NotificationPublished(ok bool) {
	status := "ok"
	if !ok {
		status = "failed"
	}
	m.NotificationsPublished.WithLabelValues(status).Inc()
}

func (m *Metrics) NotificationConsumed(outcome string) {
	m.NotificationsConsumed.WithLabelValues(outcome).Inc()
}

func (m *Metrics) OutboxRelayed(count int) {
	m.OutboxRelays.Add(float64(count))
}

// ChainCall records one RPC attempt.
func (m *Metrics) ChainCall(method string, elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ChainCalls.WithLabelValues(method, status).Inc()
	m.ChainDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}
