package pool

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus metrics for the engine.
type Metrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	swapVolume        *prometheus.CounterVec
	swapFees          *prometheus.CounterVec
	pools             prometheus.Gauge
	journalFailures   prometheus.Counter
}

// NewMetrics creates and registers the engine metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "amm_operations_total",
			Help: "Pool operations, labeled by operation and result.",
		}, []string{"operation", "result"}),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "amm_operation_duration_seconds",
			Help:    "Time taken to execute a pool operation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		swapVolume: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "amm_swap_volume_total",
			Help: "Swap input in base units, labeled by pool and input asset.",
		}, []string{"pool", "asset"}),
		swapFees: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "amm_swap_fees_total",
			Help: "Swap fees retained by pools in base units, labeled by pool and asset.",
		}, []string{"pool", "asset"}),
		pools: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "amm_pools",
			Help: "Number of registered pools.",
		}),
		journalFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "amm_journal_failures_total",
			Help: "Committed operations whose journal append failed.",
		}),
	}
	reg.MustRegister(m.operationsTotal, m.operationDuration, m.swapVolume, m.swapFees, m.pools, m.journalFailures)
	return m
}

func (m *Metrics) observe(operation string, seconds float64, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.operationsTotal.WithLabelValues(operation, result).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(seconds)
}

func (m *Metrics) swap(pool, asset string, amountIn, fee uint64) {
	if m == nil {
		return
	}
	m.swapVolume.WithLabelValues(pool, asset).Add(float64(amountIn))
	m.swapFees.WithLabelValues(pool, asset).Add(float64(fee))
}

func (m *Metrics) setPools(n int) {
	if m == nil {
		return
	}
	m.pools.Set(float64(n))
}

func (m *Metrics) journalFailed() {
	if m == nil {
		return
	}
	m.journalFailures.Inc()
}
