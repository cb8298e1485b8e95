package observability

import (
	"fmt"
	"math"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type moduleMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	moduleMetricsOnce sync.Once
	moduleRegistry    *moduleMetrics

	ledgerMetricsOnce sync.Once
	ledgerRegistry    *LedgerMetrics
)

// ModuleMetrics returns the lazily-initialised registry used to record
// JSON-RPC method activity.
func ModuleMetrics() *moduleMetrics {
	moduleMetricsOnce.Do(func() {
		moduleRegistry = &moduleMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "market",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "Total JSON-RPC requests segmented by module, method and outcome.",
			}, []string{"module", "method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "market",
				Subsystem: "rpc",
				Name:      "errors_total",
				Help:      "Total JSON-RPC errors segmented by module, method and error code.",
			}, []string{"module", "method", "code"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "market",
				Subsystem: "rpc",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for JSON-RPC handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"module", "method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "market",
				Subsystem: "rpc",
				Name:      "throttles_total",
				Help:      "Count of requests rejected by the rate limiter.",
			}, []string{"reason"}),
		}
		prometheus.MustRegister(
			moduleRegistry.requests,
			moduleRegistry.errors,
			moduleRegistry.latency,
			moduleRegistry.throttles,
		)
	})
	return moduleRegistry
}

// Observe records the outcome of a JSON-RPC call. code is zero on success.
func (m *moduleMetrics) Observe(method string, code int, duration time.Duration) {
	if m == nil {
		return
	}
	module, name := splitMethod(method)
	outcome := "success"
	if code != 0 {
		outcome = "error"
		m.errors.WithLabelValues(module, name, fmt.Sprintf("%d", code)).Inc()
	}
	m.requests.WithLabelValues(module, name, outcome).Inc()
	m.latency.WithLabelValues(module, name).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter. Reasons should be stable
// strings such as "rate_limit".
func (m *moduleMetrics) RecordThrottle(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(reason).Inc()
}

// LedgerMetrics tracks transaction outcomes, escrow custody and settlement
// volume.
type LedgerMetrics struct {
	txs        *prometheus.CounterVec
	escrow     *prometheus.GaugeVec
	settled    *prometheus.CounterVec
	settlement *prometheus.CounterVec
	height     prometheus.Gauge
}

// Ledger returns the singleton ledger metrics registry.
func Ledger() *LedgerMetrics {
	ledgerMetricsOnce.Do(func() {
		ledgerRegistry = &LedgerMetrics{
			txs: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "market",
				Subsystem: "ledger",
				Name:      "transactions_total",
				Help:      "Transactions applied segmented by type and outcome.",
			}, []string{"type", "outcome"}),
			escrow: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "market",
				Subsystem: "ledger",
				Name:      "escrow_balance",
				Help:      "Native value held by each module vault.",
			}, []string{"module"}),
			settled: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "market",
				Subsystem: "ledger",
				Name:      "settlements_total",
				Help:      "Settlements completed segmented by ledger.",
			}, []string{"ledger"}),
			settlement: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "market",
				Subsystem: "ledger",
				Name:      "settlement_volume",
				Help:      "Gross native value settled segmented by ledger.",
			}, []string{"ledger"}),
			height: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "market",
				Subsystem: "ledger",
				Name:      "height",
				Help:      "Number of committed transactions.",
			}),
		}
		prometheus.MustRegister(
			ledgerRegistry.txs,
			ledgerRegistry.escrow,
			ledgerRegistry.settled,
			ledgerRegistry.settlement,
			ledgerRegistry.height,
		)
	})
	return ledgerRegistry
}

// RecordTx counts a committed or rejected transaction.
func (m *LedgerMetrics) RecordTx(txType string, err error) {
	if m == nil {
		return
	}
	outcome := "committed"
	if err != nil {
		outcome = "rejected"
	}
	m.txs.WithLabelValues(label(txType), outcome).Inc()
}

// SetEscrow publishes the current balance of a module vault.
func (m *LedgerMetrics) SetEscrow(module string, balance *big.Int) {
	if m == nil {
		return
	}
	m.escrow.WithLabelValues(label(module)).Set(bigToFloat(balance))
}

// RecordSettlement adds one settlement of gross value to the ledger totals.
func (m *LedgerMetrics) RecordSettlement(ledger string, gross *big.Int) {
	if m == nil {
		return
	}
	m.settled.WithLabelValues(label(ledger)).Inc()
	m.settlement.WithLabelValues(label(ledger)).Add(bigToFloat(gross))
}

// SetHeight publishes the committed height.
func (m *LedgerMetrics) SetHeight(height uint64) {
	if m == nil {
		return
	}
	m.height.Set(float64(height))
}

func splitMethod(method string) (string, string) {
	module, name, ok := strings.Cut(strings.TrimSpace(method), "_")
	if !ok || module == "" {
		return "unknown", label(method)
	}
	return module, name
}

func label(v string) string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}

func bigToFloat(value *big.Int) float64 {
	if value == nil {
		return 0
	}
	floatVal, acc := new(big.Float).SetInt(value).Float64()
	if acc != big.Exact {
		// Guard against NaN/Inf when conversion fails.
		if math.IsNaN(floatVal) || math.IsInf(floatVal, 0) {
			return 0
		}
	}
	return floatVal
}
