// Package metrics provides the centralized Prometheus registry for the screener.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name
const Namespace = "stock_screener"

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	ScansTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "scans_total",
		Help:      "Total number of scans by status",
	}, []string{"status"})
	NewSignalsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "new_signals_total",
		Help:      "Total number of new or upgraded signals detected by the monitor",
	})
	FetchErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "fetch_errors_total",
		Help:      "Total number of failed price fetches by source",
	}, []string{"source"})
	CacheLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "cache_lookups_total",
		Help:      "Bar cache lookups by source and result",
	}, []string{"source", "result"})
	NotificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "notifications_total",
		Help:      "Notifications sent by channel and status",
	}, []string{"channel", "status"})
	CircuitBreakerTripsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "circuit_breaker_trips_total",
		Help:      "Total number of circuit breaker trips",
	})
)

// Gauge metrics
var (
	SignalsByLevel = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "signals",
		Help:      "Signals in the latest scan by level",
	}, []string{"level"})
	WebsocketClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "websocket_clients",
		Help:      "Connected dashboard websocket clients",
	})
)

// Histogram metrics
var (
	ScanDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "scan_duration_seconds",
		Help:      "Duration of a full scan in seconds",
		Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(ScansTotal)
		registry.MustRegister(NewSignalsTotal)
		registry.MustRegister(FetchErrorsTotal)
		registry.MustRegister(CacheLookupsTotal)
		registry.MustRegister(NotificationsTotal)
		registry.MustRegister(CircuitBreakerTripsTotal)

		registry.MustRegister(SignalsByLevel)
		registry.MustRegister(WebsocketClients)
		registry.MustRegister(ScanDuration)

		// Backtest metrics
		registry.MustRegister(BacktestRunsTotal)
		registry.MustRegister(BacktestTradesTotal)
		registry.MustRegister(BacktestDuration)

		// Optimizer metrics
		registry.MustRegister(OptimizerCombinationsTotal)
		registry.MustRegister(OptimizerQualified)
		registry.MustRegister(OptimizerBestReturn)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return InitRegistry()
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordScan records a completed scan.
func RecordScan(status string, durationSeconds float64) {
	ScansTotal.WithLabelValues(status).Inc()
	ScanDuration.Observe(durationSeconds)
}

// UpdateSignalsByLevel replaces the per-level signal gauges.
func UpdateSignalsByLevel(counts map[string]int) {
	SignalsByLevel.Reset()
	for level, n := range counts {
		SignalsByLevel.WithLabelValues(level).Set(float64(n))
	}
}

// RecordNewSignals counts signals reported by the monitor.
func RecordNewSignals(n int) {
	NewSignalsTotal.Add(float64(n))
}

// RecordFetchError counts a failed price fetch.
func RecordFetchError(source string) {
	FetchErrorsTotal.WithLabelValues(source).Inc()
}

// RecordCacheLookup counts a bar cache hit or miss.
func RecordCacheLookup(source string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookupsTotal.WithLabelValues(source, result).Inc()
}

// RecordNotification counts a notification attempt.
func RecordNotification(channel string, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	NotificationsTotal.WithLabelValues(channel, status).Inc()
}

// RecordCircuitBreakerTrip records a circuit breaker trip event.
func RecordCircuitBreakerTrip() {
	CircuitBreakerTripsTotal.Inc()
}

// UpdateWebsocketClients sets the connected client gauge.
func UpdateWebsocketClients(n int) {
	WebsocketClients.Set(float64(n))
}
