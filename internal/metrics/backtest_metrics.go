package metrics

import "github.com/prometheus/client_golang/prometheus"

// Backtest counter vectors
var (
	BacktestRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "backtest_runs_total",
		Help:      "Total number of backtest runs by kind and status",
	}, []string{"kind", "status"})
	BacktestTradesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "backtest_trades_total",
		Help:      "Simulated trades by exit reason",
	}, []string{"exit_reason"})
)

// Backtest histogram vectors
var (
	BacktestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "backtest_duration_seconds",
		Help:      "Duration of backtest runs in seconds",
		Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 30, 60, 300, 1800},
	}, []string{"kind"})
)

// RecordBacktestRun records a backtest run event.
// kind is one of "single", "compare", "optimize", "walk_forward", "performance".
// status is one of "success", "failure", "cancelled".
func RecordBacktestRun(kind, status string, durationSeconds float64) {
	BacktestRunsTotal.WithLabelValues(kind, status).Inc()
	BacktestDuration.WithLabelValues(kind).Observe(durationSeconds)
}

// RecordTrades counts closed trades by exit reason.
func RecordTrades(byReason map[string]int) {
	for reason, n := range byReason {
		BacktestTradesTotal.WithLabelValues(reason).Add(float64(n))
	}
}
