package metrics

import "github.com/prometheus/client_golang/prometheus"

// Optimizer counter vectors
var (
	OptimizerCombinationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "optimizer_combinations_total",
		Help:      "Parameter combinations evaluated by the optimizer by status",
	}, []string{"status"})
)

// Optimizer gauges
var (
	OptimizerQualified = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "optimizer_qualified_combinations",
		Help:      "Combinations meeting the target in the latest sweep",
	})
	OptimizerBestReturn = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "optimizer_best_return_percent",
		Help:      "Best mean annualized return of the latest sweep by ranking metric",
	}, []string{"rank_by"})
)

// RecordSweep records the outcome of an optimizer sweep.
func RecordSweep(completed, incomplete, qualified int, rankBy string, best float64) {
	OptimizerCombinationsTotal.WithLabelValues("completed").Add(float64(completed))
	if incomplete > 0 {
		OptimizerCombinationsTotal.WithLabelValues("incomplete").Add(float64(incomplete))
	}
	OptimizerQualified.Set(float64(qualified))
	OptimizerBestReturn.WithLabelValues(rankBy).Set(best)
}
