package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// TallyRoundsTotal counts solved rounds by outcome
	TallyRoundsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tally_rounds_total",
			Help: "Total number of election rounds processed",
		},
		[]string{"status"},
	)

	// TallySolveDuration tracks how long a full solve+reduce pass takes
	TallySolveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tally_solve_duration_seconds",
			Help:    "Duration of the solve and reduce pass for a round",
			Buckets: prometheus.DefBuckets,
		},
	)

	// TallyWinnerSupport tracks the stake backing each winner of the last round
	TallyWinnerSupport = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tally_winner_support",
			Help: "Stake supporting a winning candidate in the last solved round",
		},
		[]string{"candidate"},
	)

	// TallySupportEdges tracks the support graph size before and after reduction
	TallySupportEdges = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tally_support_edges",
			Help: "Support edge count for the last solved round",
		},
		[]string{"stage"},
	)
)

func init() {
	// Register metrics with the default registry
	prometheus.MustRegister(TallyRoundsTotal)
	prometheus.MustRegister(TallySolveDuration)
	prometheus.MustRegister(TallyWinnerSupport)
	prometheus.MustRegister(TallySupportEdges)
}
