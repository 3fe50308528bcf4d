package graph

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const tierLabel = "tier"

var (
	graphBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "jera_graph_build_duration_seconds",
		Help: "The time to build a hierarchical content graph.",
	})

	graphNodes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "jera_graph_nodes",
		Help: "The number of nodes per tier in the last built graph.",
	}, []string{
		tierLabel,
	})

	straddleReassignments = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jera_graph_straddle_reassignments",
		Help: "Content reassigned to a coarser tier because it straddles cell boundaries.",
	})
)

func instrumentGraphBuild(t *Tree, start time.Time) {
	graphBuildDuration.Observe(time.Since(start).Seconds())
	for tier, count := range t.CountByTier() {
		graphNodes.With(prometheus.Labels{tierLabel: string(tier)}).Set(float64(count))
	}
}

func instrumentStraddle() {
	straddleReassignments.Inc()
}
