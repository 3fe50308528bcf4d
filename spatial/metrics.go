package spatial

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	indexBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "jera_index_build_duration_seconds",
		Help: "The time to build a spatial index.",
	})

	indexedAssets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "jera_index_assets",
		Help: "The number of assets held by the last built spatial index.",
	})

	skippedAssets = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jera_index_skipped_assets",
		Help: "The number of assets excluded from spatial index builds.",
	})

	regionQueries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jera_index_region_queries",
		Help: "The number of region queries served.",
	})
)

func instrumentIndexBuild(indexed, skipped int, start time.Time) {
	indexBuildDuration.Observe(time.Since(start).Seconds())
	indexedAssets.Set(float64(indexed))
	skippedAssets.Add(float64(skipped))
}

func instrumentIndexQuery() {
	regionQueries.Inc()
}
