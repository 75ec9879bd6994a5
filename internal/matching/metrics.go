package matching

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	likesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matching_likes_total",
			Help: "Total number of likes recorded",
		},
	)

	matchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matching_matches_total",
			Help: "Total number of mutual matches detected",
		},
	)

	suggestionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matching_suggestion_duration_seconds",
			Help:    "Time spent building a suggestion page",
			Buckets: prometheus.DefBuckets,
		},
	)

	suggestionResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matching_suggestion_results",
			Help:    "Distribution of suggestion page sizes",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)
)

func RecordLike() {
	likesTotal.Inc()
}

func RecordMatch() {
	matchesTotal.Inc()
}

func ObserveSuggestionQuery(duration time.Duration, results int) {
	suggestionDuration.Observe(duration.Seconds())
	suggestionResults.Observe(float64(results))
}
