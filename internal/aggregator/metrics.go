package aggregator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reddit_topic_subreddit_fetches_total",
			Help: "Per-subreddit fetch outcomes during topic aggregation",
		},
		[]string{"outcome"},
	)

	aggregationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reddit_topic_aggregation_duration_seconds",
			Help:    "Wall time of complete topic aggregations",
			Buckets: prometheus.DefBuckets,
		},
	)
)
