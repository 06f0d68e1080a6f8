package businessflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Promo messages partitioned by channel and delivery outcome
	promoMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promo_messages_total",
			Help: "Total number of promo messages processed",
		},
		[]string{"channel", "status"},
	)

	// Wall time of a full campaign dispatch
	promoCampaignDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "promo_campaign_duration_seconds",
			Help:    "Promo campaign dispatch latencies in seconds",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"channel"},
	)
)
