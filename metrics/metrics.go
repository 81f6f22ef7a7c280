package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Generation Metrics
	GenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobagent_generations_total",
			Help: "Total number of application generations",
		},
		[]string{"status"},
	)

	RefinementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobagent_refinements_total",
			Help: "Total number of refinement rounds",
		},
		[]string{"status"},
	)

	// Metering Metrics
	QuotaBlockedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jobagent_quota_blocked_total",
			Help: "Total number of actions blocked by the usage ledger",
		},
	)

	CreditsGrantedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobagent_credits_granted_total",
			Help: "Total number of credits granted",
		},
		[]string{"source"},
	)

	CheckoutSessionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jobagent_checkout_sessions_total",
			Help: "Total number of checkout sessions created",
		},
	)

	// News Metrics
	NewsCacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jobagent_news_cache_hits_total",
			Help: "Total number of news lookups served from cache",
		},
	)

	NewsCacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jobagent_news_cache_misses_total",
			Help: "Total number of news lookups that hit the upstream API",
		},
	)
)
