// Package metrics holds the review service's business counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Review kinds used as the "kind" label.
const (
	KindAuthenticated = "authenticated"
	KindGuest         = "guest"
)

var (
	ReviewsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviews_created_total",
			Help: "Total number of reviews created",
		},
		[]string{"kind"},
	)

	ModerationActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_moderation_actions_total",
			Help: "Total number of moderation log entries written",
		},
		[]string{"action"},
	)

	Votes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_votes_total",
			Help: "Total number of helpful votes cast",
		},
		[]string{"voter"},
	)

	Reports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_reports_total",
			Help: "Total number of review reports filed",
		},
		[]string{"reason"},
	)

	PublisherBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "review_event_breaker_state",
			Help: "State of the event publish circuit breaker (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)
