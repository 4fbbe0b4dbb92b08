// Package metrics defines the Prometheus instrumentation for the lead pipeline.
// Metrics are registered on the default registry and served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// LeadsSubmitted counts lead submissions by outcome
	// (accepted, rejected, nurture).
	LeadsSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leads_submitted_total",
			Help: "Total number of lead submissions by outcome",
		},
		[]string{"outcome"},
	)

	// LeadsByCategory counts scored leads by category.
	LeadsByCategory = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leads_scored_total",
			Help: "Total number of scored leads by category",
		},
		[]string{"category"},
	)

	// MatchFunnelSurvivors records how many contractors survived each
	// matching stage (eligibility, performance, capacity).
	MatchFunnelSurvivors = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "match_funnel_survivors",
			Help:    "Contractors surviving each matching funnel stage",
			Buckets: prometheus.LinearBuckets(0, 5, 10),
		},
		[]string{"stage"},
	)

	// MatchOutcomes counts matching results (matched, no_contractor, at_capacity).
	MatchOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "match_outcomes_total",
			Help: "Total number of matching attempts by outcome",
		},
		[]string{"outcome"},
	)

	// BillingOutcomes counts billing attempts (paid, failed, skipped_duplicate,
	// skipped_short_call).
	BillingOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_outcomes_total",
			Help: "Total number of call billing attempts by outcome",
		},
		[]string{"outcome"},
	)

	// TrackingPoolAvailable is the current number of available tracking numbers.
	TrackingPoolAvailable = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tracking_pool_available",
			Help: "Number of tracking numbers currently available",
		},
	)

	// TrackingPoolUtilization is the assigned fraction of the tracking pool.
	TrackingPoolUtilization = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tracking_pool_utilization",
			Help: "Fraction of the tracking number pool currently assigned",
		},
	)

	// TrackingPoolExhausted counts assignments that proceeded without a number.
	TrackingPoolExhausted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tracking_pool_exhausted_total",
			Help: "Total number of assignments made with the pool exhausted",
		},
	)
)

// Register registers all pipeline metrics on the default registry.
// Safe to call once from the composition root.
func Register() {
	prometheus.MustRegister(
		LeadsSubmitted,
		LeadsByCategory,
		MatchFunnelSurvivors,
		MatchOutcomes,
		BillingOutcomes,
		TrackingPoolAvailable,
		TrackingPoolUtilization,
		TrackingPoolExhausted,
	)
}
