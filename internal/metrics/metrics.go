// Package metrics holds Prometheus instruments that are used across the
// service.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ValidationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apply_validation_failures_total",
			Help: "Step submissions rejected by validation, by form and step.",
		}, []string{"form", "step"})

	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apply_submissions_total",
			Help: "Final submissions, by form and outcome (success, invalid, error).",
		}, []string{"form", "outcome"})

	RemindersSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apply_expiry_reminders_sent_total",
			Help: "Expiry reminder emails confirmed sent, by stage.",
		}, []string{"stage"})

	RemindersFailedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apply_expiry_reminders_failed_total",
			Help: "Expiry reminder emails that failed to send, by stage.",
		}, []string{"stage"})

	DeletionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "apply_expiry_deletions_total",
			Help: "Expired pending applications deleted.",
		})

	DeletionErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "apply_expiry_deletion_errors_total",
			Help: "Failed deletions of expired pending applications.",
		})

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "apply_http_request_duration_seconds",
			Help:    "Request latency, by method and status class.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "status"})

	FormsLoaded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "apply_forms_loaded",
			Help: "Number of form definitions currently registered.",
		})
)

func init() {
	prometheus.MustRegister(
		ValidationFailuresTotal,
		SubmissionsTotal,
		RemindersSentTotal,
		RemindersFailedTotal,
		DeletionsTotal,
		DeletionErrorsTotal,
		HTTPRequestDuration,
		FormsLoaded,
	)
}
