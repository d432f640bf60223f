// internal/common/metrics/metrics.go
package metrics

import (
	"time"

	"opt-eligibility/internal/eligibility"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Channels an eligibility check can arrive through.
const (
	ChannelHTTP   = "http"
	ChannelWorker = "worker"
	ChannelCLI    = "cli"
)

const (
	OutcomeEligible   = "eligible"
	OutcomeIneligible = "ineligible"
)

var (
	ValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eligibility_validations_total",
			Help: "Total number of eligibility checks by channel and outcome",
		},
		[]string{"channel", "outcome"},
	)

	ViolationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eligibility_violations_total",
			Help: "Total number of violations reported, by error kind",
		},
		[]string{"channel", "code"},
	)

	ValidationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eligibility_validation_duration_seconds",
			Help:    "Duration of eligibility checks in seconds",
			Buckets: []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1},
		},
		[]string{"channel"},
	)

	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eligibility_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
	)

	RateLimitBackendErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eligibility_rate_limit_backend_errors_total",
			Help: "Rate limiter backend failures; the request was let through",
		},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)

// OutcomeLabel is the outcome label value for an eligibility outcome.
func OutcomeLabel(outcome eligibility.Outcome) string {
	if outcome.IsEligible() {
		return OutcomeEligible
	}
	return OutcomeIneligible
}

// RecordValidation counts one finished check and its violations.
func RecordValidation(channel string, outcome eligibility.Outcome, elapsed time.Duration) {
	ValidationsTotal.WithLabelValues(channel, OutcomeLabel(outcome)).Inc()
	ValidationDuration.WithLabelValues(channel).Observe(elapsed.Seconds())

	if ineligible, ok := outcome.(eligibility.Ineligible); ok {
		for _, v := range ineligible.Violations {
			ViolationsTotal.WithLabelValues(channel, string(v.Code)).Inc()
		}
	}
}
