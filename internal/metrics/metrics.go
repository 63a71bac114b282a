package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screener_submissions_total",
			Help: "Screening submissions by outcome",
		},
		[]string{"outcome"},
	)

	SubmissionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "screener_submission_duration_seconds",
			Help:    "Round trip time of screening submissions",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		},
	)

	HeldRecords = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "screener_held_records",
			Help: "Records in the current held result set by origin",
		},
		[]string{"origin"},
	)

	SkillsParseFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "screener_skills_parse_failures_total",
			Help: "Records whose skills field could not be interpreted",
		},
	)

	ExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screener_exports_total",
			Help: "Result exports by format",
		},
		[]string{"format"},
	)
)

// Submission outcome labels
const (
	OutcomeSuccess     = "success"
	OutcomeInvalid     = "invalid"
	OutcomeTransport   = "transport_error"
	OutcomeServerError = "server_error"
	OutcomeDecodeError = "decode_error"
)
