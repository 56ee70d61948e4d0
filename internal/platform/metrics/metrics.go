package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the verification flow.
type Metrics struct {
	VisitorsRegistered     prometheus.Counter
	VerificationOutcomes   *prometheus.CounterVec
	VerificationFailures   *prometheus.CounterVec
	OracleLatency          prometheus.Histogram
	EvidenceUploadFailures prometheus.Counter
}

// New creates and registers all metrics on reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		VisitorsRegistered: f.NewCounter(prometheus.CounterOpts{
			Name: "visitor_registrations_total",
			Help: "Total number of visitors registered",
		}),
		VerificationOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "visitor_verification_outcomes_total",
			Help: "Verification outcomes by mode (automated, manual) and result (match, no_match, unset)",
		}, []string{"mode", "result"}),
		VerificationFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "visitor_verification_failures_total",
			Help: "Verification attempts that ended in an error, by error code",
		}, []string{"mode", "code"}),
		OracleLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "visitor_oracle_compare_duration_seconds",
			Help:    "Duration of face comparison calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		EvidenceUploadFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "visitor_evidence_upload_failures_total",
			Help: "Captured images that could not be stored after a comparison",
		}),
	}
}

// IncrementRegistered records a successful registration.
func (m *Metrics) IncrementRegistered() {
	if m != nil {
		m.VisitorsRegistered.Inc()
	}
}

// IncrementOutcome records a verification outcome.
func (m *Metrics) IncrementOutcome(mode, result string) {
	if m != nil {
		m.VerificationOutcomes.WithLabelValues(mode, result).Inc()
	}
}

// IncrementFailure records a failed verification attempt.
func (m *Metrics) IncrementFailure(mode, code string) {
	if m != nil {
		m.VerificationFailures.WithLabelValues(mode, code).Inc()
	}
}

// ObserveOracleLatency records the duration of a comparison call.
func (m *Metrics) ObserveOracleLatency(d time.Duration) {
	if m != nil {
		m.OracleLatency.Observe(d.Seconds())
	}
}

// IncrementEvidenceUploadFailure records a degraded capture upload.
func (m *Metrics) IncrementEvidenceUploadFailure() {
	if m != nil {
		m.EvidenceUploadFailures.Inc()
	}
}
