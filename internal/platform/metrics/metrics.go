package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments shared across the engine and the
// transport layer. Registered once via promauto on construction.
type Metrics struct {
	ViolationsAdmitted   *prometheus.CounterVec
	ViolationsSuppressed *prometheus.CounterVec
	FramesProcessed      prometheus.Counter
	FramesDropped        prometheus.Counter
	SessionsActive       prometheus.Gauge
	SessionsLocked       prometheus.Counter
	SnapshotsRequested   prometheus.Counter
	EvidenceFailures     *prometheus.CounterVec
	ReadingLatency       prometheus.Histogram
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		ViolationsAdmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vigil_violations_admitted_total",
			Help: "Violations admitted past the debounce gate, by type and severity.",
		}, []string{"event_type", "severity"}),
		ViolationsSuppressed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vigil_violations_suppressed_total",
			Help: "Violations suppressed by per-type debounce windows or lockdown.",
		}, []string{"event_type", "reason"}),
		FramesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vigil_face_frames_processed_total",
			Help: "Face frames accepted by the classifier after rate gating.",
		}),
		FramesDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vigil_face_frames_dropped_total",
			Help: "Face frames dropped at the adapter boundary (5 Hz gate or full inbox).",
		}),
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "vigil_sessions_active",
			Help: "Currently monitored sessions.",
		}),
		SessionsLocked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vigil_sessions_locked_total",
			Help: "Sessions that reached the lockdown threshold.",
		}),
		SnapshotsRequested: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vigil_snapshots_requested_total",
			Help: "Evidentiary snapshot captures requested by the policy.",
		}),
		EvidenceFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vigil_evidence_failures_total",
			Help: "Best-effort evidence sink calls that failed, by operation.",
		}, []string{"operation"}),
		ReadingLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "vigil_reading_handle_seconds",
			Help:    "Time spent handling one sensor reading inside the session loop.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
