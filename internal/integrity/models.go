// Package integrity is the durable ledger behind the proctoring engine. It
// records violation events and webcam snapshots per candidate and derives
// the trustworthiness summary reviewers read after an assessment.
package integrity

import (
	"time"

	"github.com/google/uuid"

	id "vigil/pkg/domain"
)

// Record is one persisted violation event. Event type and severity stay
// plain strings here: the ledger also ingests events posted by external
// proctoring clients, not only ones minted by the in-process engine.
type Record struct {
	ID          uuid.UUID      `json:"id"`
	CandidateID id.CandidateID `json:"candidate_id"`
	EventType   string         `json:"event_type"`
	Severity    string         `json:"severity"`
	Context     string         `json:"context,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

// Snapshot is one stored webcam capture.
type Snapshot struct {
	ID           uuid.UUID      `json:"id"`
	CandidateID  id.CandidateID `json:"candidate_id"`
	Path         string         `json:"snapshot_path"`
	FaceDetected bool           `json:"face_detected"`
	Timestamp    time.Time      `json:"timestamp"`
}

// VideoEvidence aggregates a candidate's snapshot history.
type VideoEvidence struct {
	TotalSnapshots    int        `json:"total_snapshots"`
	Snapshots         []Snapshot `json:"snapshots"`
	FaceDetectionRate float64    `json:"face_detection_rate"`
	AnomaliesDetected int        `json:"anomalies_detected"`
}

// DecisionNode is a reviewer-facing forensic alert derived from a high or
// critical violation. Impact is always negative for integrity nodes.
type DecisionNode struct {
	ID          uuid.UUID      `json:"id"`
	CandidateID id.CandidateID `json:"candidate_id"`
	NodeType    string         `json:"node_type"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Impact      string         `json:"impact"`
	EvidenceID  string         `json:"evidence_id"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Summary is the reviewer-facing integrity report for one candidate.
type Summary struct {
	TotalViolations int            `json:"total_violations"`
	SeverityScore   int            `json:"severity_score"`
	Trustworthiness string         `json:"trustworthiness_rating"`
	BySeverity      map[string]int `json:"by_severity"`
	Events          []Record       `json:"events"`
}

// Trustworthiness ratings.
const (
	TrustHigh   = "High"
	TrustMedium = "Medium"
	TrustLow    = "Low"
)

// severityWeight scores one event for the trustworthiness calculation.
// Unknown severities count as low.
func severityWeight(severity string) int {
	switch severity {
	case "low":
		return 1
	case "medium":
		return 2
	case "high":
		return 3
	case "critical":
		return 5
	default:
		return 1
	}
}
