package integrity

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	id "vigil/pkg/domain"
	dErrors "vigil/pkg/domainerrors"
)

const (
	nodeTypeIntegrity = "INTEGRITY"
	impactNegative    = "negative"

	summaryEventLimit   = 10
	evidenceSnapLimit   = 20
	defaultSnapshotDir  = "snapshots"
	snapshotContentType = ".jpg"
)

// Service owns the ledger's write and read paths.
type Service struct {
	store       Store
	snapshotDir string
	logger      *slog.Logger
	now         func() time.Time
}

// NewService builds the ledger service. snapshotDir is where snapshot bytes
// land on disk; empty means the default relative directory.
func NewService(store Store, snapshotDir string, logger *slog.Logger) *Service {
	if snapshotDir == "" {
		snapshotDir = defaultSnapshotDir
	}
	return &Service{
		store:       store,
		snapshotDir: snapshotDir,
		logger:      logger,
		now:         time.Now,
	}
}

// LogEvent appends one violation to the candidate's ledger. High and
// critical events additionally raise a reviewer-facing decision node; a
// failure there is logged but never fails the event write.
func (s *Service) LogEvent(ctx context.Context, candidateID id.CandidateID, eventType, severity, eventContext string) (Record, error) {
	if candidateID.IsNil() {
		return Record{}, dErrors.New(dErrors.CodeBadRequest, "candidate id is required")
	}
	if eventType == "" {
		return Record{}, dErrors.New(dErrors.CodeBadRequest, "event type is required")
	}
	severity = strings.ToLower(strings.TrimSpace(severity))
	if severity == "" {
		return Record{}, dErrors.New(dErrors.CodeBadRequest, "severity is required")
	}

	rec := Record{
		ID:          uuid.New(),
		CandidateID: candidateID,
		EventType:   eventType,
		Severity:    severity,
		Context:     eventContext,
		Timestamp:   s.now(),
	}
	if err := s.store.AppendEvent(ctx, rec); err != nil {
		return Record{}, dErrors.Wrap(err, dErrors.CodeInternal, "could not persist integrity event")
	}

	if severity == "high" || severity == "critical" {
		node := DecisionNode{
			ID:          uuid.New(),
			CandidateID: candidateID,
			NodeType:    nodeTypeIntegrity,
			Title:       "Forensic Alert: " + titleCase(eventType),
			Description: fmt.Sprintf("A %s violation was detected. %s", severity, eventContext),
			Impact:      impactNegative,
			EvidenceID:  "integrity_violation",
			CreatedAt:   rec.Timestamp,
		}
		if err := s.store.AppendDecisionNode(ctx, node); err != nil {
			s.logger.ErrorContext(ctx, "decision node write failed",
				"candidate_id", candidateID.String(),
				"event_type", eventType,
				"error", err,
			)
		}
	}
	return rec, nil
}

// Summary computes the candidate's trustworthiness report: weighted
// severity score, per-severity counts, and the most recent events.
func (s *Service) Summary(ctx context.Context, candidateID id.CandidateID) (Summary, error) {
	events, err := s.store.ListEvents(ctx, candidateID)
	if err != nil {
		return Summary{}, dErrors.Wrap(err, dErrors.CodeInternal, "could not load integrity events")
	}

	score := 0
	bySeverity := make(map[string]int)
	for _, e := range events {
		score += severityWeight(e.Severity)
		bySeverity[e.Severity]++
	}

	rating := TrustLow
	switch {
	case score == 0:
		rating = TrustHigh
	case score < 5:
		rating = TrustMedium
	}

	recent := events
	if len(recent) > summaryEventLimit {
		recent = recent[len(recent)-summaryEventLimit:]
	}
	if recent == nil {
		recent = []Record{}
	}

	return Summary{
		TotalViolations: len(events),
		SeverityScore:   score,
		Trustworthiness: rating,
		BySeverity:      bySeverity,
		Events:          recent,
	}, nil
}

// StoreSnapshot writes the image bytes to disk and records the capture.
func (s *Service) StoreSnapshot(ctx context.Context, candidateID id.CandidateID, image []byte, faceDetected bool) (Snapshot, error) {
	if candidateID.IsNil() {
		return Snapshot{}, dErrors.New(dErrors.CodeBadRequest, "candidate id is required")
	}
	if len(image) == 0 {
		return Snapshot{}, dErrors.New(dErrors.CodeBadRequest, "snapshot is empty")
	}

	now := s.now()
	name := fmt.Sprintf("%s_%s%s", candidateID.String(),
		strings.ReplaceAll(now.UTC().Format(time.RFC3339), ":", "-"), snapshotContentType)
	path := filepath.Join(s.snapshotDir, name)

	if err := os.MkdirAll(s.snapshotDir, 0o755); err != nil {
		return Snapshot{}, dErrors.Wrap(err, dErrors.CodeInternal, "could not prepare snapshot directory")
	}
	if err := os.WriteFile(path, image, 0o644); err != nil {
		return Snapshot{}, dErrors.Wrap(err, dErrors.CodeInternal, "could not write snapshot")
	}

	snap := Snapshot{
		ID:           uuid.New(),
		CandidateID:  candidateID,
		Path:         path,
		FaceDetected: faceDetected,
		Timestamp:    now,
	}
	if err := s.store.AppendSnapshot(ctx, snap); err != nil {
		return Snapshot{}, dErrors.Wrap(err, dErrors.CodeInternal, "could not persist snapshot")
	}
	return snap, nil
}

// Evidence aggregates the candidate's snapshot history, capped to the most
// recent captures in the Snapshots field.
func (s *Service) Evidence(ctx context.Context, candidateID id.CandidateID) (VideoEvidence, error) {
	snaps, err := s.store.ListSnapshots(ctx, candidateID)
	if err != nil {
		return VideoEvidence{}, dErrors.Wrap(err, dErrors.CodeInternal, "could not load snapshots")
	}

	detected := 0
	for _, snap := range snaps {
		if snap.FaceDetected {
			detected++
		}
	}

	ev := VideoEvidence{
		TotalSnapshots:    len(snaps),
		AnomaliesDetected: len(snaps) - detected,
	}
	if len(snaps) > 0 {
		ev.FaceDetectionRate = float64(detected) / float64(len(snaps)) * 100
	}

	recent := snaps
	if len(recent) > evidenceSnapLimit {
		recent = recent[len(recent)-evidenceSnapLimit:]
	}
	if recent == nil {
		recent = []Snapshot{}
	}
	ev.Snapshots = recent
	return ev, nil
}

// DecisionNodes returns the reviewer alerts raised for a candidate.
func (s *Service) DecisionNodes(ctx context.Context, candidateID id.CandidateID) ([]DecisionNode, error) {
	nodes, err := s.store.ListDecisionNodes(ctx, candidateID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not load decision nodes")
	}
	return nodes, nil
}

// titleCase renders "multiple_faces_detected" as "Multiple Faces Detected".
func titleCase(eventType string) string {
	words := strings.Split(strings.ReplaceAll(eventType, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
