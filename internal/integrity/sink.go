package integrity

import (
	"context"

	"vigil/internal/violation"
	id "vigil/pkg/domain"
)

// StoreSink adapts the ledger service to the engine's evidence contract,
// for deployments where the engine and the ledger share a process and no
// HTTP or Kafka hop is needed.
type StoreSink struct {
	svc *Service
}

func NewStoreSink(svc *Service) *StoreSink {
	return &StoreSink{svc: svc}
}

func (s *StoreSink) RecordViolation(ctx context.Context, candidateID id.CandidateID, event violation.Event) error {
	_, err := s.svc.LogEvent(ctx, candidateID, string(event.EventType), string(event.Severity), event.Context)
	return err
}

func (s *StoreSink) RecordSnapshot(ctx context.Context, candidateID id.CandidateID, image []byte, faceDetected bool) error {
	_, err := s.svc.StoreSnapshot(ctx, candidateID, image, faceDetected)
	return err
}
