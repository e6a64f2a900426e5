// Package evidence delivers admitted violations and snapshot bytes to the
// durable backend. Every call is best-effort: failures are logged and
// counted, never reflected back into the session state machine.
package evidence

//go:generate mockgen -source=sink.go -destination=mocks/mocks.go -package=mocks Sink

import (
	"context"

	"vigil/internal/violation"
	id "vigil/pkg/domain"
)

// Sink is the engine's contract with the evidence backend. Both operations
// are idempotent on the backend side and safe to fire and forget.
type Sink interface {
	// RecordViolation persists one admitted violation event.
	RecordViolation(ctx context.Context, candidateID id.CandidateID, event violation.Event) error

	// RecordSnapshot persists one evidentiary webcam snapshot.
	RecordSnapshot(ctx context.Context, candidateID id.CandidateID, image []byte, faceDetected bool) error
}

// Nop discards everything; useful for tests and sensor-only deployments.
type Nop struct{}

func (Nop) RecordViolation(context.Context, id.CandidateID, violation.Event) error {
	return nil
}

func (Nop) RecordSnapshot(context.Context, id.CandidateID, []byte, bool) error {
	return nil
}

// Multi fans out to several sinks, returning the first error after trying
// all of them so one failing backend never starves the others.
type Multi []Sink

func (m Multi) RecordViolation(ctx context.Context, candidateID id.CandidateID, event violation.Event) error {
	var firstErr error
	for _, s := range m {
		if err := s.RecordViolation(ctx, candidateID, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m Multi) RecordSnapshot(ctx context.Context, candidateID id.CandidateID, image []byte, faceDetected bool) error {
	var firstErr error
	for _, s := range m {
		if err := s.RecordSnapshot(ctx, candidateID, image, faceDetected); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
