package evidence

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"vigil/internal/violation"
	id "vigil/pkg/domain"
)

// KafkaSink fans admitted violations out to a Kafka topic for downstream
// consumers (SIEM, recruiter dashboards). Snapshots stay out of Kafka; only
// their metadata is published.
type KafkaSink struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// violationPayload is the JSON record value. Field names are part of the
// consumer contract.
type violationPayload struct {
	ID          string `json:"id"`
	CandidateID string `json:"candidate_id"`
	EventType   string `json:"event_type"`
	Severity    string `json:"severity"`
	Context     string `json:"context,omitempty"`
	Timestamp   string `json:"timestamp"`
}

type snapshotPayload struct {
	CandidateID  string `json:"candidate_id"`
	FaceDetected bool   `json:"face_detected"`
	SizeBytes    int    `json:"size_bytes"`
	Timestamp    string `json:"timestamp"`
}

// NewKafkaSink connects a producer to the brokers.
func NewKafkaSink(brokers []string, topic string, logger *slog.Logger) (*KafkaSink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &KafkaSink{client: client, topic: topic, logger: logger}, nil
}

// RecordViolation publishes one violation record keyed by candidate so a
// candidate's events stay ordered within a partition.
func (s *KafkaSink) RecordViolation(ctx context.Context, candidateID id.CandidateID, event violation.Event) error {
	value, err := json.Marshal(violationPayload{
		ID:          event.ID.String(),
		CandidateID: candidateID.String(),
		EventType:   string(event.EventType),
		Severity:    string(event.Severity),
		Context:     event.Context,
		Timestamp:   event.Timestamp.Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal violation payload: %w", err)
	}
	return s.produce(ctx, candidateID, value)
}

// RecordSnapshot publishes snapshot metadata only.
func (s *KafkaSink) RecordSnapshot(ctx context.Context, candidateID id.CandidateID, image []byte, faceDetected bool) error {
	value, err := json.Marshal(snapshotPayload{
		CandidateID:  candidateID.String(),
		FaceDetected: faceDetected,
		SizeBytes:    len(image),
		Timestamp:    time.Now().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal snapshot payload: %w", err)
	}
	return s.produce(ctx, candidateID, value)
}

func (s *KafkaSink) produce(ctx context.Context, candidateID id.CandidateID, value []byte) error {
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(candidateID.String()),
		Value: value,
	}
	// Async produce keeps the engine loop unblocked; delivery errors are
	// logged in the callback, matching the best-effort contract.
	s.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			s.logger.Error("kafka evidence publish failed", "topic", s.topic, "error", err)
		}
	})
	return nil
}

// Close flushes pending records and releases the producer.
func (s *KafkaSink) Close(ctx context.Context) error {
	if err := s.client.Flush(ctx); err != nil {
		return fmt.Errorf("flush kafka producer: %w", err)
	}
	s.client.Close()
	return nil
}
