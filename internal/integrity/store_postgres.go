package integrity

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	id "vigil/pkg/domain"
)

// PostgresStore persists the ledger in Postgres via a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the ledger tables. Idempotent; safe at every startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS integrity_events (
			id           UUID PRIMARY KEY,
			candidate_id UUID NOT NULL,
			event_type   TEXT NOT NULL,
			severity     TEXT NOT NULL,
			context      TEXT NOT NULL DEFAULT '',
			timestamp    TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS integrity_events_candidate_idx
			ON integrity_events (candidate_id, timestamp)`,
		`CREATE TABLE IF NOT EXISTS integrity_snapshots (
			id            UUID PRIMARY KEY,
			candidate_id  UUID NOT NULL,
			path          TEXT NOT NULL,
			face_detected BOOLEAN NOT NULL,
			timestamp     TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS integrity_snapshots_candidate_idx
			ON integrity_snapshots (candidate_id, timestamp)`,
		`CREATE TABLE IF NOT EXISTS decision_nodes (
			id           UUID PRIMARY KEY,
			candidate_id UUID NOT NULL,
			node_type    TEXT NOT NULL,
			title        TEXT NOT NULL,
			description  TEXT NOT NULL DEFAULT '',
			impact       TEXT NOT NULL,
			evidence_id  TEXT NOT NULL DEFAULT '',
			created_at   TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS decision_nodes_candidate_idx
			ON decision_nodes (candidate_id, created_at)`,
	}
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate integrity schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) AppendEvent(ctx context.Context, rec Record) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO integrity_events (id, candidate_id, event_type, severity, context, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.CandidateID.String(), rec.EventType, rec.Severity, rec.Context, rec.Timestamp)
	if err != nil {
		return fmt.Errorf("insert integrity event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListEvents(ctx context.Context, candidateID id.CandidateID) ([]Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, event_type, severity, context, timestamp
		 FROM integrity_events WHERE candidate_id = $1 ORDER BY timestamp`,
		candidateID.String())
	if err != nil {
		return nil, fmt.Errorf("list integrity events: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec := Record{CandidateID: candidateID}
		if err := rows.Scan(&rec.ID, &rec.EventType, &rec.Severity, &rec.Context, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("scan integrity event: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) AppendSnapshot(ctx context.Context, snap Snapshot) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO integrity_snapshots (id, candidate_id, path, face_detected, timestamp)
		 VALUES ($1, $2, $3, $4, $5)`,
		snap.ID, snap.CandidateID.String(), snap.Path, snap.FaceDetected, snap.Timestamp)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListSnapshots(ctx context.Context, candidateID id.CandidateID) ([]Snapshot, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, path, face_detected, timestamp
		 FROM integrity_snapshots WHERE candidate_id = $1 ORDER BY timestamp`,
		candidateID.String())
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		snap := Snapshot{CandidateID: candidateID}
		if err := rows.Scan(&snap.ID, &snap.Path, &snap.FaceDetected, &snap.Timestamp); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

func (s *PostgresStore) AppendDecisionNode(ctx context.Context, node DecisionNode) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO decision_nodes (id, candidate_id, node_type, title, description, impact, evidence_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		node.ID, node.CandidateID.String(), node.NodeType, node.Title,
		node.Description, node.Impact, node.EvidenceID, node.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert decision node: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListDecisionNodes(ctx context.Context, candidateID id.CandidateID) ([]DecisionNode, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, node_type, title, description, impact, evidence_id, created_at
		 FROM decision_nodes WHERE candidate_id = $1 ORDER BY created_at`,
		candidateID.String())
	if err != nil {
		return nil, fmt.Errorf("list decision nodes: %w", err)
	}
	defer rows.Close()

	var out []DecisionNode
	for rows.Next() {
		node := DecisionNode{CandidateID: candidateID}
		if err := rows.Scan(&node.ID, &node.NodeType, &node.Title, &node.Description,
			&node.Impact, &node.EvidenceID, &node.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan decision node: %w", err)
		}
		out = append(out, node)
	}
	return out, rows.Err()
}

var _ Store = (*PostgresStore)(nil)
