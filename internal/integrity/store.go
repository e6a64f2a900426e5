package integrity

import (
	"context"

	id "vigil/pkg/domain"
)

// Store persists the integrity ledger. Listing methods return records in
// append order, oldest first.
type Store interface {
	AppendEvent(ctx context.Context, rec Record) error
	ListEvents(ctx context.Context, candidateID id.CandidateID) ([]Record, error)

	AppendSnapshot(ctx context.Context, snap Snapshot) error
	ListSnapshots(ctx context.Context, candidateID id.CandidateID) ([]Snapshot, error)

	AppendDecisionNode(ctx context.Context, node DecisionNode) error
	ListDecisionNodes(ctx context.Context, candidateID id.CandidateID) ([]DecisionNode, error)
}
