package integrity

import (
	"context"
	"sync"

	id "vigil/pkg/domain"
)

// InMemoryStore keeps the ledger in process memory. Used in tests and in
// single-node deployments that run without Postgres.
type InMemoryStore struct {
	mu        sync.RWMutex
	events    map[id.CandidateID][]Record
	snapshots map[id.CandidateID][]Snapshot
	nodes     map[id.CandidateID][]DecisionNode
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		events:    make(map[id.CandidateID][]Record),
		snapshots: make(map[id.CandidateID][]Snapshot),
		nodes:     make(map[id.CandidateID][]DecisionNode),
	}
}

func (s *InMemoryStore) AppendEvent(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[rec.CandidateID] = append(s.events[rec.CandidateID], rec)
	return nil
}

func (s *InMemoryStore) ListEvents(_ context.Context, candidateID id.CandidateID) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Record{}, s.events[candidateID]...), nil
}

func (s *InMemoryStore) AppendSnapshot(_ context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snap.CandidateID] = append(s.snapshots[snap.CandidateID], snap)
	return nil
}

func (s *InMemoryStore) ListSnapshots(_ context.Context, candidateID id.CandidateID) ([]Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Snapshot{}, s.snapshots[candidateID]...), nil
}

func (s *InMemoryStore) AppendDecisionNode(_ context.Context, node DecisionNode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[node.CandidateID] = append(s.nodes[node.CandidateID], node)
	return nil
}

func (s *InMemoryStore) ListDecisionNodes(_ context.Context, candidateID id.CandidateID) ([]DecisionNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]DecisionNode{}, s.nodes[candidateID]...), nil
}

var _ Store = (*InMemoryStore)(nil)
