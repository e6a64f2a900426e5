//go:build integration

package integrity_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"vigil/internal/integrity"
	id "vigil/pkg/domain"
	"vigil/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *integrity.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	pg := containers.NewPostgresContainer(s.T())
	s.Require().NoError(integrity.Migrate(s.ctx, pg.Pool))
	s.store = integrity.NewPostgresStore(pg.Pool)
}

func (s *PostgresStoreSuite) TestMigrateIsIdempotent() {
	pg := containers.NewPostgresContainer(s.T())
	s.Require().NoError(integrity.Migrate(s.ctx, pg.Pool))
	s.Require().NoError(integrity.Migrate(s.ctx, pg.Pool))
}

func (s *PostgresStoreSuite) TestEvents() {
	cid := id.NewCandidateID()
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	for i, et := range []string{"tab_switch", "paste_detected"} {
		err := s.store.AppendEvent(s.ctx, integrity.Record{
			ID:          uuid.New(),
			CandidateID: cid,
			EventType:   et,
			Severity:    "medium",
			Context:     "ctx",
			Timestamp:   base.Add(time.Duration(i) * time.Second),
		})
		s.Require().NoError(err)
	}

	events, err := s.store.ListEvents(s.ctx, cid)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal("tab_switch", events[0].EventType)
	s.Equal("paste_detected", events[1].EventType)
	s.Equal(cid, events[0].CandidateID)
	s.True(events[0].Timestamp.Before(events[1].Timestamp))

	other, err := s.store.ListEvents(s.ctx, id.NewCandidateID())
	s.Require().NoError(err)
	s.Empty(other)
}

func (s *PostgresStoreSuite) TestSnapshots() {
	cid := id.NewCandidateID()

	err := s.store.AppendSnapshot(s.ctx, integrity.Snapshot{
		ID:           uuid.New(),
		CandidateID:  cid,
		Path:         "snapshots/a.jpg",
		FaceDetected: true,
		Timestamp:    time.Now().UTC(),
	})
	s.Require().NoError(err)

	snaps, err := s.store.ListSnapshots(s.ctx, cid)
	s.Require().NoError(err)
	s.Require().Len(snaps, 1)
	s.Equal("snapshots/a.jpg", snaps[0].Path)
	s.True(snaps[0].FaceDetected)
}

func (s *PostgresStoreSuite) TestDecisionNodes() {
	cid := id.NewCandidateID()

	err := s.store.AppendDecisionNode(s.ctx, integrity.DecisionNode{
		ID:          uuid.New(),
		CandidateID: cid,
		NodeType:    "INTEGRITY",
		Title:       "Forensic Alert: Paste Detected",
		Description: "A high violation was detected.",
		Impact:      "negative",
		EvidenceID:  "integrity_violation",
		CreatedAt:   time.Now().UTC(),
	})
	s.Require().NoError(err)

	nodes, err := s.store.ListDecisionNodes(s.ctx, cid)
	s.Require().NoError(err)
	s.Require().Len(nodes, 1)
	s.Equal("Forensic Alert: Paste Detected", nodes[0].Title)
	s.Equal("negative", nodes[0].Impact)
}
