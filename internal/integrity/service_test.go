package integrity

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "vigil/pkg/domain"
	dErrors "vigil/pkg/domainerrors"
)

type ServiceSuite struct {
	suite.Suite
	ctx         context.Context
	store       *InMemoryStore
	svc         *Service
	candidateID id.CandidateID
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.svc = NewService(s.store, s.T().TempDir(), logger)
	s.candidateID = id.NewCandidateID()
}

func (s *ServiceSuite) TestLogEvent() {
	s.Run("persists the event", func() {
		rec, err := s.svc.LogEvent(s.ctx, s.candidateID, "tab_switch", "medium", "page hidden")
		s.Require().NoError(err)
		s.Equal("tab_switch", rec.EventType)
		s.Equal("medium", rec.Severity)
		s.NotZero(rec.ID)
		s.False(rec.Timestamp.IsZero())

		events, err := s.store.ListEvents(s.ctx, s.candidateID)
		s.Require().NoError(err)
		s.Len(events, 1)
	})

	s.Run("severity is normalized to lower case", func() {
		rec, err := s.svc.LogEvent(s.ctx, s.candidateID, "paste_detected", " HIGH ", "")
		s.Require().NoError(err)
		s.Equal("high", rec.Severity)
	})

	s.Run("high severity raises a forensic alert", func() {
		cid := id.NewCandidateID()
		_, err := s.svc.LogEvent(s.ctx, cid, "multiple_faces_detected", "high", "two faces in frame")
		s.Require().NoError(err)

		nodes, err := s.svc.DecisionNodes(s.ctx, cid)
		s.Require().NoError(err)
		s.Require().Len(nodes, 1)
		s.Equal("Forensic Alert: Multiple Faces Detected", nodes[0].Title)
		s.Equal("INTEGRITY", nodes[0].NodeType)
		s.Equal("negative", nodes[0].Impact)
		s.Equal("integrity_violation", nodes[0].EvidenceID)
		s.Contains(nodes[0].Description, "high violation")
	})

	s.Run("medium severity raises no alert", func() {
		cid := id.NewCandidateID()
		_, err := s.svc.LogEvent(s.ctx, cid, "tab_switch", "medium", "")
		s.Require().NoError(err)

		nodes, err := s.svc.DecisionNodes(s.ctx, cid)
		s.Require().NoError(err)
		s.Empty(nodes)
	})

	s.Run("rejects incomplete input", func() {
		_, err := s.svc.LogEvent(s.ctx, id.CandidateID{}, "tab_switch", "medium", "")
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))

		_, err = s.svc.LogEvent(s.ctx, s.candidateID, "", "medium", "")
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))

		_, err = s.svc.LogEvent(s.ctx, s.candidateID, "tab_switch", "  ", "")
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func (s *ServiceSuite) TestSummary() {
	s.Run("clean candidates rate high", func() {
		sum, err := s.svc.Summary(s.ctx, s.candidateID)
		s.Require().NoError(err)
		s.Equal(0, sum.TotalViolations)
		s.Equal(0, sum.SeverityScore)
		s.Equal(TrustHigh, sum.Trustworthiness)
		s.NotNil(sum.Events)
		s.Empty(sum.Events)
	})

	s.Run("weighted score drives the rating", func() {
		cid := id.NewCandidateID()
		// low=1, medium=2, high=3, critical=5
		_, err := s.svc.LogEvent(s.ctx, cid, "copy_detected", "low", "")
		s.Require().NoError(err)
		_, err = s.svc.LogEvent(s.ctx, cid, "tab_switch", "medium", "")
		s.Require().NoError(err)

		sum, err := s.svc.Summary(s.ctx, cid)
		s.Require().NoError(err)
		s.Equal(3, sum.SeverityScore)
		s.Equal(TrustMedium, sum.Trustworthiness)
		s.Equal(map[string]int{"low": 1, "medium": 1}, sum.BySeverity)

		_, err = s.svc.LogEvent(s.ctx, cid, "identity_mismatch", "critical", "")
		s.Require().NoError(err)

		sum, err = s.svc.Summary(s.ctx, cid)
		s.Require().NoError(err)
		s.Equal(8, sum.SeverityScore)
		s.Equal(TrustLow, sum.Trustworthiness)
		s.Equal(3, sum.TotalViolations)
	})

	s.Run("unknown severities weigh one", func() {
		cid := id.NewCandidateID()
		_, err := s.svc.LogEvent(s.ctx, cid, "tab_switch", "bizarre", "")
		s.Require().NoError(err)

		sum, err := s.svc.Summary(s.ctx, cid)
		s.Require().NoError(err)
		s.Equal(1, sum.SeverityScore)
	})

	s.Run("summary keeps only the most recent events", func() {
		cid := id.NewCandidateID()
		for i := 0; i < 13; i++ {
			_, err := s.svc.LogEvent(s.ctx, cid, fmt.Sprintf("event_%d", i), "low", "")
			s.Require().NoError(err)
		}

		sum, err := s.svc.Summary(s.ctx, cid)
		s.Require().NoError(err)
		s.Equal(13, sum.TotalViolations)
		s.Len(sum.Events, 10)
		s.Equal("event_3", sum.Events[0].EventType)
		s.Equal("event_12", sum.Events[9].EventType)
	})
}

func (s *ServiceSuite) TestStoreSnapshot() {
	s.Run("writes bytes to disk and records the capture", func() {
		snap, err := s.svc.StoreSnapshot(s.ctx, s.candidateID, []byte{0xff, 0xd8, 0xff}, true)
		s.Require().NoError(err)
		s.True(snap.FaceDetected)
		s.Equal(".jpg", filepath.Ext(snap.Path))
		s.Contains(filepath.Base(snap.Path), s.candidateID.String())

		data, err := os.ReadFile(snap.Path)
		s.Require().NoError(err)
		s.Equal([]byte{0xff, 0xd8, 0xff}, data)
	})

	s.Run("rejects empty images", func() {
		_, err := s.svc.StoreSnapshot(s.ctx, s.candidateID, nil, false)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("rejects a nil candidate", func() {
		_, err := s.svc.StoreSnapshot(s.ctx, id.CandidateID{}, []byte{1}, false)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func (s *ServiceSuite) TestEvidence() {
	s.Run("empty history", func() {
		ev, err := s.svc.Evidence(s.ctx, s.candidateID)
		s.Require().NoError(err)
		s.Equal(0, ev.TotalSnapshots)
		s.Zero(ev.FaceDetectionRate)
		s.NotNil(ev.Snapshots)
	})

	s.Run("detection rate and anomalies", func() {
		cid := id.NewCandidateID()
		for i := 0; i < 3; i++ {
			_, err := s.svc.StoreSnapshot(s.ctx, cid, []byte{1}, true)
			s.Require().NoError(err)
		}
		_, err := s.svc.StoreSnapshot(s.ctx, cid, []byte{1}, false)
		s.Require().NoError(err)

		ev, err := s.svc.Evidence(s.ctx, cid)
		s.Require().NoError(err)
		s.Equal(4, ev.TotalSnapshots)
		s.Equal(1, ev.AnomaliesDetected)
		s.InDelta(75.0, ev.FaceDetectionRate, 0.001)
	})

	s.Run("listing caps at the most recent snapshots", func() {
		cid := id.NewCandidateID()
		for i := 0; i < 25; i++ {
			_, err := s.svc.StoreSnapshot(s.ctx, cid, []byte{1}, true)
			s.Require().NoError(err)
		}

		ev, err := s.svc.Evidence(s.ctx, cid)
		s.Require().NoError(err)
		s.Equal(25, ev.TotalSnapshots)
		s.Len(ev.Snapshots, 20)
	})
}

func (s *ServiceSuite) TestSnapshotFilenameIsSortable() {
	svc := NewService(s.store, s.T().TempDir(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	step := 0
	svc.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Second)
	}

	a, err := svc.StoreSnapshot(s.ctx, s.candidateID, []byte{1}, true)
	s.Require().NoError(err)
	b, err := svc.StoreSnapshot(s.ctx, s.candidateID, []byte{1}, true)
	s.Require().NoError(err)

	s.NotEqual(a.Path, b.Path)
	s.Less(filepath.Base(a.Path), filepath.Base(b.Path))
	s.NotContains(filepath.Base(a.Path), ":")
}

func TestTitleCase(t *testing.T) {
	cases := map[string]string{
		"multiple_faces_detected": "Multiple Faces Detected",
		"tab_switch":              "Tab Switch",
		"paste":                   "Paste",
	}
	for in, want := range cases {
		if got := titleCase(in); got != want {
			t.Errorf("titleCase(%q) = %q, want %q", in, got, want)
		}
	}
}
