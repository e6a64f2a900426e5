package handler

import (
	"bytes"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"vigil/internal/integrity"
	id "vigil/pkg/domain"
	"vigil/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	router      chi.Router
	candidateID id.CandidateID
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := integrity.NewService(integrity.NewInMemoryStore(), s.T().TempDir(), logger)

	s.router = chi.NewRouter()
	New(svc, logger).Register(s.router)
	s.candidateID = id.NewCandidateID()
}

func (s *HandlerSuite) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return testutil.DoRequest(s.router, req)
}

func (s *HandlerSuite) logEvent(eventType, severity string) {
	rr := s.postForm("/api/integrity/log", url.Values{
		"candidate_id": {s.candidateID.String()},
		"event_type":   {eventType},
		"severity":     {severity},
	})
	s.Require().Equal(http.StatusOK, rr.Code)
}

func (s *HandlerSuite) TestLogEvent() {
	s.Run("valid form logs the event", func() {
		rr := s.postForm("/api/integrity/log", url.Values{
			"candidate_id": {s.candidateID.String()},
			"event_type":   {"tab_switch"},
			"severity":     {"medium"},
			"context":      {"page hidden"},
		})
		s.Require().Equal(http.StatusOK, rr.Code)

		resp := testutil.DecodeJSON[struct {
			Logged bool             `json:"logged"`
			Event  integrity.Record `json:"event"`
		}](s.T(), rr)
		s.True(resp.Logged)
		s.Equal("tab_switch", resp.Event.EventType)
		s.Equal("page hidden", resp.Event.Context)
	})

	s.Run("invalid candidate id is a bad request", func() {
		rr := s.postForm("/api/integrity/log", url.Values{
			"candidate_id": {"not-a-uuid"},
			"event_type":   {"tab_switch"},
			"severity":     {"medium"},
		})
		s.Equal(http.StatusBadRequest, rr.Code)
	})

	s.Run("missing event type is a bad request", func() {
		rr := s.postForm("/api/integrity/log", url.Values{
			"candidate_id": {s.candidateID.String()},
			"severity":     {"medium"},
		})
		s.Equal(http.StatusBadRequest, rr.Code)
	})
}

func (s *HandlerSuite) TestSummary() {
	s.logEvent("tab_switch", "medium")
	s.logEvent("paste_detected", "high")

	req := httptest.NewRequest(http.MethodGet, "/api/integrity/"+s.candidateID.String(), nil)
	rr := testutil.DoRequest(s.router, req)
	s.Require().Equal(http.StatusOK, rr.Code)

	sum := testutil.DecodeJSON[integrity.Summary](s.T(), rr)
	s.Equal(2, sum.TotalViolations)
	s.Equal(5, sum.SeverityScore)
	s.Equal(integrity.TrustLow, sum.Trustworthiness)
	s.Len(sum.Events, 2)
}

func (s *HandlerSuite) TestSummaryRejectsBadID() {
	req := httptest.NewRequest(http.MethodGet, "/api/integrity/garbage", nil)
	rr := testutil.DoRequest(s.router, req)
	s.Equal(http.StatusBadRequest, rr.Code)
}

func (s *HandlerSuite) uploadSnapshot(faceDetected string, image []byte) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	s.Require().NoError(mw.WriteField("candidate_id", s.candidateID.String()))
	s.Require().NoError(mw.WriteField("face_detected", faceDetected))
	fw, err := mw.CreateFormFile("snapshot", "capture.jpg")
	s.Require().NoError(err)
	_, err = fw.Write(image)
	s.Require().NoError(err)
	s.Require().NoError(mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/assessment/upload-snapshot", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return testutil.DoRequest(s.router, req)
}

func (s *HandlerSuite) TestUploadSnapshot() {
	s.Run("stores the capture and reports the running rate", func() {
		rr := s.uploadSnapshot("true", []byte{0xff, 0xd8, 0xff})
		s.Require().Equal(http.StatusOK, rr.Code)

		resp := testutil.DecodeJSON[struct {
			Success           bool    `json:"success"`
			SnapshotPath      string  `json:"snapshot_path"`
			TotalSnapshots    int     `json:"total_snapshots"`
			FaceDetectionRate float64 `json:"face_detection_rate"`
		}](s.T(), rr)
		s.True(resp.Success)
		s.NotEmpty(resp.SnapshotPath)
		s.Equal(1, resp.TotalSnapshots)
		s.InDelta(100.0, resp.FaceDetectionRate, 0.001)
	})

	s.Run("missing file is a bad request", func() {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		s.Require().NoError(mw.WriteField("candidate_id", s.candidateID.String()))
		s.Require().NoError(mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/assessment/upload-snapshot", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rr := testutil.DoRequest(s.router, req)
		s.Equal(http.StatusBadRequest, rr.Code)
	})
}

func (s *HandlerSuite) TestSnapshots() {
	s.uploadSnapshot("true", []byte{1})
	s.uploadSnapshot("false", []byte{2})

	req := httptest.NewRequest(http.MethodGet, "/api/assessment/snapshots/"+s.candidateID.String(), nil)
	rr := testutil.DoRequest(s.router, req)
	s.Require().Equal(http.StatusOK, rr.Code)

	ev := testutil.DecodeJSON[integrity.VideoEvidence](s.T(), rr)
	s.Equal(2, ev.TotalSnapshots)
	s.Equal(1, ev.AnomaliesDetected)
	s.InDelta(50.0, ev.FaceDetectionRate, 0.001)
	s.Len(ev.Snapshots, 2)
}
