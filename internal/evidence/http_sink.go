package evidence

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"vigil/internal/violation"
	id "vigil/pkg/domain"
	"vigil/pkg/sentinel"
)

// HTTPSink ships evidence to a remote integrity backend over its form-based
// API. A circuit breaker keeps a dead backend from charging one timeout per
// violation; the engine treats every error as diagnostic only.
type HTTPSink struct {
	baseURL string
	client  *http.Client
	breaker *circuitBreaker
	logger  *slog.Logger
}

// NewHTTPSink builds a sink against baseURL (no trailing slash needed).
func NewHTTPSink(baseURL string, timeout time.Duration, logger *slog.Logger) *HTTPSink {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPSink{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: newCircuitBreaker(),
		logger:  logger,
	}
}

// RecordViolation posts one admitted violation.
func (s *HTTPSink) RecordViolation(ctx context.Context, candidateID id.CandidateID, event violation.Event) error {
	if !s.breaker.Allow() {
		return fmt.Errorf("evidence backend: %w", sentinel.ErrUnavailable)
	}

	form := url.Values{}
	form.Set("candidate_id", candidateID.String())
	form.Set("event_type", string(event.EventType))
	form.Set("severity", string(event.Severity))
	if event.Context != "" {
		form.Set("context", event.Context)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/api/integrity/log", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build violation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return s.do(req, "record violation")
}

// RecordSnapshot uploads one JPEG snapshot with its face flag.
func (s *HTTPSink) RecordSnapshot(ctx context.Context, candidateID id.CandidateID, image []byte, faceDetected bool) error {
	if !s.breaker.Allow() {
		return fmt.Errorf("evidence backend: %w", sentinel.ErrUnavailable)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("candidate_id", candidateID.String()); err != nil {
		return fmt.Errorf("build snapshot form: %w", err)
	}
	if err := mw.WriteField("face_detected", strconv.FormatBool(faceDetected)); err != nil {
		return fmt.Errorf("build snapshot form: %w", err)
	}
	part, err := mw.CreateFormFile("snapshot", "snapshot.jpg")
	if err != nil {
		return fmt.Errorf("build snapshot form: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return fmt.Errorf("build snapshot form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("build snapshot form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/api/assessment/upload-snapshot", &body)
	if err != nil {
		return fmt.Errorf("build snapshot request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return s.do(req, "record snapshot")
}

func (s *HTTPSink) do(req *http.Request, op string) error {
	resp, err := s.client.Do(req)
	if err != nil {
		s.breaker.RecordFailure()
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		s.breaker.RecordFailure()
		return fmt.Errorf("%s: backend returned %d", op, resp.StatusCode)
	}
	s.breaker.RecordSuccess()
	return nil
}
