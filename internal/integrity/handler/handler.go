// Package handler exposes the integrity ledger over HTTP. The log and
// snapshot endpoints use form encodings because browser proctoring clients
// post them with sendBeacon and FormData.
package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"vigil/internal/integrity"
	id "vigil/pkg/domain"
	dErrors "vigil/pkg/domainerrors"
	"vigil/pkg/httputil"
)

// maxSnapshotBytes bounds one webcam capture upload.
const maxSnapshotBytes = 10 << 20

// Service defines the ledger operations the handler needs.
type Service interface {
	LogEvent(ctx context.Context, candidateID id.CandidateID, eventType, severity, eventContext string) (integrity.Record, error)
	Summary(ctx context.Context, candidateID id.CandidateID) (integrity.Summary, error)
	StoreSnapshot(ctx context.Context, candidateID id.CandidateID, image []byte, faceDetected bool) (integrity.Snapshot, error)
	Evidence(ctx context.Context, candidateID id.CandidateID) (integrity.VideoEvidence, error)
}

// Handler handles integrity ledger endpoints.
type Handler struct {
	svc    Service
	logger *slog.Logger
}

// New creates the integrity Handler.
func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Register registers ledger routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/integrity/log", h.handleLogEvent)
	r.Get("/api/integrity/{candidateID}", h.handleSummary)
	r.Post("/api/assessment/upload-snapshot", h.handleUploadSnapshot)
	r.Get("/api/assessment/snapshots/{candidateID}", h.handleSnapshots)
}

type logEventResponse struct {
	Logged bool             `json:"logged"`
	Event  integrity.Record `json:"event"`
}

func (h *Handler) handleLogEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed form body"))
		return
	}

	candidateID, err := id.ParseCandidateID(r.PostFormValue("candidate_id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid candidate id"))
		return
	}

	rec, err := h.svc.LogEvent(ctx, candidateID,
		r.PostFormValue("event_type"),
		r.PostFormValue("severity"),
		r.PostFormValue("context"),
	)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeBadRequest) {
			h.logger.ErrorContext(ctx, "integrity event write failed",
				"candidate_id", candidateID.String(), "error", err)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, logEventResponse{Logged: true, Event: rec})
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	candidateID, err := id.ParseCandidateID(chi.URLParam(r, "candidateID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid candidate id"))
		return
	}

	summary, err := h.svc.Summary(ctx, candidateID)
	if err != nil {
		h.logger.ErrorContext(ctx, "integrity summary failed",
			"candidate_id", candidateID.String(), "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}

type uploadSnapshotResponse struct {
	Success           bool    `json:"success"`
	SnapshotPath      string  `json:"snapshot_path"`
	TotalSnapshots    int     `json:"total_snapshots"`
	FaceDetectionRate float64 `json:"face_detection_rate"`
}

func (h *Handler) handleUploadSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseMultipartForm(maxSnapshotBytes); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed multipart body"))
		return
	}

	candidateID, err := id.ParseCandidateID(r.PostFormValue("candidate_id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid candidate id"))
		return
	}

	file, _, err := r.FormFile("snapshot")
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "snapshot file is required"))
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, maxSnapshotBytes))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "could not read snapshot"))
		return
	}

	faceDetected, _ := strconv.ParseBool(r.PostFormValue("face_detected"))

	snap, err := h.svc.StoreSnapshot(ctx, candidateID, image, faceDetected)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeBadRequest) {
			h.logger.ErrorContext(ctx, "snapshot store failed",
				"candidate_id", candidateID.String(), "error", err)
		}
		httputil.WriteError(w, err)
		return
	}

	evidence, err := h.svc.Evidence(ctx, candidateID)
	if err != nil {
		h.logger.ErrorContext(ctx, "evidence aggregation failed",
			"candidate_id", candidateID.String(), "error", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, uploadSnapshotResponse{
		Success:           true,
		SnapshotPath:      snap.Path,
		TotalSnapshots:    evidence.TotalSnapshots,
		FaceDetectionRate: evidence.FaceDetectionRate,
	})
}

func (h *Handler) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	candidateID, err := id.ParseCandidateID(chi.URLParam(r, "candidateID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid candidate id"))
		return
	}

	evidence, err := h.svc.Evidence(ctx, candidateID)
	if err != nil {
		h.logger.ErrorContext(ctx, "evidence aggregation failed",
			"candidate_id", candidateID.String(), "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, evidence)
}
