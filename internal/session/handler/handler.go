// Package handler exposes the session engine over HTTP: join, sensor
// ingest, state reads, the live event stream, and teardown.
package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vigil/internal/platform/middleware"
	"vigil/internal/ratelimit"
	"vigil/internal/sensor"
	"vigil/internal/session"
	id "vigil/pkg/domain"
	dErrors "vigil/pkg/domainerrors"
	"vigil/pkg/httputil"
	"vigil/pkg/requestcontext"
)

// maxReadingsBatch caps one ingest call. Adapters post small batches; a
// larger body indicates a misbehaving client.
const maxReadingsBatch = 64

// Handler handles session lifecycle and sensor ingest endpoints.
type Handler struct {
	manager     *session.Manager
	validator   middleware.TokenValidator
	joinLimiter *ratelimit.Limiter
	logger      *slog.Logger
}

// New creates the session Handler. The limiter guards the join endpoint
// against access-code guessing.
func New(manager *session.Manager, validator middleware.TokenValidator, joinLimiter *ratelimit.Limiter, logger *slog.Logger) *Handler {
	return &Handler{manager: manager, validator: validator, joinLimiter: joinLimiter, logger: logger}
}

// Register registers session routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.With(ratelimit.Middleware(h.joinLimiter)).Post("/api/session/join", h.handleJoin)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(h.validator, h.logger))
		r.Post("/api/session/{sessionID}/readings", h.handleReadings)
		r.Get("/api/session/{sessionID}/state", h.handleState)
		r.Get("/api/session/{sessionID}/events", h.handleEvents)
		r.Delete("/api/session/{sessionID}", h.handleEnd)
	})
}

func (h *Handler) handleJoin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[session.JoinRequest](w, r, h.logger, ctx)
	if !ok {
		return
	}
	req.UserAgent = r.UserAgent()

	result, err := h.manager.Join(req)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeBadRequest) && !dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			h.logger.ErrorContext(ctx, "session join failed",
				"request_id", requestcontext.RequestID(ctx), "error", err)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, result)
}

// sessionFromRequest resolves the live session named in the path, enforcing
// that the token was issued for the same session.
func (h *Handler) sessionFromRequest(r *http.Request) (*session.Session, error) {
	pathID, err := id.ParseSessionID(chi.URLParam(r, "sessionID"))
	if err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid session id")
	}
	if pathID != requestcontext.SessionID(r.Context()) {
		return nil, dErrors.New(dErrors.CodeForbidden, "token was not issued for this session")
	}
	return h.manager.Get(pathID)
}

type readingsResponse struct {
	Accepted int `json:"accepted"`
}

func (h *Handler) handleReadings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sess, err := h.sessionFromRequest(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	readings, ok := httputil.Decode[[]sensor.Reading](w, r, h.logger, ctx)
	if !ok {
		return
	}
	if len(readings) == 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "at least one reading is required"))
		return
	}
	if len(readings) > maxReadingsBatch {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "readings batch too large"))
		return
	}

	accepted := 0
	for _, reading := range readings {
		if err := sess.Push(reading); err != nil {
			httputil.WriteError(w, err)
			return
		}
		accepted++
	}
	httputil.WriteJSON(w, http.StatusAccepted, readingsResponse{Accepted: accepted})
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessionFromRequest(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sess.State())
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessionFromRequest(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if r.Header.Get("Accept") == "text/event-stream" {
		h.streamEvents(w, r, sess)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sess.Violations())
}

// streamEvents delivers admitted violations over SSE until the client
// disconnects or the session ends.
func (h *Handler) streamEvents(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "streaming unsupported by connection"))
		return
	}

	events, cancel := sess.WatchEvents()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	enc := newSSEEncoder(w)
	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			if err := enc.write("violation", ev); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (h *Handler) handleEnd(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessionFromRequest(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.manager.End(sess.ID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type sseEncoder struct {
	w http.ResponseWriter
}

func newSSEEncoder(w http.ResponseWriter) *sseEncoder { return &sseEncoder{w: w} }

func (e *sseEncoder) write(event string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(e.w, "event: %s\ndata: %s\n\n", event, payload)
	return err
}
