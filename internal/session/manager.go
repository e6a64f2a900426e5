package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/mssola/useragent"

	"vigil/internal/evidence"
	"vigil/internal/platform/metrics"
	"vigil/internal/policy"
	"vigil/internal/token"
	id "vigil/pkg/domain"
	dErrors "vigil/pkg/domainerrors"
)

// Manager owns the live session registry and the join flow. Ending a
// session is detachment from here plus actor teardown; the two always
// happen together so a removed session can never keep logging violations.
type Manager struct {
	cfg        Config
	accessHash string
	tokens     *token.Service
	sink       evidence.Sink
	states     StateStore
	logger     *slog.Logger
	metrics    *metrics.Metrics

	mu       sync.RWMutex
	sessions map[id.SessionID]*Session
	closed   bool
}

// NewManager creates a session manager. accessHash is the bcrypt hash of
// the assessment's access code; states may be nil when no external state
// mirror is configured.
func NewManager(cfg Config, accessHash string, tokens *token.Service, sink evidence.Sink, states StateStore, logger *slog.Logger, m *metrics.Metrics) *Manager {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Manager{
		cfg:        cfg,
		accessHash: accessHash,
		tokens:     tokens,
		sink:       sink,
		states:     states,
		logger:     logger,
		metrics:    m,
		sessions:   make(map[id.SessionID]*Session),
	}
}

// JoinRequest is a candidate's attempt to enter a proctored assessment.
type JoinRequest struct {
	CandidateName string `json:"candidate_name"`
	AccessCode    string `json:"access_code"`
	UserAgent     string `json:"-"`
}

// JoinResult carries the identity and credentials minted for a candidate.
type JoinResult struct {
	SessionID   id.SessionID   `json:"session_id"`
	CandidateID id.CandidateID `json:"candidate_id"`
	Token       string         `json:"token"`
	State       policy.State   `json:"state"`
}

// Join verifies the access code, mints a session with its own engine actor,
// and issues the token the client presents on every subsequent call.
func (m *Manager) Join(req JoinRequest) (*JoinResult, error) {
	if req.CandidateName == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "candidate name is required")
	}
	if err := verifyAccessCode(req.AccessCode, m.accessHash); err != nil {
		return nil, err
	}

	candidateID := id.NewCandidateID()
	sessionID := id.NewSessionID()

	meta := Meta{
		CandidateName: req.CandidateName,
		JoinedAt:      time.Now(),
	}
	if req.UserAgent != "" {
		ua := useragent.New(req.UserAgent)
		meta.Browser, meta.BrowserVersion = ua.Browser()
		meta.OS = ua.OS()
	}

	pol := policy.New(m.cfg.Policy, candidateID, m.sink, m.logger.With("candidate_id", candidateID.String()), m.metrics)
	sess := New(sessionID, candidateID, meta, m.cfg, pol, m.logger, m.metrics, m.states)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, dErrors.New(dErrors.CodeUnavailable, "service is shutting down")
	}
	m.sessions[sessionID] = sess
	m.mu.Unlock()

	go sess.Run()

	tok, err := m.tokens.Issue(candidateID, sessionID)
	if err != nil {
		m.detach(sessionID)
		sess.Close()
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not issue session token")
	}

	m.logger.Info("candidate joined",
		"session_id", sessionID.String(),
		"candidate_id", candidateID.String(),
		"candidate_name", req.CandidateName,
		"browser", meta.Browser,
		"os", meta.OS,
	)
	return &JoinResult{
		SessionID:   sessionID,
		CandidateID: candidateID,
		Token:       tok,
		State:       sess.State(),
	}, nil
}

// Get returns the live session or a not-found error.
func (m *Manager) Get(sessionID id.SessionID) (*Session, error) {
	m.mu.RLock()
	sess, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "session not found")
	}
	return sess, nil
}

// End tears a session down and removes it from the registry.
func (m *Manager) End(sessionID id.SessionID) error {
	sess := m.detach(sessionID)
	if sess == nil {
		return dErrors.New(dErrors.CodeNotFound, "session not found")
	}
	sess.Close()
	m.logger.Info("session ended", "session_id", sessionID.String())
	return nil
}

// Count reports the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CloseAll ends every live session. Used at shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	m.closed = true
	remaining := make([]*Session, 0, len(m.sessions))
	for sid, sess := range m.sessions {
		remaining = append(remaining, sess)
		delete(m.sessions, sid)
	}
	m.mu.Unlock()

	for _, sess := range remaining {
		sess.Close()
	}
}

func (m *Manager) detach(sessionID id.SessionID) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[sessionID]
	if !ok {
		return nil
	}
	delete(m.sessions, sessionID)
	return sess
}
