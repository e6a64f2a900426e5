// Package policy owns the session integrity state machine: escalation,
// evidentiary snapshot triggers, the fullscreen containment protocol, and
// the one-way lockdown. It is the only writer of IsLocked/LockdownReason.
package policy

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"vigil/internal/evidence"
	"vigil/internal/face"
	"vigil/internal/platform/metrics"
	"vigil/internal/violation"
	id "vigil/pkg/domain"
)

// Status is the session-level lifecycle state.
type Status string

const (
	StatusInitializing Status = "initializing"
	StatusMonitoring   Status = "monitoring"
	StatusWebcamError  Status = "webcam_error"
	StatusLocked       Status = "locked"
)

// LockdownReasonThreshold is the reason recorded when the violation log
// reaches the lockdown threshold.
const LockdownReasonThreshold = "INTEGRITY_THRESHOLD_EXCEEDED"

// State is the observable session integrity state. Copies of it are
// published to subscribers; only the policy mutates the original.
type State struct {
	Status             Status      `json:"status"`
	FaceStatus         face.Status `json:"face_status"`
	DetectorTier       face.Tier   `json:"detector_tier,omitempty"`
	IsLocked           bool        `json:"is_locked"`
	IsFullscreen       bool        `json:"is_fullscreen"`
	LockdownReason     string      `json:"lockdown_reason,omitempty"`
	ViolationCount     int         `json:"violation_count"`
	SnapshotsRequested uint64      `json:"snapshots_requested"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// Config tunes the escalation policy. Thresholds are empirically chosen
// constants, configurable rather than hardened.
type Config struct {
	LockdownThreshold int
	SinkTimeout       time.Duration
}

// DefaultConfig returns the production policy.
func DefaultConfig() Config {
	return Config{
		LockdownThreshold: 100,
		SinkTimeout:       5 * time.Second,
	}
}

// Policy consumes the admitted violation stream and drives the session
// between normal and locked states.
type Policy struct {
	mu sync.RWMutex

	cfg         Config
	candidateID id.CandidateID
	state       State
	log         []violation.Event

	sink    evidence.Sink
	logger  *slog.Logger
	metrics *metrics.Metrics

	onChange func(State)
}

// New builds a policy in the Initializing state.
func New(cfg Config, candidateID id.CandidateID, sink evidence.Sink, logger *slog.Logger, m *metrics.Metrics) *Policy {
	if cfg.LockdownThreshold <= 0 {
		cfg = DefaultConfig()
	}
	if sink == nil {
		sink = evidence.Nop{}
	}
	return &Policy{
		cfg:         cfg,
		candidateID: candidateID,
		sink:        sink,
		logger:      logger,
		metrics:     m,
		state: State{
			Status:       StatusInitializing,
			FaceStatus:   face.StatusScanning,
			IsFullscreen: true,
			UpdatedAt:    time.Now(),
		},
	}
}

// OnChange registers the single state subscriber (the session publishes
// copies onward). Must be set before the first mutation.
func (p *Policy) OnChange(fn func(State)) { p.onChange = fn }

// Locked implements violation.LockQuery.
func (p *Policy) Locked() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state.IsLocked
}

// Snapshot returns a copy of the current state.
func (p *Policy) Snapshot() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Log returns a copy of the violation log.
func (p *Policy) Log() []violation.Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]violation.Event(nil), p.log...)
}

// Record appends one admitted violation, forwards it to the evidence sink,
// triggers snapshots on high severities, and enforces the lockdown
// threshold. The transition to Locked is one-way for the session.
func (p *Policy) Record(event violation.Event, faceDetected bool) {
	p.mu.Lock()

	if p.state.IsLocked {
		// The engine refuses events on locked sessions; this is the
		// belt for callers that bypass it.
		p.mu.Unlock()
		return
	}

	p.log = append(p.log, event)
	p.state.ViolationCount = len(p.log)
	p.state.UpdatedAt = event.Timestamp

	if p.metrics != nil {
		p.metrics.ViolationsAdmitted.WithLabelValues(string(event.EventType), string(event.Severity)).Inc()
	}

	snapshot := event.Severity == violation.SeverityHigh || event.Severity == violation.SeverityCritical
	if snapshot {
		p.state.SnapshotsRequested++
		if p.metrics != nil {
			p.metrics.SnapshotsRequested.Inc()
		}
	}

	locked := false
	if len(p.log) >= p.cfg.LockdownThreshold {
		p.state.IsLocked = true
		p.state.LockdownReason = LockdownReasonThreshold
		p.state.Status = StatusLocked
		locked = true
		if p.metrics != nil {
			p.metrics.SessionsLocked.Inc()
		}
	}
	state := p.state
	p.mu.Unlock()

	p.logger.Info("violation recorded",
		"event_type", event.EventType,
		"severity", event.Severity,
		"violation_count", state.ViolationCount,
		"snapshot_requested", snapshot,
		"face_detected", faceDetected,
	)
	if locked {
		p.logger.Warn("session locked", "reason", LockdownReasonThreshold)
	}

	p.forward(event)
	p.notify(state)
}

// forward ships the event to the sink without blocking the caller. Sink
// failures are diagnostics only; local state is already committed.
func (p *Policy) forward(event violation.Event) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.cfg.SinkTimeout)
		defer cancel()
		if err := p.sink.RecordViolation(ctx, p.candidateID, event); err != nil {
			if p.metrics != nil {
				p.metrics.EvidenceFailures.WithLabelValues("violation").Inc()
			}
			p.logger.Error("evidence sink rejected violation", "event_type", event.EventType, "error", err)
		}
	}()
}

// StoreSnapshot ships captured snapshot bytes to the sink, fire-and-forget.
func (p *Policy) StoreSnapshot(image []byte, faceDetected bool) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.cfg.SinkTimeout)
		defer cancel()
		if err := p.sink.RecordSnapshot(ctx, p.candidateID, image, faceDetected); err != nil {
			if p.metrics != nil {
				p.metrics.EvidenceFailures.WithLabelValues("snapshot").Inc()
			}
			p.logger.Error("evidence sink rejected snapshot", "error", err)
		}
	}()
}

// RequestSnapshot asks the client for an evidentiary capture outside the
// severity path (periodic timer, identity mismatch force).
func (p *Policy) RequestSnapshot() {
	p.mu.Lock()
	p.state.SnapshotsRequested++
	p.state.UpdatedAt = time.Now()
	state := p.state
	p.mu.Unlock()

	if p.metrics != nil {
		p.metrics.SnapshotsRequested.Inc()
	}
	p.notify(state)
}

// SensorAttached moves Initializing to Monitoring on the first successful
// sensor attach. Later attaches are no-ops.
func (p *Policy) SensorAttached() {
	p.transition(func(s *State) bool {
		if s.Status != StatusInitializing {
			return false
		}
		s.Status = StatusMonitoring
		return true
	})
}

// WebcamDenied moves Initializing to WebcamError. Non-camera channels keep
// monitoring; the status is informational, not a lock.
func (p *Policy) WebcamDenied() {
	p.transition(func(s *State) bool {
		if s.Status != StatusInitializing {
			return false
		}
		s.Status = StatusWebcamError
		return true
	})
}

// SetFaceStatus publishes the classifier's smoothed status and active
// detector tier.
func (p *Policy) SetFaceStatus(status face.Status, tier face.Tier) {
	p.transition(func(s *State) bool {
		if s.FaceStatus == status && s.DetectorTier == tier {
			return false
		}
		s.FaceStatus = status
		s.DetectorTier = tier
		return true
	})
}

// FullscreenExited marks containment as broken. The matching violation goes
// through the engine's normal admission path, not here.
func (p *Policy) FullscreenExited() {
	p.transition(func(s *State) bool {
		if !s.IsFullscreen {
			return false
		}
		s.IsFullscreen = false
		return true
	})
}

// FullscreenEntered restores containment. It never clears IsLocked.
func (p *Policy) FullscreenEntered() {
	p.transition(func(s *State) bool {
		if s.IsFullscreen {
			return false
		}
		s.IsFullscreen = true
		return true
	})
}

func (p *Policy) transition(mutate func(*State) bool) {
	p.mu.Lock()
	changed := mutate(&p.state)
	if changed {
		p.state.UpdatedAt = time.Now()
	}
	state := p.state
	p.mu.Unlock()

	if changed {
		p.notify(state)
	}
}

func (p *Policy) notify(state State) {
	if p.onChange != nil {
		p.onChange(state)
	}
}
