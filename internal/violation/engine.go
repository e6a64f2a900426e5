package violation

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// LockQuery lets the gate observe the session's terminal lock without owning
// it; the escalation policy stays the sole writer.
type LockQuery interface {
	Locked() bool
}

// Decision explains why a candidate event was or was not admitted.
type Decision string

const (
	DecisionAdmitted  Decision = "admitted"
	DecisionDebounced Decision = "debounced"
	DecisionLocked    Decision = "locked"
	DecisionNone      Decision = "none"
)

// Engine is the violation debounce and classification gate. Severity is
// assigned by the originating check; the engine only controls frequency and
// the terminal-lock cutoff.
type Engine struct {
	gate   *Gate
	burst  *BurstDetector
	lock   LockQuery
	logger *slog.Logger
}

// NewEngine wires the gate to the session's lock state.
func NewEngine(windows Windows, burstCfg BurstConfig, lock LockQuery, logger *slog.Logger) *Engine {
	return &Engine{
		gate:   NewGate(windows),
		burst:  NewBurstDetector(burstCfg),
		lock:   lock,
		logger: logger,
	}
}

// Submit evaluates one candidate violation. On admission it mints the
// immutable Event; callers append it to the log and forward it downstream.
func (e *Engine) Submit(eventType EventType, severity Severity, context string, now time.Time) (*Event, Decision) {
	if e.lock != nil && e.lock.Locked() {
		return nil, DecisionLocked
	}
	if !e.gate.Allow(eventType, now) {
		e.logger.Debug("violation suppressed by debounce window",
			"event_type", eventType,
			"window", e.gate.Window(eventType),
		)
		return nil, DecisionDebounced
	}
	return &Event{
		ID:        uuid.New(),
		EventType: eventType,
		Severity:  severity,
		Context:   context,
		Timestamp: now,
	}, DecisionAdmitted
}

// ObserveInput feeds one editable-field input event to the burst detector
// and submits a typing-burst violation when it qualifies.
func (e *Engine) ObserveInput(fieldID string, length int, now time.Time) (*Event, Decision) {
	ctx, burst := e.burst.Observe(fieldID, length, now)
	if !burst {
		return nil, DecisionNone
	}
	return e.Submit(EventTypingBurst, SeverityHigh, ctx, now)
}

// ResetField forgets burst tracking for a field that lost focus.
func (e *Engine) ResetField(fieldID string) {
	e.burst.Reset(fieldID)
}
