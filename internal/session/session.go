// Package session hosts one engine actor per proctored assessment. All
// sensor callbacks, timers, and policy transitions for a session run on one
// goroutine, which makes the debounce-check-and-append step atomic and keeps
// the state machine free of data races by construction.
package session

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"vigil/internal/face"
	"vigil/internal/platform/metrics"
	"vigil/internal/policy"
	"vigil/internal/sensor"
	"vigil/internal/violation"
	id "vigil/pkg/domain"
	dErrors "vigil/pkg/domainerrors"
)

// Clock abstracts time for deterministic tests.
type Clock func() time.Time

// Config tunes one session's engine. A nil Clock falls back to time.Now;
// every other field is taken as given, with DefaultConfig supplying the
// production values.
type Config struct {
	FrameInterval      time.Duration // camera frames faster than this are dropped
	SnapshotInterval   time.Duration // periodic evidentiary capture cadence
	PeripheralInterval time.Duration // periodic peripheral re-check cadence
	AudioThreshold     float64       // ambient amplitude above this is suspicious
	InboxSize          int

	Thresholds face.Thresholds
	Windows    violation.Windows
	Burst      violation.BurstConfig
	Policy     policy.Config

	Clock Clock
}

// DefaultConfig returns the production session tuning.
func DefaultConfig() Config {
	return Config{
		FrameInterval:      200 * time.Millisecond, // ~5 Hz
		SnapshotInterval:   35 * time.Second,
		PeripheralInterval: 60 * time.Second,
		AudioThreshold:     0.35,
		InboxSize:          64,
		Thresholds:         face.DefaultThresholds(),
		Windows:            violation.DefaultWindows(),
		Burst:              violation.DefaultBurstConfig(),
		Policy:             policy.DefaultConfig(),
		Clock:              time.Now,
	}
}

// Meta records who joined and from what client.
type Meta struct {
	CandidateName  string    `json:"candidate_name"`
	Browser        string    `json:"browser,omitempty"`
	BrowserVersion string    `json:"browser_version,omitempty"`
	OS             string    `json:"os,omitempty"`
	JoinedAt       time.Time `json:"joined_at"`
}

// StateStore mirrors state snapshots to an external store (Redis) so
// dashboards can read live session state without touching the actor.
type StateStore interface {
	SaveState(sessionID id.SessionID, state policy.State) error
}

// Session is one proctored assessment's engine actor.
type Session struct {
	ID          id.SessionID
	CandidateID id.CandidateID
	Meta        Meta

	cfg        Config
	classifier *face.Classifier
	engine     *violation.Engine
	pol        *policy.Policy
	logger     *slog.Logger
	metrics    *metrics.Metrics
	states     StateStore

	inbox  chan sensor.Reading
	mirror chan policy.State
	done   chan struct{}
	ended  chan struct{}
	once   sync.Once

	lastFrameNanos atomic.Int64

	subMu     sync.Mutex
	nextSub   int
	stateSubs map[int]chan policy.State
	eventSubs map[int]chan violation.Event

	// engine-loop state, touched only by run()
	webcamDeniedSeen bool
	firstReadingSeen bool
	bluetoothNearby  bool
	audioAbove       bool
	unfocusTimer     *time.Timer
}

// New assembles a session. Call Run on its own goroutine afterwards.
func New(sessionID id.SessionID, candidateID id.CandidateID, meta Meta, cfg Config, pol *policy.Policy, logger *slog.Logger, m *metrics.Metrics, states StateStore) *Session {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	logger = logger.With("session_id", sessionID.String(), "candidate_id", candidateID.String())

	s := &Session{
		ID:          sessionID,
		CandidateID: candidateID,
		Meta:        meta,
		cfg:         cfg,
		classifier:  face.NewClassifier(cfg.Thresholds, face.DefaultChain(), logger),
		pol:         pol,
		logger:      logger,
		metrics:     m,
		states:      states,
		inbox:       make(chan sensor.Reading, cfg.InboxSize),
		mirror:      make(chan policy.State, 1),
		done:        make(chan struct{}),
		ended:       make(chan struct{}),
		stateSubs:   make(map[int]chan policy.State),
		eventSubs:   make(map[int]chan violation.Event),
	}
	s.engine = violation.NewEngine(cfg.Windows, cfg.Burst, pol, logger)
	pol.OnChange(s.publishState)
	return s
}

// State returns the current integrity state snapshot.
func (s *Session) State() policy.State { return s.pol.Snapshot() }

// Violations returns a copy of the session's violation log.
func (s *Session) Violations() []violation.Event { return s.pol.Log() }

// Push delivers one sensor reading to the engine. It never blocks: camera
// frames beyond the 5 Hz gate and anything arriving while the inbox is full
// are dropped, not queued. Staleness beats unbounded growth.
func (s *Session) Push(reading sensor.Reading) error {
	select {
	case <-s.done:
		return dErrors.New(dErrors.CodeNotFound, "session has ended")
	default:
	}

	if err := reading.Validate(); err != nil {
		return err
	}

	if reading.Kind == sensor.KindFaceFrame && !s.admitFrame() {
		if s.metrics != nil {
			s.metrics.FramesDropped.Inc()
		}
		return nil
	}

	select {
	case s.inbox <- reading:
		return nil
	default:
		if s.metrics != nil && reading.Kind == sensor.KindFaceFrame {
			s.metrics.FramesDropped.Inc()
		}
		s.logger.Debug("inbox full, reading dropped", "kind", reading.Kind)
		return nil
	}
}

// admitFrame is the timestamp gate at the adapter boundary: at most one
// frame per FrameInterval, checked with a CAS so concurrent pushes cannot
// both pass one slot.
func (s *Session) admitFrame() bool {
	now := s.cfg.Clock().UnixNano()
	for {
		last := s.lastFrameNanos.Load()
		if now-last < int64(s.cfg.FrameInterval) {
			return false
		}
		if s.lastFrameNanos.CompareAndSwap(last, now) {
			return true
		}
	}
}

// StoreSnapshot forwards captured evidence bytes, tagged with whether a face
// is present right now.
func (s *Session) StoreSnapshot(image []byte) {
	s.pol.StoreSnapshot(image, s.facePresent())
}

func (s *Session) facePresent() bool {
	switch s.pol.Snapshot().FaceStatus {
	case face.StatusMatch, face.StatusMultiple, face.StatusDifferentPerson:
		return true
	}
	return false
}

// Run is the session event loop. It exits when Close is called, tearing
// down timers and subscribers in one place so nothing can outlive the
// session and log spurious violations.
func (s *Session) Run() {
	if s.metrics != nil {
		s.metrics.SessionsActive.Inc()
	}
	if s.states != nil {
		go s.runMirror()
	}

	snapshotTicker := time.NewTicker(s.cfg.SnapshotInterval)
	peripheralTicker := time.NewTicker(s.cfg.PeripheralInterval)
	s.unfocusTimer = time.NewTimer(time.Hour)
	s.unfocusTimer.Stop()

	defer func() {
		snapshotTicker.Stop()
		peripheralTicker.Stop()
		s.unfocusTimer.Stop()
		s.closeSubscribers()
		if s.metrics != nil {
			s.metrics.SessionsActive.Dec()
		}
		close(s.ended)
		s.logger.Info("session torn down")
	}()

	for {
		select {
		case <-s.done:
			return
		case reading := <-s.inbox:
			start := s.cfg.Clock()
			s.handle(reading, start)
			if s.metrics != nil {
				s.metrics.ReadingLatency.Observe(s.cfg.Clock().Sub(start).Seconds())
			}
		case <-snapshotTicker.C:
			// Read state at fire time, never at timer creation.
			if !s.pol.Locked() {
				s.pol.RequestSnapshot()
			}
		case <-peripheralTicker.C:
			if s.bluetoothNearby {
				s.submit(violation.EventMobileProximity, violation.SeverityMedium,
					"bluetooth still in range at periodic check", s.cfg.Clock())
			}
		case <-s.unfocusTimer.C:
			if trig := s.classifier.CheckUnfocused(s.cfg.Clock()); trig != nil {
				s.submitTrigger(trig, s.cfg.Clock())
			}
		}
	}
}

// Close ends the session. Idempotent; the actor drains nothing and stops.
func (s *Session) Close() {
	s.once.Do(func() { close(s.done) })
	<-s.ended
}

func (s *Session) handle(reading sensor.Reading, now time.Time) {
	// A denied camera prompt is a failure report, not a working sensor; it
	// must not move the session out of Initializing before WebcamDenied runs.
	deniedFrame := reading.Kind == sensor.KindFaceFrame && reading.FaceFrame.Error == face.PermissionDenied
	if !s.firstReadingSeen && !deniedFrame {
		s.firstReadingSeen = true
		s.pol.SensorAttached()
	}

	switch reading.Kind {
	case sensor.KindFaceFrame:
		s.handleFrame(*reading.FaceFrame, now)
	case sensor.KindFocusChange:
		s.handleFocus(*reading.Focus, now)
	case sensor.KindClipboardAction:
		s.handleClipboard(*reading.Clipboard, now)
	case sensor.KindKeyCombo:
		s.handleKeyCombo(*reading.KeyCombo, now)
	case sensor.KindDisplayTopology:
		if reading.Display.IsExtended {
			s.submit(violation.EventExternalDisplay, violation.SeverityHigh,
				"desktop extended across multiple displays", now)
		}
	case sensor.KindPeripheral:
		s.bluetoothNearby = reading.Peripheral.BluetoothAvailable
		if s.bluetoothNearby {
			s.submit(violation.EventMobileProximity, violation.SeverityMedium,
				"bluetooth radio reachable", now)
		}
	case sensor.KindAudioLevel:
		s.handleAudio(*reading.Audio, now)
	case sensor.KindFullscreen:
		s.handleFullscreen(*reading.Fullscreen, now)
	case sensor.KindInputChange:
		if ev, decision := s.engine.ObserveInput(reading.Input.FieldID, reading.Input.Length, now); decision == violation.DecisionAdmitted {
			s.record(*ev)
		}
	}
}

func (s *Session) handleFrame(frame face.Frame, now time.Time) {
	if frame.Error == face.PermissionDenied {
		s.pol.WebcamDenied()
		if !s.webcamDeniedSeen {
			s.webcamDeniedSeen = true
			s.submit(violation.EventWebcamDenied, violation.SeverityHigh,
				"camera permission denied", now)
		}
		return
	}

	if s.metrics != nil {
		s.metrics.FramesProcessed.Inc()
	}
	result := s.classifier.ProcessFrame(frame, now)
	s.pol.SetFaceStatus(result.Status, result.Tier)
	if result.Trigger != nil {
		s.submitTrigger(result.Trigger, now)
	}
}

func (s *Session) handleFocus(focus sensor.FocusChange, now time.Time) {
	if focus.Hidden || !focus.HasFocus {
		s.submit(violation.EventTabSwitch, violation.SeverityMedium,
			"page hidden or focus lost", now)
		s.classifier.MarkUnfocused(now)
		s.unfocusTimer.Reset(s.cfg.Thresholds.UnfocusedGrace)
		return
	}
	s.classifier.MarkFocused()
	s.unfocusTimer.Stop()
}

func (s *Session) handleClipboard(action sensor.ClipboardAction, now time.Time) {
	switch action.Kind {
	case sensor.ClipboardPaste:
		s.submit(violation.EventPasteDetected, violation.SeverityHigh,
			fmtLength("pasted", action.Length), now)
	case sensor.ClipboardCopy:
		s.submit(violation.EventCopyDetected, violation.SeverityLow,
			fmtLength("copied", action.Length), now)
	}
}

func (s *Session) handleKeyCombo(combo sensor.KeyCombo, now time.Time) {
	if !forbiddenCombo(combo) {
		return
	}
	s.submit(violation.EventForbiddenShortcut, violation.SeverityMedium,
		comboString(combo), now)
}

func (s *Session) handleAudio(audio sensor.AudioLevel, now time.Time) {
	above := audio.Average > s.cfg.AudioThreshold
	// Rising edge only; a sustained loud room is one event, not a stream.
	if above && !s.audioAbove {
		s.submit(violation.EventSuspiciousAudio, violation.SeverityMedium,
			fmtAudio(audio.Average), now)
	}
	s.audioAbove = above
}

func (s *Session) handleFullscreen(state sensor.FullscreenState, now time.Time) {
	if state.Active {
		s.pol.FullscreenEntered()
		return
	}
	s.pol.FullscreenExited()
	s.submit(violation.EventSecurityProtocolExit, violation.SeverityHigh,
		"fullscreen exited", now)
}

// submit runs one candidate violation through the debounce engine and, when
// admitted, records it with the policy. Gate and append happen on the one
// loop goroutine, so no concurrent trigger can split the window.
func (s *Session) submit(eventType violation.EventType, severity violation.Severity, context string, now time.Time) {
	ev, decision := s.engine.Submit(eventType, severity, context, now)
	switch decision {
	case violation.DecisionAdmitted:
		s.record(*ev)
	case violation.DecisionDebounced:
		if s.metrics != nil {
			s.metrics.ViolationsSuppressed.WithLabelValues(string(eventType), "debounced").Inc()
		}
	case violation.DecisionLocked:
		if s.metrics != nil {
			s.metrics.ViolationsSuppressed.WithLabelValues(string(eventType), "locked").Inc()
		}
	}
}

func (s *Session) submitTrigger(trig *face.Trigger, now time.Time) {
	ev, decision := s.engine.Submit(trig.EventType, trig.Severity, trig.Context, now)
	if decision != violation.DecisionAdmitted {
		if s.metrics != nil {
			s.metrics.ViolationsSuppressed.WithLabelValues(string(trig.EventType), string(decision)).Inc()
		}
		return
	}
	s.record(*ev)
	if trig.Snapshot {
		s.pol.RequestSnapshot()
	}
}

func (s *Session) record(ev violation.Event) {
	s.pol.Record(ev, s.facePresent())
	s.publishEvent(ev)
}
