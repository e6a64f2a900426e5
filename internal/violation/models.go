package violation

import (
	"time"

	"github.com/google/uuid"
)

// Severity ranks how damaging a violation is. Values are lowercase on the
// wire to match the evidence backend.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// EventType names a class of violation. The set is closed at the engine
// boundary so the evidence backend and dashboards can rely on it.
type EventType string

const (
	// Camera channel
	EventNoFace           EventType = "no_face_detected"
	EventMultipleFaces    EventType = "multiple_faces_detected"
	EventIdentityMismatch EventType = "identity_mismatch"
	EventBaselineSet      EventType = "baseline_set"
	EventWebcamDenied     EventType = "webcam_denied"

	// Focus / containment channel
	EventTabSwitch            EventType = "tab_switch"
	EventNearbyDeviceFocus    EventType = "nearby_device_focus_suspicion"
	EventSecurityProtocolExit EventType = "security_protocol_exit"

	// Input channel
	EventPasteDetected     EventType = "paste_detected"
	EventCopyDetected      EventType = "copy_detected"
	EventForbiddenShortcut EventType = "forbidden_shortcut"
	EventTypingBurst       EventType = "typing_burst_detected"

	// Environment channel
	EventExternalDisplay EventType = "external_display_connected"
	EventMobileProximity EventType = "mobile_proximity_potential"
	EventSuspiciousAudio EventType = "suspicious_audio"
)

// Event is one admitted violation. Immutable once created; append-only
// member of the session's violation log.
type Event struct {
	ID        uuid.UUID `json:"id"`
	EventType EventType `json:"event_type"`
	Severity  Severity  `json:"severity"`
	Context   string    `json:"context,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Windows maps high-frequency event types to their minimum admission
// interval. Types absent from the map are admitted immediately.
type Windows map[EventType]time.Duration

// DefaultWindows returns the production debounce policy. The values are
// empirically chosen; treat them as tunable, not law.
func DefaultWindows() Windows {
	return Windows{
		EventNoFace:           10 * time.Second,
		EventMultipleFaces:    10 * time.Second,
		EventIdentityMismatch: 10 * time.Second,
		EventBaselineSet:      10 * time.Second,
		EventMobileProximity:  120 * time.Second,
		EventExternalDisplay:  60 * time.Second,
		EventTypingBurst:      5 * time.Second,
	}
}
