// Package sensor defines the normalized readings that browser-side adapters
// push into the engine. Readings are transient: consumed by the session loop
// and discarded.
package sensor

import (
	"time"

	"vigil/internal/face"
	dErrors "vigil/pkg/domainerrors"
)

// Kind tags the channel a reading came from.
type Kind string

const (
	KindFaceFrame       Kind = "face_frame"
	KindFocusChange     Kind = "focus_change"
	KindClipboardAction Kind = "clipboard_action"
	KindKeyCombo        Kind = "key_combo"
	KindDisplayTopology Kind = "display_topology"
	KindPeripheral      Kind = "peripheral_signal"
	KindAudioLevel      Kind = "audio_level"
	KindFullscreen      Kind = "fullscreen_state"
	KindInputChange     Kind = "input_change"
)

// FocusChange reports page visibility and window focus.
type FocusChange struct {
	Hidden   bool `json:"hidden"`
	HasFocus bool `json:"has_focus"`
}

// ClipboardKind distinguishes clipboard directions.
type ClipboardKind string

const (
	ClipboardCopy  ClipboardKind = "copy"
	ClipboardPaste ClipboardKind = "paste"
)

// ClipboardAction reports a copy or paste with the payload length.
type ClipboardAction struct {
	Kind   ClipboardKind `json:"kind"`
	Length int           `json:"length"`
}

// KeyCombo reports a keyboard shortcut press.
type KeyCombo struct {
	CtrlOrMeta bool   `json:"ctrl_or_meta"`
	Alt        bool   `json:"alt"`
	Key        string `json:"key"`
}

// DisplayTopology reports whether the desktop spans more than one display.
type DisplayTopology struct {
	IsExtended bool `json:"is_extended"`
}

// PeripheralSignal reports Bluetooth radio availability, a weak proxy for a
// phone or earpiece within range.
type PeripheralSignal struct {
	BluetoothAvailable bool `json:"bluetooth_available"`
}

// AudioLevel reports the ambient microphone amplitude average.
type AudioLevel struct {
	Average float64 `json:"average"`
}

// FullscreenState reports whether the assessment is in fullscreen.
type FullscreenState struct {
	Active bool `json:"active"`
}

// InputChange reports the length of a focused editable field after an input
// event, feeding the typed-burst heuristic.
type InputChange struct {
	FieldID string `json:"field_id"`
	Length  int    `json:"length"`
}

// Reading is the tagged union over all sensor channels. Exactly one payload
// field matching Kind must be set.
type Reading struct {
	Kind Kind      `json:"kind"`
	At   time.Time `json:"at,omitempty"`

	FaceFrame  *face.Frame       `json:"face_frame,omitempty"`
	Focus      *FocusChange      `json:"focus,omitempty"`
	Clipboard  *ClipboardAction  `json:"clipboard,omitempty"`
	KeyCombo   *KeyCombo         `json:"key_combo,omitempty"`
	Display    *DisplayTopology  `json:"display,omitempty"`
	Peripheral *PeripheralSignal `json:"peripheral,omitempty"`
	Audio      *AudioLevel       `json:"audio,omitempty"`
	Fullscreen *FullscreenState  `json:"fullscreen,omitempty"`
	Input      *InputChange      `json:"input,omitempty"`
}

// Validate checks the union invariant.
func (r Reading) Validate() error {
	ok := false
	switch r.Kind {
	case KindFaceFrame:
		ok = r.FaceFrame != nil
	case KindFocusChange:
		ok = r.Focus != nil
	case KindClipboardAction:
		ok = r.Clipboard != nil
	case KindKeyCombo:
		ok = r.KeyCombo != nil
	case KindDisplayTopology:
		ok = r.Display != nil
	case KindPeripheral:
		ok = r.Peripheral != nil
	case KindAudioLevel:
		ok = r.Audio != nil
	case KindFullscreen:
		ok = r.Fullscreen != nil
	case KindInputChange:
		ok = r.Input != nil
	default:
		return dErrors.New(dErrors.CodeBadRequest, "unknown reading kind")
	}
	if !ok {
		return dErrors.New(dErrors.CodeBadRequest, "reading payload does not match kind")
	}
	return nil
}
