package face

import (
	"fmt"
)

// Tier ranks detector backends from best to worst. The session degrades down
// the chain instead of failing when a backend is unavailable, and the active
// tier stays visible in session state.
type Tier string

const (
	TierPreferred Tier = "preferred"
	TierNative    Tier = "native"
	TierSimulated Tier = "simulated"
)

// Point is a normalized landmark coordinate (0..1 of frame size).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Box is a normalized bounding box.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Landmarks carries the eye positions when the backend produces them.
type Landmarks struct {
	LeftEye  Point `json:"left_eye"`
	RightEye Point `json:"right_eye"`
}

// Detection is one raw per-frame face detection.
type Detection struct {
	Box        Box        `json:"box"`
	Landmarks  *Landmarks `json:"landmarks,omitempty"`
	Confidence float64    `json:"confidence"`
}

// Frame is one camera-channel reading after adapter normalization.
type Frame struct {
	// Backend names the detector that produced the detections; empty when
	// the adapter could not load any backend.
	Backend    string      `json:"backend,omitempty"`
	Detections []Detection `json:"detections"`
	// Error carries the adapter's camera failure, e.g. "permission_denied".
	Error string `json:"error,omitempty"`
}

// PermissionDenied is the adapter error for a rejected camera prompt.
const PermissionDenied = "permission_denied"

// Detector normalizes frames produced by one backend tier.
type Detector interface {
	// ID returns a unique identifier for this detector.
	ID() string

	// Tier returns the capability tier this detector represents.
	Tier() Tier

	// CanHandle reports whether this detector understands the frame.
	CanHandle(frame Frame) bool

	// Normalize extracts confidence-scaled detections from the frame.
	Normalize(frame Frame) []Detection
}

// Chain is the ranked capability fallback: preferred detector, then the
// native platform detector, then a static simulated presence. Selection
// happens per frame so a recovered backend is picked up immediately.
type Chain struct {
	detectors []Detector
}

// NewChain builds the chain in rank order. An empty chain is invalid.
func NewChain(detectors ...Detector) (*Chain, error) {
	if len(detectors) == 0 {
		return nil, fmt.Errorf("detector chain requires at least one detector")
	}
	return &Chain{detectors: detectors}, nil
}

// DefaultChain returns the production fallback chain.
func DefaultChain() *Chain {
	c, _ := NewChain(
		&preferredDetector{},
		&nativeDetector{},
		&simulatedDetector{},
	)
	return c
}

// Normalize runs the first capable detector and reports which tier handled
// the frame.
func (c *Chain) Normalize(frame Frame) ([]Detection, Tier) {
	for _, d := range c.detectors {
		if d.CanHandle(frame) {
			return d.Normalize(frame), d.Tier()
		}
	}
	// The last detector is the simulated tier and accepts anything, so this
	// is unreachable for a DefaultChain; guard for custom chains.
	last := c.detectors[len(c.detectors)-1]
	return last.Normalize(frame), last.Tier()
}

// preferredDetector handles frames from the full-feature backend: detections
// with landmarks, confidence already calibrated.
type preferredDetector struct{}

func (d *preferredDetector) ID() string { return "detector:preferred" }
func (d *preferredDetector) Tier() Tier { return TierPreferred }

func (d *preferredDetector) CanHandle(frame Frame) bool {
	if frame.Backend != "preferred" {
		return false
	}
	for _, det := range frame.Detections {
		if det.Landmarks == nil {
			return false
		}
	}
	return true
}

func (d *preferredDetector) Normalize(frame Frame) []Detection {
	out := make([]Detection, len(frame.Detections))
	copy(out, frame.Detections)
	return out
}

// nativeDetector handles frames from the platform's built-in detector:
// boxes only, no landmarks, optimistic confidences that need damping.
type nativeDetector struct{}

const nativeConfidenceScale = 0.85

func (d *nativeDetector) ID() string { return "detector:native" }
func (d *nativeDetector) Tier() Tier { return TierNative }

func (d *nativeDetector) CanHandle(frame Frame) bool {
	return frame.Backend == "native"
}

func (d *nativeDetector) Normalize(frame Frame) []Detection {
	out := make([]Detection, len(frame.Detections))
	for i, det := range frame.Detections {
		det.Landmarks = nil
		det.Confidence *= nativeConfidenceScale
		out[i] = det
	}
	return out
}

// simulatedDetector is the last-resort tier used when no real backend
// loaded. It reports a single static presence at reduced confidence so the
// session keeps running instead of failing; the degraded tier is visible in
// session state.
type simulatedDetector struct{}

const simulatedConfidence = 0.61

func (d *simulatedDetector) ID() string { return "detector:simulated" }
func (d *simulatedDetector) Tier() Tier { return TierSimulated }

func (d *simulatedDetector) CanHandle(Frame) bool { return true }

func (d *simulatedDetector) Normalize(Frame) []Detection {
	return []Detection{{
		Box:        Box{X: 0.3, Y: 0.2, Width: 0.4, Height: 0.5},
		Confidence: simulatedConfidence,
	}}
}
