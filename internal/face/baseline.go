package face

import (
	"fmt"
	"math"
)

// Baseline is the frozen reference geometry of the candidate's face,
// established from the first consecutive high-confidence single-face frames.
// Immutable for the rest of the session: drift away from it is itself the
// signal we care about.
type Baseline struct {
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	AspectRatio float64 `json:"aspect_ratio"`
	EyeDistance float64 `json:"eye_distance,omitempty"` // zero when landmarks were unavailable
}

// Descriptors are the geometric measurements taken from one detection.
type Descriptors struct {
	Width       float64
	Height      float64
	AspectRatio float64
	EyeDistance float64
	HasEyes     bool
}

// DescriptorsOf computes the geometry of a single detection.
func DescriptorsOf(det Detection) Descriptors {
	d := Descriptors{
		Width:  det.Box.Width,
		Height: det.Box.Height,
	}
	if det.Box.Height > 0 {
		d.AspectRatio = det.Box.Width / det.Box.Height
	}
	if det.Landmarks != nil {
		dx := det.Landmarks.RightEye.X - det.Landmarks.LeftEye.X
		dy := det.Landmarks.RightEye.Y - det.Landmarks.LeftEye.Y
		d.EyeDistance = math.Hypot(dx, dy)
		d.HasEyes = true
	}
	return d
}

// freeze turns descriptors into an immutable baseline.
func (d Descriptors) freeze() Baseline {
	b := Baseline{
		Width:       d.Width,
		Height:      d.Height,
		AspectRatio: d.AspectRatio,
	}
	if d.HasEyes {
		b.EyeDistance = d.EyeDistance
	}
	return b
}

// Deviation holds the normalized deltas between a frame and the baseline.
type Deviation struct {
	Aspect      float64
	Width       float64
	EyeDistance float64
	EyeMeasured bool
}

// DeviationFrom measures how far descriptors drift from the baseline.
// Width and eye-distance deltas are fractions of the baseline values.
func (b Baseline) DeviationFrom(d Descriptors) Deviation {
	dev := Deviation{
		Aspect: math.Abs(d.AspectRatio - b.AspectRatio),
	}
	if b.Width > 0 {
		dev.Width = math.Abs(d.Width-b.Width) / b.Width
	}
	if b.EyeDistance > 0 && d.HasEyes {
		dev.EyeDistance = math.Abs(d.EyeDistance-b.EyeDistance) / b.EyeDistance
		dev.EyeMeasured = true
	}
	return dev
}

// Suspicious applies the deviation thresholds.
func (dev Deviation) Suspicious(t Thresholds) bool {
	if dev.Aspect > t.MaxAspectDelta {
		return true
	}
	if dev.Width > t.MaxWidthDelta {
		return true
	}
	if dev.EyeMeasured && dev.EyeDistance > t.MaxEyeDistanceDelta {
		return true
	}
	return false
}

// String renders the measured deltas for violation context.
func (dev Deviation) String() string {
	if dev.EyeMeasured {
		return fmt.Sprintf("aspect_delta=%.3f width_delta=%.3f eye_distance_delta=%.3f",
			dev.Aspect, dev.Width, dev.EyeDistance)
	}
	return fmt.Sprintf("aspect_delta=%.3f width_delta=%.3f", dev.Aspect, dev.Width)
}
