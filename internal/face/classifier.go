package face

import (
	"fmt"
	"log/slog"
	"time"

	"vigil/internal/violation"
)

// Status is the smoothed, debounced face presence state.
type Status string

const (
	StatusScanning        Status = "SCANNING"
	StatusMatch           Status = "MATCH"
	StatusNoFace          Status = "NO_FACE"
	StatusMultiple        Status = "MULTIPLE"
	StatusDifferentPerson Status = "DIFFERENT_PERSON"
)

// Thresholds are the classifier's tunable policy parameters. The defaults
// are empirically chosen; nothing here is law.
type Thresholds struct {
	ConfidenceFloor     float64       // detections below this are ignored
	WindowSize          int           // sliding window of raw face counts
	WindowMinSamples    int           // samples needed before trusting the mode
	WindowModeRatio     float64       // share of samples the mode must cover
	BaselineFrames      int           // consecutive single-face frames to freeze the baseline
	MaxAspectDelta      float64       // aspect-ratio deviation flagging a frame
	MaxWidthDelta       float64       // width deviation, fraction of baseline
	MaxEyeDistanceDelta float64       // eye-distance deviation, fraction of baseline
	SuspicionLimit      int           // sustained suspicious frames before DIFFERENT_PERSON
	UnfocusedGrace      time.Duration // continuous unfocus before the looking-away violation
}

// DefaultThresholds returns the production tuning.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ConfidenceFloor:     0.6,
		WindowSize:          5,
		WindowMinSamples:    3,
		WindowModeRatio:     0.6,
		BaselineFrames:      3,
		MaxAspectDelta:      0.25,
		MaxWidthDelta:       0.35,
		MaxEyeDistanceDelta: 0.30,
		SuspicionLimit:      5,
		UnfocusedGrace:      15 * time.Second,
	}
}

// Trigger is a derived violation the classifier asks the engine to admit.
// The classifier proposes; the debounce engine disposes.
type Trigger struct {
	EventType violation.EventType
	Severity  violation.Severity
	Context   string
	// Snapshot forces an evidentiary capture regardless of severity rules.
	Snapshot bool
}

// Result is the outcome of classifying one frame.
type Result struct {
	Status  Status
	Tier    Tier
	Trigger *Trigger
}

// Classifier converts raw per-frame detections into a smoothed Status plus
// at most one derived violation trigger per frame. It owns the identity
// baseline and all smoothing state; callers own the call cadence (frames
// must already be rate-gated).
type Classifier struct {
	cfg    Thresholds
	chain  *Chain
	logger *slog.Logger

	window        *countWindow
	status        Status
	baseline      *Baseline
	warmupStreak  int
	suspicion     int
	baselineNoted bool

	unfocusedSince *time.Time
}

// NewClassifier builds a classifier over the detector chain.
func NewClassifier(cfg Thresholds, chain *Chain, logger *slog.Logger) *Classifier {
	if chain == nil {
		chain = DefaultChain()
	}
	return &Classifier{
		cfg:    cfg,
		chain:  chain,
		logger: logger,
		window: newCountWindow(cfg.WindowSize, cfg.WindowMinSamples, cfg.WindowModeRatio),
		status: StatusScanning,
	}
}

// Status returns the current smoothed face status.
func (c *Classifier) Status() Status { return c.status }

// Baseline returns the frozen identity baseline, or nil during warm-up.
func (c *Classifier) Baseline() *Baseline { return c.baseline }

// ProcessFrame classifies one camera frame. Frames must arrive at the gated
// cadence; the classifier never buffers.
func (c *Classifier) ProcessFrame(frame Frame, now time.Time) Result {
	detections, tier := c.chain.Normalize(frame)

	confident := detections[:0:0]
	for _, det := range detections {
		if det.Confidence >= c.cfg.ConfidenceFloor {
			confident = append(confident, det)
		}
	}

	smoothed := c.window.push(len(confident))

	switch {
	case smoothed == 0:
		c.warmupStreak = 0
		return c.transition(StatusNoFace, tier, &Trigger{
			EventType: violation.EventNoFace,
			Severity:  violation.SeverityMedium,
			Context:   "no face visible in frame window",
		})
	case smoothed >= 2:
		c.warmupStreak = 0
		return c.transition(StatusMultiple, tier, &Trigger{
			EventType: violation.EventMultipleFaces,
			Severity:  violation.SeverityHigh,
			Context:   fmt.Sprintf("faces_detected=%d", smoothed),
		})
	default:
		return c.identityPath(confident, tier, now)
	}
}

// identityPath handles the single-face case: baseline warm-up, then
// sustained-deviation identity checking.
func (c *Classifier) identityPath(detections []Detection, tier Tier, now time.Time) Result {
	if len(detections) == 0 {
		// The smoothed count said one face but this frame has none; hold the
		// current status and wait for the window to settle.
		c.warmupStreak = 0
		return Result{Status: c.status, Tier: tier}
	}
	desc := DescriptorsOf(detections[0])

	if c.baseline == nil {
		c.warmupStreak++
		if c.warmupStreak < c.cfg.BaselineFrames {
			return c.transition(StatusMatch, tier, nil)
		}
		frozen := desc.freeze()
		c.baseline = &frozen
		c.logger.Info("identity baseline frozen",
			"aspect_ratio", frozen.AspectRatio,
			"width", frozen.Width,
			"eye_distance", frozen.EyeDistance,
		)
		return c.transition(StatusMatch, tier, &Trigger{
			EventType: violation.EventBaselineSet,
			Severity:  violation.SeverityLow,
			Context:   fmt.Sprintf("aspect_ratio=%.3f width=%.3f", frozen.AspectRatio, frozen.Width),
		})
	}

	dev := c.baseline.DeviationFrom(desc)
	if dev.Suspicious(c.cfg) {
		// Capped so recovery never takes longer than the limit itself.
		if c.suspicion < c.cfg.SuspicionLimit {
			c.suspicion++
		}
	} else if c.suspicion > 0 {
		// Asymmetric recovery: one clean frame never erases sustained
		// deviation, and recovery from DIFFERENT_PERSON is gradual.
		c.suspicion--
	}

	if c.suspicion >= c.cfg.SuspicionLimit {
		if c.status != StatusDifferentPerson {
			return c.transition(StatusDifferentPerson, tier, &Trigger{
				EventType: violation.EventIdentityMismatch,
				Severity:  violation.SeverityCritical,
				Context:   dev.String(),
				Snapshot:  true,
			})
		}
		return Result{Status: c.status, Tier: tier}
	}
	if c.status == StatusDifferentPerson && c.suspicion > 0 {
		// Still cooling off.
		return Result{Status: c.status, Tier: tier}
	}
	return c.transition(StatusMatch, tier, nil)
}

func (c *Classifier) transition(next Status, tier Tier, trigger *Trigger) Result {
	if c.status != next {
		c.logger.Debug("face status transition", "from", c.status, "to", next)
		c.status = next
	}
	return Result{Status: c.status, Tier: tier, Trigger: trigger}
}

// MarkUnfocused starts the looking-away timer. The heuristic only runs while
// the face matches; an unfocused page with no face is already covered by the
// no-face path.
func (c *Classifier) MarkUnfocused(now time.Time) {
	if c.status != StatusMatch {
		return
	}
	if c.unfocusedSince == nil {
		t := now
		c.unfocusedSince = &t
	}
}

// MarkFocused resets the looking-away timer.
func (c *Classifier) MarkFocused() {
	c.unfocusedSince = nil
}

// CheckUnfocused reports a nearby-device trigger when the page has been
// continuously unfocused past the grace period, then restarts the timer.
func (c *Classifier) CheckUnfocused(now time.Time) *Trigger {
	if c.unfocusedSince == nil || c.status != StatusMatch {
		return nil
	}
	elapsed := now.Sub(*c.unfocusedSince)
	if elapsed < c.cfg.UnfocusedGrace {
		return nil
	}
	c.unfocusedSince = nil
	return &Trigger{
		EventType: violation.EventNearbyDeviceFocus,
		Severity:  violation.SeverityHigh,
		Context:   fmt.Sprintf("unfocused_for_ms=%d", elapsed.Milliseconds()),
	}
}
