package face

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"vigil/internal/violation"
)

type ClassifierSuite struct {
	suite.Suite
	classifier *Classifier
	now        time.Time
}

func TestClassifierSuite(t *testing.T) {
	suite.Run(t, new(ClassifierSuite))
}

func (s *ClassifierSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.classifier = NewClassifier(DefaultThresholds(), DefaultChain(), logger)
	s.now = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
}

func (s *ClassifierSuite) process(frame Frame) Result {
	s.now = s.now.Add(200 * time.Millisecond)
	return s.classifier.ProcessFrame(frame, s.now)
}

func singleFaceFrame() Frame {
	return Frame{
		Backend:    "preferred",
		Detections: []Detection{detectionWithEyes(0.4, 0.5, 0.40, 0.48)},
	}
}

// intruderFrame has the same box geometry but a wider eye span: the eye
// distance moves from 0.08 to 0.11, a 37.5% drift past the 30% threshold.
func intruderFrame() Frame {
	return Frame{
		Backend:    "preferred",
		Detections: []Detection{detectionWithEyes(0.4, 0.5, 0.40, 0.51)},
	}
}

func emptyFrame() Frame {
	return Frame{Backend: "preferred"}
}

// warmUp drives the classifier to a frozen baseline and MATCH status.
func (s *ClassifierSuite) warmUp() {
	for range DefaultThresholds().BaselineFrames {
		s.process(singleFaceFrame())
	}
	s.Require().NotNil(s.classifier.Baseline())
	s.Require().Equal(StatusMatch, s.classifier.Status())
}

func (s *ClassifierSuite) TestBaselineWarmup() {
	s.Run("baseline freezes after consecutive single-face frames", func() {
		s.Nil(s.process(singleFaceFrame()).Trigger)
		s.Nil(s.process(singleFaceFrame()).Trigger)
		s.Nil(s.classifier.Baseline())

		result := s.process(singleFaceFrame())
		s.Require().NotNil(result.Trigger)
		s.Equal(violation.EventBaselineSet, result.Trigger.EventType)
		s.Equal(violation.SeverityLow, result.Trigger.Severity)
		s.Equal(StatusMatch, result.Status)
		s.Require().NotNil(s.classifier.Baseline())
		s.InDelta(0.8, s.classifier.Baseline().AspectRatio, 1e-9)
		s.InDelta(0.08, s.classifier.Baseline().EyeDistance, 1e-9)
	})
}

func (s *ClassifierSuite) TestWarmupRequiresConsecutiveFrames() {
	s.process(singleFaceFrame())
	s.process(singleFaceFrame())
	s.process(emptyFrame()) // interrupts the streak

	s.process(singleFaceFrame())
	s.process(singleFaceFrame())
	s.Nil(s.classifier.Baseline())

	result := s.process(singleFaceFrame())
	s.Require().NotNil(result.Trigger)
	s.Equal(violation.EventBaselineSet, result.Trigger.EventType)
}

func (s *ClassifierSuite) TestNoFace() {
	s.Run("empty frame raises no-face at medium severity", func() {
		result := s.process(emptyFrame())
		s.Equal(StatusNoFace, result.Status)
		s.Require().NotNil(result.Trigger)
		s.Equal(violation.EventNoFace, result.Trigger.EventType)
		s.Equal(violation.SeverityMedium, result.Trigger.Severity)
	})

	s.Run("low-confidence detections are ignored", func() {
		frame := singleFaceFrame()
		frame.Detections[0].Confidence = 0.55
		result := s.process(frame)
		s.Equal(StatusNoFace, result.Status)
	})
}

func (s *ClassifierSuite) TestFlickerSuppression() {
	s.warmUp()

	// A single empty frame amid steady single-face frames: the window mode
	// still says one face, so the status holds and nothing fires.
	result := s.process(emptyFrame())
	s.Equal(StatusMatch, result.Status)
	s.Nil(result.Trigger)
}

func (s *ClassifierSuite) TestMultipleFaces() {
	result := s.process(Frame{
		Backend: "preferred",
		Detections: []Detection{
			detectionWithEyes(0.4, 0.5, 0.40, 0.48),
			detectionWithEyes(0.3, 0.4, 0.10, 0.16),
		},
	})
	s.Equal(StatusMultiple, result.Status)
	s.Require().NotNil(result.Trigger)
	s.Equal(violation.EventMultipleFaces, result.Trigger.EventType)
	s.Equal(violation.SeverityHigh, result.Trigger.Severity)
}

func (s *ClassifierSuite) TestIdentityMismatch() {
	s.warmUp()
	limit := DefaultThresholds().SuspicionLimit

	s.Run("sustained deviation escalates to a different person", func() {
		for i := range limit - 1 {
			result := s.process(intruderFrame())
			s.Equal(StatusMatch, result.Status, "frame %d should not escalate yet", i+1)
			s.Nil(result.Trigger)
		}

		result := s.process(intruderFrame())
		s.Equal(StatusDifferentPerson, result.Status)
		s.Require().NotNil(result.Trigger)
		s.Equal(violation.EventIdentityMismatch, result.Trigger.EventType)
		s.Equal(violation.SeverityCritical, result.Trigger.Severity)
		s.True(result.Trigger.Snapshot)
	})

	s.Run("continued deviation does not re-trigger", func() {
		result := s.process(intruderFrame())
		s.Equal(StatusDifferentPerson, result.Status)
		s.Nil(result.Trigger)
	})

	s.Run("recovery is gradual", func() {
		for range limit - 1 {
			result := s.process(singleFaceFrame())
			s.Equal(StatusDifferentPerson, result.Status)
		}
		result := s.process(singleFaceFrame())
		s.Equal(StatusMatch, result.Status)
	})
}

func (s *ClassifierSuite) TestSingleSuspiciousFrameTolerated() {
	s.warmUp()

	s.process(intruderFrame())
	result := s.process(singleFaceFrame())
	s.Equal(StatusMatch, result.Status)
	s.Nil(result.Trigger)
}

func (s *ClassifierSuite) TestDetectorFallback() {
	s.Run("native frames are damped but still counted", func() {
		frame := Frame{
			Backend:    "native",
			Detections: []Detection{{Box: Box{Width: 0.4, Height: 0.5}, Confidence: 0.8}},
		}
		result := s.process(frame)
		s.Equal(TierNative, result.Tier)
		s.NotEqual(StatusNoFace, result.Status)
	})

	s.Run("unknown backend falls to the simulated tier", func() {
		result := s.process(Frame{Backend: "experimental"})
		s.Equal(TierSimulated, result.Tier)
		s.NotEqual(StatusNoFace, result.Status)
	})
}

func (s *ClassifierSuite) TestUnfocusedHeuristic() {
	grace := DefaultThresholds().UnfocusedGrace

	s.Run("requires a matched face", func() {
		s.classifier.MarkUnfocused(s.now)
		s.Nil(s.classifier.CheckUnfocused(s.now.Add(grace)))
	})

	s.Run("fires after the grace period", func() {
		s.warmUp()
		start := s.now
		s.classifier.MarkUnfocused(start)

		s.Nil(s.classifier.CheckUnfocused(start.Add(grace-time.Second)), "still inside grace")

		trigger := s.classifier.CheckUnfocused(start.Add(grace))
		s.Require().NotNil(trigger)
		s.Equal(violation.EventNearbyDeviceFocus, trigger.EventType)
		s.Equal(violation.SeverityHigh, trigger.Severity)

		s.Nil(s.classifier.CheckUnfocused(start.Add(grace+time.Second)), "timer cleared after firing")
	})

	s.Run("refocus resets the timer", func() {
		s.classifier.MarkUnfocused(s.now)
		s.classifier.MarkFocused()
		s.Nil(s.classifier.CheckUnfocused(s.now.Add(2 * grace)))
	})
}
