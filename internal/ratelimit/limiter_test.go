package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type LimiterSuite struct {
	suite.Suite
	limiter *Limiter
	now     time.Time
}

func TestLimiterSuite(t *testing.T) {
	suite.Run(t, new(LimiterSuite))
}

func (s *LimiterSuite) SetupTest() {
	s.limiter = New(3, time.Minute)
	s.now = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	s.limiter.now = func() time.Time { return s.now }
}

func (s *LimiterSuite) advance(d time.Duration) {
	s.now = s.now.Add(d)
}

func (s *LimiterSuite) TestAllow() {
	s.Run("admits up to the limit", func() {
		s.Equal(2, s.limiter.Allow("a").Remaining)
		s.Equal(1, s.limiter.Allow("a").Remaining)
		res := s.limiter.Allow("a")
		s.True(res.Allowed)
		s.Equal(0, res.Remaining)

		res = s.limiter.Allow("a")
		s.False(res.Allowed)
		s.Equal(s.now.Add(time.Minute), res.ResetAt)
	})

	s.Run("keys are independent", func() {
		for i := 0; i < 3; i++ {
			s.True(s.limiter.Allow("b").Allowed)
		}
		s.False(s.limiter.Allow("b").Allowed)
		s.True(s.limiter.Allow("c").Allowed)
	})
}

func (s *LimiterSuite) TestWindowSlides() {
	s.limiter.Allow("a")
	s.advance(30 * time.Second)
	s.limiter.Allow("a")
	s.limiter.Allow("a")
	s.False(s.limiter.Allow("a").Allowed)

	// The first call ages out; one slot opens.
	s.advance(31 * time.Second)
	s.True(s.limiter.Allow("a").Allowed)
	s.False(s.limiter.Allow("a").Allowed)
}

func (s *LimiterSuite) TestDeniedCallsDoNotExtendTheWindow() {
	for i := 0; i < 3; i++ {
		s.limiter.Allow("a")
	}
	for i := 0; i < 10; i++ {
		s.advance(time.Second)
		s.False(s.limiter.Allow("a").Allowed)
	}

	// All three admitted calls sit at the window start; they expire together.
	s.advance(50 * time.Second)
	s.True(s.limiter.Allow("a").Allowed)
}

func (s *LimiterSuite) TestReset() {
	for i := 0; i < 3; i++ {
		s.limiter.Allow("a")
	}
	s.False(s.limiter.Allow("a").Allowed)

	s.limiter.Reset("a")
	s.True(s.limiter.Allow("a").Allowed)
}
