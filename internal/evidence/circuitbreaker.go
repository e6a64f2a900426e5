package evidence

import "sync"

// circuitBreaker tracks consecutive sink failures so a dead backend stops
// costing a network timeout per violation:
// - open after N consecutive failures; while open, calls short-circuit
// - close again after M consecutive successful probes
type circuitBreaker struct {
	mu               sync.Mutex
	state            circuitState
	failureCount     int
	successCount     int
	failureThreshold int
	successThreshold int
	probeGap         int
	sinceOpen        int
}

type circuitState int

const (
	circuitClosed circuitState = iota
	circuitOpen
)

func newCircuitBreaker() *circuitBreaker {
	return &circuitBreaker{
		state:            circuitClosed,
		failureThreshold: 5,
		successThreshold: 3,
		probeGap:         10,
	}
}

// Allow reports whether the next call should go to the backend. While open,
// every probeGap-th call is let through to test recovery.
func (c *circuitBreaker) Allow() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == circuitClosed {
		return true
	}
	c.sinceOpen++
	return c.sinceOpen%c.probeGap == 0
}

func (c *circuitBreaker) RecordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failureCount++
	c.successCount = 0
	if c.state == circuitClosed && c.failureCount >= c.failureThreshold {
		c.state = circuitOpen
		c.sinceOpen = 0
	}
}

func (c *circuitBreaker) RecordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == circuitOpen {
		c.successCount++
		if c.successCount >= c.successThreshold {
			c.state = circuitClosed
			c.failureCount = 0
			c.successCount = 0
		}
		return
	}
	c.failureCount = 0
}
