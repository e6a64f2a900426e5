package violation

import (
	"sync"
	"time"
)

// Gate suppresses repeat admissions of the same event type inside its
// debounce window. Check-and-record is a single step under the lock so two
// concurrent triggers can never both pass one window.
type Gate struct {
	mu        sync.Mutex
	windows   Windows
	lastAdmit map[EventType]time.Time
}

// NewGate builds a gate over the given debounce windows.
func NewGate(windows Windows) *Gate {
	if windows == nil {
		windows = DefaultWindows()
	}
	return &Gate{
		windows:   windows,
		lastAdmit: make(map[EventType]time.Time),
	}
}

// Allow reports whether an event of this type may be admitted at now, and
// records the admission when it may. Types with no configured window are
// always admitted.
func (g *Gate) Allow(eventType EventType, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	window, gated := g.windows[eventType]
	if !gated {
		return true
	}
	if last, ok := g.lastAdmit[eventType]; ok && now.Sub(last) < window {
		return false
	}
	g.lastAdmit[eventType] = now
	return true
}

// Window returns the configured debounce window for a type (zero when the
// type is admitted immediately).
func (g *Gate) Window(eventType EventType) time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.windows[eventType]
}
