package session

import (
	"fmt"
	"strings"

	"vigil/internal/policy"
	"vigil/internal/sensor"
	"vigil/internal/violation"
)

// WatchState subscribes to integrity state snapshots. Slow consumers miss
// intermediate snapshots rather than blocking the engine; the latest state
// is always available via State(). Cancel detaches the subscriber.
func (s *Session) WatchState() (<-chan policy.State, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	ch := make(chan policy.State, 8)
	key := s.nextSub
	s.nextSub++
	s.stateSubs[key] = ch

	return ch, func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if c, ok := s.stateSubs[key]; ok {
			delete(s.stateSubs, key)
			close(c)
		}
	}
}

// WatchEvents subscribes to the admitted violation stream.
func (s *Session) WatchEvents() (<-chan violation.Event, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	ch := make(chan violation.Event, 16)
	key := s.nextSub
	s.nextSub++
	s.eventSubs[key] = ch

	return ch, func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if c, ok := s.eventSubs[key]; ok {
			delete(s.eventSubs, key)
			close(c)
		}
	}
}

func (s *Session) publishState(state policy.State) {
	s.subMu.Lock()
	for _, ch := range s.stateSubs {
		select {
		case ch <- state:
		default:
		}
	}
	s.subMu.Unlock()

	if s.states != nil {
		s.enqueueMirror(state)
	}
}

// enqueueMirror hands a snapshot to the mirror writer without ever blocking
// the engine loop. The channel holds one pending snapshot; a newer one
// replaces it, so the writer always persists the latest state it can get.
func (s *Session) enqueueMirror(state policy.State) {
	for {
		select {
		case s.mirror <- state:
			return
		default:
		}
		select {
		case <-s.mirror:
		default:
		}
	}
}

// runMirror is the single writer to the external state mirror. Mirror I/O
// runs here so a slow or hung backend costs staleness, not engine stalls.
func (s *Session) runMirror() {
	save := func(state policy.State) {
		if err := s.states.SaveState(s.ID, state); err != nil {
			s.logger.Warn("state mirror save failed", "error", err)
		}
	}
	for {
		select {
		case <-s.done:
			// Flush the last pending snapshot so the terminal state, lock
			// included, reaches dashboards.
			select {
			case state := <-s.mirror:
				save(state)
			default:
			}
			return
		case state := <-s.mirror:
			save(state)
		}
	}
}

func (s *Session) publishEvent(ev violation.Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.eventSubs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (s *Session) closeSubscribers() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for key, ch := range s.stateSubs {
		delete(s.stateSubs, key)
		close(ch)
	}
	for key, ch := range s.eventSubs {
		delete(s.eventSubs, key)
		close(ch)
	}
}

func fmtLength(verb string, length int) string {
	return fmt.Sprintf("%s %d characters", verb, length)
}

func fmtAudio(average float64) string {
	return fmt.Sprintf("ambient_average=%.3f", average)
}

// forbiddenCombo flags shortcuts that exfiltrate content or open developer
// tooling. Plain typing and navigation combos pass.
func forbiddenCombo(combo sensor.KeyCombo) bool {
	key := strings.ToLower(combo.Key)
	if key == "f12" {
		return true
	}
	if !combo.CtrlOrMeta {
		return false
	}
	if combo.Alt {
		// ctrl+alt combos are layout modifiers on several keyboards.
		return false
	}
	switch key {
	case "c", "v", "x", "p", "s", "u", "i", "j":
		return true
	}
	return false
}

func comboString(combo sensor.KeyCombo) string {
	var parts []string
	if combo.CtrlOrMeta {
		parts = append(parts, "ctrl/meta")
	}
	if combo.Alt {
		parts = append(parts, "alt")
	}
	parts = append(parts, strings.ToLower(combo.Key))
	return strings.Join(parts, "+")
}
