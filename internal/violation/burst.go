package violation

import (
	"fmt"
	"time"
)

// BurstConfig tunes the typed-burst heuristic: a single input event that
// grows a field by MinGrowth characters within MaxInterval of the previous
// event looks like out-of-band paste or autocomplete.
type BurstConfig struct {
	MinGrowth   int
	MaxInterval time.Duration
}

// DefaultBurstConfig returns the production thresholds.
func DefaultBurstConfig() BurstConfig {
	return BurstConfig{
		MinGrowth:   40,
		MaxInterval: 300 * time.Millisecond,
	}
}

type fieldState struct {
	lastLength int
	lastSeen   time.Time
}

// BurstDetector tracks (lastInputLength, lastInputTime) per editable field.
type BurstDetector struct {
	cfg    BurstConfig
	fields map[string]fieldState
}

// NewBurstDetector builds a detector with the given thresholds.
func NewBurstDetector(cfg BurstConfig) *BurstDetector {
	if cfg.MinGrowth <= 0 {
		cfg = DefaultBurstConfig()
	}
	return &BurstDetector{
		cfg:    cfg,
		fields: make(map[string]fieldState),
	}
}

// Observe records one input event for a field and returns a context string
// when the event qualifies as a burst.
func (d *BurstDetector) Observe(fieldID string, length int, now time.Time) (string, bool) {
	prev, seen := d.fields[fieldID]
	d.fields[fieldID] = fieldState{lastLength: length, lastSeen: now}

	if !seen {
		return "", false
	}
	growth := length - prev.lastLength
	elapsed := now.Sub(prev.lastSeen)
	if growth >= d.cfg.MinGrowth && elapsed < d.cfg.MaxInterval {
		return fmt.Sprintf("field=%s growth=%d elapsed_ms=%d", fieldID, growth, elapsed.Milliseconds()), true
	}
	return "", false
}

// Reset forgets a field, typically when it loses focus.
func (d *BurstDetector) Reset(fieldID string) {
	delete(d.fields, fieldID)
}
