package logic

import "time"

// lineState tracks debounce state for a single input line.
type lineState struct {
	// Current stable (debounced) level
	Stable bool
	// Pending level during debounce
	Pending    bool
	HasPending bool
	// Time when pending level was first observed
	PendingSince time.Time
	// Whether we have established a baseline
	Baselined bool
}

// ButtonDetector turns raw button samples into click and hold gestures.
type ButtonDetector struct {
	debounceDuration time.Duration
	holdDuration     time.Duration
	line             lineState
	pressedAt        time.Time
	// held is set once a Hold was emitted (or the press predates the baseline)
	// and suppresses the Click on release.
	held bool
}

// NewButtonDetector creates a detector. hold is the continuous press time
// that produces a Hold instead of a Click.
func NewButtonDetector(debounce, hold time.Duration) *ButtonDetector {
	return &ButtonDetector{
		debounceDuration: debounce,
		holdDuration:     hold,
	}
}

// Process takes a new sample and returns any gestures that completed.
func (d *ButtonDetector) Process(input ButtonInput) []ButtonEvent {
	wasBaselined := d.line.Baselined
	changed := d.processLine(input.Pressed, input.Time)

	if !d.line.Baselined {
		return nil
	}
	if !wasBaselined {
		// A button already down at baseline is ignored until released.
		d.held = d.line.Stable
		return nil
	}

	var events []ButtonEvent

	if changed {
		if d.line.Stable {
			d.pressedAt = d.line.PendingSince
			d.held = false
		} else {
			if !d.held {
				events = append(events, ButtonEvent{Timestamp: input.Time, Type: ButtonClick})
			}
			d.held = false
		}
	}

	if d.line.Stable && !d.held && input.Time.Sub(d.pressedAt) >= d.holdDuration {
		d.held = true
		events = append(events, ButtonEvent{Timestamp: input.Time, Type: ButtonHold})
	}

	return events
}

// processLine handles debounce. Returns true if the stable level changed.
func (d *ButtonDetector) processLine(level bool, now time.Time) bool {
	l := &d.line

	if !l.HasPending || l.Pending != level {
		if l.Baselined && level == l.Stable {
			// Back to the stable level, clear any pending
			l.HasPending = false
			return false
		}
		l.Pending = level
		l.HasPending = true
		l.PendingSince = now
	}

	if now.Sub(l.PendingSince) < d.debounceDuration {
		return false
	}

	l.HasPending = false
	if !l.Baselined {
		l.Stable = level
		l.Baselined = true
		return false
	}
	if l.Stable == level {
		return false
	}
	l.Stable = level
	return true
}

// IsBaselined returns whether the detector has established a baseline.
func (d *ButtonDetector) IsBaselined() bool {
	return d.line.Baselined
}

// Pressed returns the debounced button level.
func (d *ButtonDetector) Pressed() bool {
	return d.line.Stable
}
