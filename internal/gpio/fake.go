package gpio

import (
	"errors"
	"time"
)

// FakeRelay records relay transitions for test assertions.
type FakeRelay struct {
	// States contains every value passed to SetState, in order.
	States []bool

	// Error, if set, will be returned by SetState (and the call is not recorded).
	Error error
}

// SetState records the coil state.
func (f *FakeRelay) SetState(energized bool) error {
	if f.Error != nil {
		return f.Error
	}
	f.States = append(f.States, energized)
	return nil
}

// Energized returns the last recorded coil state. A relay that was never set is energized (pump off).
func (f *FakeRelay) Energized() bool {
	if len(f.States) == 0 {
		return true
	}
	return f.States[len(f.States)-1]
}

// FakeRail records rail transitions.
type FakeRail struct {
	States []bool
	Error  error
}

// SetPower records the rail state.
func (f *FakeRail) SetPower(on bool) error {
	if f.Error != nil {
		return f.Error
	}
	f.States = append(f.States, on)
	return nil
}

// On returns the last recorded rail state.
func (f *FakeRail) On() bool {
	return len(f.States) > 0 && f.States[len(f.States)-1]
}

// FakeLED records pulses.
type FakeLED struct {
	Pulses []time.Duration
}

// Pulse records d.
func (f *FakeLED) Pulse(d time.Duration) {
	f.Pulses = append(f.Pulses, d)
}

// FakeButton is a test double that returns scripted button levels.
type FakeButton struct {
	// Samples contains scripted levels to return.
	// Each call to Pressed() consumes the next sample.
	Samples []bool

	// index tracks current position in Samples
	index int

	// ReadError, if set, will be returned by Pressed()
	ReadError error
}

// NewFakeButton creates a FakeButton with the given samples.
func NewFakeButton(samples []bool) *FakeButton {
	return &FakeButton{Samples: samples}
}

// Pressed returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeButton) Pressed() (bool, error) {
	if f.ReadError != nil {
		return false, f.ReadError
	}

	if len(f.Samples) == 0 {
		return false, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}

	return sample, nil
}

// Reset resets the button to the beginning of samples.
func (f *FakeButton) Reset() {
	f.index = 0
}
