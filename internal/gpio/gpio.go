// Package gpio provides the digital I/O of the node with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "time"

// Relay drives the pump relay.
type Relay interface {
	// SetState energizes or releases the relay coil.
	// The pump is wired to the normally-closed contact: energized = pump OFF.
	SetState(energized bool) error
}

// Rail switches the sensor supply rail.
type Rail interface {
	SetPower(on bool) error
}

// LED is the status indicator.
type LED interface {
	// Pulse lights the LED for d. A new pulse replaces a running one.
	Pulse(d time.Duration)
}

// ButtonReader reads the push button.
type ButtonReader interface {
	// Pressed returns the logical button state (true = pressed).
	Pressed() (bool, error)
}

// Pin definitions (BCM numbering)
const (
	DefaultPinRelay  = 17
	DefaultPinRail   = 27
	DefaultPinLED    = 22
	DefaultPinButton = 23
)

// Pins selects the BCM lines used by the board.
type Pins struct {
	Relay  int
	Rail   int
	LED    int
	Button int
}

// DefaultPins returns the reference wiring.
func DefaultPins() Pins {
	return Pins{
		Relay:  DefaultPinRelay,
		Rail:   DefaultPinRail,
		LED:    DefaultPinLED,
		Button: DefaultPinButton,
	}
}
