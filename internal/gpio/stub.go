//go:build !linux

package gpio

import (
	"errors"
	"time"
)

// RealBoard is not available on non-Linux platforms.
type RealBoard struct{}

// NewRealBoard returns an error on non-Linux platforms.
func NewRealBoard(pins Pins) (*RealBoard, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// SetState is not implemented on non-Linux platforms.
func (b *RealBoard) SetState(energized bool) error {
	return errors.New("gpio: not supported")
}

// SetPower is not implemented on non-Linux platforms.
func (b *RealBoard) SetPower(on bool) error {
	return errors.New("gpio: not supported")
}

// Pulse does nothing on non-Linux platforms.
func (b *RealBoard) Pulse(d time.Duration) {}

// Pressed is not implemented on non-Linux platforms.
func (b *RealBoard) Pressed() (bool, error) {
	return false, errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (b *RealBoard) Close() error {
	return nil
}
