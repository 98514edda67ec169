//go:build linux

package gpio

import (
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// RealBoard drives the node's GPIO lines using Linux GPIO character device.
// It implements Relay, Rail, LED and ButtonReader.
type RealBoard struct {
	chip   *gpiocdev.Chip
	relay  *gpiocdev.Line
	rail   *gpiocdev.Line
	led    *gpiocdev.Line
	button *gpiocdev.Line

	ledMu    sync.Mutex
	ledTimer *time.Timer
}

// NewRealBoard requests all lines on gpiochip0.
// The relay starts energized (pump off) and the sensor rail unpowered.
func NewRealBoard(pins Pins) (*RealBoard, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	b := &RealBoard{chip: chip}

	if b.relay, err = chip.RequestLine(pins.Relay, gpiocdev.AsOutput(1)); err != nil {
		b.Close()
		return nil, fmt.Errorf("request relay pin %d: %w", pins.Relay, err)
	}
	if b.rail, err = chip.RequestLine(pins.Rail, gpiocdev.AsOutput(0)); err != nil {
		b.Close()
		return nil, fmt.Errorf("request rail pin %d: %w", pins.Rail, err)
	}
	if b.led, err = chip.RequestLine(pins.LED, gpiocdev.AsOutput(0)); err != nil {
		b.Close()
		return nil, fmt.Errorf("request led pin %d: %w", pins.LED, err)
	}
	// Button pulls the line high when pressed.
	if b.button, err = chip.RequestLine(pins.Button, gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
		b.Close()
		return nil, fmt.Errorf("request button pin %d: %w", pins.Button, err)
	}

	return b, nil
}

// SetState drives the relay coil.
func (b *RealBoard) SetState(energized bool) error {
	if err := b.relay.SetValue(boolToValue(energized)); err != nil {
		return fmt.Errorf("set relay: %w", err)
	}
	return nil
}

// SetPower switches the sensor rail.
func (b *RealBoard) SetPower(on bool) error {
	if err := b.rail.SetValue(boolToValue(on)); err != nil {
		return fmt.Errorf("set rail: %w", err)
	}
	return nil
}

// Pulse lights the LED for d.
func (b *RealBoard) Pulse(d time.Duration) {
	b.ledMu.Lock()
	defer b.ledMu.Unlock()

	if b.ledTimer != nil {
		b.ledTimer.Stop()
	}
	_ = b.led.SetValue(1)
	b.ledTimer = time.AfterFunc(d, func() {
		_ = b.led.SetValue(0)
	})
}

// Pressed returns the button level.
func (b *RealBoard) Pressed() (bool, error) {
	v, err := b.button.Value()
	if err != nil {
		return false, fmt.Errorf("read button pin: %w", err)
	}
	return v == 1, nil
}

// Close releases GPIO resources.
// Leaves the relay energized (pump off) and the rail unpowered before
// reconfiguring every line as input with pull-down, matching Pi boot defaults.
func (b *RealBoard) Close() error {
	var errs []error

	b.ledMu.Lock()
	if b.ledTimer != nil {
		b.ledTimer.Stop()
	}
	b.ledMu.Unlock()

	if b.relay != nil {
		if err := b.relay.SetValue(1); err != nil {
			errs = append(errs, fmt.Errorf("release relay: %w", err))
		}
	}
	if b.rail != nil {
		if err := b.rail.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("power down rail: %w", err))
		}
	}

	for name, l := range map[string]*gpiocdev.Line{"relay": b.relay, "rail": b.rail, "led": b.led, "button": b.button} {
		if l == nil {
			continue
		}
		// The relay keeps its level; an input with pull-down would drop the coil and start the pump.
		if name != "relay" {
			if err := l.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
				errs = append(errs, fmt.Errorf("reconfigure %s pin: %w", name, err))
			}
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", name, err))
		}
	}
	if b.chip != nil {
		if err := b.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

func boolToValue(b bool) int {
	if b {
		return 1
	}
	return 0
}
