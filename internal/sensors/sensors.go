// Package sensors provides the analog and I2C sensors of the node.
//
// Every read is asynchronous: the caller starts it and a completion callback
// delivers the result, possibly from another goroutine. Callers that need
// single-threaded handling post the result onto their own loop.
package sensors

import (
	"errors"

	"github.com/sweeney/soil-node/internal/logic"
)

// ErrUnknownChannel is returned when a channel has no ADC input assigned.
var ErrUnknownChannel = errors.New("sensors: channel not mapped to an adc input")

// ADC converts the analog sensor channels.
type ADC interface {
	// StartConversion begins a conversion on ch. done receives the voltage.
	StartConversion(ch logic.Channel, done func(volts float64, err error)) error
}

// Thermometer reads the board temperature.
type Thermometer interface {
	Measure(done func(celsius float64, err error)) error
}

// Battery reads the supply voltage.
type Battery interface {
	Measure(done func(volts float64, err error)) error
}
