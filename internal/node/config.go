// Package node runs the irrigation node: the measurement cycle, the pump and
// the stimuli that drive it. Everything in this package executes on a single
// sched.Loop goroutine; other goroutines reach it only through Loop.Post.
package node

import (
	"time"

	"github.com/sweeney/soil-node/internal/logic"
)

// Config holds the node's timing.
type Config struct {
	// Interval is the idle time between cycles while the pump is off.
	Interval time.Duration
	// ActiveInterval is the idle time between cycles while the pump runs.
	ActiveInterval time.Duration
	// Settle is the spacing between the steps of one cycle.
	Settle time.Duration
	// PumpOnTime is the maximum time the pump runs per request.
	PumpOnTime time.Duration
	// RelayRetryDelay is the wait before retrying a relay that refused to stop the pump.
	RelayRetryDelay time.Duration
	// TemperatureInterval and BatteryInterval schedule the secondary readings.
	// Zero disables the reading.
	TemperatureInterval time.Duration
	BatteryInterval     time.Duration
}

// DefaultConfig returns the reference configuration.
func DefaultConfig() Config {
	return Config{
		Interval:            10 * time.Second,
		ActiveInterval:      500 * time.Millisecond,
		Settle:              50 * time.Millisecond,
		PumpOnTime:          5 * time.Second,
		RelayRetryDelay:     time.Second,
		TemperatureInterval: time.Minute,
		BatteryInterval:     time.Hour,
	}
}

func (c Config) timing() logic.CycleTiming {
	return logic.CycleTiming{
		Settle:         c.Settle,
		Interval:       c.Interval,
		ActiveInterval: c.ActiveInterval,
	}
}
