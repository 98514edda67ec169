package logic

import "time"

// Action is the side effect the caller performs for a cycle step.
type Action int

const (
	// ActionRailOn powers the sensor rail.
	ActionRailOn Action = iota
	// ActionMeasure starts a conversion on Step.Channel.
	ActionMeasure
	// ActionFinish powers the rail down and publishes the readings.
	ActionFinish
)

// Step describes one transition of the cycle.
type Step struct {
	From    CycleState
	Action  Action
	Channel Channel // valid for ActionMeasure
	Next    CycleState
	Delay   time.Duration
}

// CycleTiming holds the delays used by the cycle.
type CycleTiming struct {
	// Settle is the spacing between steps inside a cycle.
	Settle time.Duration
	// Interval is the idle time between cycles while the pump is off.
	Interval time.Duration
	// ActiveInterval is the idle time between cycles while the pump runs.
	ActiveInterval time.Duration
}

// Cycle is the measurement state machine. It is strictly linear and wraps
// from PowerOff back to PowerOn.
type Cycle struct {
	timing CycleTiming
	state  CycleState
}

// NewCycle creates a cycle positioned at PowerOn.
func NewCycle(timing CycleTiming) *Cycle {
	return &Cycle{timing: timing, state: PowerOn}
}

// State returns the state whose step runs next.
func (c *Cycle) State() CycleState {
	return c.state
}

// Idle reports whether no cycle is in flight.
func (c *Cycle) Idle() bool {
	return c.state == PowerOn
}

// Step advances the machine by one state. activeMode is only consulted at
// PowerOff, where it selects the delay before the next cycle.
func (c *Cycle) Step(activeMode bool) Step {
	s := Step{From: c.state, Delay: c.timing.Settle}

	switch c.state {
	case PowerOn:
		s.Action = ActionRailOn
		s.Next = MeasureSoil
	case MeasureSoil:
		s.Action = ActionMeasure
		s.Channel = ChannelSoil
		s.Next = MeasureWaterLevel
	case MeasureWaterLevel:
		s.Action = ActionMeasure
		s.Channel = ChannelWaterLevel
		s.Next = MeasureLight
	case MeasureLight:
		s.Action = ActionMeasure
		s.Channel = ChannelLight
		s.Next = PowerOff
	default:
		s.From = PowerOff
		s.Action = ActionFinish
		s.Next = PowerOn
		s.Delay = c.timing.Interval
		if activeMode {
			s.Delay = c.timing.ActiveInterval
		}
	}

	c.state = s.Next
	return s
}
