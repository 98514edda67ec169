// Package logic contains the pure control logic of the irrigation node.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// CycleState is the position of the measurement cycle.
type CycleState int

const (
	PowerOn CycleState = iota
	MeasureSoil
	MeasureWaterLevel
	MeasureLight
	PowerOff
)

func (s CycleState) String() string {
	switch s {
	case PowerOn:
		return "POWER_ON"
	case MeasureSoil:
		return "MEASURE_SOIL"
	case MeasureWaterLevel:
		return "MEASURE_WATER_LEVEL"
	case MeasureLight:
		return "MEASURE_LIGHT"
	case PowerOff:
		return "POWER_OFF"
	}
	return "UNKNOWN"
}

// Channel identifies one of the analog inputs sampled during a cycle.
type Channel int

const (
	ChannelSoil Channel = iota
	ChannelWaterLevel
	ChannelLight

	numChannels
)

// Channels lists the analog channels in measurement order.
var Channels = [numChannels]Channel{ChannelSoil, ChannelWaterLevel, ChannelLight}

func (c Channel) String() string {
	switch c {
	case ChannelSoil:
		return "soil"
	case ChannelWaterLevel:
		return "water"
	case ChannelLight:
		return "light"
	}
	return "unknown"
}

// RawReadings holds the voltages of one cycle, indexed by Channel.
type RawReadings struct {
	Volts [numChannels]float64
	// Done marks channels whose conversion completed in the current cycle.
	Done [numChannels]bool
}

// Complete reports whether every channel delivered a voltage.
func (r RawReadings) Complete() bool {
	for _, d := range r.Done {
		if !d {
			return false
		}
	}
	return true
}

// WaterLevel is the classified reservoir level.
type WaterLevel string

const (
	WaterLow    WaterLevel = "LOW"
	WaterMedium WaterLevel = "MEDIUM"
	WaterHigh   WaterLevel = "HIGH"
)

// DerivedReadings are the published values of one cycle.
// A nil field means that channel failed this cycle.
type DerivedReadings struct {
	SoilPercent  *float64
	LightPercent *float64
	Water        *WaterLevel
}

// Empty reports whether no channel produced a value.
func (d DerivedReadings) Empty() bool {
	return d.SoilPercent == nil && d.LightPercent == nil && d.Water == nil
}

// Source identifies what asked for a pump transition.
type Source string

const (
	SourceButton Source = "button"
	SourceRemote Source = "remote"
	SourceTimer  Source = "timer"
)

// PumpState is the logical pump state. Both fields change together.
type PumpState struct {
	On         bool
	ActiveMode bool
}

// ButtonEventType is a classified button gesture.
type ButtonEventType string

const (
	ButtonClick ButtonEventType = "CLICK"
	ButtonHold  ButtonEventType = "HOLD"
)

// ButtonEvent is emitted by the ButtonDetector.
type ButtonEvent struct {
	Timestamp time.Time
	Type      ButtonEventType
}

// ButtonInput represents a single sample of the button line (already in logical form).
type ButtonInput struct {
	Pressed bool
	Time    time.Time
}

// Counts tracks what the node has done since startup.
type Counts struct {
	Cycles       int
	PumpOn       int
	PumpOff      int
	ReadFailures int
}
