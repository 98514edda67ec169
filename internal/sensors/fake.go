package sensors

import (
	"github.com/sweeney/soil-node/internal/logic"
)

// FakeADC completes conversions synchronously with scripted voltages.
type FakeADC struct {
	// Volts is returned for each channel.
	Volts map[logic.Channel]float64

	// Errors, if set for a channel, is delivered to done instead of a voltage.
	Errors map[logic.Channel]error

	// Stalled channels accept the start but never complete.
	Stalled map[logic.Channel]bool

	// StartError, if set, is returned by StartConversion.
	StartError error

	// Started records every channel passed to StartConversion.
	Started []logic.Channel
}

// NewFakeADC creates a FakeADC returning the given voltages.
func NewFakeADC(soil, water, light float64) *FakeADC {
	return &FakeADC{
		Volts: map[logic.Channel]float64{
			logic.ChannelSoil:       soil,
			logic.ChannelWaterLevel: water,
			logic.ChannelLight:      light,
		},
	}
}

// StartConversion records ch and calls done before returning.
func (f *FakeADC) StartConversion(ch logic.Channel, done func(volts float64, err error)) error {
	if f.StartError != nil {
		return f.StartError
	}
	f.Started = append(f.Started, ch)
	if f.Stalled[ch] {
		return nil
	}
	if err := f.Errors[ch]; err != nil {
		done(0, err)
		return nil
	}
	done(f.Volts[ch], nil)
	return nil
}

// FakeReading completes a single-value measurement synchronously.
// It serves as both Thermometer and Battery.
type FakeReading struct {
	Value float64
	Err   error
	// StartError, if set, is returned by Measure.
	StartError error
	Calls      int
}

// Measure calls done with Value or Err.
func (f *FakeReading) Measure(done func(float64, error)) error {
	if f.StartError != nil {
		return f.StartError
	}
	f.Calls++
	if f.Err != nil {
		done(0, f.Err)
		return nil
	}
	done(f.Value, nil)
	return nil
}
