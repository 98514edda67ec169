package node

import (
	"log"

	"github.com/sweeney/soil-node/internal/logic"
	"github.com/sweeney/soil-node/internal/sched"
	"github.com/sweeney/soil-node/internal/sensors"
)

// Sequencer starts ADC conversions one channel at a time and collects the
// voltages of the current cycle. It knows nothing about cycle states.
type Sequencer struct {
	adc  sensors.ADC
	loop *sched.Loop

	gen    uint64 // bumped by Begin; completions from older cycles are dropped
	raw    logic.RawReadings
	failed [len(logic.Channels)]bool

	// onFailure is called once per channel that produced no voltage.
	onFailure func(ch logic.Channel)
}

// NewSequencer creates a sequencer that delivers completions through loop.
func NewSequencer(loop *sched.Loop, adc sensors.ADC) *Sequencer {
	return &Sequencer{adc: adc, loop: loop, onFailure: func(logic.Channel) {}}
}

// Begin clears the readings for a new cycle.
func (s *Sequencer) Begin() {
	s.gen++
	s.raw = logic.RawReadings{}
	s.failed = [len(logic.Channels)]bool{}
}

// StartChannel starts a conversion on ch. A start error counts as a read
// failure for that channel.
func (s *Sequencer) StartChannel(ch logic.Channel) {
	gen := s.gen
	err := s.adc.StartConversion(ch, func(volts float64, err error) {
		s.loop.Post(func() {
			if gen != s.gen {
				log.Printf("sensor: late %s conversion dropped", ch)
				return
			}
			s.OnConversionDone(ch, volts, err)
		})
	})
	if err != nil {
		s.fail(ch, err)
	}
}

// OnConversionDone stores the voltage for ch, or records the failure.
func (s *Sequencer) OnConversionDone(ch logic.Channel, volts float64, err error) {
	if err != nil {
		s.fail(ch, err)
		return
	}
	s.raw.Volts[ch] = volts
	s.raw.Done[ch] = true
}

// Collect returns the readings of the current cycle. Channels that neither
// completed nor failed yet are reported as failures.
func (s *Sequencer) Collect() logic.RawReadings {
	for _, ch := range logic.Channels {
		if !s.raw.Done[ch] && !s.failed[ch] {
			s.fail(ch, errNoConversion)
		}
	}
	return s.raw
}

func (s *Sequencer) fail(ch logic.Channel, err error) {
	if s.failed[ch] {
		return
	}
	s.failed[ch] = true
	log.Printf("sensor: %s read failed: %v", ch, err)
	s.onFailure(ch)
}
