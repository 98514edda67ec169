package node

import (
	"log"
	"time"

	"github.com/sweeney/soil-node/internal/gpio"
	"github.com/sweeney/soil-node/internal/logic"
	"github.com/sweeney/soil-node/internal/mqtt"
	"github.com/sweeney/soil-node/internal/sched"
)

// Orchestrator runs the measurement cycle as a self-rescheduling loop task.
// The sensor rail is powered only between PowerOn and PowerOff of one cycle.
type Orchestrator struct {
	loop  *sched.Loop
	task  *sched.Task
	cycle *logic.Cycle

	rail  gpio.Rail
	led   gpio.LED
	radio mqtt.Radio
	seq   *Sequencer
	pump  *PumpController

	// pendingRun is set by RunNow while a cycle is in flight.
	pendingRun bool

	// stepped is called after every step; finished after every PowerOff.
	stepped  func()
	finished func(d logic.DerivedReadings, at time.Time)
}

// NewOrchestrator registers the cycle task on loop. The task is not armed
// until Start or RunNow.
func NewOrchestrator(loop *sched.Loop, timing logic.CycleTiming, rail gpio.Rail, led gpio.LED, radio mqtt.Radio, seq *Sequencer, pump *PumpController) *Orchestrator {
	o := &Orchestrator{
		loop:     loop,
		cycle:    logic.NewCycle(timing),
		rail:     rail,
		led:      led,
		radio:    radio,
		seq:      seq,
		pump:     pump,
		stepped:  func() {},
		finished: func(logic.DerivedReadings, time.Time) {},
	}
	o.task = loop.Register("cycle", o.step)
	return o
}

// State returns the state whose step runs next.
func (o *Orchestrator) State() logic.CycleState {
	return o.cycle.State()
}

// NextStep returns when the next step runs, if one is scheduled.
func (o *Orchestrator) NextStep() (time.Time, bool) {
	if !o.task.Pending() {
		return time.Time{}, false
	}
	return o.task.Due(), true
}

// RunNow starts a cycle as soon as the current handler returns. While a
// cycle is in flight the request is kept and the next cycle starts right
// after PowerOff instead.
func (o *Orchestrator) RunNow() {
	if o.cycle.Idle() {
		o.task.Arm(0)
		return
	}
	o.pendingRun = true
}

func (o *Orchestrator) step() {
	s := o.cycle.Step(o.pump.ActiveMode())

	switch s.Action {
	case logic.ActionRailOn:
		o.led.Pulse(cycleLEDPulse)
		o.seq.Begin()
		o.setRail(true)
	case logic.ActionMeasure:
		o.seq.StartChannel(s.Channel)
	case logic.ActionFinish:
		o.setRail(false)
		o.finish()
	}

	delay := s.Delay
	if s.Action == logic.ActionFinish && o.pendingRun {
		o.pendingRun = false
		delay = 0
	}
	o.task.Arm(delay)
	o.stepped()
}

func (o *Orchestrator) setRail(on bool) {
	if err := o.rail.SetPower(on); err != nil {
		log.Printf("cycle: sensor rail %v: %v", on, err)
	}
}

func (o *Orchestrator) finish() {
	d := logic.Derive(o.seq.Collect())
	at := o.loop.Now()

	if d.Empty() {
		log.Printf("cycle: no readings, nothing published")
	} else {
		text := logic.FormatData(d)
		if err := o.radio.PublishString(mqtt.TopicData, text); err != nil {
			log.Printf("cycle: publish data: %v", err)
		} else {
			log.Printf("cycle: published %s", text)
		}
	}
	o.finished(d, at)
}
