package node

import (
	"log"
	"time"

	"github.com/sweeney/soil-node/internal/gpio"
	"github.com/sweeney/soil-node/internal/logic"
	"github.com/sweeney/soil-node/internal/mqtt"
	"github.com/sweeney/soil-node/internal/sched"
)

// PumpController is the only writer of the relay. Requests for the state the
// pump is already in are no-ops, so at most one relay transition happens per
// logical change whatever the mix of stimuli.
type PumpController struct {
	relay gpio.Relay
	radio mqtt.Radio
	timer *sched.Task

	onTime     time.Duration
	retryDelay time.Duration

	state logic.PumpState

	// runNow asks the orchestrator for an immediate cycle.
	runNow func()
	// changed is called after every completed transition.
	changed func(src logic.Source, on bool)
}

// NewPumpController registers the pump-off task on loop.
func NewPumpController(loop *sched.Loop, relay gpio.Relay, radio mqtt.Radio, onTime, retryDelay time.Duration) *PumpController {
	p := &PumpController{
		relay:      relay,
		radio:      radio,
		onTime:     onTime,
		retryDelay: retryDelay,
		runNow:     func() {},
		changed:    func(logic.Source, bool) {},
	}
	p.timer = loop.Register("pump-off", func() { p.RequestOff(logic.SourceTimer) })
	return p
}

// State returns the logical pump state.
func (p *PumpController) State() logic.PumpState {
	return p.state
}

// ActiveMode reports whether the pump-on timer is outstanding.
func (p *PumpController) ActiveMode() bool {
	return p.state.ActiveMode
}

// OffDue returns when the pump-off timer fires, if it is pending.
func (p *PumpController) OffDue() (time.Time, bool) {
	if !p.timer.Pending() {
		return time.Time{}, false
	}
	return p.timer.Due(), true
}

// RequestOn starts the pump for the configured time. It does nothing if the
// pump already runs; the running timer is kept.
func (p *PumpController) RequestOn(src logic.Source) {
	if p.state.On {
		log.Printf("pump: on request from %s ignored, already on", src)
		return
	}
	// De-energized relay lets the pump run.
	if err := p.relay.SetState(false); err != nil {
		log.Printf("pump: relay refused on (%s): %v", src, err)
		return
	}

	p.state = logic.PumpState{On: true, ActiveMode: true}
	p.timer.Arm(p.onTime)
	log.Printf("pump: on (%s), off in %v", src, p.onTime)
	p.publish(onMessage(src))
	p.changed(src, true)
	p.runNow()
}

// RequestOff stops the pump. Only a timer-driven stop asks for a fresh cycle.
func (p *PumpController) RequestOff(src logic.Source) {
	if !p.state.On {
		return
	}
	if err := p.relay.SetState(true); err != nil {
		log.Printf("pump: relay refused off (%s): %v, retrying in %v", src, err, p.retryDelay)
		p.timer.Arm(p.retryDelay)
		return
	}

	p.state = logic.PumpState{}
	p.timer.Cancel()
	log.Printf("pump: off (%s)", src)
	p.publish(offMessage(src))
	p.changed(src, false)
	if src == logic.SourceTimer {
		p.runNow()
	}
}

func (p *PumpController) publish(text string) {
	if err := p.radio.PublishString(mqtt.TopicLog, text); err != nil {
		log.Printf("pump: publish log: %v", err)
	}
}

func onMessage(src logic.Source) string {
	switch src {
	case logic.SourceButton:
		return "Pump ON (button)"
	case logic.SourceRemote:
		return "Pump ON (from gateway)"
	}
	return "Pump ON"
}

func offMessage(src logic.Source) string {
	if src == logic.SourceRemote {
		return "Pump OFF (from gateway)"
	}
	return "Pump OFF"
}
