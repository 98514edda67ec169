package node

import (
	"log"
	"time"

	"github.com/sweeney/soil-node/internal/gpio"
	"github.com/sweeney/soil-node/internal/logic"
	"github.com/sweeney/soil-node/internal/mqtt"
)

const (
	resetMessage  = "needed reset household for smartpot"
	holdLEDPulse  = time.Second
	cycleLEDPulse = 100 * time.Millisecond
)

// Router funnels button gestures and remote commands into the pump controller.
type Router struct {
	pump  *PumpController
	radio mqtt.Radio
	led   gpio.LED
}

// NewRouter creates a Router.
func NewRouter(pump *PumpController, radio mqtt.Radio, led gpio.LED) *Router {
	return &Router{pump: pump, radio: radio, led: led}
}

// OnButton handles a classified button gesture.
func (r *Router) OnButton(ev logic.ButtonEvent) {
	switch ev.Type {
	case logic.ButtonClick:
		if r.pump.State().On {
			return
		}
		r.pump.RequestOn(logic.SourceButton)
	case logic.ButtonHold:
		log.Printf("router: button held, requesting reset")
		if err := r.radio.PublishString(mqtt.TopicReset, resetMessage); err != nil {
			log.Printf("router: publish reset: %v", err)
		}
		r.led.Pulse(holdLEDPulse)
	}
}

// OnRemoteCommand handles the integer pump command: 1 is on, anything else off.
// It does not look at the pump state; the controller ignores repeats.
func (r *Router) OnRemoteCommand(value int) {
	if value == 1 {
		r.pump.RequestOn(logic.SourceRemote)
		return
	}
	r.pump.RequestOff(logic.SourceRemote)
}
