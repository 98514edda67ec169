package node

import (
	"errors"
	"fmt"
	"time"

	"github.com/sweeney/soil-node/internal/gpio"
	"github.com/sweeney/soil-node/internal/logic"
	"github.com/sweeney/soil-node/internal/metrics"
	"github.com/sweeney/soil-node/internal/mqtt"
	"github.com/sweeney/soil-node/internal/sched"
	"github.com/sweeney/soil-node/internal/sensors"
	"github.com/sweeney/soil-node/internal/status"
)

var errNoConversion = errors.New("no conversion completed before power off")

// Deps are the node's collaborators. Thermometer, Battery, Tracker and
// Metrics may be nil.
type Deps struct {
	Relay gpio.Relay
	Rail  gpio.Rail
	LED   gpio.LED

	ADC         sensors.ADC
	Thermometer sensors.Thermometer
	Battery     sensors.Battery

	Radio mqtt.Radio

	Tracker *status.Tracker
	Metrics *metrics.Metrics
}

// Node wires the sequencer, pump controller, router, orchestrator and
// telemetry onto one loop.
type Node struct {
	loop    *sched.Loop
	radio   mqtt.Radio
	tracker *status.Tracker
	metrics *metrics.Metrics

	counts logic.Counts

	Sequencer    *Sequencer
	Pump         *PumpController
	Router       *Router
	Orchestrator *Orchestrator
	Telemetry    *Telemetry
}

// New builds a node. Nothing runs until Start.
func New(loop *sched.Loop, cfg Config, deps Deps) *Node {
	n := &Node{
		loop:    loop,
		radio:   deps.Radio,
		tracker: deps.Tracker,
		metrics: deps.Metrics,
	}

	n.Sequencer = NewSequencer(loop, deps.ADC)
	n.Pump = NewPumpController(loop, deps.Relay, deps.Radio, cfg.PumpOnTime, cfg.RelayRetryDelay)
	n.Router = NewRouter(n.Pump, deps.Radio, deps.LED)
	n.Orchestrator = NewOrchestrator(loop, cfg.timing(), deps.Rail, deps.LED, deps.Radio, n.Sequencer, n.Pump)
	n.Telemetry = NewTelemetry(loop, deps.Radio, deps.Thermometer, deps.Battery, cfg.TemperatureInterval, cfg.BatteryInterval)

	n.Sequencer.onFailure = func(ch logic.Channel) { n.readFailure(ch.String()) }
	n.Pump.runNow = n.Orchestrator.RunNow
	n.Pump.changed = n.pumpChanged
	n.Orchestrator.stepped = n.report
	n.Orchestrator.finished = n.cycleFinished
	n.Telemetry.onFailure = n.readFailure
	n.Telemetry.onTemperature = func(c float64) {
		n.metrics.SetTemperature(c)
		if n.tracker != nil {
			n.tracker.SetTemperature(c)
		}
	}
	n.Telemetry.onBattery = func(v float64) {
		n.metrics.SetBattery(v)
		if n.tracker != nil {
			n.tracker.SetBattery(v)
		}
	}
	return n
}

// Start subscribes to the pump command and schedules the first cycle and
// telemetry readings. Call it before the loop runs.
func (n *Node) Start() error {
	err := n.radio.Subscribe(mqtt.TopicPumpCommand, func(value int) {
		n.loop.Post(func() { n.Router.OnRemoteCommand(value) })
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", mqtt.TopicPumpCommand, err)
	}

	n.Orchestrator.RunNow()
	n.Telemetry.Start()
	n.report()
	return nil
}

// PostButton hands a button gesture to the loop. Safe for concurrent use.
func (n *Node) PostButton(ev logic.ButtonEvent) {
	n.loop.Post(func() { n.Router.OnButton(ev) })
}

// Counts returns the node counters. Call it on the loop goroutine.
func (n *Node) Counts() logic.Counts {
	return n.counts
}

func (n *Node) pumpChanged(src logic.Source, on bool) {
	if on {
		n.counts.PumpOn++
	} else {
		n.counts.PumpOff++
	}
	n.metrics.ObservePump(src, on)
	n.report()
}

func (n *Node) cycleFinished(d logic.DerivedReadings, at time.Time) {
	n.counts.Cycles++
	n.metrics.ObserveCycle(d)
	if n.tracker != nil && !d.Empty() {
		n.tracker.SetReadings(d, at)
	}
}

func (n *Node) readFailure(sensor string) {
	n.counts.ReadFailures++
	n.metrics.ReadFailure(sensor)
}

func (n *Node) report() {
	if n.tracker == nil {
		return
	}
	n.tracker.Update(n.Pump.State(), n.Orchestrator.State(), n.counts)
}
