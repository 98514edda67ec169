package node

import (
	"log"
	"time"

	"github.com/sweeney/soil-node/internal/mqtt"
	"github.com/sweeney/soil-node/internal/sched"
	"github.com/sweeney/soil-node/internal/sensors"
)

// Telemetry publishes temperature and battery voltage on their own schedules,
// independent of the measurement cycle.
type Telemetry struct {
	loop  *sched.Loop
	radio mqtt.Radio

	thermometer sensors.Thermometer
	battery     sensors.Battery

	temperatureTask     *sched.Task
	batteryTask         *sched.Task
	temperatureInterval time.Duration
	batteryInterval     time.Duration

	onTemperature func(celsius float64)
	onBattery     func(volts float64)
	onFailure     func(sensor string)
}

// NewTelemetry registers the temperature and battery tasks. A nil sensor or
// a zero interval leaves that reading out.
func NewTelemetry(loop *sched.Loop, radio mqtt.Radio, thermometer sensors.Thermometer, battery sensors.Battery, temperatureInterval, batteryInterval time.Duration) *Telemetry {
	t := &Telemetry{
		loop:                loop,
		radio:               radio,
		thermometer:         thermometer,
		battery:             battery,
		temperatureInterval: temperatureInterval,
		batteryInterval:     batteryInterval,
		onTemperature:       func(float64) {},
		onBattery:           func(float64) {},
		onFailure:           func(string) {},
	}
	if thermometer != nil && temperatureInterval > 0 {
		t.temperatureTask = loop.Register("temperature", t.measureTemperature)
	}
	if battery != nil && batteryInterval > 0 {
		t.batteryTask = loop.Register("battery", t.measureBattery)
	}
	return t
}

// Start takes the first readings immediately.
func (t *Telemetry) Start() {
	if t.temperatureTask != nil {
		t.temperatureTask.Arm(0)
	}
	if t.batteryTask != nil {
		t.batteryTask.Arm(0)
	}
}

func (t *Telemetry) measureTemperature() {
	t.temperatureTask.Arm(t.temperatureInterval)
	err := t.thermometer.Measure(func(celsius float64, err error) {
		t.loop.Post(func() { t.temperatureDone(celsius, err) })
	})
	if err != nil {
		t.temperatureDone(0, err)
	}
}

func (t *Telemetry) temperatureDone(celsius float64, err error) {
	if err != nil {
		log.Printf("telemetry: thermometer error: %v", err)
		t.onFailure("thermometer")
		return
	}
	log.Printf("telemetry: temperature %.1f C", celsius)
	if err := t.radio.PublishTelemetry(mqtt.KindTemperature, celsius); err != nil {
		log.Printf("telemetry: publish temperature: %v", err)
	}
	t.onTemperature(celsius)
}

func (t *Telemetry) measureBattery() {
	t.batteryTask.Arm(t.batteryInterval)
	err := t.battery.Measure(func(volts float64, err error) {
		t.loop.Post(func() { t.batteryDone(volts, err) })
	})
	if err != nil {
		t.batteryDone(0, err)
	}
}

func (t *Telemetry) batteryDone(volts float64, err error) {
	if err != nil {
		log.Printf("telemetry: battery error: %v", err)
		t.onFailure("battery")
		return
	}
	log.Printf("telemetry: battery %.2f V", volts)
	if err := t.radio.PublishTelemetry(mqtt.KindBattery, volts); err != nil {
		log.Printf("telemetry: publish battery: %v", err)
	}
	t.onBattery(volts)
}
