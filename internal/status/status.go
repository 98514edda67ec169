// Package status provides a thread-safe status tracker for the soil-node daemon.
// The control loop writes to it; HTTP handlers and system events read snapshots.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/soil-node/internal/logic"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	NodeID           string
	IntervalMs       int64
	ActiveIntervalMs int64
	PumpOnMs         int64
	Broker           string
	HTTPAddr         string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and stays valid after the lock is released.
type Snapshot struct {
	Pump          logic.PumpState
	Cycle         logic.CycleState
	Readings      logic.DerivedReadings
	ReadingsAt    time.Time // zero until the first published cycle
	Temperature   *float64
	Battery       *float64
	Counts        logic.Counts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// SetClock replaces the time source used for Snapshot.Now.
func (t *Tracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	t.now = now
	t.mu.Unlock()
}

// Update sets the pump state, cycle position and counters.
// Called from the control loop after every state change.
func (t *Tracker) Update(pump logic.PumpState, cycle logic.CycleState, counts logic.Counts) {
	t.mu.Lock()
	t.snap.Pump = pump
	t.snap.Cycle = cycle
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetReadings records the values published by a cycle.
func (t *Tracker) SetReadings(d logic.DerivedReadings, at time.Time) {
	t.mu.Lock()
	t.snap.Readings = d
	t.snap.ReadingsAt = at
	t.mu.Unlock()
}

// SetTemperature records the last board temperature.
func (t *Tracker) SetTemperature(celsius float64) {
	t.mu.Lock()
	t.snap.Temperature = &celsius
	t.mu.Unlock()
}

// SetBattery records the last supply voltage.
func (t *Tracker) SetBattery(volts float64) {
	t.mu.Lock()
	t.snap.Battery = &volts
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	now := t.now
	t.mu.RUnlock()
	s.Now = now()
	return s
}
