package internal

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/soil-node/internal/gpio"
	"github.com/sweeney/soil-node/internal/logic"
	"github.com/sweeney/soil-node/internal/metrics"
	"github.com/sweeney/soil-node/internal/mqtt"
	"github.com/sweeney/soil-node/internal/node"
	"github.com/sweeney/soil-node/internal/sched"
	"github.com/sweeney/soil-node/internal/sensors"
	"github.com/sweeney/soil-node/internal/status"
	"github.com/sweeney/soil-node/internal/web"
)

const pollInterval = 20 * time.Millisecond

// system wires a node to fakes, a status tracker, metrics and the web server,
// the way cmd/soil-node does with real drivers.
type system struct {
	loop     *sched.Loop
	relay    *gpio.FakeRelay
	led      *gpio.FakeLED
	adc      *sensors.FakeADC
	radio    *mqtt.FakeRadio
	tracker  *status.Tracker
	node     *node.Node
	detector *logic.ButtonDetector
	http     *httptest.Server
}

func newSystem(t *testing.T) *system {
	t.Helper()
	start := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	loop, _ := sched.NewVirtual(start)
	cfg := node.DefaultConfig()

	s := &system{
		loop:     loop,
		relay:    &gpio.FakeRelay{},
		led:      &gpio.FakeLED{},
		adc:      sensors.NewFakeADC(1.0, 1.6, 0),
		radio:    mqtt.NewFakeRadio(),
		detector: logic.NewButtonDetector(40*time.Millisecond, 5*time.Second),
	}
	s.tracker = status.NewTracker(start, status.Config{
		NodeID:           "pot-1",
		IntervalMs:       cfg.Interval.Milliseconds(),
		ActiveIntervalMs: cfg.ActiveInterval.Milliseconds(),
		PumpOnMs:         cfg.PumpOnTime.Milliseconds(),
	})
	s.tracker.SetClock(loop.Now)

	m := metrics.New()
	s.node = node.New(loop, cfg, node.Deps{
		Relay:       s.relay,
		Rail:        &gpio.FakeRail{},
		LED:         s.led,
		ADC:         s.adc,
		Thermometer: &sensors.FakeReading{Value: 21.5},
		Battery:     &sensors.FakeReading{Value: 3.02},
		Radio:       s.radio,
		Tracker:     s.tracker,
		Metrics:     m,
	})
	if err := s.node.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	s.http = httptest.NewServer(web.New(":0", s.tracker, m.Handler()).Handler())
	t.Cleanup(s.http.Close)
	return s
}

// press feeds button samples through the detector one poll interval apart,
// posting gestures to the node as the main loop does.
func (s *system) press(samples []bool) {
	for _, pressed := range samples {
		for _, ev := range s.detector.Process(logic.ButtonInput{Pressed: pressed, Time: s.loop.Now()}) {
			s.node.PostButton(ev)
		}
		s.loop.Advance(pollInterval)
	}
}

func (s *system) statusJSON(t *testing.T) status.StatusInner {
	t.Helper()
	resp, err := http.Get(s.http.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()
	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return sj.Status
}

func (s *system) metricsText(t *testing.T) string {
	t.Helper()
	resp, err := http.Get(s.http.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return string(body)
}

func levels(level bool, n int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = level
	}
	return out
}

func concat(parts ...[]bool) []bool {
	var out []bool
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// TestIntegrationButtonWatering covers a click, the active measurement phase
// and the safety timer switching the pump off.
func TestIntegrationButtonWatering(t *testing.T) {
	s := newSystem(t)
	s.loop.Advance(time.Second)

	if got := s.radio.On(mqtt.TopicData); len(got) != 1 || got[0] != "soil=100,light=100,water=MEDIUM" {
		t.Fatalf("expected first data record at startup, got %v", got)
	}

	s.press(concat(levels(false, 3), levels(true, 3), levels(false, 3)))

	if !s.node.Pump.State().On {
		t.Fatal("expected pump on after click")
	}
	if s.relay.Energized() {
		t.Error("relay should be released while the pump runs")
	}
	if st := s.statusJSON(t); !st.Pump.On || !st.Pump.ActiveMode {
		t.Errorf("status page should show pump on in active mode, got %+v", st.Pump)
	}

	s.loop.Advance(6 * time.Second)

	if s.node.Pump.State().On {
		t.Fatal("expected safety timer to switch pump off")
	}
	if !s.relay.Energized() {
		t.Error("relay should be energized with the pump off")
	}

	logs := s.radio.On(mqtt.TopicLog)
	if len(logs) != 2 || logs[0] != "Pump ON (button)" || logs[1] != "Pump OFF" {
		t.Errorf("unexpected log messages: %v", logs)
	}
	// 500ms active interval over the 5s run, plus the startup cycle
	if got := len(s.radio.On(mqtt.TopicData)); got < 7 {
		t.Errorf("expected frequent records while watering, got %d", got)
	}

	st := s.statusJSON(t)
	if st.Counts.PumpOn != 1 || st.Counts.PumpOff != 1 {
		t.Errorf("unexpected counts: %+v", st.Counts)
	}
	if st.Readings == nil || st.Readings.Water != "MEDIUM" {
		t.Errorf("expected last readings in status, got %+v", st.Readings)
	}
	if st.Temperature == nil || *st.Temperature != 21.5 {
		t.Errorf("expected temperature in status, got %v", st.Temperature)
	}

	text := s.metricsText(t)
	for _, want := range []string{
		`soilnode_pump_transitions_total{source="button",state="on"} 1`,
		`soilnode_pump_transitions_total{source="timer",state="off"} 1`,
		"soilnode_pump_on 0",
		"soilnode_water_level 1",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestIntegrationIdleIntervalAfterWatering(t *testing.T) {
	s := newSystem(t)
	s.loop.Advance(time.Second)
	s.press(concat(levels(false, 3), levels(true, 3), levels(false, 3)))
	s.loop.Advance(6 * time.Second)

	before := len(s.radio.On(mqtt.TopicData))
	s.loop.Advance(9 * time.Second)
	if got := len(s.radio.On(mqtt.TopicData)); got != before {
		t.Errorf("expected no records within the idle interval, got %d new", got-before)
	}
	s.loop.Advance(2 * time.Second)
	if got := len(s.radio.On(mqtt.TopicData)); got != before+1 {
		t.Errorf("expected one record after the idle interval, got %d new", got-before)
	}
}

func TestIntegrationButtonHoldRequestsReset(t *testing.T) {
	s := newSystem(t)
	s.loop.Advance(time.Second)

	// 6s press at 20ms polling, then release
	s.press(concat(levels(false, 3), levels(true, 300), levels(false, 3)))

	if got := s.radio.On(mqtt.TopicReset); len(got) != 1 || got[0] != "needed reset household for smartpot" {
		t.Errorf("unexpected reset messages: %v", got)
	}
	if s.node.Pump.State().On {
		t.Error("a hold must not start the pump")
	}
	var long int
	for _, d := range s.led.Pulses {
		if d == time.Second {
			long++
		}
	}
	if long != 1 {
		t.Errorf("expected one 1s LED pulse, got pulses %v", s.led.Pulses)
	}
}

func TestIntegrationRemoteCommands(t *testing.T) {
	s := newSystem(t)
	s.loop.Advance(time.Second)

	if err := s.radio.Deliver(mqtt.TopicPumpCommand, 1); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	s.loop.Advance(0)

	if st := s.statusJSON(t); !st.Pump.On {
		t.Error("expected pump on after remote 1")
	}

	s.loop.Advance(time.Second)
	if err := s.radio.Deliver(mqtt.TopicPumpCommand, 0); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	s.loop.Advance(0)

	logs := s.radio.On(mqtt.TopicLog)
	if len(logs) != 2 || logs[0] != "Pump ON (from gateway)" || logs[1] != "Pump OFF (from gateway)" {
		t.Errorf("unexpected log messages: %v", logs)
	}
	st := s.statusJSON(t)
	if st.Pump.On || st.Pump.ActiveMode {
		t.Errorf("expected pump off, got %+v", st.Pump)
	}

	// Safety timer was cancelled: nothing more happens at the 5s mark.
	s.loop.Advance(5 * time.Second)
	if got := s.radio.On(mqtt.TopicLog); len(got) != 2 {
		t.Errorf("unexpected log messages after remote off: %v", got)
	}
}

func TestIntegrationSensorFailure(t *testing.T) {
	s := newSystem(t)
	s.adc.Errors = map[logic.Channel]error{logic.ChannelLight: errors.New("spi timeout")}
	s.loop.Advance(time.Second)

	if got := s.radio.On(mqtt.TopicData); len(got) != 1 || got[0] != "soil=100,water=MEDIUM" {
		t.Errorf("expected light omitted, got %v", got)
	}

	st := s.statusJSON(t)
	if st.Counts.ReadFailures != 1 {
		t.Errorf("ReadFailures: got %d, want 1", st.Counts.ReadFailures)
	}
	if st.Readings == nil || st.Readings.Light != nil {
		t.Errorf("expected readings without light, got %+v", st.Readings)
	}
	if !strings.Contains(s.metricsText(t), `soilnode_read_failures_total{sensor="light"} 1`) {
		t.Error("metrics missing light read failure")
	}
}

func TestIntegrationStartupShutdownPayloads(t *testing.T) {
	s := newSystem(t)
	s.loop.Advance(time.Second)

	snap := s.tracker.Snapshot()
	startup := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := s.radio.PublishSystem(startup); err != nil {
		t.Fatalf("publish startup: %v", err)
	}

	s.loop.Advance(time.Hour)
	snap = s.tracker.Snapshot()
	shutdown := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "SHUTDOWN",
		Reason:     "SIGTERM",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM"),
	}
	if err := s.radio.PublishSystem(shutdown); err != nil {
		t.Fatalf("publish shutdown: %v", err)
	}

	var first, last status.StatusJSON
	if err := json.Unmarshal(s.radio.SystemPayloads[0], &first); err != nil {
		t.Fatalf("invalid startup payload: %v", err)
	}
	if err := json.Unmarshal(s.radio.SystemPayloads[1], &last); err != nil {
		t.Fatalf("invalid shutdown payload: %v", err)
	}

	if first.Status.Event != "STARTUP" || first.Status.Counts.Cycles != 1 {
		t.Errorf("unexpected startup payload: %+v", first.Status)
	}
	if last.Status.Event != "SHUTDOWN" || last.Status.Reason != "SIGTERM" {
		t.Errorf("unexpected shutdown payload: %+v", last.Status)
	}
	if last.Status.UptimeSeconds < 3600 {
		t.Errorf("expected uptime of at least an hour, got %d", last.Status.UptimeSeconds)
	}
	// one cycle every 10.2s over the hour
	if last.Status.Counts.Cycles < 300 {
		t.Errorf("expected cycles to keep running, got %d", last.Status.Counts.Cycles)
	}
	if last.Status.Battery == nil {
		t.Error("expected battery reading after an hour")
	}
}
