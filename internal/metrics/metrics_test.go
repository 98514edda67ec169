package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sweeney/soil-node/internal/logic"
)

func gather(t *testing.T, m *Metrics) map[string]float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	out := make(map[string]float64)
	for _, f := range families {
		for _, metric := range f.GetMetric() {
			name := f.GetName()
			for _, l := range metric.GetLabel() {
				name += "," + l.GetName() + "=" + l.GetValue()
			}
			switch {
			case metric.GetCounter() != nil:
				out[name] = metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				out[name] = metric.GetGauge().GetValue()
			}
		}
	}
	return out
}

func TestObserveCycle(t *testing.T) {
	m := New()
	soil, light := 42.0, 77.0
	water := logic.WaterMedium
	m.ObserveCycle(logic.DerivedReadings{SoilPercent: &soil, LightPercent: &light, Water: &water})
	m.ObserveCycle(logic.DerivedReadings{})

	got := gather(t, m)
	if got["soilnode_cycles_total"] != 2 {
		t.Errorf("cycles: got %v, want 2", got["soilnode_cycles_total"])
	}
	if got["soilnode_soil_moisture_percent"] != 42 {
		t.Errorf("soil: got %v, want 42", got["soilnode_soil_moisture_percent"])
	}
	if got["soilnode_light_percent"] != 77 {
		t.Errorf("light: got %v, want 77", got["soilnode_light_percent"])
	}
	if got["soilnode_water_level"] != 1 {
		t.Errorf("water: got %v, want 1", got["soilnode_water_level"])
	}
}

func TestObservePump(t *testing.T) {
	m := New()
	m.ObservePump(logic.SourceButton, true)
	m.ObservePump(logic.SourceTimer, false)
	m.ObservePump(logic.SourceRemote, true)

	got := gather(t, m)
	if got["soilnode_pump_transitions_total,source=button,state=on"] != 1 {
		t.Errorf("button on: got %v", got["soilnode_pump_transitions_total,source=button,state=on"])
	}
	if got["soilnode_pump_transitions_total,source=timer,state=off"] != 1 {
		t.Errorf("timer off: got %v", got["soilnode_pump_transitions_total,source=timer,state=off"])
	}
	if got["soilnode_pump_on"] != 1 {
		t.Errorf("pump_on: got %v, want 1", got["soilnode_pump_on"])
	}
}

func TestReadFailuresAndTelemetry(t *testing.T) {
	m := New()
	m.ReadFailure("soil")
	m.ReadFailure("soil")
	m.ReadFailure("thermometer")
	m.SetTemperature(21.5)
	m.SetBattery(3.02)

	got := gather(t, m)
	if got["soilnode_read_failures_total,sensor=soil"] != 2 {
		t.Errorf("soil failures: got %v, want 2", got["soilnode_read_failures_total,sensor=soil"])
	}
	if got["soilnode_temperature_celsius"] != 21.5 {
		t.Errorf("temperature: got %v", got["soilnode_temperature_celsius"])
	}
	if got["soilnode_battery_volts"] != 3.02 {
		t.Errorf("battery: got %v", got["soilnode_battery_volts"])
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveCycle(logic.DerivedReadings{})
	m.ObservePump(logic.SourceButton, true)
	m.ReadFailure("light")
	m.SetTemperature(1)
	m.SetBattery(1)
	if m.Registry() != nil {
		t.Error("expected nil registry")
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 404 {
		t.Errorf("status: got %d, want 404", rec.Code)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.SetBattery(3.3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "soilnode_battery_volts 3.3") {
		t.Errorf("missing battery gauge in output:\n%s", body)
	}
}
