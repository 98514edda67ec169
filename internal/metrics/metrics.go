// Package metrics exposes node counters and gauges to Prometheus.
//
// All methods are safe on a nil *Metrics so callers can run without a registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/soil-node/internal/logic"
)

const namespace = "soilnode"

// Metrics holds the node's collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	cycles       prometheus.Counter
	pump         *prometheus.CounterVec
	readFailures *prometheus.CounterVec
	soil         prometheus.Gauge
	light        prometheus.Gauge
	water        prometheus.Gauge
	pumpOn       prometheus.Gauge
	temperature  prometheus.Gauge
	battery      prometheus.Gauge
}

// New creates the collectors and registers them, with the Go runtime
// collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Completed measurement cycles.",
		}),
		pump: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pump_transitions_total",
			Help:      "Pump state changes by requesting source.",
		}, []string{"source", "state"}),
		readFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "read_failures_total",
			Help:      "Sensor reads that produced no value.",
		}, []string{"sensor"}),
		soil: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "soil_moisture_percent",
			Help:      "Last soil moisture reading.",
		}),
		light: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "light_percent",
			Help:      "Last light reading.",
		}),
		water: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "water_level",
			Help:      "Last reservoir level: 0 low, 1 medium, 2 high.",
		}),
		pumpOn: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pump_on",
			Help:      "1 while the pump runs.",
		}),
		temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "temperature_celsius",
			Help:      "Last board temperature.",
		}),
		battery: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "battery_volts",
			Help:      "Last supply voltage.",
		}),
	}

	m.registry.MustRegister(
		m.cycles, m.pump, m.readFailures,
		m.soil, m.light, m.water, m.pumpOn,
		m.temperature, m.battery,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCycle records a finished cycle and the values it produced.
func (m *Metrics) ObserveCycle(d logic.DerivedReadings) {
	if m == nil {
		return
	}
	m.cycles.Inc()
	if d.SoilPercent != nil {
		m.soil.Set(*d.SoilPercent)
	}
	if d.LightPercent != nil {
		m.light.Set(*d.LightPercent)
	}
	if d.Water != nil {
		m.water.Set(waterValue(*d.Water))
	}
}

// ObservePump records a pump transition.
func (m *Metrics) ObservePump(src logic.Source, on bool) {
	if m == nil {
		return
	}
	state := "off"
	if on {
		state = "on"
		m.pumpOn.Set(1)
	} else {
		m.pumpOn.Set(0)
	}
	m.pump.WithLabelValues(string(src), state).Inc()
}

// ReadFailure counts a sensor read that produced no value.
func (m *Metrics) ReadFailure(sensor string) {
	if m == nil {
		return
	}
	m.readFailures.WithLabelValues(sensor).Inc()
}

// SetTemperature records the last board temperature.
func (m *Metrics) SetTemperature(celsius float64) {
	if m == nil {
		return
	}
	m.temperature.Set(celsius)
}

// SetBattery records the last supply voltage.
func (m *Metrics) SetBattery(volts float64) {
	if m == nil {
		return
	}
	m.battery.Set(volts)
}

func waterValue(w logic.WaterLevel) float64 {
	switch w {
	case logic.WaterLow:
		return 0
	case logic.WaterMedium:
		return 1
	}
	return 2
}
