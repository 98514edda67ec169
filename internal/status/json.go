package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string        `json:"event,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	NodeID        string        `json:"node_id"`
	Pump          PumpJSON      `json:"pump"`
	Cycle         string        `json:"cycle"`
	Readings      *ReadingsJSON `json:"readings,omitempty"`
	Temperature   *float64      `json:"temperature,omitempty"`
	Battery       *float64      `json:"battery,omitempty"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	StartTime     string        `json:"start_time"`
	Timestamp     string        `json:"timestamp"`
	MQTT          MQTTStatus    `json:"mqtt"`
	Counts        CountsJSON    `json:"counts"`
	Network       *NetworkJSON  `json:"network,omitempty"`
	Config        ConfigJSON    `json:"config"`
}

// PumpJSON reports the pump state.
type PumpJSON struct {
	On         bool `json:"on"`
	ActiveMode bool `json:"active_mode"`
}

// ReadingsJSON holds the last published cycle. Missing channels are omitted.
type ReadingsJSON struct {
	Timestamp string   `json:"timestamp"`
	Soil      *float64 `json:"soil,omitempty"`
	Light     *float64 `json:"light,omitempty"`
	Water     string   `json:"water,omitempty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of node counters.
type CountsJSON struct {
	Cycles       int `json:"cycles"`
	PumpOn       int `json:"pump_on"`
	PumpOff      int `json:"pump_off"`
	ReadFailures int `json:"read_failures"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	IntervalMs       int64  `json:"interval_ms"`
	ActiveIntervalMs int64  `json:"active_interval_ms"`
	PumpOnMs         int64  `json:"pump_on_ms"`
	Broker           string `json:"broker"`
	HTTPAddr         string `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		NodeID:        snap.Config.NodeID,
		Pump:          PumpJSON{On: snap.Pump.On, ActiveMode: snap.Pump.ActiveMode},
		Cycle:         snap.Cycle.String(),
		Temperature:   snap.Temperature,
		Battery:       snap.Battery,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Cycles:       snap.Counts.Cycles,
			PumpOn:       snap.Counts.PumpOn,
			PumpOff:      snap.Counts.PumpOff,
			ReadFailures: snap.Counts.ReadFailures,
		},
		Config: ConfigJSON{
			IntervalMs:       snap.Config.IntervalMs,
			ActiveIntervalMs: snap.Config.ActiveIntervalMs,
			PumpOnMs:         snap.Config.PumpOnMs,
			Broker:           snap.Config.Broker,
			HTTPAddr:         snap.Config.HTTPAddr,
		},
	}

	if !snap.ReadingsAt.IsZero() {
		r := &ReadingsJSON{
			Timestamp: snap.ReadingsAt.UTC().Format(time.RFC3339),
			Soil:      snap.Readings.SoilPercent,
			Light:     snap.Readings.LightPercent,
		}
		if snap.Readings.Water != nil {
			r.Water = string(*snap.Readings.Water)
		}
		inner.Readings = r
	}

	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
