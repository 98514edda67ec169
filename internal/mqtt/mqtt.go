// Package mqtt provides the node's radio link over MQTT with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Topics are relative to the node prefix (see TopicPrefix).
const (
	// TopicData carries the composite soil/light/water record.
	TopicData = "data"
	// TopicLog carries free-text status lines.
	TopicLog = "log"
	// TopicReset carries the long-press reset request.
	TopicReset = "reset"
	// TopicPumpCommand is the integer-valued pump control topic.
	TopicPumpCommand = "pump/-/set/state"
	// TopicSystem carries lifecycle events.
	TopicSystem = "system"
)

// TelemetryKind names a numeric reading published on its own topic.
type TelemetryKind string

const (
	KindTemperature TelemetryKind = "temperature"
	KindBattery     TelemetryKind = "battery"
)

// ErrBadCommand is returned for command payloads that are not an integer.
var ErrBadCommand = errors.New("mqtt: command payload is not an integer")

// Radio is the node's link to the gateway. Publishing is fire-and-forget:
// an error means the message was not handed to the transport.
type Radio interface {
	// PublishString sends free text on a topic.
	PublishString(topic, text string) error

	// PublishTelemetry sends a numeric reading on the kind's topic.
	PublishTelemetry(kind TelemetryKind, value float64) error

	// Subscribe registers handler for integer payloads on topic.
	// The handler runs on a transport goroutine.
	Subscribe(topic string, handler func(value int)) error

	// PublishSystem sends a system lifecycle event.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// TopicPrefix returns the topic root for a node, e.g. "node/kitchen-pot/".
func TopicPrefix(nodeID string) string {
	return "node/" + nodeID + "/"
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "OFFLINE"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// TelemetryPayload represents the MQTT message payload for a numeric reading.
type TelemetryPayload struct {
	Telemetry TelemetryInner `json:"telemetry"`
}

// TelemetryInner contains the reading details.
type TelemetryInner struct {
	Timestamp string  `json:"timestamp"`
	Kind      string  `json:"kind"`
	Value     float64 `json:"value"`
}

// FormatTelemetryPayload creates the JSON payload for a numeric reading.
func FormatTelemetryPayload(kind TelemetryKind, value float64, ts time.Time) ([]byte, error) {
	return json.Marshal(TelemetryPayload{
		Telemetry: TelemetryInner{
			Timestamp: ts.UTC().Format(time.RFC3339),
			Kind:      string(kind),
			Value:     value,
		},
	})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	inner := SystemPayloadInner{
		Event:  event.Event,
		Reason: event.Reason,
	}
	if !event.Timestamp.IsZero() {
		inner.Timestamp = event.Timestamp.UTC().Format(time.RFC3339)
	}
	return json.Marshal(SystemPayload{System: inner})
}

// ParseCommand decodes an integer command payload. Surrounding whitespace and
// quotes are tolerated.
func ParseCommand(payload []byte) (int, error) {
	s := strings.Trim(strings.TrimSpace(string(payload)), `"`)
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadCommand, s)
	}
	return v, nil
}
