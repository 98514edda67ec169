package mqtt

import (
	"fmt"
	"time"
)

// Message is a recorded string publication.
type Message struct {
	Topic string
	Text  string
}

// Telemetry is a recorded numeric publication.
type Telemetry struct {
	Kind  TelemetryKind
	Value float64
}

// FakeRadio records publications for test assertions and lets tests deliver commands.
type FakeRadio struct {
	// Messages contains all string publications.
	Messages []Message

	// Telemetry contains all numeric publications.
	Telemetry []Telemetry

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// Handlers holds subscriptions by topic.
	Handlers map[string]func(int)

	// PublishError, if set, will be returned by PublishString and PublishTelemetry.
	PublishError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakeRadio creates a FakeRadio for testing.
func NewFakeRadio() *FakeRadio {
	return &FakeRadio{Handlers: make(map[string]func(int))}
}

// PublishString records the message.
func (f *FakeRadio) PublishString(topic, text string) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Messages = append(f.Messages, Message{Topic: topic, Text: text})
	return nil
}

// PublishTelemetry records the reading.
func (f *FakeRadio) PublishTelemetry(kind TelemetryKind, value float64) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	if _, err := FormatTelemetryPayload(kind, value, time.Time{}); err != nil {
		return err
	}
	f.Telemetry = append(f.Telemetry, Telemetry{Kind: kind, Value: value})
	return nil
}

// Subscribe records the handler.
func (f *FakeRadio) Subscribe(topic string, handler func(value int)) error {
	f.Handlers[topic] = handler
	return nil
}

// Deliver simulates an incoming command on topic.
func (f *FakeRadio) Deliver(topic string, value int) error {
	h, ok := f.Handlers[topic]
	if !ok {
		return fmt.Errorf("no subscription for %s", topic)
	}
	h(value)
	return nil
}

// PublishSystem records the system event.
func (f *FakeRadio) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	f.SystemEvents = append(f.SystemEvents, event)

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemPayloads = append(f.SystemPayloads, payload)

	return nil
}

// On returns the texts published on topic, in order.
func (f *FakeRadio) On(topic string) []string {
	var out []string
	for _, m := range f.Messages {
		if m.Topic == topic {
			out = append(out, m.Text)
		}
	}
	return out
}

// Close marks the radio as closed.
func (f *FakeRadio) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake radio is "connected".
func (f *FakeRadio) IsConnected() bool {
	return f.Connected
}

// Reset clears recorded publications. Subscriptions are kept.
func (f *FakeRadio) Reset() {
	f.Messages = nil
	f.Telemetry = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.Closed = false
	f.PublishError = nil
	f.PublishSystemError = nil
	f.Connected = false
}
