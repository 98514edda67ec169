package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	paho "github.com/eclipse/paho.mqtt.golang"
)

// RealConfig configures the broker connection.
type RealConfig struct {
	Broker         string
	NodeID         string
	BufferSize     int           // messages kept while disconnected
	ConnectRetries int           // attempts after the first one
	ConnectTimeout time.Duration // per attempt
}

// RealRadio publishes to an actual MQTT broker.
// Messages published while disconnected are buffered and replayed on reconnect.
type RealRadio struct {
	client  paho.Client
	prefix  string
	timeout time.Duration

	mu       sync.Mutex
	buffer   *ringBuffer
	handlers map[string]func(int)
}

// NewRealRadio connects to the broker, retrying with exponential backoff.
func NewRealRadio(cfg RealConfig) (*RealRadio, error) {
	r := &RealRadio{
		prefix:   TopicPrefix(cfg.NodeID),
		timeout:  cfg.ConnectTimeout,
		buffer:   newRingBuffer(cfg.BufferSize),
		handlers: make(map[string]func(int)),
	}

	will, err := FormatSystemPayload(SystemEvent{Event: "OFFLINE", Reason: "LWT"})
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID("soil-node-" + cfg.NodeID).
		SetAutoReconnect(true).
		SetWill(r.prefix+TopicSystem, string(will), 1, true).
		SetOnConnectHandler(r.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	r.client = paho.NewClient(opts)

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 2 * time.Minute
	err = backoff.Retry(func() error {
		token := r.client.Connect()
		if !token.WaitTimeout(cfg.ConnectTimeout) {
			log.Printf("mqtt: connect to %s timed out", cfg.Broker)
			return fmt.Errorf("connection timeout")
		}
		if err := token.Error(); err != nil {
			log.Printf("mqtt: connect to %s: %v", cfg.Broker, err)
			return err
		}
		return nil
	}, backoff.WithMaxRetries(bo, uint64(cfg.ConnectRetries)))
	if err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	log.Printf("mqtt: connected to %s as %s", cfg.Broker, r.prefix)
	return r, nil
}

// onConnect restores subscriptions and replays buffered messages.
// Runs on a paho goroutine after every (re)connect.
func (r *RealRadio) onConnect(c paho.Client) {
	r.mu.Lock()
	handlers := make(map[string]func(int), len(r.handlers))
	for topic, h := range r.handlers {
		handlers[topic] = h
	}
	pending, dropped := r.buffer.drainAll()
	r.mu.Unlock()

	for topic, h := range handlers {
		r.subscribe(topic, h)
	}

	if len(pending) > 0 || dropped > 0 {
		log.Printf("mqtt: replaying %d buffered messages (%d dropped while offline)", len(pending), dropped)
	}
	for _, m := range pending {
		watch(c.Publish(m.topic, m.qos, m.retained, m.payload), m.topic)
	}
}

func (r *RealRadio) subscribe(topic string, handler func(int)) {
	full := r.prefix + topic
	token := r.client.Subscribe(full, 1, func(_ paho.Client, m paho.Message) {
		v, err := ParseCommand(m.Payload())
		if err != nil {
			log.Printf("mqtt: dropping message on %s: %v", m.Topic(), err)
			return
		}
		log.Printf("mqtt: received [%s] = %d", m.Topic(), v)
		handler(v)
	})
	go func() {
		if !token.WaitTimeout(r.timeout) {
			log.Printf("mqtt: subscribe %s timed out", full)
			return
		}
		if err := token.Error(); err != nil {
			log.Printf("mqtt: subscribe %s: %v", full, err)
		}
	}()
}

// Subscribe registers handler and subscribes immediately when connected.
func (r *RealRadio) Subscribe(topic string, handler func(value int)) error {
	r.mu.Lock()
	r.handlers[topic] = handler
	r.mu.Unlock()

	if r.client.IsConnectionOpen() {
		r.subscribe(topic, handler)
	}
	return nil
}

// PublishString sends text at QoS 0 without waiting for the broker.
func (r *RealRadio) PublishString(topic, text string) error {
	r.publish(r.prefix+topic, 0, false, []byte(text))
	return nil
}

// PublishTelemetry sends a reading at QoS 0 without waiting for the broker.
func (r *RealRadio) PublishTelemetry(kind TelemetryKind, value float64) error {
	payload, err := FormatTelemetryPayload(kind, value, time.Now())
	if err != nil {
		return fmt.Errorf("format telemetry payload: %w", err)
	}
	r.publish(r.prefix+string(kind), 0, false, payload)
	return nil
}

// PublishSystem sends a system lifecycle event and waits for delivery.
// Only called at startup and shutdown, outside the control loop.
func (r *RealRadio) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	topic := r.prefix + TopicSystem
	if !r.client.IsConnectionOpen() {
		r.enqueue(topic, 1, event.Retained, payload)
		return nil
	}

	// QoS 1 (at-least-once) - we want lifecycle events delivered
	token := r.client.Publish(topic, 1, event.Retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish system timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}
	return nil
}

func (r *RealRadio) publish(topic string, qos byte, retained bool, payload []byte) {
	if !r.client.IsConnectionOpen() {
		r.enqueue(topic, qos, retained, payload)
		return
	}
	watch(r.client.Publish(topic, qos, retained, payload), topic)
}

func (r *RealRadio) enqueue(topic string, qos byte, retained bool, payload []byte) {
	r.mu.Lock()
	r.buffer.push(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
	r.mu.Unlock()
}

// watch logs a publish failure without blocking the caller.
func watch(token paho.Token, topic string) {
	go func() {
		if !token.WaitTimeout(5 * time.Second) {
			log.Printf("mqtt: publish %s timed out", topic)
			return
		}
		if err := token.Error(); err != nil {
			log.Printf("mqtt: publish %s: %v", topic, err)
		}
	}()
}

// Buffered returns the number of messages waiting for a connection.
func (r *RealRadio) Buffered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buffer.len()
}

// IsConnected reports whether the broker connection is up.
func (r *RealRadio) IsConnected() bool {
	return r.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (r *RealRadio) Close() error {
	r.client.Disconnect(1000) // 1 second timeout
	return nil
}
