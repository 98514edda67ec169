// Command soil-node measures soil moisture, water level and light, publishes
// the readings over MQTT and drives the irrigation pump.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
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

type options struct {
	node node.Config

	buttonPoll time.Duration
	debounce   time.Duration
	buttonHold time.Duration
	heartbeat  time.Duration

	broker   string
	nodeID   string
	httpAddr string

	pins          gpio.Pins
	tmp112Address int
	batteryInput  int
	batteryRatio  float64

	printState bool
}

func main() {
	def := node.DefaultConfig()
	pins := gpio.DefaultPins()
	var o options

	flag.DurationVar(&o.node.Interval, "interval", def.Interval, "Measurement interval while the pump is off")
	flag.DurationVar(&o.node.ActiveInterval, "active-interval", def.ActiveInterval, "Measurement interval while the pump runs")
	flag.DurationVar(&o.node.Settle, "settle", def.Settle, "Delay between the steps of a measurement cycle")
	flag.DurationVar(&o.node.PumpOnTime, "pump-on", def.PumpOnTime, "Maximum pump run time per request")
	flag.DurationVar(&o.node.RelayRetryDelay, "relay-retry", def.RelayRetryDelay, "Retry delay when the relay refuses to stop the pump")
	flag.DurationVar(&o.node.TemperatureInterval, "temperature-interval", def.TemperatureInterval, "Temperature interval (0 to disable)")
	flag.DurationVar(&o.node.BatteryInterval, "battery-interval", def.BatteryInterval, "Battery voltage interval (0 to disable)")
	flag.DurationVar(&o.buttonPoll, "button-poll", 20*time.Millisecond, "Button polling interval")
	flag.DurationVar(&o.debounce, "debounce", 40*time.Millisecond, "Button debounce duration")
	flag.DurationVar(&o.buttonHold, "button-hold", 5*time.Second, "Press duration that requests a reset")
	flag.DurationVar(&o.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	flag.StringVar(&o.broker, "broker", "tcp://192.168.1.200:1883", "MQTT broker address")
	flag.StringVar(&o.nodeID, "node-id", "smartpot", "Node id used in MQTT topics")
	flag.StringVar(&o.httpAddr, "http", ":80", "HTTP status address (empty to disable)")
	flag.IntVar(&o.pins.Relay, "pin-relay", pins.Relay, "BCM pin number for the pump relay")
	flag.IntVar(&o.pins.Rail, "pin-rail", pins.Rail, "BCM pin number for the sensor rail")
	flag.IntVar(&o.pins.LED, "pin-led", pins.LED, "BCM pin number for the LED")
	flag.IntVar(&o.pins.Button, "pin-button", pins.Button, "BCM pin number for the button")
	flag.IntVar(&o.tmp112Address, "tmp112-addr", sensors.DefaultTMP112Address, "I2C address of the TMP112")
	flag.IntVar(&o.batteryInput, "battery-input", sensors.DefaultBatteryInput, "MCP3008 input wired to the battery divider")
	flag.Float64Var(&o.batteryRatio, "battery-ratio", sensors.DefaultBatteryRatio, "Battery divider ratio")
	flag.BoolVar(&o.printState, "print-state", false, "Print current readings and exit")

	flag.Parse()

	if err := run(o); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(o options) error {
	// Initialize GPIO
	board, err := gpio.NewRealBoard(o.pins)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer board.Close()

	// Initialize SPI/I2C sensors
	sensorBoard, err := sensors.NewBoard(sensors.BoardConfig{
		SPISpeed:      sensors.DefaultSPISpeed,
		TMP112Address: o.tmp112Address,
		VRef:          logic.SupplyVolts,
		Inputs:        sensors.DefaultInputs(),
	})
	if err != nil {
		return fmt.Errorf("init sensors: %w", err)
	}
	defer sensorBoard.Close()

	// Print state mode
	if o.printState {
		if err := board.SetPower(true); err != nil {
			return fmt.Errorf("sensor rail: %w", err)
		}
		defer board.SetPower(false)
		time.Sleep(o.node.Settle)
		return printState(os.Stdout, sensorBoard, board, 2*time.Second)
	}

	// Initialize MQTT
	radio, err := mqtt.NewRealRadio(mqtt.RealConfig{
		Broker:         o.broker,
		NodeID:         o.nodeID,
		BufferSize:     100,
		ConnectRetries: 5,
		ConnectTimeout: 10 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer radio.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		NodeID:           o.nodeID,
		IntervalMs:       o.node.Interval.Milliseconds(),
		ActiveIntervalMs: o.node.ActiveInterval.Milliseconds(),
		PumpOnMs:         o.node.PumpOnTime.Milliseconds(),
		Broker:           o.broker,
		HTTPAddr:         o.httpAddr,
	})
	tracker.SetMQTTConnected(radio.IsConnected())
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	m := metrics.New()

	loop := sched.New(sched.RealClock{})
	n := node.New(loop, o.node, node.Deps{
		Relay:       board,
		Rail:        board,
		LED:         board,
		ADC:         sensorBoard,
		Thermometer: sensorBoard.Thermometer(),
		Battery:     sensorBoard.Battery(o.batteryInput, o.batteryRatio),
		Radio:       radio,
		Tracker:     tracker,
		Metrics:     m,
	})
	if err := n.Start(); err != nil {
		return fmt.Errorf("start node: %w", err)
	}

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := radio.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	// Start HTTP status server
	if o.httpAddr != "" {
		srv := web.New(o.httpAddr, tracker, m.Handler())
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", o.httpAddr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	loopDone := make(chan error, 1)
	go func() { loopDone <- loop.Run(ctx) }()
	defer func() {
		cancel()
		if err := <-loopDone; err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("control loop: %v", err)
		}
	}()

	log.Printf("started: node=%s interval=%v active=%v pump-on=%v broker=%s",
		o.nodeID, o.node.Interval, o.node.ActiveInterval, o.node.PumpOnTime, o.broker)

	ticker := time.NewTicker(o.buttonPoll)
	defer ticker.Stop()

	var heartbeat <-chan time.Time
	if o.heartbeat > 0 {
		hb := time.NewTicker(o.heartbeat)
		defer hb.Stop()
		heartbeat = hb.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	detector := logic.NewButtonDetector(o.debounce, o.buttonHold)
	return runLoop(board, n, radio, radio, tracker, detector, time.Now, ticker.C, heartbeat, sigCh)
}

// buttonSink receives classified button gestures.
type buttonSink interface {
	PostButton(ev logic.ButtonEvent)
}

// runLoop polls the button, publishes heartbeats and waits for a shutdown
// signal. Pump and cycle logic run on the node's own loop.
func runLoop(button gpio.ButtonReader, sink buttonSink, radio mqtt.Radio, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, detector *logic.ButtonDetector, now func() time.Time, tick, heartbeat <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := radio.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-heartbeat:
			hbEvent := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "HEARTBEAT",
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				// Refresh network info for heartbeat
				if net := readNetworkInfo(); net != nil {
					tracker.SetNetwork(net)
				}
				snap := tracker.Snapshot()
				log.Printf("heartbeat: uptime=%v cycles=%d pump_on=%d pump_off=%d read_failures=%d",
					snap.Uptime().Truncate(time.Second), snap.Counts.Cycles, snap.Counts.PumpOn, snap.Counts.PumpOff, snap.Counts.ReadFailures)
				hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
			}
			if err := radio.PublishSystem(hbEvent); err != nil {
				log.Printf("heartbeat publish error: %v", err)
			}

		case <-tick:
			t := now()
			pressed, err := button.Pressed()
			if err != nil {
				log.Printf("button read error: %v", err)
				continue
			}

			for _, ev := range detector.Process(logic.ButtonInput{Pressed: pressed, Time: t}) {
				log.Printf("button: %s", ev.Type)
				sink.PostButton(ev)
			}

			if tracker != nil && mqttStatus != nil {
				tracker.SetMQTTConnected(mqttStatus.IsConnected())
			}
		}
	}
}

// printState takes one reading of every channel and prints the data record
// and the raw voltages.
func printState(w io.Writer, adc sensors.ADC, button gpio.ButtonReader, timeout time.Duration) error {
	type result struct {
		ch    logic.Channel
		volts float64
		err   error
	}
	results := make(chan result, len(logic.Channels))
	started := 0
	for _, ch := range logic.Channels {
		ch := ch
		err := adc.StartConversion(ch, func(volts float64, err error) {
			results <- result{ch, volts, err}
		})
		if err != nil {
			fmt.Fprintf(w, "%s: %v\n", ch, err)
			continue
		}
		started++
	}

	var raw logic.RawReadings
	deadline := time.After(timeout)
	for i := 0; i < started; i++ {
		select {
		case r := <-results:
			if r.err != nil {
				fmt.Fprintf(w, "%s: %v\n", r.ch, r.err)
				continue
			}
			raw.Volts[r.ch] = r.volts
			raw.Done[r.ch] = true
			fmt.Fprintf(w, "%s: %.3fV\n", r.ch, r.volts)
		case <-deadline:
			return fmt.Errorf("conversions timed out after %v", timeout)
		}
	}

	pressed, err := button.Pressed()
	if err != nil {
		return fmt.Errorf("read button: %w", err)
	}
	fmt.Fprintf(w, "data: %s\n", logic.FormatData(logic.Derive(raw)))
	fmt.Fprintf(w, "button: %s\n", stateString(pressed))
	return nil
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

func stateString(pressed bool) string {
	if pressed {
		return "PRESSED"
	}
	return "RELEASED"
}
