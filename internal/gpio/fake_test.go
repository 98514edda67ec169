package gpio

import (
	"errors"
	"testing"
	"time"
)

func TestFakeButtonPressed(t *testing.T) {
	f := NewFakeButton([]bool{false, true, true})

	for i, want := range []bool{false, true, true, true} {
		got, err := f.Pressed()
		if err != nil {
			t.Fatalf("sample %d: unexpected error: %v", i, err)
		}
		if got != want {
			t.Errorf("sample %d: got %v, want %v", i, got, want)
		}
	}
}

func TestFakeButtonNoSamples(t *testing.T) {
	f := NewFakeButton(nil)

	if _, err := f.Pressed(); err == nil {
		t.Error("expected error with no samples")
	}
}

func TestFakeButtonError(t *testing.T) {
	f := NewFakeButton([]bool{true})
	f.ReadError = errors.New("simulated error")

	_, err := f.Pressed()
	if err == nil || err.Error() != "simulated error" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFakeButtonReset(t *testing.T) {
	f := NewFakeButton([]bool{true, false})

	f.Pressed()
	f.Reset()

	if got, _ := f.Pressed(); got != true {
		t.Errorf("after reset: got %v, want true", got)
	}
}

func TestFakeRelay(t *testing.T) {
	f := &FakeRelay{}
	if !f.Energized() {
		t.Error("unset relay should report energized (pump off)")
	}

	f.SetState(false)
	f.SetState(true)
	if len(f.States) != 2 || f.States[0] != false || f.States[1] != true {
		t.Errorf("unexpected states: %v", f.States)
	}

	f.Error = errors.New("i2c nack")
	if err := f.SetState(false); err == nil {
		t.Error("expected error")
	}
	if len(f.States) != 2 {
		t.Errorf("failed call should not be recorded, got %v", f.States)
	}
}

func TestFakeRailAndLED(t *testing.T) {
	r := &FakeRail{}
	if r.On() {
		t.Error("new rail should be off")
	}
	r.SetPower(true)
	if !r.On() {
		t.Error("rail should be on")
	}

	l := &FakeLED{}
	l.Pulse(100 * time.Millisecond)
	if len(l.Pulses) != 1 || l.Pulses[0] != 100*time.Millisecond {
		t.Errorf("unexpected pulses: %v", l.Pulses)
	}
}
