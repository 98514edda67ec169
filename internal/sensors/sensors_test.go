package sensors

import (
	"errors"
	"testing"

	"github.com/sweeney/soil-node/internal/logic"
)

func TestTMP112Celsius(t *testing.T) {
	tests := []struct {
		name string
		word uint16 // as returned by an SMBus word read
		want float64
	}{
		{"zero", 0x0000, 0},
		{"25C", 0x0019, 25},
		{"0.0625C", 0x1000, 0.0625},
		{"-25C", 0x00e7, -25},
		{"max", 0xf07f, 127.9375},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TMP112Celsius(tt.word); got != tt.want {
				t.Errorf("TMP112Celsius(0x%04x): got %v, want %v", tt.word, got, tt.want)
			}
		})
	}
}

func TestFakeADC(t *testing.T) {
	f := NewFakeADC(1.0, 1.6, 0.2)
	f.Errors = map[logic.Channel]error{logic.ChannelLight: errors.New("adc timeout")}
	f.Stalled = map[logic.Channel]bool{logic.ChannelWaterLevel: true}

	var got []float64
	var errs []error
	done := func(v float64, err error) {
		got = append(got, v)
		errs = append(errs, err)
	}

	for _, ch := range []logic.Channel{logic.ChannelSoil, logic.ChannelWaterLevel, logic.ChannelLight} {
		if err := f.StartConversion(ch, done); err != nil {
			t.Fatalf("start %s: %v", ch, err)
		}
	}

	if len(f.Started) != 3 {
		t.Errorf("expected 3 starts, got %d", len(f.Started))
	}
	if len(got) != 2 {
		t.Fatalf("stalled channel should not complete, got %d completions", len(got))
	}
	if got[0] != 1.0 || errs[0] != nil {
		t.Errorf("soil: got %v, %v", got[0], errs[0])
	}
	if errs[1] == nil {
		t.Error("light: expected error")
	}
}

func TestFakeADCStartError(t *testing.T) {
	f := NewFakeADC(0, 0, 0)
	f.StartError = errors.New("spi busy")

	called := false
	if err := f.StartConversion(logic.ChannelSoil, func(float64, error) { called = true }); err == nil {
		t.Error("expected start error")
	}
	if called {
		t.Error("done should not be called when start fails")
	}
}

func TestFakeReading(t *testing.T) {
	f := &FakeReading{Value: 3.7}
	var got float64
	f.Measure(func(v float64, err error) { got = v })
	if got != 3.7 || f.Calls != 1 {
		t.Errorf("got %v after %d calls", got, f.Calls)
	}
}
