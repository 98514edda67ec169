package mqtt

import (
	"testing"
)

func TestRingBufferEmptyDrain(t *testing.T) {
	rb := newRingBuffer(10)
	got, dropped := rb.drainAll()
	if got != nil {
		t.Errorf("expected nil from empty drain, got %d items", len(got))
	}
	if dropped != 0 {
		t.Errorf("expected 0 dropped, got %d", dropped)
	}
}

func TestRingBufferPushAndDrain(t *testing.T) {
	rb := newRingBuffer(10)
	for i := 0; i < 5; i++ {
		if rb.push(bufferedMsg{topic: "data", payload: []byte{byte(i)}}) {
			t.Fatalf("push %d: unexpected drop", i)
		}
	}

	got, _ := rb.drainAll()
	if len(got) != 5 {
		t.Fatalf("expected 5 items, got %d", len(got))
	}
	for i := 0; i < 5; i++ {
		if got[i].payload[0] != byte(i) {
			t.Errorf("item %d: expected payload %d, got %d", i, i, got[i].payload[0])
		}
	}

	// Second drain should be empty
	if got2, _ := rb.drainAll(); got2 != nil {
		t.Errorf("expected nil from second drain, got %d items", len(got2))
	}
}

func TestRingBufferOverflowKeepsNewest(t *testing.T) {
	capacity := 5
	rb := newRingBuffer(capacity)

	// Push capacity+3 items (0..7), buffer should keep the most recent 5 (3..7)
	drops := 0
	for i := 0; i < capacity+3; i++ {
		if rb.push(bufferedMsg{topic: "data", payload: []byte{byte(i)}}) {
			drops++
		}
	}
	if drops != 3 {
		t.Errorf("push reported %d drops, want 3", drops)
	}

	got, dropped := rb.drainAll()
	if dropped != 3 {
		t.Errorf("drain reported %d dropped, want 3", dropped)
	}
	if len(got) != capacity {
		t.Fatalf("expected %d items, got %d", capacity, len(got))
	}
	for i := 0; i < capacity; i++ {
		want := byte(i + 3) // oldest 3 were dropped
		if got[i].payload[0] != want {
			t.Errorf("item %d: expected payload %d, got %d", i, want, got[i].payload[0])
		}
	}

	// Drop counter resets after a drain
	rb.push(bufferedMsg{topic: "data"})
	if _, dropped := rb.drainAll(); dropped != 0 {
		t.Errorf("expected dropped reset to 0, got %d", dropped)
	}
}

func TestRingBufferMultipleCycles(t *testing.T) {
	rb := newRingBuffer(5)

	for i := 0; i < 3; i++ {
		rb.push(bufferedMsg{topic: "log", payload: []byte{byte(i)}})
	}
	if got, _ := rb.drainAll(); len(got) != 3 {
		t.Fatalf("cycle 1: expected 3 items, got %d", len(got))
	}

	for i := 10; i < 14; i++ {
		rb.push(bufferedMsg{topic: "log", payload: []byte{byte(i)}})
	}
	got, _ := rb.drainAll()
	if len(got) != 4 {
		t.Fatalf("cycle 2: expected 4 items, got %d", len(got))
	}
	for i, msg := range got {
		want := byte(10 + i)
		if msg.payload[0] != want {
			t.Errorf("cycle 2 item %d: expected %d, got %d", i, want, msg.payload[0])
		}
	}
}

func TestRingBufferLen(t *testing.T) {
	rb := newRingBuffer(10)
	if rb.len() != 0 {
		t.Errorf("expected len 0, got %d", rb.len())
	}

	rb.push(bufferedMsg{topic: "data"})
	rb.push(bufferedMsg{topic: "data"})
	if rb.len() != 2 {
		t.Errorf("expected len 2, got %d", rb.len())
	}

	rb.drainAll()
	if rb.len() != 0 {
		t.Errorf("expected len 0 after drain, got %d", rb.len())
	}
}

func TestRingBufferPreservesFields(t *testing.T) {
	rb := newRingBuffer(10)
	rb.push(bufferedMsg{
		topic:    "node/pot/system",
		payload:  []byte(`{"test":true}`),
		qos:      1,
		retained: true,
	})

	got, _ := rb.drainAll()
	if len(got) != 1 {
		t.Fatalf("expected 1 item, got %d", len(got))
	}
	if got[0].topic != "node/pot/system" {
		t.Errorf("topic: got %s, want node/pot/system", got[0].topic)
	}
	if string(got[0].payload) != `{"test":true}` {
		t.Errorf("payload: got %s", got[0].payload)
	}
	if got[0].qos != 1 {
		t.Errorf("qos: got %d, want 1", got[0].qos)
	}
	if !got[0].retained {
		t.Error("retained: got false, want true")
	}
}
