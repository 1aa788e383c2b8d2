package bus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("conn", 10)
	defer unsub()

	b.Publish(Event{Kind: ConnStatusChanged, Payload: "test"})

	select {
	case evt := <-ch:
		if evt.Kind != ConnStatusChanged {
			t.Errorf("got kind %q, want %q", evt.Kind, ConnStatusChanged)
		}
		if evt.Timestamp.IsZero() {
			t.Error("timestamp not filled in")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestTopicRouting(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("engine", 10)
	defer unsub()

	b.Publish(Event{Kind: ConnStatusChanged})
	b.Publish(Event{Kind: EngineTurnDone})

	select {
	case evt := <-ch:
		if evt.Kind != EngineTurnDone {
			t.Errorf("got kind %q, want %q", evt.Kind, EngineTurnDone)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	// The conn event must not reach an engine subscriber.
	select {
	case evt := <-ch:
		t.Errorf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEmptyTopicReceivesEverything(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("", 10)
	defer unsub()

	b.Publish(Event{Kind: ConnQRRotated})
	b.Publish(Event{Kind: EngineTurnDone})

	for _, want := range []Kind{ConnQRRotated, EngineTurnDone} {
		select {
		case evt := <-ch:
			if evt.Kind != want {
				t.Errorf("got kind %q, want %q", evt.Kind, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for %q", want)
		}
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("conn", 10)
	unsub()

	b.Publish(Event{Kind: ConnStatusChanged})

	select {
	case evt := <-ch:
		t.Errorf("received event after unsubscribe: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDropOnFullBuffer(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("conn", 1)
	defer unsub()

	b.Publish(Event{Kind: ConnStatusChanged, Payload: 1})
	// Buffer is full now; this one is dropped instead of blocking.
	b.Publish(Event{Kind: ConnStatusChanged, Payload: 2})

	evt := <-ch
	if evt.Payload != 1 {
		t.Errorf("got payload %v, want 1", evt.Payload)
	}
}
