package events

import (
	"testing"
	"time"
)

func TestBusDeliversToSubscriber(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe()
	defer bus.Close()

	bus.Publish(Event{Kind: KindCreditsChanged, Subject: "account:a1", Balance: 120})

	select {
	case evt := <-ch:
		if evt.Kind != KindCreditsChanged {
			t.Fatalf("unexpected kind: %s", evt.Kind)
		}
		if evt.Subject != "account:a1" {
			t.Fatalf("unexpected subject: %s", evt.Subject)
		}
		if evt.Balance != 120 {
			t.Fatalf("unexpected balance: %d", evt.Balance)
		}
		if evt.Seq == 0 {
			t.Fatalf("expected sequence number")
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("expected event to be delivered")
	}
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe()

	bus.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Fatalf("expected channel to be closed")
	}

	// Publishing after unsubscribe must not panic.
	bus.Publish(Event{Kind: KindDataIsolation, Subject: "guest:g1"})
}

func TestBusSequenceIsMonotonic(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe()
	defer bus.Close()

	for i := 0; i < 3; i++ {
		bus.Publish(Event{Kind: KindCreditsChanged, Subject: "account:a1"})
	}

	var last uint64
	for i := 0; i < 3; i++ {
		evt := <-ch
		if evt.Seq <= last {
			t.Fatalf("sequence not monotonic: %d after %d", evt.Seq, last)
		}
		last = evt.Seq
	}
}

func TestBusSlowSubscriberDoesNotBlock(t *testing.T) {
	bus := NewBus()
	_ = bus.Subscribe() // never drained
	defer bus.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			bus.Publish(Event{Kind: KindCreditsChanged})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("publish blocked on slow subscriber")
	}
}
