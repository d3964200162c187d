// bus_test.go
package bus

import (
	"testing"
	"time"
)

func TestBasicPubSub(t *testing.T) {
	b := NewBus(4)
	conn := b.NewConnection("test")

	sub := conn.Subscribe(T("console", "in"))

	conn.Publish(conn.NewMessage(T("console", "in"), "hello", false))

	select {
	case got := <-sub.Channel():
		if got.Payload.(string) != "hello" {
			t.Errorf("expected payload 'hello', got %v", got.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for message")
	}
}

func TestRetainedMessage(t *testing.T) {
	b := NewBus(2)
	conn := b.NewConnection("test")

	conn.Publish(conn.NewMessage(T("node", "state"), "persist", true))

	sub := conn.Subscribe(T("node", "state"))

	select {
	case got := <-sub.Channel():
		if got.Payload.(string) != "persist" {
			t.Errorf("expected retained payload 'persist', got %v", got.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for retained message")
	}
}

func TestRetainedClear(t *testing.T) {
	b := NewBus(2)
	conn := b.NewConnection("test")

	conn.Publish(conn.NewMessage(T("node", "state"), "keep", true))
	conn.Publish(conn.NewMessage(T("node", "state"), nil, true))

	sub := conn.Subscribe(T("node", "state"))
	expectNoMessage(t, sub)
}

func TestWildcard_SingleLevel(t *testing.T) {
	b := NewBus(16)
	c := b.NewConnection("test")

	s1 := c.Subscribe(T("node", Wildcard, "state"))
	sNo := c.Subscribe(T("node", Wildcard, "config"))

	c.Publish(c.NewMessage(T("node", "optx", "state"), "m1", false))

	expectPayload(t, s1, "m1")
	expectNoMessage(t, sNo)

	// Depth mismatch never matches.
	c.Publish(c.NewMessage(T("node", "state"), "m2", false))
	expectNoMessage(t, s1)
}

func TestRetainedThroughWildcard(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("test")

	c.Publish(c.NewMessage(T("config", "node"), "n", true))
	c.Publish(c.NewMessage(T("config", "telemetry"), "t", true))

	sub := c.Subscribe(T("config", Wildcard))
	got := map[any]bool{}
	for i := 0; i < 2; i++ {
		select {
		case m := <-sub.Channel():
			got[m.Payload] = true
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("timeout, got %v", got)
		}
	}
	if !got["n"] || !got["t"] {
		t.Fatalf("missing retained messages: %v", got)
	}
}

func TestQueueOverflowDropsOldest(t *testing.T) {
	b := NewBus(2)
	c := b.NewConnection("test")

	sub := c.Subscribe(T("tele"))
	for i := 0; i < 4; i++ {
		c.Publish(c.NewMessage(T("tele"), i, false))
	}

	// Oldest two were dropped; 2 and 3 remain.
	expectPayload(t, sub, 2)
	expectPayload(t, sub, 3)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("test")

	sub := c.Subscribe(T("console", "out"))
	c.Unsubscribe(sub)

	// Publish after unsubscribe must not panic and must go nowhere.
	c.Publish(c.NewMessage(T("console", "out"), "late", false))

	if _, ok := <-sub.Channel(); ok {
		t.Fatal("expected closed channel after unsubscribe")
	}
}

// -----------------------------------------------------------------------------
// helpers
// -----------------------------------------------------------------------------

func expectPayload(t *testing.T, sub *Subscription, want any) {
	t.Helper()
	select {
	case got := <-sub.Channel():
		if got.Payload != want {
			t.Fatalf("unexpected payload: %v (want %v)", got.Payload, want)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("timeout waiting for %v", want)
	}
}

func expectNoMessage(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case got := <-sub.Channel():
		t.Fatalf("unexpected message: %#v", got)
	case <-time.After(60 * time.Millisecond):
	}
}
