package bus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(10, "realtime.")
	defer unsub()

	b.Publish(Event{Kind: KindMessageInsert, Payload: "test"})

	select {
	case evt := <-ch:
		if evt.Kind != KindMessageInsert {
			t.Errorf("got kind %q, want %s", evt.Kind, KindMessageInsert)
		}
		if evt.Timestamp.IsZero() {
			t.Error("timestamp not stamped on publish")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestNamespaceFiltering(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(10, "realtime.status.")
	defer unsub()

	b.Publish(Event{Kind: KindMessageInsert})
	b.Publish(Event{Kind: KindStatusInsert})

	select {
	case evt := <-ch:
		if evt.Kind != KindStatusInsert {
			t.Errorf("got kind %q, want %s", evt.Kind, KindStatusInsert)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	// The message insert must not have been delivered.
	select {
	case evt := <-ch:
		t.Errorf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMultipleNamespaces(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(10, "auth.", "state.")
	defer unsub()

	b.Publish(Event{Kind: KindAuthSignedIn})
	b.Publish(Event{Kind: KindMessageUpdate})
	b.Publish(Event{Kind: KindStateChanged})

	var got []string
	for i := 0; i < 2; i++ {
		select {
		case evt := <-ch:
			got = append(got, evt.Kind)
		case <-time.After(time.Second):
			t.Fatalf("timeout, got %v", got)
		}
	}
	if got[0] != KindAuthSignedIn || got[1] != KindStateChanged {
		t.Errorf("got %v, want [%s %s]", got, KindAuthSignedIn, KindStateChanged)
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(10, "realtime.")
	unsub()
	unsub() // second call is a no-op

	if n := b.Subscribers(); n != 0 {
		t.Errorf("subscribers = %d, want 0", n)
	}

	b.Publish(Event{Kind: KindMessageInsert})

	select {
	case evt := <-ch:
		t.Errorf("received event after unsubscribe: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDropOnFullBuffer(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(1, "test.")
	defer unsub()

	b.Publish(Event{Kind: "test.one"})
	// Buffer is full, so this one is dropped.
	b.Publish(Event{Kind: "test.two"})

	evt := <-ch
	if evt.Kind != "test.one" {
		t.Errorf("got %q, want test.one", evt.Kind)
	}
	select {
	case evt := <-ch:
		t.Errorf("unexpected event %q", evt.Kind)
	default:
	}
}
