package bus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("post.", 10)
	defer unsub()

	b.Emit(KindPostPublished, "payload")

	select {
	case evt := <-ch:
		if evt.Kind != KindPostPublished {
			t.Errorf("got kind %q, want %s", evt.Kind, KindPostPublished)
		}
		if evt.Timestamp.IsZero() {
			t.Error("timestamp not set")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestPrefixFiltering(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("job.", 10)
	defer unsub()

	b.Publish(Event{Kind: KindPostScheduled})
	b.Publish(Event{Kind: KindJobFired})

	select {
	case evt := <-ch:
		if evt.Kind != KindJobFired {
			t.Errorf("got kind %q, want %s", evt.Kind, KindJobFired)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	select {
	case evt := <-ch:
		t.Errorf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("post.", 10)
	unsub()

	b.Emit(KindPostDeleted, nil)

	select {
	case evt := <-ch:
		t.Errorf("received event after unsubscribe: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDropOnFullBuffer(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("post.", 1)
	defer unsub()

	b.Emit(KindPostEdited, 1)
	b.Emit(KindPostEdited, 2)

	evt := <-ch
	if evt.Payload != 1 {
		t.Errorf("got payload %v, want 1", evt.Payload)
	}
	if b.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", b.Dropped())
	}
}

func TestEmitOnNilBus(t *testing.T) {
	var b *Bus
	b.Emit(KindPostFailed, nil)
}
