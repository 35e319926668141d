package events

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	f := NewFeed()
	ch, cancel := f.Subscribe("chat.", 8)
	defer cancel()

	f.Publish(Event{Kind: KindMessage, Payload: "hello"})

	select {
	case evt := <-ch:
		if evt.Kind != KindMessage {
			t.Errorf("kind = %q, want %q", evt.Kind, KindMessage)
		}
		if evt.Time.IsZero() {
			t.Error("publish should stamp the event time")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestPrefixFiltering(t *testing.T) {
	f := NewFeed()
	ch, cancel := f.Subscribe(KindConversations, 8)
	defer cancel()

	f.Publish(Event{Kind: KindMessage})
	f.Publish(Event{Kind: KindConversations})

	select {
	case evt := <-ch:
		if evt.Kind != KindConversations {
			t.Errorf("kind = %q, want %q", evt.Kind, KindConversations)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
	select {
	case evt := <-ch:
		t.Errorf("unexpected extra event %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	f := NewFeed()
	ch, cancel := f.Subscribe("chat.", 8)
	cancel()

	f.Publish(Event{Kind: KindMessage})

	select {
	case evt := <-ch:
		t.Errorf("received after cancel: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestFullBufferDoesNotBlock(t *testing.T) {
	f := NewFeed()
	ch, cancel := f.Subscribe("chat.", 1)
	defer cancel()

	done := make(chan struct{})
	go func() {
		f.Publish(Event{Kind: KindMessage})
		f.Publish(Event{Kind: KindMessage})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on full subscriber")
	}
	<-ch
}
