package events

import (
	"testing"
	"time"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	b := NewBroadcaster()
	a := b.Subscribe()
	c := b.Subscribe()

	b.Publish(Event{Type: TypeRecovery, Payload: RecoveryPayload{Reason: "Process not running"}})

	for _, ch := range []chan Event{a, c} {
		select {
		case ev := <-ch:
			if ev.Type != TypeRecovery {
				t.Errorf("expected recovery event, got %q", ev.Type)
			}
			if ev.Timestamp.IsZero() {
				t.Error("expected timestamp to be set")
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestLateSubscriberReceivesNothing(t *testing.T) {
	b := NewBroadcaster()
	b.Publish(Event{Type: TypeLog, Payload: "early"})

	ch := b.Subscribe()
	select {
	case ev := <-ch:
		t.Fatalf("late subscriber received %v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroadcaster()
	ch := b.Subscribe()
	b.Unsubscribe(ch)

	if _, ok := <-ch; ok {
		t.Error("expected closed channel")
	}
	if n := b.SubscriberCount(); n != 0 {
		t.Errorf("expected 0 subscribers, got %d", n)
	}

	// Publishing after unsubscribe must not panic.
	b.Publish(Event{Type: TypeLog, Payload: "after"})
}

func TestFullBufferDoesNotBlockPublisher(t *testing.T) {
	b := NewBroadcaster()
	ch := b.Subscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 500; i++ {
			b.Publish(Event{Type: TypeLog, Payload: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on slow subscriber")
	}
	b.Unsubscribe(ch)
}

func TestLogWriterPublishesTrimmedLines(t *testing.T) {
	b := NewBroadcaster()
	ch := b.Subscribe()

	w := &LogWriter{Broadcaster: b}
	n, err := w.Write([]byte("hello world\n"))
	if err != nil || n != len("hello world\n") {
		t.Fatalf("unexpected write result: %d, %v", n, err)
	}

	select {
	case ev := <-ch:
		if ev.Type != TypeLog {
			t.Errorf("expected log event, got %q", ev.Type)
		}
		if ev.Payload != "hello world" {
			t.Errorf("expected trimmed line, got %v", ev.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}
