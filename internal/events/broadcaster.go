// Package events provides a typed fan-out publish/subscribe channel used
// to push recovery, log, and config-change notifications to connected
// observers. Delivery is best-effort: no persistence, no acknowledgment,
// no retroactive replay for late subscribers.
package events

import (
	"strings"
	"sync"
	"time"
)

// Type identifies the kind of event carried on the bus.
type Type string

const (
	TypeLog           Type = "log"
	TypeRecovery      Type = "recovery"
	TypeConfigChanged Type = "config_changed"
)

// Event is one published notification.
type Event struct {
	Type      Type      `json:"type"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// RecoveryPayload carries the trigger of an automatic recovery.
type RecoveryPayload struct {
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// Broadcaster fans events out to all current subscribers.
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[chan Event]bool
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs: make(map[chan Event]bool),
	}
}

// Subscribe registers a new observer. The channel is buffered so a slow
// observer cannot block the publisher; events beyond the buffer are
// dropped for that observer only.
func (b *Broadcaster) Subscribe() chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, 100)
	b.subs[ch] = true
	return ch
}

// Unsubscribe removes an observer and closes its channel.
func (b *Broadcaster) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[ch] {
		delete(b.subs, ch)
		close(ch)
	}
}

// Publish delivers the event to every current subscriber. Observers that
// subscribe later receive nothing retroactively.
func (b *Broadcaster) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subs {
		select {
		case ch <- event:
		default:
			// Buffer full, skip this observer to avoid blocking.
		}
	}
}

// SubscriberCount reports how many observers are currently connected.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// LogWriter is an io.Writer that publishes each write as a log event.
// Plugged into the slog handler via io.MultiWriter so daemon logs reach
// connected observers as well as stderr.
type LogWriter struct {
	Broadcaster *Broadcaster
}

func (w *LogWriter) Write(p []byte) (int, error) {
	w.Broadcaster.Publish(Event{
		Type:    TypeLog,
		Payload: strings.TrimRight(string(p), "\n"),
	})
	return len(p), nil
}
