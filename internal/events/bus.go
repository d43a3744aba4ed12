// Package events provides the in-process publish/subscribe channel used for
// balance updates and identity isolation. Subscribers are statically typed
// channels, replacing string-keyed global events.
package events

import (
	"reflect"
	"sync"
	"sync/atomic"
	"time"
)

// Kind identifies the event family.
type Kind string

const (
	// KindCreditsChanged is published once per successful credit mutation.
	KindCreditsChanged Kind = "credits_changed"
	// KindDataIsolation is broadcast when the active identity changes so
	// subscribers drop identity-scoped caches.
	KindDataIsolation Kind = "data_isolation"
	// KindUnlockCreated is published after a purchase records an unlock.
	KindUnlockCreated Kind = "unlock_created"
)

// Event carries the subject identity key so consumers can discard stale
// payloads whose subject no longer matches the active identity.
type Event struct {
	Seq     uint64
	Kind    Kind
	Subject string // identity key (kind:id)
	Balance int64
	// ForceRefresh tells balance displays to re-read instead of trusting
	// the carried balance.
	ForceRefresh bool
	MediaID      string
	At           time.Time
}

// Bus fans events out to subscriber channels. Sends never block: a
// subscriber that falls behind loses events rather than stalling emitters.
type Bus struct {
	mu     sync.RWMutex
	subs   []chan Event
	seq    atomic.Uint64
	closed bool
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe returns a buffered channel that receives all future events.
func (b *Bus) Subscribe() <-chan Event {
	ch := make(chan Event, 64)
	b.mu.Lock()
	if !b.closed {
		b.subs = append(b.subs, ch)
	} else {
		close(ch)
	}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber channel and closes it.
func (b *Bus) Unsubscribe(ch <-chan Event) {
	if ch == nil {
		return
	}
	target := reflect.ValueOf(ch).Pointer()
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs {
		if reflect.ValueOf(sub).Pointer() == target {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			close(sub)
			return
		}
	}
}

// Publish delivers the event to all current subscribers.
func (b *Bus) Publish(evt Event) {
	evt.Seq = b.seq.Add(1)
	if evt.At.IsZero() {
		evt.At = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, sub := range b.subs {
		select {
		case sub <- evt:
		default:
		}
	}
}

// Close closes all subscriber channels. Publish becomes a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, sub := range b.subs {
		close(sub)
	}
	b.subs = nil
}
