// Package events carries chat state changes from the coordinator to whatever
// surface embeds it. Delivery is non-blocking: a slow consumer loses events
// rather than stalling the transport's receive path.
package events

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind names an event. Kinds are dot-namespaced so consumers can subscribe
// to a prefix ("chat." for everything).
type Kind string

const (
	KindConnected     Kind = "chat.connected"
	KindDisconnected  Kind = "chat.disconnected"
	KindReconnecting  Kind = "chat.reconnecting"
	KindMessage       Kind = "chat.message"
	KindGroupMessage  Kind = "chat.group_message"
	KindConversations Kind = "chat.conversations"
	KindSelection     Kind = "chat.selection"
	KindLoading       Kind = "chat.loading"
)

// Event is one state change.
type Event struct {
	Kind    Kind
	Time    time.Time
	Payload any
}

type subscriber struct {
	prefix string
	ch     chan Event
}

// Feed fans events out to prefix-filtered subscribers.
type Feed struct {
	mu   sync.RWMutex
	subs map[string]*subscriber
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{subs: make(map[string]*subscriber)}
}

// Publish delivers evt to every subscriber whose prefix matches. Subscribers
// with a full buffer are skipped.
func (f *Feed) Publish(evt Event) {
	if evt.Time.IsZero() {
		evt.Time = time.Now()
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, sub := range f.subs {
		if strings.HasPrefix(string(evt.Kind), sub.prefix) {
			select {
			case sub.ch <- evt:
			default:
			}
		}
	}
}

// Subscribe registers for events whose kind starts with prefix. The returned
// cancel func releases the subscription; the channel is never closed.
func (f *Feed) Subscribe(prefix Kind, buf int) (<-chan Event, func()) {
	sub := &subscriber{prefix: string(prefix), ch: make(chan Event, buf)}
	key := uuid.NewString()

	f.mu.Lock()
	f.subs[key] = sub
	f.mu.Unlock()

	return sub.ch, func() {
		f.mu.Lock()
		delete(f.subs, key)
		f.mu.Unlock()
	}
}
