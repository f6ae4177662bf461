// Package realtime provides the in-process publish/subscribe fabric that fans
// chat messages out to connected websocket clients.
//
// The broker is deliberately simple: one topic per chat thread, bounded
// per-subscriber buffers, and drop-on-full delivery. Persistence is the source
// of truth; a dropped frame is recovered by the client re-fetching the message
// history. Events are only published after the owning database transaction has
// committed, so subscribers never observe a message that later rolled back.
package realtime

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// subscriberBuffer is the per-connection channel depth. A websocket writer
// that falls further behind than this starts losing frames.
const subscriberBuffer = 32

// Event is a single fan-out payload on a topic. Payload is already
// JSON-serializable; the broker never inspects it.
type Event struct {
	Topic   string `json:"topic"`
	Kind    string `json:"kind"`
	Payload any    `json:"payload"`
}

// Subscription is a live registration on a topic. Receive from C; call the
// broker's Unsubscribe when done.
type Subscription struct {
	// C delivers events for the subscribed topic.
	C <-chan Event

	topic string
	ch    chan Event
}

// Broker routes events from publishers to topic subscribers.
type Broker struct {
	mu     sync.RWMutex
	topics map[string]map[*Subscription]struct{}
	closed bool
}

// NewBroker constructs an empty broker.
func NewBroker() *Broker {
	return &Broker{topics: make(map[string]map[*Subscription]struct{})}
}

// Subscribe registers a new subscriber on topic. The returned subscription's
// channel is buffered; the caller must drain it promptly or accept drops.
func (b *Broker) Subscribe(topic string) *Subscription {
	ch := make(chan Event, subscriberBuffer)
	sub := &Subscription{C: ch, topic: topic, ch: ch}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return sub
	}
	set, ok := b.topics[topic]
	if !ok {
		set = make(map[*Subscription]struct{})
		b.topics[topic] = set
	}
	set[sub] = struct{}{}
	return sub
}

// Unsubscribe removes sub and closes its channel. Safe to call more than once.
func (b *Broker) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := b.topics[sub.topic]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(b.topics, sub.topic)
	}
	close(sub.ch)
}

// Publish delivers ev to every current subscriber of its topic without
// blocking. Slow subscribers are skipped, not waited on.
func (b *Broker) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for sub := range b.topics[ev.Topic] {
		select {
		case sub.ch <- ev:
		default:
			log.Warn().
				Str("topic", ev.Topic).
				Str("kind", ev.Kind).
				Msg("realtime: subscriber buffer full, frame dropped")
		}
	}
}

// SubscriberCount reports the live subscribers on topic.
func (b *Broker) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

// Close tears down every subscription. Subsequent publishes are no-ops and
// subsequent subscribes get an already-closed channel.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for topic, set := range b.topics {
		for sub := range set {
			close(sub.ch)
		}
		delete(b.topics, topic)
	}
}
