// Package events broadcasts realm invalidation and render notifications.
// The uploader publishes invalidations, the feed service consumes them and
// publishes a rendered event per emitted result, and the SSE endpoint
// forwards both to browsers.
package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/koustreak/realms/internal/metrics"
)

const (
	// TypeInvalidated means a realm's content changed and its feed is stale.
	TypeInvalidated = "invalidated"

	// TypeRendered means a fresh feed result was emitted for a realm.
	TypeRendered = "rendered"
)

const subscriberBuffer = 64

// Event is one notification about a realm.
type Event struct {
	Type       string `json:"type"`
	Realm      string `json:"realm"`
	Name       string `json:"name,omitempty"`
	Generation uint64 `json:"generation,omitempty"`
	Items      int    `json:"items,omitempty"`
	Timestamp  int64  `json:"timestamp"`
}

// Publisher is the write side of a Broadcaster.
type Publisher interface {
	Publish(Event)
}

// Broadcaster manages subscribers and publishes events to them.
//
// Subscribers are SSE clients: they are counted in the connection gauge
// and lose events when they fall behind. Listeners are in-process
// consumers such as the feed watcher: they are not counted and receive
// every event published while they are registered.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[chan Event]struct{}
	listeners   map[chan Event]*listener
}

// NewBroadcaster creates a new event broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[chan Event]struct{}),
		listeners:   make(map[chan Event]*listener),
	}
}

// listener queues events without bound and feeds them to out in order.
type listener struct {
	out  chan Event
	wake chan struct{}
	done chan struct{}

	mu    sync.Mutex
	queue []Event
}

func (l *listener) push(e Event) {
	l.mu.Lock()
	l.queue = append(l.queue, e)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *listener) run() {
	defer close(l.out)
	for {
		select {
		case <-l.done:
			return
		case <-l.wake:
		}
		l.mu.Lock()
		pending := l.queue
		l.queue = nil
		l.mu.Unlock()
		for _, e := range pending {
			select {
			case l.out <- e:
			case <-l.done:
				return
			}
		}
	}
}

// Listen registers an in-process listener and returns its event channel.
// Listeners are not SSE connections and never miss an event. The caller
// must call Unlisten when done.
func (b *Broadcaster) Listen() chan Event {
	l := &listener{
		out:  make(chan Event),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	b.mu.Lock()
	b.listeners[l.out] = l
	b.mu.Unlock()
	go l.run()
	return l.out
}

// Unlisten removes a listener. Its channel is closed once undelivered
// events are discarded.
func (b *Broadcaster) Unlisten(ch chan Event) {
	b.mu.Lock()
	l, ok := b.listeners[ch]
	delete(b.listeners, ch)
	b.mu.Unlock()
	if ok {
		close(l.done)
	}
}

// Subscribe adds a new subscriber and returns its event channel.
// The caller must call Unsubscribe when done.
func (b *Broadcaster) Subscribe() chan Event {
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	n := len(b.subscribers)
	b.mu.Unlock()
	metrics.SetSSEConnectionsActive(n)
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broadcaster) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	if _, ok := b.subscribers[ch]; ok {
		delete(b.subscribers, ch)
		close(ch)
	}
	n := len(b.subscribers)
	b.mu.Unlock()
	metrics.SetSSEConnectionsActive(n)
}

// Publish sends an event to all subscribers and listeners. Non-blocking:
// drops events for slow subscribers.
func (b *Broadcaster) Publish(event Event) {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
	for _, l := range b.listeners {
		l.push(event)
	}
	metrics.RecordSSEEvent(event.Type)
}

// Count returns the current number of subscribers. Listeners are not
// counted.
func (b *Broadcaster) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// MarshalEvent serializes an event to JSON.
func MarshalEvent(e Event) ([]byte, error) {
	return json.Marshal(e)
}
