// Package events is an in-process change bus. Publishing never blocks: a
// subscriber whose queue is full misses the event.
package events

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Types of change published on the bus.
const (
	ItemCreated     = "item.created"
	ItemUpdated     = "item.updated"
	ItemDeleted     = "item.deleted"
	LocationCreated = "location.created"
	LocationUpdated = "location.updated"
	LocationDeleted = "location.deleted"
	CategoryChanged = "category.changed"
	StockChanged    = "stock.changed"
)

// Event describes one committed change.
type Event struct {
	Type   string    `json:"type"`
	ID     int64     `json:"id"`
	At     time.Time `json:"at"`
	Source string    `json:"source,omitempty"`
	Data   any       `json:"data,omitempty"`
}

// Bus fans events out to subscribers.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]*subscriber
	nextID int
	closed bool

	dropped atomic.Uint64

	// OnDrop, when set before the first Publish, is called for every
	// skipped delivery.
	OnDrop func()
}

type subscriber struct {
	name string
	ch   chan Event
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]*subscriber)}
}

// Subscribe registers a subscriber with a queue of the given size. The
// returned cancel function unregisters it and closes the channel.
func (b *Bus) Subscribe(name string, size int) (<-chan Event, func()) {
	if size <= 0 {
		size = 1
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, size)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = &subscriber{name: name, ch: ch}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if s, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(s.ch)
			}
		})
	}
}

// Publish delivers e to every subscriber that has room for it.
func (b *Bus) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, s := range b.subs {
		select {
		case s.ch <- e:
		default:
			b.dropped.Add(1)
			if b.OnDrop != nil {
				b.OnDrop()
			}
			slog.Warn("event dropped, subscriber queue full", "subscriber", s.name, "type", e.Type, "id", e.ID)
		}
	}
}

// Dropped returns how many deliveries were skipped because a queue was full.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Close closes every subscriber channel. Later publishes are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, s := range b.subs {
		delete(b.subs, id)
		close(s.ch)
	}
}
