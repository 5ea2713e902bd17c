// Package event provides a pub/sub bus for engine lifecycle events using
// watermill. The bus is created by the startup factory and injected into
// the components that publish or consume; there is no process-wide
// default instance.
package event

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Type identifies a kind of lifecycle event.
type Type string

const (
	SessionCreated  Type = "session.created"
	SessionMigrated Type = "session.migrated"
	StateFlushed    Type = "state.flushed"
	TurnCompleted   Type = "turn.completed"
	MemoryPromoted  Type = "memory.promoted"
)

// Event is a published lifecycle event.
type Event struct {
	Type Type `json:"type"`
	Data any  `json:"data"`
}

// Subscriber receives published events.
type Subscriber func(event Event)

type subscriberEntry struct {
	id uint64
	fn Subscriber
}

// Bus fans events out to subscribers. Async publishes ride a watermill
// gochannel, one topic per event type, so delivery is FIFO per type and
// a slow consumer never blocks the publishing turn. Payloads stay in
// process keyed by message UUID, so subscribers receive the original Go
// values, not a serialized copy.
type Bus struct {
	mu sync.RWMutex

	pubsub      *gochannel.GoChannel
	subscribers map[Type][]subscriberEntry
	global      []subscriberEntry
	topics      map[Type]bool
	pending     sync.Map

	ctx    context.Context
	cancel context.CancelFunc
	nextID uint64
	closed bool
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	ctx, cancel := context.WithCancel(context.Background())
	return &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 64},
			watermill.NopLogger{},
		),
		subscribers: make(map[Type][]subscriberEntry),
		topics:      make(map[Type]bool),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Subscribe registers a subscriber for one event type and returns an
// unsubscribe function.
func (b *Bus) Subscribe(t Type, fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}
	}

	id := atomic.AddUint64(&b.nextID, 1)
	b.subscribers[t] = append(b.subscribers[t], subscriberEntry{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subscribers[t]
		for i, entry := range subs {
			if entry.id == id {
				b.subscribers[t] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}
}

// SubscribeAll registers a subscriber for every event type and returns
// an unsubscribe function.
func (b *Bus) SubscribeAll(fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}
	}

	id := atomic.AddUint64(&b.nextID, 1)
	b.global = append(b.global, subscriberEntry{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, entry := range b.global {
			if entry.id == id {
				b.global = append(b.global[:i], b.global[i+1:]...)
				break
			}
		}
	}
}

// Publish enqueues the event for asynchronous delivery.
func (b *Bus) Publish(event Event) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.ensureTopic(event.Type)
	b.mu.Unlock()

	msg := message.NewMessage(watermill.NewUUID(), nil)
	b.pending.Store(msg.UUID, event)
	if err := b.pubsub.Publish(string(event.Type), msg); err != nil {
		b.pending.Delete(msg.UUID)
	}
}

// PublishSync delivers the event to all subscribers in the calling
// goroutine before returning. Used by tests and shutdown paths.
func (b *Bus) PublishSync(event Event) {
	b.dispatch(event)
}

// ensureTopic starts the dispatch loop for an event type on first use.
// Caller holds b.mu.
func (b *Bus) ensureTopic(t Type) {
	if b.topics[t] {
		return
	}
	b.topics[t] = true

	ch, err := b.pubsub.Subscribe(b.ctx, string(t))
	if err != nil {
		return
	}
	go func() {
		for msg := range ch {
			if v, ok := b.pending.LoadAndDelete(msg.UUID); ok {
				b.dispatch(v.(Event))
			}
			msg.Ack()
		}
	}()
}

func (b *Bus) dispatch(event Event) {
	for _, sub := range b.collect(event.Type) {
		sub(event)
	}
}

func (b *Bus) collect(t Type) []Subscriber {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil
	}
	subs := make([]Subscriber, 0, len(b.subscribers[t])+len(b.global))
	for _, entry := range b.subscribers[t] {
		subs = append(subs, entry.fn)
	}
	for _, entry := range b.global {
		subs = append(subs, entry.fn)
	}
	return subs
}

// Close shuts the bus down; further publishes are dropped.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.subscribers = make(map[Type][]subscriberEntry)
	b.global = nil
	b.mu.Unlock()

	b.cancel()
	return b.pubsub.Close()
}
