package events

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

type subscription struct {
	userID  string
	handler Handler
}

// Bus is an in-process publish/subscribe hub
type Bus struct {
	mu     sync.RWMutex
	subs   map[uint64]subscription
	nextID uint64
	sinks  []Sink
	logger *logrus.Logger
}

// NewBus creates a new in-memory event bus
func NewBus(logger *logrus.Logger) *Bus {
	return &Bus{
		subs:   make(map[uint64]subscription),
		logger: logger,
	}
}

// Subscribe registers handler for events of userID, or for every user when
// userID is empty. The returned function removes the subscription.
func (b *Bus) Subscribe(userID string, handler Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[id] = subscription{userID: userID, handler: handler}
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// AddSink attaches a forwarder that sees every locally published event
func (b *Bus) AddSink(sink Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, sink)
}

// Publish delivers event to local subscribers and hands it to every sink
func (b *Bus) Publish(ctx context.Context, event Event) {
	b.Deliver(ctx, event)

	b.mu.RLock()
	sinks := make([]Sink, len(b.sinks))
	copy(sinks, b.sinks)
	b.mu.RUnlock()

	for _, sink := range sinks {
		sink.Forward(ctx, event)
	}
}

// Deliver dispatches event to local subscribers only. Relays use it for
// events that arrived from other instances.
func (b *Bus) Deliver(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.userID == "" || sub.userID == event.UserID {
			handlers = append(handlers, sub.handler)
		}
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.dispatch(ctx, h, event)
	}
}

// SubscriberCount returns the number of live subscriptions
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Bus) dispatch(ctx context.Context, h Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.WithFields(logrus.Fields{
				"event_type": event.Type,
				"event_id":   event.ID,
				"user_id":    event.UserID,
				"panic":      r,
			}).Error("Event handler panicked")
		}
	}()

	h(ctx, event)
}

var _ Publisher = (*Bus)(nil)
