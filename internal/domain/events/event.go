// Package events carries cart and favorites change notifications between
// the stores that mutate state and the observers that re-read it.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Type identifies what changed
type Type string

const (
	CartChanged      Type = "cart.changed"
	FavoritesChanged Type = "favorites.changed"
)

// Event is a fire-and-forget change notification for one user.
// It carries no state; observers re-read counts from the store.
type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	UserID     string    `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Origin     string    `json:"origin,omitempty"`
}

// New creates an event stamped with a fresh id and the current time
func New(t Type, userID string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher emits change events. Publish never fails the caller.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// Handler observes events. Handlers run on the publisher's goroutine and must not block.
type Handler func(ctx context.Context, event Event)

// Sink receives every locally published event, e.g. to forward it to other processes
type Sink interface {
	Forward(ctx context.Context, event Event)
}

// Nop discards events
type Nop struct{}

// Publish implements Publisher
func (Nop) Publish(context.Context, Event) {}
