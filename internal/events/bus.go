// Package events provides the live-update bus. The bus is injected at the
// composition root; game mutations publish after their transaction commits
// and delivery is best-effort, so a slow or disconnected subscriber misses
// events rather than blocking anyone.
package events

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ecofest/ecobingo/internal/models"
)

const (
	TopicItemCompleted = "item-completed"
	TopicBingoAchieved = "bingo-achieved"
	TopicGameUpdated   = "game-updated"
)

// Topics lists every topic a live subscriber can receive.
var Topics = []string{TopicItemCompleted, TopicBingoAchieved, TopicGameUpdated}

// Event is one published notification.
type Event struct {
	Topic   string `json:"topic"`
	Payload any    `json:"payload"`
}

// ItemCompletedPayload announces a newly completed board item.
type ItemCompletedPayload struct {
	UserID uuid.UUID            `json:"user_id"`
	Item   models.CompletedItem `json:"item"`
}

// BingoAchievedPayload announces one newly credited pattern.
type BingoAchievedPayload struct {
	UserID  uuid.UUID           `json:"user_id"`
	Pattern models.BingoPattern `json:"pattern"`
}

// GameUpdatedPayload carries the full game state after a mutation.
type GameUpdatedPayload struct {
	UserID uuid.UUID        `json:"user_id"`
	Game   models.BingoGame `json:"game"`
}

// Bus fans events out to live subscribers.
type Bus interface {
	// Publish delivers the event to current subscribers. It never blocks on
	// a slow subscriber and never returns delivery errors to the caller.
	Publish(ctx context.Context, event Event)
	// Subscribe registers a subscriber for all topics. The returned
	// subscription must be closed when the consumer goes away.
	Subscribe(ctx context.Context) (Subscription, error)
	// Close shuts the bus down and closes all subscriptions.
	Close() error
}

// Subscription is one live consumer's view of the bus.
type Subscription interface {
	// C yields events in publish order. The channel is closed when the
	// subscription or the bus closes.
	C() <-chan Event
	Close() error
}

const subscriberBuffer = 64

// MemoryBus is the in-process Bus used for single-node deployments and
// tests.
type MemoryBus struct {
	mu     sync.Mutex
	subs   map[*memorySubscription]struct{}
	closed bool
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[*memorySubscription]struct{})}
}

func (b *MemoryBus) Publish(_ context.Context, event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		select {
		case sub.ch <- event:
		default:
			// Subscriber is not keeping up; drop the event for them.
		}
	}
}

func (b *MemoryBus) Subscribe(_ context.Context) (Subscription, error) {
	sub := &memorySubscription{
		bus: b,
		ch:  make(chan Event, subscriberBuffer),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(sub.ch)
		return sub, nil
	}
	b.subs[sub] = struct{}{}
	return sub, nil
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for sub := range b.subs {
		close(sub.ch)
	}
	b.subs = make(map[*memorySubscription]struct{})
	return nil
}

type memorySubscription struct {
	bus  *MemoryBus
	ch   chan Event
	once sync.Once
}

func (s *memorySubscription) C() <-chan Event {
	return s.ch
}

func (s *memorySubscription) Close() error {
	s.once.Do(func() {
		s.bus.mu.Lock()
		defer s.bus.mu.Unlock()
		if _, ok := s.bus.subs[s]; ok {
			delete(s.bus.subs, s)
			close(s.ch)
		}
	})
	return nil
}
