package events

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/ecofest/ecobingo/internal/logging"
)

const redisChannelPrefix = "events:"

// RedisBus implements Bus on Redis Pub/Sub so several server instances see
// each other's game events. Delivery inherits Redis Pub/Sub semantics: no
// replay, no queueing for disconnected subscribers.
type RedisBus struct {
	client *redis.Client
}

func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{client: client}
}

func (b *RedisBus) Publish(ctx context.Context, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		logging.Error("Failed to marshal event", map[string]interface{}{
			"topic": event.Topic,
			"error": err.Error(),
		})
		return
	}
	if err := b.client.Publish(ctx, redisChannelPrefix+event.Topic, data).Err(); err != nil {
		logging.Error("Failed to publish event", map[string]interface{}{
			"topic": event.Topic,
			"error": err.Error(),
		})
	}
}

func (b *RedisBus) Subscribe(ctx context.Context) (Subscription, error) {
	channels := make([]string, len(Topics))
	for i, topic := range Topics {
		channels[i] = redisChannelPrefix + topic
	}

	pubsub := b.client.Subscribe(ctx, channels...)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	sub := &redisSubscription{
		pubsub: pubsub,
		ch:     make(chan Event, subscriberBuffer),
	}
	go sub.forward()
	return sub, nil
}

func (b *RedisBus) Close() error {
	return nil
}

type redisSubscription struct {
	pubsub *redis.PubSub
	ch     chan Event
	once   sync.Once
}

func (s *redisSubscription) forward() {
	defer close(s.ch)
	for msg := range s.pubsub.Channel() {
		var event Event
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			logging.Warn("Dropping malformed event", map[string]interface{}{
				"channel": msg.Channel,
				"error":   err.Error(),
			})
			continue
		}
		select {
		case s.ch <- event:
		default:
			// Slow consumer; drop rather than stall the pubsub reader.
		}
	}
}

func (s *redisSubscription) C() <-chan Event {
	return s.ch
}

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		err = s.pubsub.Close()
	})
	return err
}
