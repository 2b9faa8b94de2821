package messaging

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/events"
)

// RedisRelay fans change events out to every API instance through a Redis
// channel. Local events are published with this instance's origin id;
// events from other origins are delivered to the local bus.
type RedisRelay struct {
	client  *redis.Client
	channel string
	origin  string
	bus     *events.Bus
	logger  *logrus.Logger
}

// NewRedisRelay creates a relay between bus and channel
func NewRedisRelay(client *redis.Client, channel string, bus *events.Bus, logger *logrus.Logger) *RedisRelay {
	return &RedisRelay{
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		bus:     bus,
		logger:  logger,
	}
}

// Forward implements events.Sink
func (r *RedisRelay) Forward(ctx context.Context, event events.Event) {
	event.Origin = r.origin
	payload, err := json.Marshal(event)
	if err != nil {
		r.logger.WithError(err).WithField("event_id", event.ID).Error("Failed to encode event")
		return
	}

	if err := r.client.Publish(context.WithoutCancel(ctx), r.channel, payload).Err(); err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"event_id": event.ID,
			"channel":  r.channel,
		}).Warn("Failed to relay event to redis")
	}
}

// Start subscribes to the channel and delivers remote events until ctx is done
func (r *RedisRelay) Start(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				r.handleMessage(ctx, msg.Payload)
			}
		}
	}()

	r.logger.WithField("channel", r.channel).Info("Redis event relay started")
	return nil
}

func (r *RedisRelay) handleMessage(ctx context.Context, payload string) {
	var event events.Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		r.logger.WithError(err).Warn("Dropping malformed relayed event")
		return
	}
	if event.Origin == r.origin {
		return
	}
	r.bus.Deliver(ctx, event)
}

var _ events.Sink = (*RedisRelay)(nil)
