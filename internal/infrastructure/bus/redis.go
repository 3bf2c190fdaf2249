// Package bus carries cache-invalidation topics between API processes over
// a single Redis pub/sub channel. Delivery is best-effort: no payload
// beyond the topic token, no ordering, no acknowledgment.
package bus

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/azisaba/azisaba-commander-api/internal/api/metrics"
	"github.com/azisaba/azisaba-commander-api/internal/core/ports"
)

// channel is shared by every process of the fleet API.
const channel = "azisaba-commander-api"

// Redis is the production InvalidationBus.
type Redis struct {
	client *redis.Client
	log    zerolog.Logger
}

var _ ports.InvalidationBus = (*Redis)(nil)

func NewRedis(client *redis.Client, log zerolog.Logger) *Redis {
	return &Redis{client: client, log: log}
}

// Publish sends the topic to every subscribed process. Failures are logged
// and returned but callers must treat them as advisory: the mutation that
// triggered the publish has already committed.
func (b *Redis) Publish(ctx context.Context, topic ports.Topic) error {
	if err := b.client.Publish(ctx, channel, string(topic)).Err(); err != nil {
		metrics.BusMessagesTotal.WithLabelValues(string(topic), "publish_error").Inc()
		b.log.Warn().Err(err).Str("topic", string(topic)).Msg("invalidation publish failed")
		return err
	}
	metrics.BusMessagesTotal.WithLabelValues(string(topic), "published").Inc()
	return nil
}

// Subscribe blocks delivering topics to handle until ctx is cancelled.
// Unknown tokens on the channel are dropped.
func (b *Redis) Subscribe(ctx context.Context, handle func(ports.Topic)) {
	sub := b.client.Subscribe(ctx, channel)
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
			topic, known := ports.ParseTopic(msg.Payload)
			if !known {
				b.log.Warn().Str("payload", msg.Payload).Msg("unknown invalidation token dropped")
				continue
			}
			metrics.BusMessagesTotal.WithLabelValues(string(topic), "received").Inc()
			handle(topic)
		}
	}
}

// Noop replaces the bus when Redis is unconfigured. The system degrades to
// coherence-by-polling: peers converge within one refresh interval.
type Noop struct{}

var _ ports.InvalidationBus = Noop{}

func (Noop) Publish(context.Context, ports.Topic) error     { return nil }
func (Noop) Subscribe(context.Context, func(ports.Topic)) {}
