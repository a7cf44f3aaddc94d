package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"donor-crm/internal/domain"

	"github.com/redis/go-redis/v9"
)

const RunEventsChannel = "journey:runs:events"

const (
	minReceiveBackoff = 100 * time.Millisecond
	maxReceiveBackoff = 5 * time.Second
)

type RedisEventBus struct {
	client  *redis.Client
	channel string
}

func NewRedisEventBus(client *redis.Client) *RedisEventBus {
	return &RedisEventBus{
		client:  client,
		channel: RunEventsChannel,
	}
}

// PublishRunEvent broadcasts the event to the network
func (b *RedisEventBus) PublishRunEvent(ctx context.Context, event domain.RunEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return b.client.Publish(ctx, b.channel, payload).Err()
}

// SubscribeRunEvents opens a continuous stream of run transitions.
// The channel closes when ctx is done.
func (b *RedisEventBus) SubscribeRunEvents(ctx context.Context) (<-chan domain.RunEvent, error) {
	pubsub := b.client.Subscribe(ctx, b.channel)
	// wait for the subscription to be confirmed
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	msgChan := make(chan domain.RunEvent)

	go func() {
		defer close(msgChan)
		defer pubsub.Close()
		backoff := minReceiveBackoff
		for {
			msg, err := pubsub.ReceiveMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, redis.ErrClosed) {
					return
				}
				// redis unreachable: wait before reconnecting
				select {
				case <-time.After(backoff):
				case <-ctx.Done():
					return
				}
				backoff = nextReceiveBackoff(backoff)
				continue
			}
			backoff = minReceiveBackoff
			var event domain.RunEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue
			}
			select {
			case msgChan <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	return msgChan, nil
}

func nextReceiveBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > maxReceiveBackoff {
		return maxReceiveBackoff
	}
	return d
}

// NoopEventBus drops events when Redis is not configured
type NoopEventBus struct{}

func (NoopEventBus) PublishRunEvent(context.Context, domain.RunEvent) error {
	return nil
}
