package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/bmark/internal/model"
)

// RedisBroker relays events through a redis channel so that every server
// instance delivers them to its own local subscribers.
type RedisBroker struct {
	client  redis.UniversalClient
	channel string
	hub     *Hub
}

func NewRedisBroker(client redis.UniversalClient, channel string, hub *Hub) *RedisBroker {
	return &RedisBroker{client: client, channel: channel, hub: hub}
}

func (b *RedisBroker) Publish(ctx context.Context, evt model.ChangeEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish change event: %w", err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(userID string, kinds []model.EventKind) *Subscription {
	return b.hub.Subscribe(userID, kinds)
}

// Run forwards channel messages into the local hub until ctx is done.
func (b *RedisBroker) Run(ctx context.Context) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer func() { _ = pubsub.Close() }()
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}
	logger := logutil.GetLogger(ctx).With(zap.String("channel", b.channel))
	logger.Info("redis change relay started")
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var evt model.ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				logger.Warn("skip malformed change event", zap.Error(err))
				continue
			}
			_ = b.hub.Publish(ctx, evt)
		}
	}
}
