package notify

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/bmark/internal/model"
)

func TestRedisBroker_RelaysToLocalHub(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set, skipping redis test")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer func() { _ = client.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(4)
	broker := NewRedisBroker(client, "bmark:test:"+time.Now().Format("150405.000"), hub)
	go func() { _ = broker.Run(ctx) }()

	sub := broker.Subscribe("u1", nil)
	defer sub.Close()

	evt := NewEvent(model.EventUpdate, model.Bookmark{ID: "b1", UserID: "u1", Title: "T"})
	require.Eventually(t, func() bool {
		require.NoError(t, broker.Publish(ctx, evt))
		select {
		case got := <-sub.Events():
			return got.ID == evt.ID && got.Record.Title == "T"
		case <-time.After(100 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 50*time.Millisecond)
}
