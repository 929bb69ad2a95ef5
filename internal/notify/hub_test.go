package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/bmark/internal/model"
)

func TestHub_DeliversToOwnerOnly(t *testing.T) {
	hub := NewHub(4)
	mine := hub.Subscribe("u1", nil)
	theirs := hub.Subscribe("u2", nil)
	defer mine.Close()
	defer theirs.Close()

	evt := NewEvent(model.EventInsert, model.Bookmark{ID: "b1", UserID: "u1"})
	require.NoError(t, hub.Publish(context.Background(), evt))

	got := <-mine.Events()
	require.Equal(t, evt.ID, got.ID)
	require.Equal(t, "u1", got.UserID)
	require.Len(t, theirs.Events(), 0)
}

func TestHub_FiltersKinds(t *testing.T) {
	hub := NewHub(4)
	sub := hub.Subscribe("u1", []model.EventKind{model.EventDelete})
	defer sub.Close()

	ctx := context.Background()
	require.NoError(t, hub.Publish(ctx, NewEvent(model.EventInsert, model.Bookmark{ID: "b1", UserID: "u1"})))
	require.NoError(t, hub.Publish(ctx, NewEvent(model.EventDelete, model.Bookmark{ID: "b1", UserID: "u1"})))

	got := <-sub.Events()
	require.Equal(t, model.EventDelete, got.Kind)
	require.Len(t, sub.Events(), 0)
}

func TestHub_SlowSubscriberDrops(t *testing.T) {
	hub := NewHub(1)
	sub := hub.Subscribe("u1", nil)
	defer sub.Close()

	ctx := context.Background()
	first := NewEvent(model.EventInsert, model.Bookmark{ID: "b1", UserID: "u1"})
	require.NoError(t, hub.Publish(ctx, first))
	require.NoError(t, hub.Publish(ctx, NewEvent(model.EventInsert, model.Bookmark{ID: "b2", UserID: "u1"})))

	got := <-sub.Events()
	require.Equal(t, first.ID, got.ID)
	require.Len(t, sub.Events(), 0)
}

func TestHub_CloseReleases(t *testing.T) {
	hub := NewHub(1)
	sub := hub.Subscribe("u1", nil)
	require.Equal(t, 1, hub.SubscriberCount("u1"))
	sub.Close()
	sub.Close()
	require.Equal(t, 0, hub.SubscriberCount("u1"))
	_, ok := <-sub.Events()
	require.False(t, ok)

	other := hub.Subscribe("u2", nil)
	hub.Close()
	_, ok = <-other.Events()
	require.False(t, ok)
	other.Close()
}

func TestNewEvent_MonotonicIDs(t *testing.T) {
	a := NewEvent(model.EventInsert, model.Bookmark{UserID: "u1"})
	b := NewEvent(model.EventInsert, model.Bookmark{UserID: "u1"})
	require.Less(t, a.ID, b.ID)
	require.Equal(t, "u1", a.UserID)
}
