package board

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/bmark/internal/model"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func errSink() (chan error, StoreOption) {
	ch := make(chan error, 8)
	return ch, WithFetchErrorHook(func(err error) {
		select {
		case ch <- err:
		default:
		}
	})
}

func seededBackend() *fakeBackend {
	return newFakeBackend(
		bm("1", "alice", "A", model.TagDev, 1),
		bm("2", "alice", "B", model.TagDesign, 2),
		bm("3", "bob", "C", model.TagNews, 3),
	)
}

func waitIDs(t *testing.T, s *Store, want ...string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return equalIDs(s.Snapshot().IDs(), want)
	}, waitFor, tick, "want %v, have %v", want, s.Snapshot().IDs())
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func attached(t *testing.T, backend *fakeBackend, opts ...StoreOption) *Store {
	t.Helper()
	s := NewStore(backend, backend, opts...)
	t.Cleanup(s.Close)
	s.Attach(context.Background(), alice)
	waitIDs(t, s, "2", "1")
	require.Eventually(t, func() bool { return backend.subCount() == 1 }, waitFor, tick)
	return s
}

func TestStore_AttachFetchesOwnerRows(t *testing.T) {
	backend := seededBackend()
	s := attached(t, backend)
	require.Equal(t, "alice", s.Owner())
	require.Equal(t, int32(1), backend.lists.Load())
}

func TestStore_AppliesEvents(t *testing.T) {
	backend := seededBackend()
	s := attached(t, backend)
	ctx := context.Background()

	_, err := backend.Insert(ctx, "alice", model.BookmarkFields{Title: "New", URL: "https://new.example"})
	require.NoError(t, err)
	waitIDs(t, s, "n1", "2", "1")

	_, err = backend.Update(ctx, "1", model.BookmarkFields{Title: "A2", URL: "https://a.example", Tag: model.TagTools})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		m := s.Snapshot()
		return m.IndexOf("1") == 2 && m[2].Title == "A2"
	}, waitFor, tick)

	require.NoError(t, backend.Delete(ctx, "2"))
	waitIDs(t, s, "n1", "1")
}

func TestStore_DropsOtherOwnersEvents(t *testing.T) {
	backend := seededBackend()
	s := attached(t, backend)

	backend.sendRaw(model.ChangeEvent{Kind: model.EventInsert, UserID: "bob", Record: bm("x", "bob", "X", "", 9)})
	backend.sendRaw(model.ChangeEvent{Kind: model.EventInsert, UserID: "alice", Record: bm("y", "bob", "Y", "", 9)})
	backend.sendRaw(model.ChangeEvent{Kind: model.EventInsert, UserID: "alice", Record: bm("z", "alice", "Z", "", 9)})
	waitIDs(t, s, "z", "2", "1")
}

func TestStore_FetchErrorKeepsMirror(t *testing.T) {
	backend := seededBackend()
	backend.failList = errBackend
	errs, hook := errSink()
	s := NewStore(backend, backend, hook)
	defer s.Close()

	s.Attach(context.Background(), alice)
	select {
	case err := <-errs:
		require.ErrorIs(t, err, errBackend)
	case <-time.After(waitFor):
		t.Fatal("fetch error not reported")
	}
	s.Sync()
	require.Empty(t, s.Snapshot())
	require.Equal(t, "alice", s.Owner())

	// the subscription still works without the fetch
	require.Eventually(t, func() bool { return backend.subCount() == 1 }, waitFor, tick)
	backend.setFailList(nil)
	_, err := backend.Insert(context.Background(), "alice", model.BookmarkFields{Title: "T", URL: "https://t.example"})
	require.NoError(t, err)
	waitIDs(t, s, "n1")
}

func TestStore_SubscribeErrorReported(t *testing.T) {
	backend := seededBackend()
	backend.failSub = errBackend
	errs, hook := errSink()
	s := NewStore(backend, backend, hook)
	defer s.Close()

	s.Attach(context.Background(), alice)
	waitIDs(t, s, "2", "1")
	select {
	case err := <-errs:
		require.ErrorIs(t, err, errBackend)
	case <-time.After(waitFor):
		t.Fatal("subscribe error not reported")
	}
}

func TestStore_StreamEndReported(t *testing.T) {
	backend := seededBackend()
	errs, hook := errSink()
	s := attached(t, backend, hook)

	backend.endStreams()
	select {
	case err := <-errs:
		require.True(t, errors.Is(err, ErrStreamClosed))
	case <-time.After(waitFor):
		t.Fatal("stream end not reported")
	}
	require.Equal(t, []string{"2", "1"}, s.Snapshot().IDs())
}

func TestStore_DetachDropsLateFetch(t *testing.T) {
	backend := seededBackend()
	backend.listGate = make(chan struct{})
	s := NewStore(backend, backend)
	defer s.Close()

	s.Attach(context.Background(), alice)
	require.Eventually(t, func() bool { return backend.lists.Load() == 1 }, waitFor, tick)
	s.Detach()
	close(backend.listGate)

	require.Never(t, func() bool { return len(s.Snapshot()) > 0 }, 100*time.Millisecond, tick)
	require.Equal(t, "", s.Owner())
	require.Eventually(t, func() bool { return backend.subCount() == 0 }, waitFor, tick)
}

func TestStore_ReattachKeepsOnlyNewOwner(t *testing.T) {
	backend := seededBackend()
	backend.listGate = make(chan struct{})
	s := NewStore(backend, backend)
	defer s.Close()

	s.Attach(context.Background(), alice)
	s.Attach(context.Background(), bob)
	require.Eventually(t, func() bool { return backend.lists.Load() == 2 }, waitFor, tick)
	close(backend.listGate)

	waitIDs(t, s, "3")
	require.Never(t, func() bool { return s.Snapshot().IndexOf("1") >= 0 }, 100*time.Millisecond, tick)
	require.Equal(t, "bob", s.Owner())
	require.Eventually(t, func() bool { return backend.subCount() == 1 }, waitFor, tick)
}

func TestStore_AttachNilDetaches(t *testing.T) {
	backend := seededBackend()
	s := attached(t, backend)
	s.Attach(context.Background(), nil)
	s.Sync()
	require.Empty(t, s.Snapshot())
	require.Equal(t, "", s.Owner())
	require.Eventually(t, func() bool { return backend.subCount() == 0 }, waitFor, tick)
}

func TestStore_RemoveLocalAndRefetch(t *testing.T) {
	backend := seededBackend()
	var changes int
	s := attached(t, backend, WithChangeHook(func(Mirror) { changes++ }))

	s.RemoveLocal("2")
	require.Equal(t, []string{"1"}, s.Snapshot().IDs())
	s.RemoveLocal("missing")
	require.Equal(t, []string{"1"}, s.Snapshot().IDs())

	s.Refetch(context.Background())
	waitIDs(t, s, "2", "1")
	s.Sync()
	require.GreaterOrEqual(t, changes, 4)
}

func TestStore_RefetchWithoutOwnerIsNoop(t *testing.T) {
	backend := seededBackend()
	s := NewStore(backend, backend)
	defer s.Close()
	s.Refetch(context.Background())
	s.Sync()
	require.Equal(t, int32(0), backend.lists.Load())
}

func TestStore_CloseReleasesSubscription(t *testing.T) {
	backend := seededBackend()
	s := NewStore(backend, backend)
	s.Attach(context.Background(), alice)
	require.Eventually(t, func() bool { return backend.subCount() == 1 }, waitFor, tick)
	s.Close()
	require.Eventually(t, func() bool { return backend.subCount() == 0 }, waitFor, tick)

	// calls after close return immediately
	s.RemoveLocal("1")
	s.Sync()
	s.Close()
}

func TestStore_EventKindsOption(t *testing.T) {
	backend := seededBackend()
	s := attached(t, backend, WithEventKinds(model.EventDelete))

	_, err := backend.Insert(context.Background(), "alice", model.BookmarkFields{Title: "New", URL: "https://new.example"})
	require.NoError(t, err)
	require.NoError(t, backend.Delete(context.Background(), "2"))
	waitIDs(t, s, "1")
}
