package board

import (
	"context"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/bmark/internal/model"
)

// Snapshot is everything the presentation layer renders.
type Snapshot struct {
	Identity *model.Identity
	Resolved bool
	Criteria Criteria
	View     []model.Bookmark
	Filters  []string
	Total    int
}

// Board wires the session to the store, keeps the view criteria and
// pushes a fresh Snapshot to subscribers after every change.
type Board struct {
	session *Session
	store   *Store
	coord   *Coordinator

	mu       sync.Mutex
	criteria Criteria
	mirror   Mirror
	ownerID  string
	ctx      context.Context
	subs     map[int]chan Snapshot
	nextSub  int
	closed   bool

	notices chan Notice
}

func New(auth AuthService, storage Storage, feed ChangeFeed, opts ...StoreOption) *Board {
	b := &Board{
		criteria: DefaultCriteria(),
		subs:     make(map[int]chan Snapshot),
		notices:  make(chan Notice, 16),
	}
	b.session = NewSession(auth)
	storeOpts := append([]StoreOption{
		WithChangeHook(b.onMirror),
		WithFetchErrorHook(b.onFetchError),
	}, opts...)
	b.store = NewStore(storage, feed, storeOpts...)
	b.coord = NewCoordinator(storage, b.store, b.pushNotice)
	b.session.OnChange(b.onIdentity)
	return b
}

// Start resolves the session in the background. The store attaches once an
// identity is known.
func (b *Board) Start(ctx context.Context) {
	b.mu.Lock()
	b.ctx = ctx
	b.mu.Unlock()
	go b.session.Init(ctx)
}

func (b *Board) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := b.subs
	b.subs = map[int]chan Snapshot{}
	b.mu.Unlock()

	b.session.Close()
	b.store.Close()
	for _, ch := range subs {
		close(ch)
	}
}

func (b *Board) Session() *Session {
	return b.session
}

func (b *Board) Store() *Store {
	return b.store
}

func (b *Board) Coordinator() *Coordinator {
	return b.coord
}

// Notices delivers transient status messages. Messages are dropped while
// the buffer is full.
func (b *Board) Notices() <-chan Notice {
	return b.notices
}

// Subscribe returns a channel holding the latest snapshot. A slow reader
// only misses intermediate snapshots.
func (b *Board) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := b.nextSub
	b.nextSub++
	b.subs[id] = ch
	ch <- b.snapshotLocked()
	b.mu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			if _, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(ch)
			}
			b.mu.Unlock()
		})
	}
}

func (b *Board) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

func (b *Board) Criteria() Criteria {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.criteria
}

func (b *Board) SetQuery(q string) {
	b.updateCriteria(func(c *Criteria) { c.Query = q })
}

func (b *Board) SetTag(tag string) {
	b.updateCriteria(func(c *Criteria) { c.Tag = tag })
}

func (b *Board) SetSort(key SortKey) {
	b.updateCriteria(func(c *Criteria) { c.Sort = key })
}

func (b *Board) SetCriteria(c Criteria) {
	b.updateCriteria(func(cur *Criteria) { *cur = c })
}

func (b *Board) Refetch(ctx context.Context) {
	b.store.Refetch(ctx)
}

func (b *Board) updateCriteria(fn func(c *Criteria)) {
	b.mu.Lock()
	fn(&b.criteria)
	b.broadcastLocked()
	b.mu.Unlock()
}

func (b *Board) onIdentity(identity *model.Identity) {
	b.mu.Lock()
	ctx := b.ctx
	prev := b.ownerID
	b.ownerID = identityID(identity)
	b.broadcastLocked()
	b.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	if prev == identityID(identity) {
		return
	}
	logutil.GetLogger(ctx).Info("identity changed", zap.String("user_id", identityID(identity)))
	if identity == nil {
		b.store.Detach()
		return
	}
	b.store.Attach(ctx, identity)
}

func (b *Board) onMirror(m Mirror) {
	b.mu.Lock()
	b.mirror = m
	b.broadcastLocked()
	b.mu.Unlock()
}

func (b *Board) onFetchError(err error) {
	b.pushNotice(Notice{Kind: NoticeError, Text: "Could not load bookmarks"})
}

func (b *Board) pushNotice(n Notice) {
	select {
	case b.notices <- n:
	default:
	}
}

func (b *Board) snapshotLocked() Snapshot {
	return Snapshot{
		Identity: b.session.Identity(),
		Resolved: b.session.Resolved(),
		Criteria: b.criteria,
		View:     Derive(b.mirror, b.criteria),
		Filters:  FilterOptions(b.mirror),
		Total:    len(b.mirror),
	}
}

func (b *Board) broadcastLocked() {
	if b.closed || len(b.subs) == 0 {
		return
	}
	snap := b.snapshotLocked()
	for _, ch := range b.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}
