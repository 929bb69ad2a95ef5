package board

import (
	"context"
	"errors"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/bmark/internal/model"
)

var ErrStreamClosed = errors.New("change stream closed")

type StoreOption func(*Store)

// WithEventKinds narrows the change subscription. The default is all kinds.
func WithEventKinds(kinds ...model.EventKind) StoreOption {
	return func(s *Store) {
		if len(kinds) > 0 {
			s.kinds = kinds
		}
	}
}

// WithFetchErrorHook reports read failures: the bulk fetch, the change
// subscription, and an unexpectedly ended stream. The mirror is left as is.
func WithFetchErrorHook(fn func(err error)) StoreOption {
	return func(s *Store) {
		s.onFetchError = fn
	}
}

// WithChangeHook is called from the reducer goroutine with a copy of the
// mirror after every mutation.
func WithChangeHook(fn func(m Mirror)) StoreOption {
	return func(s *Store) {
		s.onChange = fn
	}
}

type storeMsg interface{}

type attachMsg struct {
	ctx   context.Context
	owner string
}

type detachMsg struct{}

type refetchMsg struct {
	ctx context.Context
}

type fetchResult struct {
	gen   uint64
	items []model.Bookmark
	err   error
}

type subscribedMsg struct {
	gen uint64
	sub Subscription
	err error
}

type eventMsg struct {
	gen uint64
	evt model.ChangeEvent
}

type streamEndedMsg struct {
	gen uint64
}

type removeMsg struct {
	id   string
	done chan struct{}
}

type syncMsg struct {
	done chan struct{}
}

// Store keeps the mirror in step with the remote collection. Fetch
// results, change events and local removals are all messages to a single
// reducer goroutine, which is the only writer of the mirror. Network calls
// run in their own goroutines and post their results back; results from a
// previous attachment are dropped by generation.
type Store struct {
	storage      Storage
	feed         ChangeFeed
	kinds        []model.EventKind
	onChange     func(Mirror)
	onFetchError func(error)

	msgs      chan storeMsg
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	mu     sync.RWMutex
	mirror Mirror
	owner  string

	// reducer goroutine only
	gen uint64
	ctx context.Context
	sub Subscription
}

func NewStore(storage Storage, feed ChangeFeed, opts ...StoreOption) *Store {
	s := &Store{
		storage: storage,
		feed:    feed,
		kinds:   model.AllEventKinds(),
		msgs:    make(chan storeMsg, 64),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.run()
	return s
}

// Attach switches the mirror to identity: the previous subscription is
// released, the mirror cleared, then the fetch and the subscription start
// concurrently. A nil identity detaches.
func (s *Store) Attach(ctx context.Context, identity *model.Identity) {
	if identityID(identity) == "" {
		s.Detach()
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	s.post(attachMsg{ctx: ctx, owner: identity.ID})
}

func (s *Store) Detach() {
	s.post(detachMsg{})
}

// Refetch re-runs the initial fetch for the current owner.
func (s *Store) Refetch(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.post(refetchMsg{ctx: ctx})
}

// RemoveLocal drops a record from the mirror and returns once the reducer
// has applied it.
func (s *Store) RemoveLocal(id string) {
	done := make(chan struct{})
	if !s.post(removeMsg{id: id, done: done}) {
		return
	}
	select {
	case <-done:
	case <-s.done:
	}
}

// Sync returns after every message posted before it has been reduced.
func (s *Store) Sync() {
	done := make(chan struct{})
	if !s.post(syncMsg{done: done}) {
		return
	}
	select {
	case <-done:
	case <-s.done:
	}
}

func (s *Store) Snapshot() Mirror {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mirror.Clone()
}

func (s *Store) Owner() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owner
}

// Close stops the reducer and releases the subscription.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		close(s.quit)
	})
	<-s.done
}

func (s *Store) post(msg storeMsg) bool {
	select {
	case <-s.quit:
		return false
	default:
	}
	select {
	case s.msgs <- msg:
		return true
	case <-s.quit:
		return false
	}
}

func (s *Store) run() {
	defer close(s.done)
	for {
		select {
		case <-s.quit:
			s.release()
			return
		case msg := <-s.msgs:
			s.reduce(msg)
		}
	}
}

func (s *Store) reduce(msg storeMsg) {
	switch m := msg.(type) {
	case attachMsg:
		s.release()
		s.gen++
		s.ctx = m.ctx
		s.publish(m.owner, nil)
		s.startFetch(m.ctx, s.gen, m.owner)
		s.startSubscribe(m.ctx, s.gen, m.owner)
	case detachMsg:
		s.release()
		s.gen++
		s.ctx = nil
		s.publish("", nil)
	case refetchMsg:
		if s.owner == "" {
			return
		}
		s.startFetch(m.ctx, s.gen, s.owner)
	case fetchResult:
		if m.gen != s.gen {
			return
		}
		if m.err != nil {
			s.reportReadError("initial fetch failed", m.err)
			return
		}
		s.publish(s.owner, ownedBy(m.items, s.owner))
	case subscribedMsg:
		if m.gen != s.gen {
			if m.sub != nil {
				_ = m.sub.Close()
			}
			return
		}
		if m.err != nil {
			s.reportReadError("change subscription failed", m.err)
			return
		}
		s.sub = m.sub
		go s.pump(m.gen, m.sub)
	case eventMsg:
		if m.gen != s.gen || !s.accepts(m.evt) {
			return
		}
		s.publish(s.owner, Apply(s.mirror, m.evt))
	case streamEndedMsg:
		if m.gen != s.gen || s.sub == nil {
			return
		}
		s.sub = nil
		s.reportReadError("change stream ended", ErrStreamClosed)
	case removeMsg:
		s.publish(s.owner, s.mirror.without(s.mirror.IndexOf(m.id)))
		close(m.done)
	case syncMsg:
		close(m.done)
	}
}

// accepts drops events for any owner other than the attached one.
func (s *Store) accepts(evt model.ChangeEvent) bool {
	if s.owner == "" || evt.UserID != s.owner {
		return false
	}
	return evt.Record.UserID == "" || evt.Record.UserID == s.owner
}

func (s *Store) publish(owner string, m Mirror) {
	s.mu.Lock()
	s.owner = owner
	s.mirror = m
	s.mu.Unlock()
	if s.onChange != nil {
		s.onChange(m.Clone())
	}
}

func (s *Store) release() {
	if s.sub == nil {
		return
	}
	sub := s.sub
	s.sub = nil
	if err := sub.Close(); err != nil {
		logutil.GetLogger(s.logContext()).Debug("release change subscription", zap.Error(err))
	}
}

func (s *Store) startFetch(ctx context.Context, gen uint64, owner string) {
	go func() {
		items, err := s.storage.List(ctx, owner)
		s.post(fetchResult{gen: gen, items: items, err: err})
	}()
}

func (s *Store) startSubscribe(ctx context.Context, gen uint64, owner string) {
	if s.feed == nil {
		return
	}
	go func() {
		sub, err := s.feed.Subscribe(ctx, owner, s.kinds)
		if !s.post(subscribedMsg{gen: gen, sub: sub, err: err}) && sub != nil {
			_ = sub.Close()
		}
	}()
}

func (s *Store) pump(gen uint64, sub Subscription) {
	for evt := range sub.Events() {
		if !s.post(eventMsg{gen: gen, evt: evt}) {
			return
		}
	}
	s.post(streamEndedMsg{gen: gen})
}

func (s *Store) reportReadError(msg string, err error) {
	logutil.GetLogger(s.logContext()).Warn(msg, zap.String("owner", s.owner), zap.Error(err))
	if s.onFetchError != nil {
		s.onFetchError(err)
	}
}

func (s *Store) logContext() context.Context {
	if s.ctx != nil {
		return s.ctx
	}
	return context.Background()
}
