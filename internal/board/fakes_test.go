package board

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/xxxsen/bmark/internal/model"
)

var errBackend = errors.New("backend unavailable")

type fakeAuth struct {
	mu        sync.Mutex
	identity  *model.Identity
	err       error
	gate      chan struct{}
	listeners map[int]func(*model.Identity)
	next      int
	calls     atomic.Int32
}

func newFakeAuth(identity *model.Identity) *fakeAuth {
	return &fakeAuth{identity: identity, listeners: map[int]func(*model.Identity){}}
}

func (a *fakeAuth) GetSession(ctx context.Context) (*model.Identity, error) {
	a.calls.Add(1)
	if a.gate != nil {
		<-a.gate
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return cloneIdentity(a.identity), a.err
}

func (a *fakeAuth) OnIdentityChange(fn func(*model.Identity)) func() {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.next
	a.next++
	a.listeners[id] = fn
	return func() {
		a.mu.Lock()
		delete(a.listeners, id)
		a.mu.Unlock()
	}
}

func (a *fakeAuth) push(identity *model.Identity) {
	a.mu.Lock()
	a.identity = identity
	fns := make([]func(*model.Identity), 0, len(a.listeners))
	for _, fn := range a.listeners {
		fns = append(fns, fn)
	}
	a.mu.Unlock()
	for _, fn := range fns {
		fn(cloneIdentity(identity))
	}
}

func (a *fakeAuth) listenerCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.listeners)
}

// fakeBackend is an owner-scoped table that emits change events to its
// subscribers the way the server does.
type fakeBackend struct {
	mu         sync.Mutex
	rows       []model.Bookmark
	seq        int
	now        int64
	subs       map[*fakeSub]struct{}
	failList   error
	failWrite  error
	failSub    error
	listGate   chan struct{}
	insertGate chan struct{}
	updateGate chan struct{}

	lists   atomic.Int32
	inserts atomic.Int32
	updates atomic.Int32
	deletes atomic.Int32
}

func newFakeBackend(rows ...model.Bookmark) *fakeBackend {
	return &fakeBackend{rows: rows, now: 1000, subs: map[*fakeSub]struct{}{}}
}

func (f *fakeBackend) List(ctx context.Context, ownerID string) ([]model.Bookmark, error) {
	f.lists.Add(1)
	if f.listGate != nil {
		<-f.listGate
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failList != nil {
		return nil, f.failList
	}
	out := make([]model.Bookmark, 0, len(f.rows))
	for i := len(f.rows) - 1; i >= 0; i-- {
		if f.rows[i].UserID == ownerID {
			out = append(out, f.rows[i])
		}
	}
	return out, nil
}

func (f *fakeBackend) Insert(ctx context.Context, ownerID string, fields model.BookmarkFields) (*model.Bookmark, error) {
	f.inserts.Add(1)
	if f.insertGate != nil {
		<-f.insertGate
	}
	f.mu.Lock()
	if f.failWrite != nil {
		f.mu.Unlock()
		return nil, f.failWrite
	}
	f.seq++
	f.now++
	item := model.Bookmark{
		ID: fmt.Sprintf("n%d", f.seq), UserID: ownerID,
		Title: fields.Title, URL: fields.URL, Note: fields.Note, Tag: fields.Tag,
		Ctime: f.now, Mtime: f.now,
	}
	f.rows = append(f.rows, item)
	f.mu.Unlock()
	f.emit(model.EventInsert, item)
	return &item, nil
}

func (f *fakeBackend) Update(ctx context.Context, id string, fields model.BookmarkFields) (*model.Bookmark, error) {
	f.updates.Add(1)
	if f.updateGate != nil {
		<-f.updateGate
	}
	f.mu.Lock()
	if f.failWrite != nil {
		f.mu.Unlock()
		return nil, f.failWrite
	}
	for i := range f.rows {
		if f.rows[i].ID == id {
			f.rows[i].Title, f.rows[i].URL, f.rows[i].Note, f.rows[i].Tag = fields.Title, fields.URL, fields.Note, fields.Tag
			item := f.rows[i]
			f.mu.Unlock()
			f.emit(model.EventUpdate, item)
			return &item, nil
		}
	}
	f.mu.Unlock()
	return nil, errBackend
}

func (f *fakeBackend) Delete(ctx context.Context, id string) error {
	f.deletes.Add(1)
	f.mu.Lock()
	if f.failWrite != nil {
		f.mu.Unlock()
		return f.failWrite
	}
	for i := range f.rows {
		if f.rows[i].ID == id {
			item := f.rows[i]
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			f.mu.Unlock()
			f.emit(model.EventDelete, model.Bookmark{ID: item.ID, UserID: item.UserID})
			return nil
		}
	}
	f.mu.Unlock()
	return nil
}

func (f *fakeBackend) Subscribe(ctx context.Context, ownerID string, kinds []model.EventKind) (Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSub != nil {
		return nil, f.failSub
	}
	sub := &fakeSub{backend: f, owner: ownerID, kinds: kinds, ch: make(chan model.ChangeEvent, 32)}
	f.subs[sub] = struct{}{}
	return sub, nil
}

func (f *fakeBackend) emit(kind model.EventKind, record model.Bookmark) {
	f.send(model.ChangeEvent{Kind: kind, UserID: record.UserID, Record: record})
}

// send delivers an event to every subscriber of its owner, like the
// server-side filter.
func (f *fakeBackend) send(evt model.ChangeEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for sub := range f.subs {
		if sub.owner != evt.UserID || !sub.wants(evt.Kind) {
			continue
		}
		sub.ch <- evt
	}
}

// sendRaw bypasses the owner filter.
func (f *fakeBackend) sendRaw(evt model.ChangeEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for sub := range f.subs {
		sub.ch <- evt
	}
}

func (f *fakeBackend) subCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *fakeBackend) endStreams() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for sub := range f.subs {
		delete(f.subs, sub)
		close(sub.ch)
	}
}

func (f *fakeBackend) setFailWrite(err error) {
	f.mu.Lock()
	f.failWrite = err
	f.mu.Unlock()
}

func (f *fakeBackend) setFailList(err error) {
	f.mu.Lock()
	f.failList = err
	f.mu.Unlock()
}

type fakeSub struct {
	backend *fakeBackend
	owner   string
	kinds   []model.EventKind
	ch      chan model.ChangeEvent
}

func (s *fakeSub) Events() <-chan model.ChangeEvent {
	return s.ch
}

func (s *fakeSub) Close() error {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	if _, ok := s.backend.subs[s]; ok {
		delete(s.backend.subs, s)
		close(s.ch)
	}
	return nil
}

func (s *fakeSub) wants(kind model.EventKind) bool {
	for _, k := range s.kinds {
		if k == kind {
			return true
		}
	}
	return false
}

type noticeLog struct {
	mu    sync.Mutex
	items []Notice
}

func (l *noticeLog) add(n Notice) {
	l.mu.Lock()
	l.items = append(l.items, n)
	l.mu.Unlock()
}

func (l *noticeLog) texts() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.items))
	for _, n := range l.items {
		out = append(out, n.Text)
	}
	return out
}

func bm(id, owner, title string, tag model.Tag, ctime int64) model.Bookmark {
	return model.Bookmark{ID: id, UserID: owner, Title: title, URL: "https://" + id + ".example", Tag: tag, Ctime: ctime, Mtime: ctime}
}

var (
	alice = &model.Identity{ID: "alice", Email: "alice@example.com"}
	bob   = &model.Identity{ID: "bob", Email: "bob@example.com"}
)
