package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
	"gotest.tools/v3/poll"

	"github.com/xxxsen/bmark/internal/board"
	"github.com/xxxsen/bmark/internal/model"
)

type staticAuth struct {
	identity *model.Identity
}

func (a staticAuth) GetSession(ctx context.Context) (*model.Identity, error) {
	return a.identity, nil
}

func (a staticAuth) OnIdentityChange(fn func(*model.Identity)) func() {
	return func() {}
}

// memBackend is an in-memory owner-scoped table with a change feed.
type memBackend struct {
	mu      sync.Mutex
	rows    []model.Bookmark
	seq     int
	subs    []chan model.ChangeEvent
	failAll error
}

func (m *memBackend) List(ctx context.Context, ownerID string) ([]model.Bookmark, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Bookmark, 0, len(m.rows))
	for i := len(m.rows) - 1; i >= 0; i-- {
		if m.rows[i].UserID == ownerID {
			out = append(out, m.rows[i])
		}
	}
	return out, nil
}

func (m *memBackend) Insert(ctx context.Context, ownerID string, fields model.BookmarkFields) (*model.Bookmark, error) {
	m.mu.Lock()
	if m.failAll != nil {
		m.mu.Unlock()
		return nil, m.failAll
	}
	m.seq++
	item := model.Bookmark{ID: fmt.Sprintf("n%d", m.seq), UserID: ownerID, Title: fields.Title, URL: fields.URL,
		Note: fields.Note, Tag: fields.Tag, Ctime: int64(100 + m.seq)}
	m.rows = append(m.rows, item)
	m.mu.Unlock()
	m.emit(model.EventInsert, item)
	return &item, nil
}

func (m *memBackend) Update(ctx context.Context, id string, fields model.BookmarkFields) (*model.Bookmark, error) {
	m.mu.Lock()
	if m.failAll != nil {
		m.mu.Unlock()
		return nil, m.failAll
	}
	for i := range m.rows {
		if m.rows[i].ID == id {
			m.rows[i].Title, m.rows[i].URL, m.rows[i].Note, m.rows[i].Tag = fields.Title, fields.URL, fields.Note, fields.Tag
			item := m.rows[i]
			m.mu.Unlock()
			m.emit(model.EventUpdate, item)
			return &item, nil
		}
	}
	m.mu.Unlock()
	return nil, errors.New("not found")
}

func (m *memBackend) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	if m.failAll != nil {
		m.mu.Unlock()
		return m.failAll
	}
	for i := range m.rows {
		if m.rows[i].ID == id {
			item := m.rows[i]
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			m.mu.Unlock()
			m.emit(model.EventDelete, item)
			return nil
		}
	}
	m.mu.Unlock()
	return nil
}

func (m *memBackend) Subscribe(ctx context.Context, ownerID string, kinds []model.EventKind) (board.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan model.ChangeEvent, 16)
	m.subs = append(m.subs, ch)
	return &memSub{ch: ch}, nil
}

func (m *memBackend) emit(kind model.EventKind, item model.Bookmark) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subs {
		ch <- model.ChangeEvent{Kind: kind, UserID: item.UserID, Record: item}
	}
}

func (m *memBackend) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type memSub struct {
	ch chan model.ChangeEvent
}

func (s *memSub) Events() <-chan model.ChangeEvent { return s.ch }

func (s *memSub) Close() error { return nil }

var tester = &model.Identity{ID: "u1", Email: "tester@example.com", DisplayName: "Tester"}

func seedRows() []model.Bookmark {
	return []model.Bookmark{
		{ID: "1", UserID: "u1", Title: "Go", URL: "https://go.dev", Tag: model.TagDev, Ctime: 1},
		{ID: "2", UserID: "u1", Title: "Figma", URL: "https://www.figma.com", Note: "design tool", Tag: model.TagDesign, Ctime: 2},
		{ID: "3", UserID: "u1", Title: "Almanac", URL: "not a url at all", Ctime: 3},
	}
}

type recorder struct {
	opened  []string
	copied  []string
	signOut int
}

func newTestApp(t *testing.T, identity *model.Identity) (App, *memBackend, *board.Board, *recorder) {
	t.Helper()
	backend := &memBackend{rows: seedRows()}
	b := board.New(staticAuth{identity: identity}, backend, backend)
	t.Cleanup(b.Close)
	b.Start(context.Background())
	want := 0
	if identity != nil {
		want = 3
	}
	poll.WaitOn(t, func(poll.LogT) poll.Result {
		snap := b.Snapshot()
		if snap.Resolved && snap.Total == want {
			return poll.Success()
		}
		return poll.Continue("waiting for %d bookmarks, have %d", want, snap.Total)
	}, poll.WithTimeout(2*time.Second), poll.WithDelay(5*time.Millisecond))

	rec := &recorder{}
	app := NewApp(AppParams{
		Board:    b,
		Layout:   LayoutRows,
		OpenURL:  func(u string) error { rec.opened = append(rec.opened, u); return nil },
		CopyText: func(s string) error { rec.copied = append(rec.copied, s); return nil },
		SignOut:  func(context.Context) error { rec.signOut++; return nil },
	}).WithDimensions(120, 40)
	return app, backend, b, rec
}

func press(app App, keys ...string) (App, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "right":
			msg = tea.KeyMsg{Type: tea.KeyRight}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		updated, c := app.Update(msg)
		app = updated.(App)
		cmd = c
	}
	return app, cmd
}

func viewTitles(app App) []string {
	out := make([]string, 0, len(app.snap.View))
	for _, item := range app.snap.View {
		out = append(out, item.Title)
	}
	return out
}

func TestApp_InitialView(t *testing.T) {
	app, _, _, _ := newTestApp(t, tester)
	assert.DeepEqual(t, viewTitles(app), []string{"Almanac", "Figma", "Go"})
	out := app.View()
	assert.Assert(t, is.Contains(out, "Tester"))
	assert.Assert(t, is.Contains(out, "3 of 3"))
	assert.Assert(t, is.Contains(out, "#Dev"))
	assert.Assert(t, is.Contains(out, "All"))
}

func TestApp_SignedOut(t *testing.T) {
	app, _, _, _ := newTestApp(t, nil)
	out := app.View()
	assert.Assert(t, is.Contains(out, "Not signed in"))

	app, _ = press(app, "a")
	assert.Equal(t, app.Mode(), ModeNormal)
	app, _ = press(app, "p")
	assert.Equal(t, app.Mode(), ModeNormal)
}

func TestApp_NavigationAndLayout(t *testing.T) {
	app, _, _, _ := newTestApp(t, tester)
	assert.Equal(t, app.Layout(), LayoutRows)

	app, _ = press(app, "j", "j", "j")
	assert.Equal(t, app.Cursor(), 2)
	app, _ = press(app, "k")
	assert.Equal(t, app.Cursor(), 1)

	app, _ = press(app, "v")
	assert.Equal(t, app.Layout(), LayoutCards)
	assert.Assert(t, is.Contains(app.View(), "figma.com"))
	app, _ = press(app, "l")
	assert.Equal(t, app.Cursor(), 2)
	app, _ = press(app, "v")
	assert.Equal(t, app.Layout(), LayoutRows)
}

func TestApp_TagFilterCycles(t *testing.T) {
	app, _, _, _ := newTestApp(t, tester)
	assert.DeepEqual(t, app.snap.Filters, []string{board.AllTags, "Dev", "Design"})

	app, _ = press(app, "t")
	assert.Equal(t, app.snap.Criteria.Tag, "Dev")
	assert.DeepEqual(t, viewTitles(app), []string{"Go"})

	app, _ = press(app, "t")
	assert.DeepEqual(t, viewTitles(app), []string{"Figma"})

	app, _ = press(app, "t")
	assert.Equal(t, app.snap.Criteria.Tag, board.AllTags)
	assert.Equal(t, len(app.snap.View), 3)
}

func TestApp_SortCycles(t *testing.T) {
	app, _, _, _ := newTestApp(t, tester)
	app, _ = press(app, "s")
	assert.Equal(t, app.snap.Criteria.Sort, board.SortOldest)
	assert.DeepEqual(t, viewTitles(app), []string{"Go", "Figma", "Almanac"})

	app, _ = press(app, "s")
	assert.Equal(t, app.snap.Criteria.Sort, board.SortAlpha)
	assert.DeepEqual(t, viewTitles(app), []string{"Almanac", "Figma", "Go"})
	assert.Assert(t, is.Contains(app.View(), "sort: alpha"))

	app, _ = press(app, "s")
	assert.Equal(t, app.snap.Criteria.Sort, board.SortNewest)
}

func TestApp_Search(t *testing.T) {
	app, _, _, _ := newTestApp(t, tester)
	app, _ = press(app, "/")
	assert.Equal(t, app.Mode(), ModeSearch)

	app, _ = press(app, "D", "E", "S")
	assert.Equal(t, app.snap.Criteria.Query, "DES")
	assert.DeepEqual(t, viewTitles(app), []string{"Figma"})

	app, _ = press(app, "enter")
	assert.Equal(t, app.Mode(), ModeNormal)
	assert.Assert(t, is.Contains(app.View(), "search: DES"))

	app, _ = press(app, "/", "esc")
	assert.Equal(t, app.snap.Criteria.Query, "")
	assert.Equal(t, len(app.snap.View), 3)
}

func TestApp_CreateFlow(t *testing.T) {
	app, backend, b, _ := newTestApp(t, tester)
	app, _ = press(app, "a")
	assert.Equal(t, app.Mode(), ModeForm)
	assert.Assert(t, is.Contains(app.View(), "Title and URL are required"))

	// incomplete drafts are not submitted
	app, cmd := press(app, "enter")
	assert.Assert(t, cmd == nil)
	assert.Equal(t, app.Mode(), ModeForm)

	app, _ = press(app, "R", "u", "s", "t", "tab", "h", "t", "t", "p", "s", ":", "/", "/", "r", "u", "s", "t", "-", "l", "a", "n", "g", ".", "o", "r", "g")
	app, _ = press(app, "tab", "tab", "right")
	assert.Equal(t, app.Form().Tag, model.TagDev)
	assert.Equal(t, app.Form().Draft().URL, "https://rust-lang.org")

	app, cmd = press(app, "enter")
	assert.Assert(t, cmd != nil)
	assert.Assert(t, app.Form().Submitting)
	app, again := press(app, "enter")
	assert.Assert(t, again == nil)

	updated, _ := app.Update(cmd())
	app = updated.(App)
	assert.Equal(t, app.Mode(), ModeNormal)
	assert.Equal(t, app.Form().Draft().Title, "")
	assert.Equal(t, backend.count(), 4)

	poll.WaitOn(t, func(poll.LogT) poll.Result {
		if b.Snapshot().Total == 4 {
			return poll.Success()
		}
		return poll.Continue("insert not mirrored yet")
	}, poll.WithTimeout(2*time.Second), poll.WithDelay(5*time.Millisecond))
}

func TestApp_CreateFailureKeepsDraft(t *testing.T) {
	app, backend, _, _ := newTestApp(t, tester)
	backend.mu.Lock()
	backend.failAll = errors.New("offline")
	backend.mu.Unlock()

	app, _ = press(app, "a", "X", "tab", "x", ".", "i", "o")
	app, cmd := press(app, "enter")
	assert.Assert(t, cmd != nil)
	updated, _ := app.Update(cmd())
	app = updated.(App)
	assert.Equal(t, app.Mode(), ModeForm)
	assert.Equal(t, app.Form().Draft().Title, "X")
	assert.Assert(t, !app.Form().Submitting)

	app, _ = press(app, "esc")
	assert.Equal(t, app.Mode(), ModeNormal)
}

func TestApp_EditFlow(t *testing.T) {
	app, backend, _, _ := newTestApp(t, tester)
	app, _ = press(app, "j", "e")
	assert.Equal(t, app.Mode(), ModeForm)
	assert.Equal(t, app.Form().EditID, "2")
	assert.Equal(t, app.Form().Draft().Note, "design tool")
	assert.Assert(t, is.Contains(app.View(), "Edit Bookmark"))

	app, _ = press(app, "!")
	app, cmd := press(app, "enter")
	assert.Assert(t, cmd != nil)
	updated, _ := app.Update(cmd())
	app = updated.(App)
	assert.Equal(t, app.Mode(), ModeNormal)

	items, err := backend.List(context.Background(), "u1")
	assert.NilError(t, err)
	var titles []string
	for _, item := range items {
		titles = append(titles, item.Title)
	}
	assert.Assert(t, is.Contains(titles, "Figma!"))
}

func TestApp_DeleteConfirm(t *testing.T) {
	app, backend, b, _ := newTestApp(t, tester)
	app, _ = press(app, "d")
	assert.Equal(t, app.Mode(), ModeConfirmDelete)
	assert.Assert(t, is.Contains(app.View(), "Delete bookmark?"))

	app, _ = press(app, "n")
	assert.Equal(t, app.Mode(), ModeNormal)
	assert.Equal(t, backend.count(), 3)

	app, cmd := press(app, "d", "y")
	assert.Equal(t, app.Mode(), ModeNormal)
	assert.Assert(t, cmd != nil)
	_ = cmd()
	assert.Equal(t, backend.count(), 2)
	poll.WaitOn(t, func(poll.LogT) poll.Result {
		if b.Snapshot().Total == 2 {
			return poll.Success()
		}
		return poll.Continue("delete not mirrored yet")
	}, poll.WithTimeout(2*time.Second), poll.WithDelay(5*time.Millisecond))
}

func TestApp_DeleteResultKeepsOpenForm(t *testing.T) {
	app, backend, _, _ := newTestApp(t, tester)
	app, delCmd := press(app, "d", "y")
	assert.Assert(t, delCmd != nil)

	app, _ = press(app, "a", "D", "r", "a", "f", "t")
	assert.Equal(t, app.Mode(), ModeForm)

	updated, _ := app.Update(delCmd())
	app = updated.(App)
	assert.Equal(t, backend.count(), 2)
	assert.Equal(t, app.Mode(), ModeForm)
	assert.Equal(t, app.Form().Draft().Title, "Draft")
}

func TestApp_DeleteResultKeepsSubmitInFlight(t *testing.T) {
	app, _, _, _ := newTestApp(t, tester)
	app, delCmd := press(app, "d", "y")
	app, _ = press(app, "a", "X", "tab", "x", ".", "i", "o")
	app, createCmd := press(app, "enter")
	assert.Assert(t, createCmd != nil)
	assert.Assert(t, app.Form().Submitting)

	updated, _ := app.Update(delCmd())
	app = updated.(App)
	assert.Assert(t, app.Form().Submitting)
	assert.Equal(t, app.Mode(), ModeForm)

	updated, _ = app.Update(createCmd())
	app = updated.(App)
	assert.Equal(t, app.Mode(), ModeNormal)
}

func TestApp_OpenAndCopy(t *testing.T) {
	app, _, _, rec := newTestApp(t, tester)
	app, _ = press(app, "j", "o")
	assert.DeepEqual(t, rec.opened, []string{"https://www.figma.com"})

	app, cmd := press(app, "y")
	assert.Assert(t, cmd != nil)
	assert.DeepEqual(t, rec.copied, []string{"https://www.figma.com"})
	assert.Assert(t, is.Contains(app.View(), "URL copied"))
}

func TestApp_NoticeAutoDismiss(t *testing.T) {
	app, _, _, _ := newTestApp(t, tester)
	updated, _ := app.Update(noticeMsg{Kind: board.NoticeError, Text: board.NoticeDeleteFailed})
	app = updated.(App)
	assert.Assert(t, is.Contains(app.View(), board.NoticeDeleteFailed))
	first := app.noticeSeq

	updated, _ = app.Update(noticeMsg{Kind: board.NoticeInfo, Text: board.NoticeSaved})
	app = updated.(App)

	// the tick of the replaced notice must not clear the newer one
	updated, _ = app.Update(clearNoticeMsg{seq: first})
	app = updated.(App)
	assert.Assert(t, is.Contains(app.View(), board.NoticeSaved))

	updated, _ = app.Update(clearNoticeMsg{seq: app.noticeSeq})
	app = updated.(App)
	assert.Assert(t, !strings.Contains(app.View(), board.NoticeSaved))
}

func TestApp_ProfileSignOut(t *testing.T) {
	app, _, _, rec := newTestApp(t, tester)
	app, _ = press(app, "p")
	assert.Equal(t, app.Mode(), ModeProfile)
	out := app.View()
	assert.Assert(t, is.Contains(out, "tester@example.com"))
	assert.Assert(t, is.Contains(out, "sign out"))

	app, cmd := press(app, "enter")
	assert.Assert(t, cmd != nil)
	updated, _ := app.Update(cmd())
	app = updated.(App)
	assert.Equal(t, rec.signOut, 1)
	assert.Equal(t, app.Mode(), ModeNormal)
}

func TestApp_SnapshotMessageClampsCursor(t *testing.T) {
	app, _, _, _ := newTestApp(t, tester)
	app, _ = press(app, "j", "j")
	assert.Equal(t, app.Cursor(), 2)

	snap := app.snap
	snap.View = snap.View[:1]
	updated, cmd := app.Update(snapshotMsg(snap))
	app = updated.(App)
	assert.Equal(t, app.Cursor(), 0)
	assert.Assert(t, cmd != nil)
}

func TestFaviconGlyph(t *testing.T) {
	app, _, _, _ := newTestApp(t, tester)
	assert.Equal(t, app.faviconGlyph("https://www.figma.com/file"), "F")
	assert.Equal(t, app.faviconGlyph("go.dev"), "G")
	assert.Equal(t, app.faviconGlyph(""), fallbackIcon)
	assert.Equal(t, app.faviconGlyph("http://"), fallbackIcon)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, truncate("hello", 10), "hello")
	assert.Equal(t, truncate("hello world", 6), "hello…")
	assert.Equal(t, truncate("héllo", 2), "h…")
	assert.Equal(t, truncate("x", 0), "")
}
