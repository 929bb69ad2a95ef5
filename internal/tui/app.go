package tui

import (
	"context"
	"errors"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/cli/browser"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/bmark/internal/board"
	"github.com/xxxsen/bmark/internal/favicon"
	"github.com/xxxsen/bmark/internal/model"
)

// NoticeTTL is how long a notice stays on screen.
const NoticeTTL = 3 * time.Second

type snapshotMsg board.Snapshot

type noticeMsg board.Notice

type clearNoticeMsg struct {
	seq int
}

// mutationMsg carries the result of a form create or update.
type mutationMsg struct {
	err error
}

// deleteDoneMsg carries the result of a confirmed delete. The coordinator
// posts its own notice, so the form is never involved.
type deleteDoneMsg struct {
	err error
}

type signedOutMsg struct {
	err error
}

// App is the bubbletea model for the board screen.
type App struct {
	board    *board.Board
	keys     KeyMap
	styles   Styles
	favicons *favicon.Resolver
	ctx      context.Context
	openURL  func(string) error
	copyText func(string) error
	signOut  func(context.Context) error

	snapshots   <-chan board.Snapshot
	unsubscribe func()

	snap   board.Snapshot
	cursor int
	layout Layout
	mode   Mode
	search textinput.Model
	form   FormState
	target *model.Bookmark

	notice    *board.Notice
	noticeSeq int

	width  int
	height int
}

// AppParams holds parameters for creating a new App.
type AppParams struct {
	Board       *board.Board
	Context     context.Context
	Keys        *KeyMap // optional, uses default if nil
	Styles      *Styles // optional, uses default if nil
	FaviconBase string
	Layout      Layout
	OpenURL     func(string) error
	CopyText    func(string) error
	SignOut     func(context.Context) error
}

func NewApp(params AppParams) App {
	keys := DefaultKeyMap()
	if params.Keys != nil {
		keys = *params.Keys
	}
	styles := DefaultStyles()
	if params.Styles != nil {
		styles = *params.Styles
	}
	ctx := params.Context
	if ctx == nil {
		ctx = context.Background()
	}
	search := textinput.New()
	search.Placeholder = "Search title, URL or note"
	search.Prompt = "/ "
	search.CharLimit = 200
	search.Width = 40

	a := App{
		board:    params.Board,
		keys:     keys,
		styles:   styles,
		favicons: favicon.NewResolver(params.FaviconBase),
		ctx:      ctx,
		openURL:  params.OpenURL,
		copyText: params.CopyText,
		signOut:  params.SignOut,
		layout:   params.Layout,
		search:   search,
		form:     newFormState(),
		width:    100,
		height:   30,
	}
	if a.openURL == nil {
		a.openURL = browser.OpenURL
	}
	if a.copyText == nil {
		a.copyText = clipboard.WriteAll
	}
	a.snapshots, a.unsubscribe = params.Board.Subscribe()
	a.applySnapshot(params.Board.Snapshot())
	return a
}

func (a App) Mode() Mode {
	return a.mode
}

func (a App) Layout() Layout {
	return a.layout
}

func (a App) Cursor() int {
	return a.cursor
}

func (a App) Form() FormState {
	return a.form
}

// WithDimensions sets a fixed window size.
func (a App) WithDimensions(width, height int) App {
	a.width = width
	a.height = height
	return a
}

func (a App) Init() tea.Cmd {
	return tea.Batch(waitSnapshot(a.snapshots), waitNotice(a.board.Notices()))
}

func waitSnapshot(ch <-chan board.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return nil
		}
		return snapshotMsg(snap)
	}
}

func waitNotice(ch <-chan board.Notice) tea.Cmd {
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return noticeMsg(n)
	}
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case snapshotMsg:
		a.applySnapshot(board.Snapshot(msg))
		return a, waitSnapshot(a.snapshots)

	case noticeMsg:
		cmd := a.showNotice(board.Notice(msg))
		return a, tea.Batch(cmd, waitNotice(a.board.Notices()))

	case clearNoticeMsg:
		if msg.seq == a.noticeSeq {
			a.notice = nil
		}
		return a, nil

	case mutationMsg:
		a.form.Submitting = false
		if a.mode == ModeForm && msg.err == nil {
			a.form.Reset()
			a.mode = ModeNormal
		}
		return a, nil

	case deleteDoneMsg:
		return a, nil

	case signedOutMsg:
		a.mode = ModeNormal
		if msg.err != nil {
			return a, a.showNotice(board.Notice{Kind: board.NoticeError, Text: "Sign out failed"})
		}
		return a, nil

	case tea.KeyMsg:
		switch a.mode {
		case ModeSearch:
			return a.updateSearch(msg)
		case ModeForm:
			return a.updateForm(msg)
		case ModeConfirmDelete:
			return a.updateConfirm(msg)
		case ModeProfile:
			return a.updateProfile(msg)
		default:
			return a.updateNormal(msg)
		}
	}
	return a, nil
}

func (a App) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Quit):
		if a.unsubscribe != nil {
			a.unsubscribe()
		}
		return a, tea.Quit

	case key.Matches(msg, a.keys.Down):
		a.moveCursor(a.rowStep())
	case key.Matches(msg, a.keys.Up):
		a.moveCursor(-a.rowStep())
	case key.Matches(msg, a.keys.Right):
		a.moveCursor(1)
	case key.Matches(msg, a.keys.Left):
		a.moveCursor(-1)

	case key.Matches(msg, a.keys.Layout):
		if a.layout == LayoutCards {
			a.layout = LayoutRows
		} else {
			a.layout = LayoutCards
		}

	case key.Matches(msg, a.keys.Tag):
		a.board.SetTag(nextOption(a.snap.Filters, currentTag(a.snap.Criteria)))
		a.applySnapshot(a.board.Snapshot())

	case key.Matches(msg, a.keys.Sort):
		a.board.SetSort(nextSort(a.snap.Criteria.Sort))
		a.applySnapshot(a.board.Snapshot())

	case key.Matches(msg, a.keys.Search):
		a.mode = ModeSearch
		a.search.SetValue(a.snap.Criteria.Query)
		a.search.CursorEnd()
		return a, a.search.Focus()

	case key.Matches(msg, a.keys.Add):
		if a.snap.Identity == nil {
			return a, nil
		}
		a.form.Load("", board.Draft{})
		a.mode = ModeForm
		return a, textinput.Blink

	case key.Matches(msg, a.keys.Edit):
		if item, ok := a.selected(); ok {
			a.form.Load(item.ID, board.DraftFrom(item))
			a.mode = ModeForm
			return a, textinput.Blink
		}

	case key.Matches(msg, a.keys.Delete):
		if item, ok := a.selected(); ok {
			a.target = &item
			a.mode = ModeConfirmDelete
		}

	case key.Matches(msg, a.keys.Profile):
		if a.snap.Identity != nil {
			a.mode = ModeProfile
		}

	case key.Matches(msg, a.keys.Open):
		if item, ok := a.selected(); ok {
			if err := a.openURL(item.URL); err != nil {
				logutil.GetLogger(a.ctx).Warn("open url failed", zap.String("url", item.URL), zap.Error(err))
				return a, a.showNotice(board.Notice{Kind: board.NoticeError, Text: "Could not open browser"})
			}
		}

	case key.Matches(msg, a.keys.Yank):
		if item, ok := a.selected(); ok {
			if err := a.copyText(item.URL); err != nil {
				logutil.GetLogger(a.ctx).Warn("copy url failed", zap.Error(err))
				return a, a.showNotice(board.Notice{Kind: board.NoticeError, Text: "Could not copy URL"})
			}
			return a, a.showNotice(board.Notice{Kind: board.NoticeInfo, Text: "URL copied"})
		}

	case key.Matches(msg, a.keys.Refresh):
		a.board.Refetch(a.ctx)
	}
	return a, nil
}

func (a App) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		a.search.SetValue("")
		a.search.Blur()
		a.mode = ModeNormal
		a.board.SetQuery("")
		a.applySnapshot(a.board.Snapshot())
		return a, nil
	case tea.KeyEnter:
		a.search.Blur()
		a.mode = ModeNormal
		return a, nil
	}
	var cmd tea.Cmd
	a.search, cmd = a.search.Update(msg)
	if a.search.Value() != a.snap.Criteria.Query {
		a.board.SetQuery(a.search.Value())
		a.applySnapshot(a.board.Snapshot())
	}
	return a, cmd
}

func (a App) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Cancel):
		if !a.form.Submitting {
			a.form.Reset()
			a.mode = ModeNormal
		}
		return a, nil
	case key.Matches(msg, a.keys.Accept):
		return a.submitForm()
	case key.Matches(msg, a.keys.Next):
		a.form.focus(a.form.Focus + 1)
		return a, nil
	case key.Matches(msg, a.keys.Prev):
		a.form.focus(a.form.Focus - 1)
		return a, nil
	}
	if a.form.Submitting {
		return a, nil
	}

	var cmd tea.Cmd
	switch a.form.Focus {
	case fieldTitle:
		a.form.Title, cmd = a.form.Title.Update(msg)
	case fieldURL:
		a.form.URL, cmd = a.form.URL.Update(msg)
	case fieldNote:
		a.form.Note, cmd = a.form.Note.Update(msg)
	case fieldTag:
		switch {
		case key.Matches(msg, a.keys.TagLeft):
			a.form.cycleTag(-1)
		case key.Matches(msg, a.keys.TagRight):
			a.form.cycleTag(1)
		}
	}
	return a, cmd
}

// submitForm issues one create or update. An incomplete draft is ignored:
// the save hint stays disabled until title and URL are filled in.
func (a App) submitForm() (tea.Model, tea.Cmd) {
	draft := a.form.Draft()
	if a.form.Submitting || !board.CanSubmit(draft) {
		return a, nil
	}
	a.form.Submitting = true
	coord := a.board.Coordinator()
	ctx := a.ctx
	editID := a.form.EditID
	if editID == "" {
		return a, func() tea.Msg {
			_, err := coord.Create(ctx, draft)
			return mutationMsg{err: err}
		}
	}
	return a, func() tea.Msg {
		_, err := coord.Update(ctx, editID, draft)
		return mutationMsg{err: err}
	}
}

func (a App) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Confirm):
		target := a.target
		a.target = nil
		a.mode = ModeNormal
		if target == nil {
			return a, nil
		}
		coord := a.board.Coordinator()
		ctx := a.ctx
		return a, func() tea.Msg {
			err := coord.Delete(ctx, target.ID)
			if errors.Is(err, board.ErrNoIdentity) {
				return nil
			}
			return deleteDoneMsg{err: err}
		}
	case key.Matches(msg, a.keys.Deny):
		a.target = nil
		a.mode = ModeNormal
	}
	return a, nil
}

func (a App) updateProfile(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Cancel), key.Matches(msg, a.keys.Profile):
		a.mode = ModeNormal
	case key.Matches(msg, a.keys.SignOut):
		if a.signOut == nil {
			a.mode = ModeNormal
			return a, nil
		}
		signOut := a.signOut
		ctx := a.ctx
		return a, func() tea.Msg {
			return signedOutMsg{err: signOut(ctx)}
		}
	}
	return a, nil
}

func (a *App) applySnapshot(snap board.Snapshot) {
	a.snap = snap
	if a.snap.Identity == nil && (a.mode == ModeForm || a.mode == ModeConfirmDelete || a.mode == ModeProfile) {
		a.form.Reset()
		a.target = nil
		a.mode = ModeNormal
	}
	a.moveCursor(0)
}

func (a *App) showNotice(n board.Notice) tea.Cmd {
	a.noticeSeq++
	seq := a.noticeSeq
	a.notice = &n
	return tea.Tick(NoticeTTL, func(time.Time) tea.Msg {
		return clearNoticeMsg{seq: seq}
	})
}

func (a *App) moveCursor(step int) {
	n := len(a.snap.View)
	if n == 0 {
		a.cursor = 0
		return
	}
	next := a.cursor + step
	if next < 0 {
		next = 0
	}
	if next > n-1 {
		next = n - 1
	}
	a.cursor = next
}

func (a App) selected() (model.Bookmark, bool) {
	if a.cursor < 0 || a.cursor >= len(a.snap.View) {
		return model.Bookmark{}, false
	}
	return a.snap.View[a.cursor], true
}

// rowStep is how far up/down moves: one card row in the grid.
func (a App) rowStep() int {
	if a.layout == LayoutRows {
		return 1
	}
	return a.columns()
}

func currentTag(c board.Criteria) string {
	if c.Tag == "" {
		return board.AllTags
	}
	return c.Tag
}

func nextOption(options []string, current string) string {
	if len(options) == 0 {
		return board.AllTags
	}
	for i, opt := range options {
		if opt == current {
			return options[(i+1)%len(options)]
		}
	}
	return options[0]
}

func nextSort(current board.SortKey) board.SortKey {
	keys := board.SortKeys()
	if current == "" {
		current = board.SortNewest
	}
	for i, k := range keys {
		if k == current {
			return keys[(i+1)%len(keys)]
		}
	}
	return board.SortNewest
}
