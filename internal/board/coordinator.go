package board

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/bmark/internal/model"
)

var (
	ErrInvalidDraft = errors.New("title and url are required")
	ErrSubmitting   = errors.New("a submission is already in flight")
	ErrNoIdentity   = errors.New("not signed in")
)

const (
	NoticeSaved        = "Bookmark saved"
	NoticeDeleted      = "Bookmark deleted"
	NoticeSaveFailed   = "Could not save bookmark"
	NoticeDeleteFailed = "Could not delete bookmark, reloading"
)

type NoticeKind int

const (
	NoticeInfo NoticeKind = iota
	NoticeError
)

type Notice struct {
	Kind NoticeKind
	Text string
}

// Draft is the create/edit form content.
type Draft struct {
	Title string
	URL   string
	Note  string
	Tag   model.Tag
}

func DraftFrom(b model.Bookmark) Draft {
	return Draft{Title: b.Title, URL: b.URL, Note: b.Note, Tag: b.Tag}
}

func (d Draft) Fields() model.BookmarkFields {
	return model.BookmarkFields{
		Title: strings.TrimSpace(d.Title),
		URL:   strings.TrimSpace(d.URL),
		Note:  strings.TrimSpace(d.Note),
		Tag:   d.Tag,
	}
}

// CanSubmit gates the submit affordance.
func CanSubmit(d Draft) bool {
	return strings.TrimSpace(d.Title) != "" && strings.TrimSpace(d.URL) != ""
}

type mirrorControl interface {
	Owner() string
	RemoveLocal(id string)
	Refetch(ctx context.Context)
}

// Coordinator turns create, update and delete intents into remote writes.
// Create and update are not applied locally; the change feed delivers
// their effect. Delete is optimistic with a refetch on failure.
type Coordinator struct {
	storage Storage
	mirror  mirrorControl
	notify  func(Notice)

	creating atomic.Bool
	updating atomic.Bool
}

func NewCoordinator(storage Storage, mirror mirrorControl, notify func(Notice)) *Coordinator {
	if notify == nil {
		notify = func(Notice) {}
	}
	return &Coordinator{storage: storage, mirror: mirror, notify: notify}
}

func (c *Coordinator) Submitting() (creating, updating bool) {
	return c.creating.Load(), c.updating.Load()
}

// Create issues one insert. On success the caller should reset the draft;
// on failure the draft is kept for another try.
func (c *Coordinator) Create(ctx context.Context, d Draft) (*model.Bookmark, error) {
	if !CanSubmit(d) {
		return nil, ErrInvalidDraft
	}
	owner := c.mirror.Owner()
	if owner == "" {
		return nil, ErrNoIdentity
	}
	if !c.creating.CompareAndSwap(false, true) {
		return nil, ErrSubmitting
	}
	defer c.creating.Store(false)
	item, err := c.storage.Insert(ctx, owner, d.Fields())
	if err != nil {
		logutil.GetLogger(ctx).Error("create bookmark failed", zap.Error(err))
		c.notify(Notice{Kind: NoticeError, Text: NoticeSaveFailed})
		return nil, err
	}
	c.notify(Notice{Kind: NoticeInfo, Text: NoticeSaved})
	return item, nil
}

// Update issues one update keyed by id.
func (c *Coordinator) Update(ctx context.Context, id string, d Draft) (*model.Bookmark, error) {
	if !CanSubmit(d) || id == "" {
		return nil, ErrInvalidDraft
	}
	if c.mirror.Owner() == "" {
		return nil, ErrNoIdentity
	}
	if !c.updating.CompareAndSwap(false, true) {
		return nil, ErrSubmitting
	}
	defer c.updating.Store(false)
	item, err := c.storage.Update(ctx, id, d.Fields())
	if err != nil {
		logutil.GetLogger(ctx).Error("update bookmark failed", zap.String("bookmark_id", id), zap.Error(err))
		c.notify(Notice{Kind: NoticeError, Text: NoticeSaveFailed})
		return nil, err
	}
	c.notify(Notice{Kind: NoticeInfo, Text: NoticeSaved})
	return item, nil
}

// Delete removes the record locally, then remotely. When the remote call
// fails the whole mirror is refetched, since the server state is unknown.
func (c *Coordinator) Delete(ctx context.Context, id string) error {
	if c.mirror.Owner() == "" {
		return ErrNoIdentity
	}
	c.applyLocal(id)
	if err := c.confirmRemote(ctx, id); err != nil {
		c.compensate(ctx, id, err)
		return err
	}
	return nil
}

func (c *Coordinator) applyLocal(id string) {
	c.mirror.RemoveLocal(id)
	c.notify(Notice{Kind: NoticeInfo, Text: NoticeDeleted})
}

func (c *Coordinator) confirmRemote(ctx context.Context, id string) error {
	return c.storage.Delete(ctx, id)
}

func (c *Coordinator) compensate(ctx context.Context, id string, cause error) {
	logutil.GetLogger(ctx).Error("delete bookmark failed, refetching", zap.String("bookmark_id", id), zap.Error(cause))
	c.notify(Notice{Kind: NoticeError, Text: NoticeDeleteFailed})
	c.mirror.Refetch(context.WithoutCancel(ctx))
}
