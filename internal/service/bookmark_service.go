package service

import (
	"context"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/bmark/internal/model"
	"github.com/xxxsen/bmark/internal/notify"
	appErr "github.com/xxxsen/bmark/internal/pkg/errors"
	"github.com/xxxsen/bmark/internal/pkg/timeutil"
	"github.com/xxxsen/bmark/internal/repo"
)

type BookmarkService struct {
	bookmarks *repo.BookmarkRepo
	notifier  notify.Notifier
}

func NewBookmarkService(bookmarks *repo.BookmarkRepo, notifier notify.Notifier) *BookmarkService {
	return &BookmarkService{bookmarks: bookmarks, notifier: notifier}
}

type BookmarkInput struct {
	Title string
	URL   string
	Note  string
	Tag   string
}

func (in BookmarkInput) normalize() (model.BookmarkFields, error) {
	fields := model.BookmarkFields{
		Title: strings.TrimSpace(in.Title),
		URL:   strings.TrimSpace(in.URL),
		Note:  strings.TrimSpace(in.Note),
	}
	if fields.Title == "" || fields.URL == "" {
		return model.BookmarkFields{}, appErr.ErrInvalid
	}
	tag, ok := model.ParseTag(in.Tag)
	if !ok {
		return model.BookmarkFields{}, appErr.ErrInvalid
	}
	fields.Tag = tag
	return fields, nil
}

func (s *BookmarkService) List(ctx context.Context, userID string) ([]model.Bookmark, error) {
	return s.bookmarks.List(ctx, userID)
}

func (s *BookmarkService) Create(ctx context.Context, userID string, input BookmarkInput) (*model.Bookmark, error) {
	fields, err := input.normalize()
	if err != nil {
		return nil, err
	}
	now := timeutil.NowUnix()
	item := &model.Bookmark{
		ID:     newID(),
		UserID: userID,
		Title:  fields.Title,
		URL:    fields.URL,
		Note:   fields.Note,
		Tag:    fields.Tag,
		State:  model.BookmarkStateNormal,
		Ctime:  now,
		Mtime:  now,
	}
	if err := s.bookmarks.Create(ctx, item); err != nil {
		return nil, err
	}
	s.publish(ctx, model.EventInsert, *item)
	return item, nil
}

func (s *BookmarkService) Update(ctx context.Context, userID, id string, input BookmarkInput) (*model.Bookmark, error) {
	fields, err := input.normalize()
	if err != nil {
		return nil, err
	}
	if err := s.bookmarks.Update(ctx, userID, id, fields, timeutil.NowUnix()); err != nil {
		return nil, err
	}
	item, err := s.bookmarks.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, model.EventUpdate, *item)
	return item, nil
}

func (s *BookmarkService) Delete(ctx context.Context, userID, id string) error {
	if err := s.bookmarks.Delete(ctx, userID, id, timeutil.NowUnix()); err != nil {
		return err
	}
	s.publish(ctx, model.EventDelete, model.Bookmark{ID: id, UserID: userID})
	return nil
}

// ImportBatch stores new bookmarks, skipping URLs the owner already has and
// duplicates within the batch. Ctime values from the source are kept when
// set.
func (s *BookmarkService) ImportBatch(ctx context.Context, userID string, inputs []BookmarkInput, ctimes []int64) (int, int, error) {
	existing, err := s.bookmarks.List(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	seen := make(map[string]struct{}, len(existing)+len(inputs))
	for _, item := range existing {
		seen[item.URL] = struct{}{}
	}
	now := timeutil.NowUnix()
	items := make([]*model.Bookmark, 0, len(inputs))
	skipped := 0
	for i, input := range inputs {
		fields, err := input.normalize()
		if err != nil {
			skipped++
			continue
		}
		if _, ok := seen[fields.URL]; ok {
			skipped++
			continue
		}
		seen[fields.URL] = struct{}{}
		ctime := now
		if i < len(ctimes) && ctimes[i] > 0 {
			ctime = ctimes[i]
		}
		items = append(items, &model.Bookmark{
			ID:     newID(),
			UserID: userID,
			Title:  fields.Title,
			URL:    fields.URL,
			Note:   fields.Note,
			Tag:    fields.Tag,
			State:  model.BookmarkStateNormal,
			Ctime:  ctime,
			Mtime:  now,
		})
	}
	if err := s.bookmarks.CreateBatch(ctx, items); err != nil {
		return 0, 0, err
	}
	for _, item := range items {
		s.publish(ctx, model.EventInsert, *item)
	}
	return len(items), skipped, nil
}

func (s *BookmarkService) Purge(ctx context.Context, before int64) (int64, error) {
	return s.bookmarks.Purge(ctx, before)
}

// publish errors are logged only; the write itself already succeeded.
func (s *BookmarkService) publish(ctx context.Context, kind model.EventKind, record model.Bookmark) {
	if s.notifier == nil {
		return
	}
	evt := notify.NewEvent(kind, record)
	if err := s.notifier.Publish(ctx, evt); err != nil {
		logutil.GetLogger(ctx).Error("publish change event failed",
			zap.String("user_id", record.UserID),
			zap.String("bookmark_id", record.ID),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}
}
