package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/bmark/internal/service"
)

type PurgeJob struct {
	bookmarks     *service.BookmarkService
	retentionDays int
	now           func() time.Time
}

func NewPurgeJob(bookmarks *service.BookmarkService, retentionDays int) *PurgeJob {
	return &PurgeJob{bookmarks: bookmarks, retentionDays: retentionDays, now: time.Now}
}

func (j *PurgeJob) Name() string {
	return "bookmark_purge"
}

func (j *PurgeJob) Run(ctx context.Context) error {
	if j.bookmarks == nil {
		return nil
	}
	days := j.retentionDays
	if days <= 0 {
		days = 30
	}
	cutoff := j.now().Add(-time.Duration(days) * 24 * time.Hour).Unix()
	removed, err := j.bookmarks.Purge(ctx, cutoff)
	if err != nil {
		return err
	}
	if removed > 0 {
		logutil.GetLogger(ctx).Info("purged deleted bookmarks", zap.Int64("count", removed), zap.Int64("before", cutoff))
	}
	return nil
}
