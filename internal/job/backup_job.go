package job

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/bmark/internal/filestore"
	"github.com/xxxsen/bmark/internal/repo"
	"github.com/xxxsen/bmark/internal/service"
)

// BackupJob writes one JSON export per user to the file store under
// <prefix>/<user_id>/<date>.json. Users without live bookmarks are skipped.
// A failing user does not stop the others.
type BackupJob struct {
	users     *repo.UserRepo
	bookmarks *repo.BookmarkRepo
	exporter  *service.ExportService
	store     filestore.Store
	prefix    string
	now       func() time.Time
}

func NewBackupJob(users *repo.UserRepo, bookmarks *repo.BookmarkRepo, exporter *service.ExportService, store filestore.Store, prefix string) *BackupJob {
	return &BackupJob{users: users, bookmarks: bookmarks, exporter: exporter, store: store, prefix: prefix, now: time.Now}
}

func (j *BackupJob) Name() string {
	return "bookmark_backup"
}

func (j *BackupJob) Run(ctx context.Context) error {
	if j.store == nil {
		return nil
	}
	ids, err := j.users.ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	logger := logutil.GetLogger(ctx)
	stamp := j.now().UTC().Format("2006-01-02")
	failed, skipped, total := 0, 0, 0
	for _, userID := range ids {
		count, err := j.bookmarks.CountByUser(ctx, userID)
		if err != nil {
			failed++
			logger.Error("count bookmarks failed", zap.String("user_id", userID), zap.Error(err))
			continue
		}
		if count == 0 {
			skipped++
			continue
		}
		if err := j.backupUser(ctx, userID, stamp); err != nil {
			failed++
			logger.Error("backup user failed", zap.String("user_id", userID), zap.Error(err))
			continue
		}
		total += count
	}
	logger.Info("backup finished",
		zap.Int("users", len(ids)),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
		zap.Int("bookmarks", total),
	)
	if failed > 0 {
		return fmt.Errorf("backup failed for %d of %d users", failed, len(ids))
	}
	return nil
}

func (j *BackupJob) backupUser(ctx context.Context, userID, stamp string) error {
	file, err := j.exporter.Export(ctx, userID, service.ExportFormatJSON)
	if err != nil {
		return err
	}
	return j.store.Save(ctx, BackupKey(j.prefix, userID, stamp), bytes.NewReader(file.Data), int64(len(file.Data)))
}

func BackupKey(prefix, userID, stamp string) string {
	return path.Join(prefix, userID, stamp+".json")
}
