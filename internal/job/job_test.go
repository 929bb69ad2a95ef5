package job

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/bmark/internal/config"
	"github.com/xxxsen/bmark/internal/filestore"
	"github.com/xxxsen/bmark/internal/model"
	"github.com/xxxsen/bmark/internal/repo"
	"github.com/xxxsen/bmark/internal/service"
	"github.com/xxxsen/bmark/internal/testutil"
)

func TestPurgeJob_RemovesOldTombstones(t *testing.T) {
	conn, dialect, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	bookmarks := repo.NewBookmarkRepo(conn, dialect)
	ctx := context.Background()

	now := time.Unix(100*86400, 0)
	old := now.Add(-40 * 24 * time.Hour).Unix()
	recent := now.Add(-5 * 24 * time.Hour).Unix()
	for _, id := range []string{"b1", "b2", "b3"} {
		require.NoError(t, bookmarks.Create(ctx, &model.Bookmark{
			ID: id, UserID: "u1", Title: id, URL: "https://" + id + ".dev",
			State: model.BookmarkStateNormal, Ctime: old, Mtime: old,
		}))
	}
	require.NoError(t, bookmarks.Delete(ctx, "u1", "b1", old))
	require.NoError(t, bookmarks.Delete(ctx, "u1", "b2", recent))

	job := NewPurgeJob(service.NewBookmarkService(bookmarks, nil), 30)
	job.now = func() time.Time { return now }
	require.Equal(t, "bookmark_purge", job.Name())
	require.NoError(t, job.Run(ctx))

	var total int
	require.NoError(t, conn.QueryRow("SELECT COUNT(1) FROM bookmarks").Scan(&total))
	require.Equal(t, 2, total)
	list, err := bookmarks.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "b3", list[0].ID)
}

func TestBackupJob_WritesPerUserExport(t *testing.T) {
	conn, dialect, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	users := repo.NewUserRepo(conn, dialect)
	bookmarks := repo.NewBookmarkRepo(conn, dialect)
	ctx := context.Background()

	require.NoError(t, users.Create(ctx, &model.User{ID: "u1", Email: "a@example.com", Ctime: 1, Mtime: 1}))
	require.NoError(t, users.Create(ctx, &model.User{ID: "u2", Email: "b@example.com", Ctime: 2, Mtime: 2}))
	require.NoError(t, bookmarks.Create(ctx, &model.Bookmark{
		ID: "b1", UserID: "u1", Title: "Go", URL: "https://go.dev", Tag: model.TagDev,
		State: model.BookmarkStateNormal, Ctime: 10, Mtime: 10,
	}))

	store, err := filestore.New(config.FileStoreConfig{Type: "local", Data: map[string]interface{}{"dir": t.TempDir()}})
	require.NoError(t, err)
	job := NewBackupJob(users, bookmarks, service.NewExportService(bookmarks), store, "backups")
	job.now = func() time.Time { return time.Date(2026, 3, 4, 5, 0, 0, 0, time.UTC) }
	require.NoError(t, job.Run(ctx))

	require.Equal(t, "backups/u1/2026-03-04.json", BackupKey("backups", "u1", "2026-03-04"))
	rc, err := store.Open(ctx, "backups/u1/2026-03-04.json")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	var payload service.ExportPayload
	require.NoError(t, json.Unmarshal(data, &payload))
	require.Len(t, payload.Bookmarks, 1)
	require.Equal(t, "https://go.dev", payload.Bookmarks[0].URL)

	// u2 has no bookmarks, so nothing is written for it
	_, err = store.Open(ctx, "backups/u2/2026-03-04.json")
	require.Error(t, err)
}

func TestBackupJob_NoStore(t *testing.T) {
	job := NewBackupJob(nil, nil, nil, nil, "backups")
	require.NoError(t, job.Run(context.Background()))
}
