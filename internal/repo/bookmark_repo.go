package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/bmark/internal/model"
	"github.com/xxxsen/bmark/internal/pkg/dbutil"
	appErr "github.com/xxxsen/bmark/internal/pkg/errors"
)

var bookmarkFields = []string{"id", "user_id", "title", "url", "note", "tag", "state", "ctime", "mtime"}

type BookmarkRepo struct {
	db      *sql.DB
	dialect dbutil.Dialect
}

func NewBookmarkRepo(db *sql.DB, dialect dbutil.Dialect) *BookmarkRepo {
	return &BookmarkRepo{db: db, dialect: dialect}
}

func bookmarkRow(b *model.Bookmark) map[string]interface{} {
	return map[string]interface{}{
		"id":      b.ID,
		"user_id": b.UserID,
		"title":   b.Title,
		"url":     b.URL,
		"note":    b.Note,
		"tag":     string(b.Tag),
		"state":   b.State,
		"ctime":   b.Ctime,
		"mtime":   b.Mtime,
	}
}

func (r *BookmarkRepo) Create(ctx context.Context, b *model.Bookmark) error {
	return r.CreateBatch(ctx, []*model.Bookmark{b})
}

func (r *BookmarkRepo) CreateBatch(ctx context.Context, items []*model.Bookmark) error {
	if len(items) == 0 {
		return nil
	}
	data := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		if item.State == 0 {
			item.State = model.BookmarkStateNormal
		}
		data = append(data, bookmarkRow(item))
	}
	sqlStr, args, err := builder.BuildInsert("bookmarks", data)
	if err != nil {
		return err
	}
	sqlStr, args = r.dialect.Finalize(sqlStr, args)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *BookmarkRepo) Update(ctx context.Context, userID, id string, fields model.BookmarkFields, mtime int64) error {
	where := map[string]interface{}{
		"id":      id,
		"user_id": userID,
		"state":   model.BookmarkStateNormal,
	}
	update := map[string]interface{}{
		"title": fields.Title,
		"url":   fields.URL,
		"note":  fields.Note,
		"tag":   string(fields.Tag),
		"mtime": mtime,
	}
	return r.exec(ctx, where, update)
}

// Delete marks the bookmark deleted. Rows are removed later by Purge.
func (r *BookmarkRepo) Delete(ctx context.Context, userID, id string, mtime int64) error {
	where := map[string]interface{}{
		"id":      id,
		"user_id": userID,
		"state":   model.BookmarkStateNormal,
	}
	update := map[string]interface{}{
		"state": model.BookmarkStateDeleted,
		"mtime": mtime,
	}
	return r.exec(ctx, where, update)
}

func (r *BookmarkRepo) exec(ctx context.Context, where, update map[string]interface{}) error {
	sqlStr, args, err := builder.BuildUpdate("bookmarks", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = r.dialect.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *BookmarkRepo) GetByID(ctx context.Context, userID, id string) (*model.Bookmark, error) {
	where := map[string]interface{}{
		"id":      id,
		"user_id": userID,
		"state":   model.BookmarkStateNormal,
	}
	items, err := r.query(ctx, where)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, appErr.ErrNotFound
	}
	return &items[0], nil
}

// List returns the live bookmarks of one owner, newest first.
func (r *BookmarkRepo) List(ctx context.Context, userID string) ([]model.Bookmark, error) {
	where := map[string]interface{}{
		"user_id":  userID,
		"state":    model.BookmarkStateNormal,
		"_orderby": "ctime desc, id desc",
	}
	return r.query(ctx, where)
}

func (r *BookmarkRepo) query(ctx context.Context, where map[string]interface{}) ([]model.Bookmark, error) {
	sqlStr, args, err := builder.BuildSelect("bookmarks", where, bookmarkFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = r.dialect.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	items := make([]model.Bookmark, 0)
	for rows.Next() {
		var item model.Bookmark
		var tag string
		if err := rows.Scan(&item.ID, &item.UserID, &item.Title, &item.URL, &item.Note, &tag, &item.State, &item.Ctime, &item.Mtime); err != nil {
			return nil, err
		}
		item.Tag = model.Tag(tag)
		items = append(items, item)
	}
	return items, rows.Err()
}

// Purge hard-deletes tombstones last modified before the cutoff.
func (r *BookmarkRepo) Purge(ctx context.Context, before int64) (int64, error) {
	where := map[string]interface{}{
		"state":   model.BookmarkStateDeleted,
		"mtime <": before,
	}
	sqlStr, args, err := builder.BuildDelete("bookmarks", where)
	if err != nil {
		return 0, err
	}
	sqlStr, args = r.dialect.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *BookmarkRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	where := map[string]interface{}{"user_id": userID, "state": model.BookmarkStateNormal}
	sqlStr, args, err := builder.BuildSelect("bookmarks", where, []string{"COUNT(1)"})
	if err != nil {
		return 0, err
	}
	sqlStr, args = r.dialect.Finalize(sqlStr, args)
	var count int
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
