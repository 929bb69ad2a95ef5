package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/bmark/internal/model"
	"github.com/xxxsen/bmark/internal/pkg/dbutil"
	appErr "github.com/xxxsen/bmark/internal/pkg/errors"
)

var oauthFields = []string{"id", "user_id", "provider", "provider_user_id", "email", "login", "ctime", "mtime"}

type OAuthRepo struct {
	db      *sql.DB
	dialect dbutil.Dialect
}

func NewOAuthRepo(db *sql.DB, dialect dbutil.Dialect) *OAuthRepo {
	return &OAuthRepo{db: db, dialect: dialect}
}

func (r *OAuthRepo) Create(ctx context.Context, account *model.OAuthAccount) error {
	data := map[string]interface{}{
		"id":               account.ID,
		"user_id":          account.UserID,
		"provider":         account.Provider,
		"provider_user_id": account.ProviderUserID,
		"email":            account.Email,
		"login":            account.Login,
		"ctime":            account.Ctime,
		"mtime":            account.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("oauth_accounts", []map[string]interface{}{data})
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

func (r *OAuthRepo) GetByProviderUserID(ctx context.Context, provider, providerUserID string) (*model.OAuthAccount, error) {
	where := map[string]interface{}{
		"provider":         provider,
		"provider_user_id": providerUserID,
	}
	return r.getOne(ctx, where)
}

func (r *OAuthRepo) GetByUserProvider(ctx context.Context, userID, provider string) (*model.OAuthAccount, error) {
	where := map[string]interface{}{
		"user_id":  userID,
		"provider": provider,
	}
	return r.getOne(ctx, where)
}

func (r *OAuthRepo) getOne(ctx context.Context, where map[string]interface{}) (*model.OAuthAccount, error) {
	sqlStr, args, err := builder.BuildSelect("oauth_accounts", where, oauthFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = r.dialect.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		return nil, appErr.ErrNotFound
	}
	var account model.OAuthAccount
	if err := rows.Scan(&account.ID, &account.UserID, &account.Provider, &account.ProviderUserID, &account.Email, &account.Login, &account.Ctime, &account.Mtime); err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *OAuthRepo) ListByUser(ctx context.Context, userID string) ([]model.OAuthAccount, error) {
	where := map[string]interface{}{"user_id": userID, "_orderby": "ctime asc"}
	sqlStr, args, err := builder.BuildSelect("oauth_accounts", where, oauthFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = r.dialect.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	accounts := make([]model.OAuthAccount, 0)
	for rows.Next() {
		var account model.OAuthAccount
		if err := rows.Scan(&account.ID, &account.UserID, &account.Provider, &account.ProviderUserID, &account.Email, &account.Login, &account.Ctime, &account.Mtime); err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

func (r *OAuthRepo) UpdateLogin(ctx context.Context, id, email, login string, mtime int64) error {
	where := map[string]interface{}{"id": id}
	update := map[string]interface{}{"email": email, "login": login, "mtime": mtime}
	sqlStr, args, err := builder.BuildUpdate("oauth_accounts", where, update)
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
