package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/didi/gendry/builder"
	"github.com/google/uuid"

	"github.com/xxxsen/anonmsg/internal/config"
	"github.com/xxxsen/anonmsg/internal/db"
	"github.com/xxxsen/anonmsg/internal/model"
	"github.com/xxxsen/anonmsg/internal/pkg/dbutil"
	appErr "github.com/xxxsen/anonmsg/internal/pkg/errors"
)

func init() {
	Register("postgres", func(ctx context.Context, cfg config.StoreConfig) (AccountRepo, CloseFunc, error) {
		conn, err := db.OpenPostgres(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := db.ApplyMigrations(ctx, conn); err != nil {
			_ = conn.Close()
			return nil, nil, fmt.Errorf("migrations: %w", err)
		}
		return NewPGAccountRepo(conn), func(context.Context) error { return conn.Close() }, nil
	})
}

var accountColumns = []string{
	"id", "username", "email", "password_hash", "verify_code", "verify_code_expiry",
	"is_verified", "is_accepting_messages", "ctime", "mtime",
}

// PGAccountRepo stores accounts in one table and their messages in another.
// Times are unix seconds except verify_code_expiry and created_at, which are
// unix milliseconds.
type PGAccountRepo struct {
	db *sql.DB
}

func NewPGAccountRepo(db *sql.DB) *PGAccountRepo {
	return &PGAccountRepo{db: db}
}

func scanAccount(rows *sql.Rows) (*model.Account, error) {
	var (
		acc          model.Account
		expiry       int64
		ctime, mtime int64
	)
	if err := rows.Scan(&acc.ID, &acc.Username, &acc.Email, &acc.PasswordHash, &acc.VerifyCode, &expiry,
		&acc.IsVerified, &acc.IsAcceptingMessages, &ctime, &mtime); err != nil {
		return nil, err
	}
	acc.VerifyCodeExpiry = time.UnixMilli(expiry)
	acc.CreatedAt = time.Unix(ctime, 0)
	acc.UpdatedAt = time.Unix(mtime, 0)
	return &acc, nil
}

func (r *PGAccountRepo) queryOne(ctx context.Context, sqlStr string, args []interface{}) (*model.Account, error) {
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, appErr.ErrNotFound
	}
	return scanAccount(rows)
}

func (r *PGAccountRepo) findWhere(ctx context.Context, where map[string]interface{}) (*model.Account, error) {
	sqlStr, args, err := builder.BuildSelect("accounts", where, accountColumns)
	if err != nil {
		return nil, err
	}
	return r.queryOne(ctx, sqlStr, args)
}

func (r *PGAccountRepo) FindByIdentifier(ctx context.Context, identifier string) (*model.Account, error) {
	sqlStr := "SELECT " + strings.Join(accountColumns, ",") + " FROM accounts WHERE username=? OR email=? LIMIT 1"
	return r.queryOne(ctx, sqlStr, []interface{}{identifier, identifier})
}

func (r *PGAccountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	return r.findWhere(ctx, map[string]interface{}{"id": id})
}

func (r *PGAccountRepo) FindByUsername(ctx context.Context, username string) (*model.Account, error) {
	return r.findWhere(ctx, map[string]interface{}{"username": username})
}

func (r *PGAccountRepo) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	return r.findWhere(ctx, map[string]interface{}{"email": email})
}

func (r *PGAccountRepo) FindVerifiedByUsername(ctx context.Context, username string) (*model.Account, error) {
	return r.findWhere(ctx, map[string]interface{}{"username": username, "is_verified": true})
}

func (r *PGAccountRepo) Create(ctx context.Context, account *model.Account) error {
	now := time.Now()
	id := uuid.NewString()
	data := map[string]interface{}{
		"id":                    id,
		"username":              account.Username,
		"email":                 account.Email,
		"password_hash":         account.PasswordHash,
		"verify_code":           account.VerifyCode,
		"verify_code_expiry":    account.VerifyCodeExpiry.UnixMilli(),
		"is_verified":           account.IsVerified,
		"is_accepting_messages": account.IsAcceptingMessages,
		"ctime":                 now.Unix(),
		"mtime":                 now.Unix(),
	}
	sqlStr, args, err := builder.BuildInsert("accounts", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	account.ID = id
	account.CreatedAt = time.Unix(now.Unix(), 0)
	account.UpdatedAt = account.CreatedAt
	return nil
}

func (r *PGAccountRepo) Update(ctx context.Context, account *model.Account) error {
	now := time.Now()
	where := map[string]interface{}{"id": account.ID}
	update := map[string]interface{}{
		"username":              account.Username,
		"email":                 account.Email,
		"password_hash":         account.PasswordHash,
		"verify_code":           account.VerifyCode,
		"verify_code_expiry":    account.VerifyCodeExpiry.UnixMilli(),
		"is_verified":           account.IsVerified,
		"is_accepting_messages": account.IsAcceptingMessages,
		"mtime":                 now.Unix(),
	}
	sqlStr, args, err := builder.BuildUpdate("accounts", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	account.UpdatedAt = time.Unix(now.Unix(), 0)
	return nil
}

func (r *PGAccountRepo) SetAccepting(ctx context.Context, id string, accepting bool) (*model.Account, error) {
	sqlStr := "UPDATE accounts SET is_accepting_messages=?, mtime=? WHERE id=? RETURNING " + strings.Join(accountColumns, ",")
	return r.queryOne(ctx, sqlStr, []interface{}{accepting, time.Now().Unix(), id})
}

func (r *PGAccountRepo) AppendMessage(ctx context.Context, accountID string, msg *model.Message) error {
	id := uuid.NewString()
	data := map[string]interface{}{
		"id":         id,
		"account_id": accountID,
		"content":    msg.Content,
		"created_at": msg.CreatedAt.UnixMilli(),
	}
	sqlStr, args, err := builder.BuildInsert("account_messages", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsForeignKeyViolation(err) {
			return appErr.ErrNotFound
		}
		return err
	}
	msg.ID = id
	return nil
}

func (r *PGAccountRepo) RemoveMessage(ctx context.Context, accountID, messageID string) (int64, error) {
	sqlStr, args, err := builder.BuildDelete("account_messages", map[string]interface{}{
		"id":         messageID,
		"account_id": accountID,
	})
	if err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *PGAccountRepo) ListMessages(ctx context.Context, accountID string) ([]model.Message, error) {
	if _, err := r.FindByID(ctx, accountID); err != nil {
		return nil, err
	}
	where := map[string]interface{}{"account_id": accountID, "_orderby": "seq asc"}
	sqlStr, args, err := builder.BuildSelect("account_messages", where, []string{"id", "content", "created_at"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var msgs []model.Message
	for rows.Next() {
		var (
			m         model.Message
			createdAt int64
		)
		if err := rows.Scan(&m.ID, &m.Content, &createdAt); err != nil {
			return nil, err
		}
		m.CreatedAt = time.UnixMilli(createdAt)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return model.SortMessages(msgs), nil
}
