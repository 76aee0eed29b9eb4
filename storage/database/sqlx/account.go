package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/eadtoolz/core/account"
)

const uniqueViolation = "23505"

const (
	accountColumns = `id, email, name, avatar_url, password_hash, is_active, created_at, updated_at, last_login`

	insertAccountQuery = `
INSERT INTO account (` + accountColumns + `)
VALUES (:id, :email, :name, :avatar_url, :password_hash, :is_active, :created_at, :updated_at, :last_login)`

	updateAccountQuery = `
UPDATE account SET email = :email, name = :name, avatar_url = :avatar_url, password_hash = :password_hash,
	is_active = :is_active, updated_at = :updated_at, last_login = :last_login
WHERE id = :id`
)

// accountRow maps the account table.
type accountRow struct {
	ID           string      `db:"id"`
	Email        string      `db:"email"`
	Name         string      `db:"name"`
	AvatarURL    null.String `db:"avatar_url"`
	PasswordHash []byte      `db:"password_hash"`
	IsActive     bool        `db:"is_active"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
	LastLogin    null.Time   `db:"last_login"`
}

type accountRepository struct {
	db sqlx.ExtContext
}

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db sqlx.ExtContext) account.Repository {
	return &accountRepository{db: db}
}

func (repo accountRepository) toRow(acc account.Account) accountRow {
	return accountRow{
		ID:           acc.ID,
		Email:        acc.Email,
		Name:         acc.Name,
		AvatarURL:    null.NewString(acc.AvatarURL, acc.AvatarURL != ""),
		PasswordHash: acc.PasswordHash,
		IsActive:     acc.IsActive,
		CreatedAt:    acc.CreatedAt.UTC(),
		UpdatedAt:    acc.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(acc.LastLogin.UTC(), !acc.LastLogin.IsZero()),
	}
}

func (repo accountRepository) fromRow(row accountRow) account.Account {
	return account.Account{
		ID:           row.ID,
		Email:        row.Email,
		Name:         row.Name,
		AvatarURL:    row.AvatarURL.String,
		PasswordHash: row.PasswordHash,
		IsActive:     row.IsActive,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
		LastLogin:    row.LastLogin.Time.UTC(),
	}
}

func (repo accountRepository) CheckEmailUniqueness(ctx context.Context, email string, excluded ...account.Account) error {
	query := `SELECT COUNT(*) FROM account WHERE email = ?`
	args := []interface{}{email}
	if len(excluded) > 0 {
		ids := make([]string, 0, len(excluded))
		for _, acc := range excluded {
			ids = append(ids, acc.ID)
		}
		var err error
		query, args, err = sqlx.In(query+` AND id NOT IN (?)`, email, ids)
		if err != nil {
			return errors.Wrap(err, "building uniqueness query")
		}
	}

	var n int
	if err := sqlx.GetContext(ctx, repo.db, &n, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if n > 0 {
		return account.ErrEmailExists
	}
	return nil
}

func (repo accountRepository) CreateAccount(ctx context.Context, acc account.Account) (account.Account, error) {
	acc.ID = uuid.New().String()
	if _, err := sqlx.NamedExecContext(ctx, repo.db, insertAccountQuery, repo.toRow(acc)); err != nil {
		if isUniqueViolation(err) {
			return account.Account{}, account.ErrEmailExists
		}
		return account.Account{}, errors.Wrap(err, "inserting account")
	}
	return acc, nil
}

func (repo accountRepository) getAccount(ctx context.Context, where string, arg interface{}) (account.Account, error) {
	var row accountRow
	query := `SELECT ` + accountColumns + ` FROM account WHERE ` + where + ` = $1`
	if err := sqlx.GetContext(ctx, repo.db, &row, query, arg); err != nil {
		if err == sql.ErrNoRows {
			return account.Account{}, account.ErrNotFound
		}
		return account.Account{}, errors.Wrap(err, "selecting account")
	}
	return repo.fromRow(row), nil
}

func (repo accountRepository) GetAccountByID(ctx context.Context, id string) (account.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return account.Account{}, account.ErrNotFound
	}
	return repo.getAccount(ctx, "id", id)
}

func (repo accountRepository) GetAccountByEmail(ctx context.Context, email string) (account.Account, error) {
	return repo.getAccount(ctx, "email", email)
}

func (repo accountRepository) UpdateAccount(ctx context.Context, acc account.Account) (account.Account, error) {
	res, err := sqlx.NamedExecContext(ctx, repo.db, updateAccountQuery, repo.toRow(acc))
	if err != nil {
		if isUniqueViolation(err) {
			return account.Account{}, account.ErrEmailExists
		}
		return account.Account{}, errors.Wrap(err, "updating account")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return account.Account{}, errors.Wrap(err, "updating account")
	}
	if n == 0 {
		return account.Account{}, account.ErrNotFound
	}
	return acc, nil
}

func isUniqueViolation(err error) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && pqErr.Code == uniqueViolation
}
