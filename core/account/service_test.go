package account_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/eadtoolz/core"
	"github.com/trezcool/eadtoolz/core/account"
	emailsvc "github.com/trezcool/eadtoolz/services/email"
	inmemdb "github.com/trezcool/eadtoolz/storage/database/inmem"
	testutil "github.com/trezcool/eadtoolz/tests"
)

const pwd = "Kx9#mLq2wZ"

func setup(t *testing.T) (*account.Service, account.Repository, *emailsvc.Outbox) {
	t.Helper()
	repo := inmemdb.NewAccountRepository(inmemdb.Open())
	outbox := new(emailsvc.Outbox)
	svc := testutil.NewAccountService(testutil.NewConfig(), repo, testutil.NewLogger(), outbox)
	return svc, repo, outbox
}

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr), "want a validation error, got %v", err)
	flds := make(map[string]string, len(vErr.Fields))
	for _, f := range vErr.Fields {
		flds[f.Field] = f.Error
	}
	return flds
}

func TestService_Create(t *testing.T) {
	svc, repo, _ := setup(t)
	testutil.CreateAccount(t, repo, "Dup", "dup@test.cd", pwd, true)

	newAccount := func(email, password string) account.NewAccount {
		return account.NewAccount{Name: "Awesome Person", Email: email, Password: password, PasswordConfirm: password}
	}

	tests := []struct {
		name      string
		na        account.NewAccount
		wantField string
		wantError string
	}{
		{name: "missing name", na: account.NewAccount{Email: "a@test.cd", Password: pwd, PasswordConfirm: pwd}, wantField: "name", wantError: "this field is required"},
		{name: "invalid email", na: newAccount("lol", pwd), wantField: "email"},
		{name: "passwords differ", na: account.NewAccount{Name: "A", Email: "a@test.cd", Password: pwd, PasswordConfirm: pwd + "!"}, wantField: "password_confirm"},
		{name: "too short", na: newAccount("a@test.cd", "x9#mL"), wantField: "password", wantError: "password must contain at least 8 characters"},
		{name: "whitespace", na: newAccount("a@test.cd", "Kx9# mLq2wZ"), wantField: "password", wantError: "password must not contain whitespace"},
		{name: "all numeric", na: newAccount("a@test.cd", "2093847561"), wantField: "password", wantError: "password cannot be entirely numeric"},
		{name: "similar to email", na: newAccount("awesome@test.cd", "awesome@test.c"), wantField: "password", wantError: "password cannot be similar to account attributes"},
		{name: "email taken", na: newAccount(" DUP@test.cd", pwd), wantField: "email", wantError: account.ErrEmailExists.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.na)
			flds := fieldErrors(t, err)
			require.Contains(t, flds, tt.wantField)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, flds[tt.wantField])
			}
		})
	}

	t.Run("valid", func(t *testing.T) {
		acc, err := svc.Create(context.Background(), newAccount(" New@Test.cd ", pwd))
		require.NoError(t, err)
		assert.NotEmpty(t, acc.ID)
		assert.Equal(t, "new@test.cd", acc.Email)
		assert.True(t, acc.IsActive)
		assert.NoError(t, acc.CheckPassword(pwd))

		got, err := svc.GetByEmail(context.Background(), "NEW@test.cd")
		require.NoError(t, err)
		assert.Equal(t, acc.ID, got.ID)
	})
}

func TestService_RequestPasswordReset(t *testing.T) {
	svc, repo, outbox := setup(t)
	acc := testutil.CreateAccount(t, repo, "Reset Me", "reset@test.cd", pwd, true)

	err := svc.RequestPasswordReset(context.Background(), "nobody@test.cd")
	assert.Equal(t, account.ErrNotFound, err)
	assert.Empty(t, outbox.Messages())

	require.NoError(t, svc.RequestPasswordReset(context.Background(), " RESET@test.cd"))
	msg, ok := outbox.Last()
	require.True(t, ok)
	require.Len(t, msg.To, 1)
	assert.Equal(t, acc.Email, msg.To[0].Address)
	assert.Contains(t, msg.TextContent, account.EncodeUID(acc))
}
