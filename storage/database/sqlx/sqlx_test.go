package sqlxrepos

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/eadtoolz/core/account"
	"github.com/trezcool/eadtoolz/tests"
)

func TestRecordStore(t *testing.T) {
	testutil.TestRecordStore(t, NewRecordStore(testutil.PrepareDB(t)))
}

func TestAccountRepository(t *testing.T) {
	testutil.TestAccountRepository(t, NewAccountRepository(testutil.PrepareDB(t)))
}

func Test_accountRepository_rows(t *testing.T) {
	repo := accountRepository{}
	now := time.Now().UTC()

	acc := account.Account{ID: "1", Email: "jane@test.cd", Name: "Jane", IsActive: true, CreatedAt: now, UpdatedAt: now}
	row := repo.toRow(acc)
	assert.False(t, row.AvatarURL.Valid)
	assert.False(t, row.LastLogin.Valid)
	assert.Equal(t, acc, repo.fromRow(row))

	acc.AvatarURL = "https://cdn.test/jane.png"
	acc.LastLogin = now
	row = repo.toRow(acc)
	assert.True(t, row.AvatarURL.Valid)
	assert.True(t, row.LastLogin.Valid)
	assert.Equal(t, acc, repo.fromRow(row))
}
