package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/eadtoolz/core"
	"github.com/trezcool/eadtoolz/core/account"
)

// TestRecordStore runs the behaviour every core.RecordStore must share against store.
// store must be empty.
func TestRecordStore(t *testing.T, store core.RecordStore) {
	ctx := context.Background()
	created := time.Date(2021, 1, 10, 9, 26, 36, 0, time.UTC)

	t.Run("get missing", func(t *testing.T) {
		_, err := store.Get(ctx, core.CollectionUsers, "missing")
		assert.Equal(t, core.ErrRecordNotFound, err)
	})

	t.Run("create if absent", func(t *testing.T) {
		ok, err := store.CreateIfAbsent(ctx, core.CollectionUsers, "u1", core.Document{"role": "student", "created_at": created})
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.CreateIfAbsent(ctx, core.CollectionUsers, "u1", core.Document{"role": "admin"})
		require.NoError(t, err)
		assert.False(t, ok, "second create must not win")

		doc := GetRecord(t, store, core.CollectionUsers, "u1")
		assert.Equal(t, "student", doc.String("role"))
		assert.True(t, created.Equal(doc.Time("created_at")), "created_at = %v", doc["created_at"])
	})

	t.Run("set merges", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, core.CollectionUsers, "u1", core.Document{"role": "teacher", "name": "Jane"}))

		doc := GetRecord(t, store, core.CollectionUsers, "u1")
		assert.Equal(t, "teacher", doc.String("role"))
		assert.Equal(t, "Jane", doc.String("name"))
		assert.False(t, doc.Time("created_at").IsZero(), "untouched fields are kept")
	})

	t.Run("set creates", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, core.CollectionCourses, "c1", core.Document{"title": "Go"}))
		assert.Equal(t, "Go", GetRecord(t, store, core.CollectionCourses, "c1").String("title"))
	})

	t.Run("returned documents are copies", func(t *testing.T) {
		doc := GetRecord(t, store, core.CollectionUsers, "u1")
		doc["role"] = "admin"
		assert.Equal(t, "teacher", GetRecord(t, store, core.CollectionUsers, "u1").String("role"))
	})

	t.Run("concurrent creates", func(t *testing.T) {
		var wg sync.WaitGroup
		results := make(chan bool, 8)
		for i := 0; i < cap(results); i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := store.CreateIfAbsent(ctx, core.CollectionUsers, "race", core.Document{"role": "student"})
				assert.NoError(t, err)
				results <- ok
			}()
		}
		wg.Wait()
		close(results)

		wins := 0
		for ok := range results {
			if ok {
				wins++
			}
		}
		assert.Equal(t, 1, wins)
	})

	t.Run("count", func(t *testing.T) {
		n, err := store.Count(ctx, core.CollectionUsers)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = store.Count(ctx, core.CollectionChannels)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})
}

// TestAccountRepository runs the behaviour every account.Repository must share against repo.
// repo must be empty.
func TestAccountRepository(t *testing.T, repo account.Repository) {
	ctx := context.Background()

	jane := CreateAccount(t, repo, "Jane", "jane@test.cd", "Kx9#mLq2wZ", true)
	assert.NotEmpty(t, jane.ID)

	t.Run("duplicate email", func(t *testing.T) {
		_, err := repo.CreateAccount(ctx, account.Account{Email: "jane@test.cd", PasswordHash: []byte("x"), CreatedAt: time.Now(), UpdatedAt: time.Now()})
		assert.Equal(t, account.ErrEmailExists, err)
	})

	t.Run("uniqueness", func(t *testing.T) {
		assert.Equal(t, account.ErrEmailExists, repo.CheckEmailUniqueness(ctx, "jane@test.cd"))
		assert.NoError(t, repo.CheckEmailUniqueness(ctx, "jane@test.cd", jane))
		assert.NoError(t, repo.CheckEmailUniqueness(ctx, "john@test.cd"))
	})

	t.Run("get", func(t *testing.T) {
		got, err := repo.GetAccountByID(ctx, jane.ID)
		require.NoError(t, err)
		assert.Equal(t, jane.Email, got.Email)
		assert.True(t, got.LastLogin.IsZero())
		assert.Empty(t, got.AvatarURL)

		got, err = repo.GetAccountByEmail(ctx, "jane@test.cd")
		require.NoError(t, err)
		assert.Equal(t, jane.ID, got.ID)

		_, err = repo.GetAccountByID(ctx, "c0ffee00-0000-4000-8000-000000000000")
		assert.Equal(t, account.ErrNotFound, err)
		_, err = repo.GetAccountByEmail(ctx, "nobody@test.cd")
		assert.Equal(t, account.ErrNotFound, err)
	})

	t.Run("update", func(t *testing.T) {
		login := time.Now().UTC().Truncate(time.Millisecond)
		jane.LastLogin = login
		jane.AvatarURL = "https://cdn.test/jane.png"
		_, err := repo.UpdateAccount(ctx, jane)
		require.NoError(t, err)

		got, err := repo.GetAccountByID(ctx, jane.ID)
		require.NoError(t, err)
		assert.True(t, login.Equal(got.LastLogin))
		assert.Equal(t, "https://cdn.test/jane.png", got.AvatarURL)

		ghost := jane
		ghost.ID = "c0ffee00-0000-4000-8000-000000000000"
		ghost.Email = "ghost@test.cd"
		_, err = repo.UpdateAccount(ctx, ghost)
		assert.Equal(t, account.ErrNotFound, err)
	})
}
