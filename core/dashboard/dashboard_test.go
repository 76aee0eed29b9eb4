package dashboard_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/eadtoolz/core"
	"github.com/trezcool/eadtoolz/core/dashboard"
	"github.com/trezcool/eadtoolz/storage/database/inmem"
)

func TestCount(t *testing.T) {
	ctx := context.Background()
	store := inmemdb.NewRecordStore(inmemdb.Open())

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Set(ctx, core.CollectionUsers, id, core.Document{"role": "student"}))
	}
	require.NoError(t, store.Set(ctx, core.CollectionCourses, "go", core.Document{"title": "Go"}))

	counts, err := dashboard.Count(ctx, store, dashboard.Collections...)
	require.NoError(t, err)
	assert.Equal(t, dashboard.Counts{
		core.CollectionUsers:      3,
		core.CollectionCourses:    1,
		core.CollectionPlans:      0,
		core.CollectionCategories: 0,
		core.CollectionChannels:   0,
	}, counts)

	t.Run("failure", func(t *testing.T) {
		failing := &countFailure{RecordStore: store, collection: core.CollectionPlans}
		_, err := dashboard.Count(ctx, failing, dashboard.Collections...)
		assert.EqualError(t, err, "counting plans: unavailable")
	})
}

type countFailure struct {
	core.RecordStore
	collection string
}

func (s countFailure) Count(ctx context.Context, collection string) (int, error) {
	if collection == s.collection {
		return 0, errors.New("unavailable")
	}
	return s.RecordStore.Count(ctx, collection)
}
