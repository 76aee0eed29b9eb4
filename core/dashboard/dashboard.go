package dashboard

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/eadtoolz/core"
)

// Collections are the collections summarized on the admin dashboard.
var Collections = []string{
	core.CollectionUsers,
	core.CollectionCourses,
	core.CollectionPlans,
	core.CollectionCategories,
	core.CollectionChannels,
}

// Counts maps a collection to its number of documents.
type Counts map[string]int

// Count counts the documents of every collection in parallel. The first failure cancels the others.
func Count(ctx context.Context, store core.RecordStore, collections ...string) (Counts, error) {
	counts := make([]int, len(collections))

	g, ctx := errgroup.WithContext(ctx)
	for i, coll := range collections {
		i, coll := i, coll
		g.Go(func() error {
			n, err := store.Count(ctx, coll)
			if err != nil {
				return errors.Wrapf(err, "counting %s", coll)
			}
			counts[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := make(Counts, len(collections))
	for i, coll := range collections {
		res[coll] = counts[i]
	}
	return res, nil
}
