package inmemdb

import (
	"context"

	"github.com/trezcool/eadtoolz/core"
)

type recordStore struct {
	db *documentTable
}

var _ core.RecordStore = (*recordStore)(nil)

func NewRecordStore(db *DB) core.RecordStore {
	return &recordStore{db: db.documents}
}

func (store *recordStore) Get(ctx context.Context, collection, id string) (core.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	store.db.mutex.RLock()
	defer store.db.mutex.RUnlock()

	if doc, ok := store.db.table[collection][id]; ok {
		return doc.Clone(), nil
	}
	return nil, core.ErrRecordNotFound
}

func (store *recordStore) Set(ctx context.Context, collection, id string, doc core.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	store.db.mutex.Lock()
	defer store.db.mutex.Unlock()

	coll := store.collection(collection)
	stored, ok := coll[id]
	if !ok {
		coll[id] = doc.Clone()
		return nil
	}
	for k, v := range doc {
		stored[k] = v
	}
	return nil
}

func (store *recordStore) CreateIfAbsent(ctx context.Context, collection, id string, doc core.Document) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	store.db.mutex.Lock()
	defer store.db.mutex.Unlock()

	coll := store.collection(collection)
	if _, ok := coll[id]; ok {
		return false, nil
	}
	coll[id] = doc.Clone()
	return true, nil
}

func (store *recordStore) Count(ctx context.Context, collection string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	store.db.mutex.RLock()
	defer store.db.mutex.RUnlock()
	return len(store.db.table[collection]), nil
}

// collection must be called with the write lock held.
func (store *recordStore) collection(name string) map[string]core.Document {
	coll, ok := store.db.table[name]
	if !ok {
		coll = make(map[string]core.Document)
		store.db.table[name] = coll
	}
	return coll
}
