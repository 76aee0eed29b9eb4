package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/eadtoolz/core"
)

const (
	getDocumentQuery = `SELECT data FROM document WHERE collection = $1 AND id = $2`

	// jsonb || merges top-level keys, right side winning
	setDocumentQuery = `
INSERT INTO document (collection, id, data) VALUES ($1, $2, $3)
ON CONFLICT (collection, id) DO UPDATE SET data = document.data || EXCLUDED.data, updated_at = NOW()`

	createDocumentQuery = `
INSERT INTO document (collection, id, data) VALUES ($1, $2, $3)
ON CONFLICT (collection, id) DO NOTHING`

	countDocumentsQuery = `SELECT COUNT(*) FROM document WHERE collection = $1`
)

type recordStore struct {
	db sqlx.ExtContext
}

var _ core.RecordStore = (*recordStore)(nil) // interface compliance check

func NewRecordStore(db sqlx.ExtContext) core.RecordStore {
	return &recordStore{db: db}
}

func (store *recordStore) Get(ctx context.Context, collection, id string) (core.Document, error) {
	var data []byte
	if err := sqlx.GetContext(ctx, store.db, &data, getDocumentQuery, collection, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, core.ErrRecordNotFound
		}
		return nil, errors.Wrapf(err, "getting %s/%s", collection, id)
	}

	doc := make(core.Document)
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(err, "decoding %s/%s", collection, id)
	}
	return doc, nil
}

func (store *recordStore) Set(ctx context.Context, collection, id string, doc core.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrapf(err, "encoding %s/%s", collection, id)
	}
	if _, err = store.db.ExecContext(ctx, setDocumentQuery, collection, id, data); err != nil {
		return errors.Wrapf(err, "setting %s/%s", collection, id)
	}
	return nil
}

func (store *recordStore) CreateIfAbsent(ctx context.Context, collection, id string, doc core.Document) (bool, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return false, errors.Wrapf(err, "encoding %s/%s", collection, id)
	}
	res, err := store.db.ExecContext(ctx, createDocumentQuery, collection, id, data)
	if err != nil {
		return false, errors.Wrapf(err, "creating %s/%s", collection, id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrapf(err, "creating %s/%s", collection, id)
	}
	return n == 1, nil
}

func (store *recordStore) Count(ctx context.Context, collection string) (int, error) {
	var n int
	if err := sqlx.GetContext(ctx, store.db, &n, countDocumentsQuery, collection); err != nil {
		return 0, errors.Wrapf(err, "counting %s", collection)
	}
	return n, nil
}
