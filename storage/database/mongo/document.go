package mongorepos

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/eadtoolz/core"
)

type recordStore struct {
	db *mongo.Database
}

var _ core.RecordStore = (*recordStore)(nil) // interface compliance check

// NewRecordStore stores each collection in the MongoDB collection of the same name, keyed by _id.
func NewRecordStore(db *mongo.Database) core.RecordStore {
	return &recordStore{db: db}
}

func (store *recordStore) Get(ctx context.Context, collection, id string) (core.Document, error) {
	var raw bson.M
	if err := store.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&raw); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, core.ErrRecordNotFound
		}
		return nil, errors.Wrapf(err, "getting %s/%s", collection, id)
	}
	return fromBSON(raw), nil
}

func (store *recordStore) Set(ctx context.Context, collection, id string, doc core.Document) error {
	_, err := store.db.Collection(collection).UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": toBSON(doc)},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return errors.Wrapf(err, "setting %s/%s", collection, id)
	}
	return nil
}

func (store *recordStore) CreateIfAbsent(ctx context.Context, collection, id string, doc core.Document) (bool, error) {
	res, err := store.db.Collection(collection).UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$setOnInsert": toBSON(doc)},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		// two concurrent upserts on the same _id: the loser sees a duplicate key
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "creating %s/%s", collection, id)
	}
	return res.UpsertedCount == 1, nil
}

func (store *recordStore) Count(ctx context.Context, collection string) (int, error) {
	n, err := store.db.Collection(collection).CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, errors.Wrapf(err, "counting %s", collection)
	}
	return int(n), nil
}

func toBSON(doc core.Document) bson.M {
	m := make(bson.M, len(doc))
	for k, v := range doc {
		if k == "_id" {
			continue
		}
		m[k] = v
	}
	return m
}

func fromBSON(raw bson.M) core.Document {
	doc := make(core.Document, len(raw))
	for k, v := range raw {
		if k == "_id" {
			continue
		}
		if dt, ok := v.(primitive.DateTime); ok {
			doc[k] = dt.Time().UTC()
			continue
		}
		doc[k] = v
	}
	return doc
}
