package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/jmoiron/sqlx"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/trezcool/eadtoolz/core"
	"github.com/trezcool/eadtoolz/storage/database"
	"github.com/trezcool/eadtoolz/storage/database/mongo"
)

// liveConfig returns the TEST configuration when it targets engine, or skips t.
func liveConfig(t *testing.T, engine string) *core.Config {
	t.Helper()

	if os.Getenv("ENV") == "" {
		t.Setenv("ENV", "TEST")
	}
	conf := core.NewConfig()
	if conf.Database.Engine != engine {
		t.Skipf("set TEST_DATABASE_ENGINE=%s to run against a live database", engine)
	}
	return conf
}

// PrepareDB returns a migrated, emptied Postgres database.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	conf := liveConfig(t, core.EnginePostgres)

	if err := database.CreateIfNotExist(conf); err != nil {
		t.Fatalf("CreateIfNotExist() failed: %v", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if err = database.Migrate(db, "up"); err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}
	if _, err = db.Exec(`TRUNCATE account, document`); err != nil {
		t.Fatalf("truncating tables failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, core.EnginePostgres)
}

// PrepareMongo returns an emptied MongoDB database.
func PrepareMongo(t *testing.T) *mongo.Database {
	t.Helper()
	conf := liveConfig(t, core.EngineMongo)
	ctx := context.Background()

	db, err := mongorepos.Open(ctx, conf)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	for _, coll := range []string{"accounts", core.CollectionUsers, core.CollectionCourses} {
		if _, err = db.Collection(coll).DeleteMany(ctx, bson.M{}); err != nil {
			t.Fatalf("emptying %s failed: %v", coll, err)
		}
	}
	if err = mongorepos.EnsureIndexes(ctx, db); err != nil {
		t.Fatalf("EnsureIndexes() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Client().Disconnect(context.Background()) })
	return db
}
