package mongorepos

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/trezcool/eadtoolz/core"
)

func Test_fromBSON(t *testing.T) {
	created := time.Date(2021, 1, 10, 9, 26, 36, 0, time.UTC)
	doc := fromBSON(bson.M{
		"_id":        "u1",
		"role":       "admin",
		"created_at": primitive.NewDateTimeFromTime(created),
	})

	assert.Equal(t, core.Document{"role": "admin", "created_at": created}, doc)
	assert.Equal(t, bson.M{"role": "admin"}, toBSON(core.Document{"_id": "u2", "role": "admin"}))
}
