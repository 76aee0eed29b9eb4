package mongorepos_test

import (
	"testing"

	"github.com/trezcool/eadtoolz/storage/database/mongo"
	"github.com/trezcool/eadtoolz/tests"
)

func TestRecordStore(t *testing.T) {
	testutil.TestRecordStore(t, mongorepos.NewRecordStore(testutil.PrepareMongo(t)))
}

func TestAccountRepository(t *testing.T) {
	testutil.TestAccountRepository(t, mongorepos.NewAccountRepository(testutil.PrepareMongo(t)))
}
