package inmemdb

import (
	"sync"

	"github.com/trezcool/eadtoolz/core"
	"github.com/trezcool/eadtoolz/core/account"
)

type (
	// DB is a process-local database, used in development and tests.
	DB struct {
		documents *documentTable
		accounts  *accountTable
	}

	documentTable struct {
		mutex sync.RWMutex
		table map[string]map[string]core.Document // {collection: {id: doc}}
	}

	accountTable struct {
		mutex sync.RWMutex
		table map[string]*account.Account
	}
)

func Open() *DB {
	return &DB{
		documents: &documentTable{table: make(map[string]map[string]core.Document)},
		accounts:  &accountTable{table: make(map[string]*account.Account)},
	}
}
