package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/eadtoolz/core"
	"github.com/trezcool/eadtoolz/core/account"
	"github.com/trezcool/eadtoolz/core/session"
	emailsvc "github.com/trezcool/eadtoolz/services/email"
	logsvc "github.com/trezcool/eadtoolz/services/logger"
	"github.com/trezcool/eadtoolz/storage/database"
	inmemdb "github.com/trezcool/eadtoolz/storage/database/inmem"
	mongorepos "github.com/trezcool/eadtoolz/storage/database/mongo"
	sqlxrepos "github.com/trezcool/eadtoolz/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	cli, closeDB, err := newCommandLine(conf, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}

	// start CLI
	err = cli.run(os.Args)
	closeDB()
	if err != nil {
		if err != errHelp {
			fmt.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func newCommandLine(conf *core.Config, logger core.Logger) (*commandLine, func(), error) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	session.InitValidators(validate, translator)
	account.InitValidators(validate, translator)

	if err := core.ParseEmailTemplates(conf, logger); err != nil {
		return nil, nil, err
	}
	mailSvc := emailsvc.NewConsoleService(conf, logger)

	var (
		db      *sql.DB
		store   core.RecordStore
		repo    account.Repository
		closeDB = func() {}
	)
	switch conf.Database.Engine {
	case core.EngineMemory:
		logger.Warn("the memory engine is not persisted; changes are lost on exit")
		mem := inmemdb.Open()
		store, repo = inmemdb.NewRecordStore(mem), inmemdb.NewAccountRepository(mem)

	case core.EnginePostgres:
		var err error
		if db, err = database.Open(conf); err != nil {
			return nil, nil, err
		}
		xdb := sqlx.NewDb(db, conf.Database.Engine)
		store, repo = sqlxrepos.NewRecordStore(xdb), sqlxrepos.NewAccountRepository(xdb)
		closeDB = func() { _ = db.Close() }

	case core.EngineMongo:
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		mdb, err := mongorepos.Open(ctx, conf)
		if err != nil {
			return nil, nil, err
		}
		store, repo = mongorepos.NewRecordStore(mdb), mongorepos.NewAccountRepository(mdb)
		closeDB = func() { _ = mdb.Client().Disconnect(context.Background()) }

	default:
		return nil, nil, errors.Errorf("unknown database engine %q", conf.Database.Engine)
	}

	cli := &commandLine{
		db:       db,
		store:    store,
		accounts: account.NewService(repo, mailSvc, core.NewValidator(validate, translator), logger, conf),
	}
	return cli, closeDB, nil
}
