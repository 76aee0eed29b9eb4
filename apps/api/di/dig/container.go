package dig_container

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/eadtoolz/apps/api/echo"
	"github.com/trezcool/eadtoolz/core"
	"github.com/trezcool/eadtoolz/core/account"
	"github.com/trezcool/eadtoolz/core/profile"
	"github.com/trezcool/eadtoolz/core/session"
	authsvc "github.com/trezcool/eadtoolz/services/auth"
	emailsvc "github.com/trezcool/eadtoolz/services/email"
	logsvc "github.com/trezcool/eadtoolz/services/logger"
	"github.com/trezcool/eadtoolz/storage/database"
	inmemdb "github.com/trezcool/eadtoolz/storage/database/inmem"
	mongorepos "github.com/trezcool/eadtoolz/storage/database/mongo"
	sqlxrepos "github.com/trezcool/eadtoolz/storage/database/sqlx"
)

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// Storage is everything the configured database engine provides.
	Storage struct {
		dig.Out
		Store    core.RecordStore
		Accounts account.Repository
		Closer   io.Closer
	}

	// Shutdown receives the OS signals that stop the API.
	Shutdown chan os.Signal
)

const mongoSetupTimeout = 30 * time.Second

type closerFunc func() error

func (fn closerFunc) Close() error { return fn() }

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newStorage(conf *core.Config, loggerParam DBLoggerParam) (Storage, error) {
	logger := loggerParam.Logger
	logger.Info(fmt.Sprintf("using %q database engine", conf.Database.Engine))

	switch conf.Database.Engine {
	case core.EngineMemory:
		db := inmemdb.Open()
		return Storage{
			Store:    inmemdb.NewRecordStore(db),
			Accounts: inmemdb.NewAccountRepository(db),
			Closer:   closerFunc(func() error { return nil }),
		}, nil

	case core.EnginePostgres:
		if err := database.CreateIfNotExist(conf); err != nil {
			return Storage{}, errors.Wrap(err, "creating database")
		}
		sqlDB, err := database.Open(conf)
		if err != nil {
			return Storage{}, errors.Wrap(err, "opening database")
		}
		if err = database.Migrate(sqlDB, "up"); err != nil {
			_ = sqlDB.Close()
			return Storage{}, errors.Wrap(err, "migrating database")
		}
		db := sqlx.NewDb(sqlDB, conf.Database.Engine)
		return Storage{
			Store:    sqlxrepos.NewRecordStore(db),
			Accounts: sqlxrepos.NewAccountRepository(db),
			Closer:   db,
		}, nil

	case core.EngineMongo:
		ctx, cancel := context.WithTimeout(context.Background(), mongoSetupTimeout)
		defer cancel()

		db, err := mongorepos.Open(ctx, conf)
		if err != nil {
			return Storage{}, errors.Wrap(err, "opening database")
		}
		if err = mongorepos.EnsureIndexes(ctx, db); err != nil {
			return Storage{}, errors.Wrap(err, "ensuring indexes")
		}
		client := db.Client()
		return Storage{
			Store:    mongorepos.NewRecordStore(db),
			Accounts: mongorepos.NewAccountRepository(db),
			Closer:   closerFunc(func() error { return client.Disconnect(context.Background()) }),
		}, nil
	}
	return Storage{}, errors.Errorf("unknown database engine %q", conf.Database.Engine)
}

func newEmailService(conf *core.Config, logger core.Logger) (core.EmailService, error) {
	if err := core.ParseEmailTemplates(conf, logger); err != nil {
		return nil, err
	}
	if conf.SendgridAPIKey == "" {
		return emailsvc.NewConsoleService(conf, logger), nil
	}
	return emailsvc.NewSendgridService(conf, logger), nil
}

func newValidator() *core.Validator {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	session.InitValidators(validate, translator)
	account.InitValidators(validate, translator)
	return core.NewValidator(validate, translator)
}

func newShutdown() Shutdown {
	shutdown := make(Shutdown, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	return shutdown
}

func newServer(
	conf *core.Config,
	logger core.Logger,
	validator *core.Validator,
	store core.RecordStore,
	accounts *account.Service,
	profiles *profile.Service,
	authenticator *authsvc.Authenticator,
) echoapi.Server {
	return echoapi.NewServer(&echoapi.Options{
		Config:        conf,
		Logger:        logger,
		Validator:     validator,
		Store:         store,
		Accounts:      accounts,
		Profiles:      profiles,
		Authenticator: authenticator,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newStorage))
	must(c.Provide(newEmailService))
	must(c.Provide(newValidator))
	must(c.Provide(account.NewService))
	must(c.Provide(profile.NewService))
	must(c.Provide(authsvc.NewAuthenticator))
	must(c.Provide(newShutdown))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
