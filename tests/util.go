package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/eadtoolz/core"
	"github.com/trezcool/eadtoolz/core/account"
	"github.com/trezcool/eadtoolz/core/session"
	"github.com/trezcool/eadtoolz/services/email"
)

// NewConfig returns a test configuration backed by the in-memory database.
func NewConfig() *core.Config {
	return &core.Config{
		Debug:                     false,
		TestMode:                  true,
		Env:                       "TEST",
		Build:                     "test",
		AppName:                   "EADToolz",
		SecretKey:                 "test-secret",
		FrontendBaseURL:           "http://frontend.test",
		DefaultFromEmail:          "noreply@eadtoolz.test",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		Server: core.ServerConfig{
			Host:                      "localhost",
			Address:                   ":0",
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
		Session: core.SessionConfig{
			CacheSize:      64,
			IdleTimeout:    time.Minute,
			ResolveTimeout: time.Second,
		},
		Database: core.DatabaseConfig{Engine: core.EngineMemory},
	}
}

// NewValidator returns a validator with every application rule registered.
func NewValidator() *core.Validator {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	session.InitValidators(validate, translator)
	account.InitValidators(validate, translator)
	return core.NewValidator(validate, translator)
}

// NewAccountService returns an account service whose emails land in outbox.
func NewAccountService(conf *core.Config, repo account.Repository, logger core.Logger, outbox *emailsvc.Outbox) *account.Service {
	if err := core.ParseEmailTemplates(conf, logger); err != nil {
		panic(err)
	}
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger, outbox)
	return account.NewService(repo, mailSvc, NewValidator(), logger, conf)
}

func CreateAccount(t *testing.T, repo account.Repository, name, email, pwd string, isActive bool) account.Account {
	t.Helper()

	now := time.Now().UTC()
	acc := account.Account{
		Name:      name,
		Email:     email,
		IsActive:  isActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if pwd != "" {
		if err := acc.SetPassword(pwd); err != nil {
			t.Fatalf("CreateAccount() failed: %v", err)
		}
	}
	acc, err := repo.CreateAccount(context.Background(), acc)
	if err != nil {
		t.Fatalf("CreateAccount() failed: %v", err)
	}
	return acc
}

// SetRole assigns role to the role record of id, the way an administrator would.
func SetRole(t *testing.T, store core.RecordStore, id string, role session.Role) {
	t.Helper()

	doc := core.Document{session.FieldRole: string(role), session.FieldUpdatedAt: time.Now().UTC()}
	if err := store.Set(context.Background(), core.CollectionUsers, id, doc); err != nil {
		t.Fatalf("SetRole() failed: %v", err)
	}
}

func GetRecord(t *testing.T, store core.RecordStore, collection, id string) core.Document {
	t.Helper()

	doc, err := store.Get(context.Background(), collection, id)
	if err != nil {
		t.Fatalf("GetRecord() failed: %v", err)
	}
	return doc
}

// HookedStore wraps a RecordStore; a non-nil hook runs before the wrapped call and aborts it with its error.
type HookedStore struct {
	core.RecordStore

	BeforeGet    func(ctx context.Context, collection, id string) error
	BeforeSet    func(ctx context.Context, collection, id string) error
	BeforeCreate func(ctx context.Context, collection, id string) error
}

var _ core.RecordStore = (*HookedStore)(nil)

func (s *HookedStore) Get(ctx context.Context, collection, id string) (core.Document, error) {
	if s.BeforeGet != nil {
		if err := s.BeforeGet(ctx, collection, id); err != nil {
			return nil, err
		}
	}
	return s.RecordStore.Get(ctx, collection, id)
}

func (s *HookedStore) Set(ctx context.Context, collection, id string, doc core.Document) error {
	if s.BeforeSet != nil {
		if err := s.BeforeSet(ctx, collection, id); err != nil {
			return err
		}
	}
	return s.RecordStore.Set(ctx, collection, id, doc)
}

func (s *HookedStore) CreateIfAbsent(ctx context.Context, collection, id string, doc core.Document) (bool, error) {
	if s.BeforeCreate != nil {
		if err := s.BeforeCreate(ctx, collection, id); err != nil {
			return false, err
		}
	}
	return s.RecordStore.CreateIfAbsent(ctx, collection, id, doc)
}

// LogEntry is a message recorded by Logger.
type LogEntry struct {
	Level string
	Msg   string
}

// Logger records log messages for assertions.
type Logger struct {
	mu      sync.Mutex
	entries []LogEntry
}

var _ core.Logger = (*Logger)(nil)

func NewLogger() *Logger {
	return &Logger{}
}

func (l *Logger) log(level, msg string, _ []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, LogEntry{Level: level, Msg: msg})
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("DEBUG", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("INFO", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("WARN", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("ERROR", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) {
	l.log("FATAL", msg, args)
	panic(fmt.Sprintf("fatal: %s", msg))
}

// Has reports whether a message containing substr was logged at level.
func (l *Logger) Has(level, substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.Level == level && strings.Contains(e.Msg, substr) {
			return true
		}
	}
	return false
}
