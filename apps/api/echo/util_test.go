package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/eadtoolz/apps/api/echo"
	"github.com/trezcool/eadtoolz/core"
	"github.com/trezcool/eadtoolz/core/account"
	"github.com/trezcool/eadtoolz/core/profile"
	"github.com/trezcool/eadtoolz/core/session"
	"github.com/trezcool/eadtoolz/services/auth"
	"github.com/trezcool/eadtoolz/services/email"
	"github.com/trezcool/eadtoolz/storage/database/inmem"
	"github.com/trezcool/eadtoolz/tests"
)

const pwd = "Kx9#mLq2wZ"

type testEnv struct {
	srv    echoapi.Server
	conf   *core.Config
	store  *testutil.HookedStore
	repo   account.Repository
	outbox *emailsvc.Outbox
	logger *testutil.Logger
}

func setup(t *testing.T, configure ...func(*core.Config)) *testEnv {
	t.Helper()

	conf := testutil.NewConfig()
	for _, fn := range configure {
		fn(conf)
	}
	logger := testutil.NewLogger()

	// set up DB & repos
	db := inmemdb.Open()
	store := &testutil.HookedStore{RecordStore: inmemdb.NewRecordStore(db)}
	repo := inmemdb.NewAccountRepository(db)

	// set up services
	outbox := new(emailsvc.Outbox)
	accounts := testutil.NewAccountService(conf, repo, logger, outbox)
	validator := testutil.NewValidator()

	// set up server
	srv := echoapi.NewServer(&echoapi.Options{
		DisableReqLogs: true,
		Config:         conf,
		Logger:         logger,
		Validator:      validator,
		Store:          store,
		Accounts:       accounts,
		Profiles:       profile.NewService(store, validator),
		Authenticator:  authsvc.NewAuthenticator(accounts, logger, conf),
	})
	t.Cleanup(func() { _ = srv.Stop(context.Background()) })

	return &testEnv{srv: srv, conf: conf, store: store, repo: repo, outbox: outbox, logger: logger}
}

// createAccount creates an active account, assigning role when not empty.
func (env *testEnv) createAccount(t *testing.T, name, email string, role session.Role) account.Account {
	t.Helper()
	acc := testutil.CreateAccount(t, env.repo, name, email, pwd, true)
	if role != "" {
		testutil.SetRole(t, env.store, acc.ID, role)
	}
	return acc
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name         string
	method       string
	path         string
	body         []byte
	wantCode     int
	wantLocation string
	wantData     []byte
}

// browser keeps the cookies of one client across requests.
type browser struct {
	t       *testing.T
	srv     http.Handler
	cookies map[string]*http.Cookie
}

func (env *testEnv) newBrowser(t *testing.T) *browser {
	return &browser{t: t, srv: env.srv, cookies: make(map[string]*http.Cookie)}
}

func (b *browser) do(method, path string, data ...[]byte) *httptest.ResponseRecorder {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	b.srv.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 || c.Value == "" {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return rec
}

func (b *browser) login(email, password string, next ...string) *httptest.ResponseRecorder {
	req := echoapi.LoginRequest{Credentials: session.Credentials{Email: email, Password: password}}
	if len(next) > 0 {
		req.Next = next[0]
	}
	return b.do(http.MethodPost, "/login", marshallObj(b.t, req))
}

// state polls the session endpoint until resolution settles.
func (b *browser) state() session.State {
	var st session.State
	require.Eventually(b.t, func() bool {
		rec := b.do(http.MethodGet, "/session")
		st = session.State{}
		if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
			return false
		}
		return !st.IsResolving
	}, 2*time.Second, 10*time.Millisecond)
	return st
}

func (b *browser) run(tt httpTest) {
	b.t.Run(tt.name, func(t *testing.T) {
		rec := b.do(tt.method, tt.path, tt.body)
		checkCodeAndData(t, tt, rec)
	})
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantLocation != "" {
		assert.Equal(t, tt.wantLocation, rec.Header().Get("Location"))
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

// gate blocks the role record reads of id until released.
type gate struct {
	id      string
	release chan struct{}
}

func newGate(id string) *gate {
	return &gate{id: id, release: make(chan struct{})}
}

func (g *gate) hook(_ context.Context, _, id string) error {
	if id == g.id {
		<-g.release
	}
	return nil
}
