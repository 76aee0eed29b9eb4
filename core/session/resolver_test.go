package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/eadtoolz/core"
	"github.com/trezcool/eadtoolz/core/session"
	"github.com/trezcool/eadtoolz/storage/database/inmem"
	"github.com/trezcool/eadtoolz/tests"
)

var (
	alice = session.Principal{ID: "alice", Email: "alice@test.cd", DisplayName: "Alice"}
	bob   = session.Principal{ID: "bob", Email: "bob@test.cd"}

	errStoreDown = errors.New("store down")
)

func setup(t *testing.T) (*session.Resolver, *testutil.HookedStore, *testutil.Logger) {
	t.Helper()
	store := &testutil.HookedStore{RecordStore: inmemdb.NewRecordStore(inmemdb.Open())}
	logger := testutil.NewLogger()
	return session.NewResolver(store, logger, session.WithResolveTimeout(time.Second)), store, logger
}

// gate blocks record store reads of one principal until released.
type gate struct {
	id      string
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGate(id string) *gate {
	return &gate{id: id, entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gate) hook(ctx context.Context, _, id string) error {
	if id != g.id {
		return nil
	}
	g.once.Do(func() { close(g.entered) })
	select {
	case <-g.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestResolver_initialState(t *testing.T) {
	r, _, _ := setup(t)
	st := r.State()
	assert.True(t, st.IsResolving)
	assert.Nil(t, st.Principal)
}

func TestResolver_HandleAuthChange(t *testing.T) {
	ctx := context.Background()

	t.Run("new principal gets default role", func(t *testing.T) {
		r, store, logger := setup(t)

		st := r.HandleAuthChange(ctx, &alice)
		assert.Equal(t, session.State{Principal: &alice, Role: session.RoleStudent}, st)

		doc := testutil.GetRecord(t, store, core.CollectionUsers, alice.ID)
		assert.Equal(t, "student", doc.String(session.FieldRole))
		assert.Equal(t, alice.Email, doc.String(session.FieldEmail))
		assert.Equal(t, alice.DisplayName, doc.String(session.FieldName))
		assert.False(t, doc.Time(session.FieldCreatedAt).IsZero())
		assert.True(t, logger.Has("INFO", "granted default role"))
	})

	t.Run("stored role is used", func(t *testing.T) {
		r, store, _ := setup(t)
		testutil.SetRole(t, store, alice.ID, session.RoleAdmin)

		st := r.HandleAuthChange(ctx, &alice)
		assert.Equal(t, session.RoleAdmin, st.Role)
		assert.False(t, st.IsResolving)
	})

	t.Run("default creation never downgrades", func(t *testing.T) {
		r, store, _ := setup(t)

		r.HandleAuthChange(ctx, &alice)
		testutil.SetRole(t, store, alice.ID, session.RoleTeacher)

		// a second sign-in must not recreate the record
		st := r.HandleAuthChange(ctx, &alice)
		assert.Equal(t, session.RoleTeacher, st.Role)
		assert.Equal(t, "teacher", testutil.GetRecord(t, store, core.CollectionUsers, alice.ID).String(session.FieldRole))
	})

	t.Run("role assigned concurrently with default creation wins", func(t *testing.T) {
		r, store, _ := setup(t)
		store.BeforeCreate = func(ctx context.Context, collection, id string) error {
			// another path assigns a role between the read and the create
			testutil.SetRole(t, store.RecordStore, id, session.RoleTeacher)
			return nil
		}

		st := r.HandleAuthChange(ctx, &alice)
		assert.Equal(t, session.RoleTeacher, st.Role)
		assert.Equal(t, "teacher", testutil.GetRecord(t, store, core.CollectionUsers, alice.ID).String(session.FieldRole))
	})

	t.Run("read failure falls back to default role", func(t *testing.T) {
		r, store, logger := setup(t)
		testutil.SetRole(t, store, alice.ID, session.RoleAdmin)
		store.BeforeGet = func(context.Context, string, string) error { return errStoreDown }

		st := r.HandleAuthChange(ctx, &alice)
		assert.Equal(t, session.State{Principal: &alice, Role: session.RoleStudent}, st)
		assert.True(t, logger.Has("ERROR", "reading role record"))
	})

	t.Run("write failure falls back to default role", func(t *testing.T) {
		r, store, logger := setup(t)
		store.BeforeCreate = func(context.Context, string, string) error { return errStoreDown }

		st := r.HandleAuthChange(ctx, &alice)
		assert.Equal(t, session.RoleStudent, st.Role)
		assert.True(t, logger.Has("ERROR", "creating role record"))

		_, err := store.Get(ctx, core.CollectionUsers, alice.ID)
		assert.Equal(t, core.ErrRecordNotFound, err)
	})

	t.Run("unknown role propagates verbatim", func(t *testing.T) {
		r, store, logger := setup(t)
		testutil.SetRole(t, store, alice.ID, session.Role("superuser"))

		st := r.HandleAuthChange(ctx, &alice)
		assert.Equal(t, session.Role("superuser"), st.Role)
		assert.True(t, logger.Has("WARN", "unknown role"))
	})

	t.Run("sign out", func(t *testing.T) {
		r, _, _ := setup(t)
		r.HandleAuthChange(ctx, &alice)

		st := r.HandleAuthChange(ctx, nil)
		assert.Equal(t, session.State{}, st)
	})
}

func TestResolver_lastEventWins(t *testing.T) {
	ctx := context.Background()

	t.Run("later sign in", func(t *testing.T) {
		r, store, _ := setup(t)
		testutil.SetRole(t, store, bob.ID, session.RoleTeacher)
		g := newGate(alice.ID)
		store.BeforeGet = g.hook

		done := make(chan struct{})
		go func() {
			defer close(done)
			r.HandleAuthChange(ctx, &alice)
		}()
		<-g.entered

		st := r.HandleAuthChange(ctx, &bob)
		assert.Equal(t, session.State{Principal: &bob, Role: session.RoleTeacher}, st)

		close(g.release)
		<-done
		assert.Equal(t, session.State{Principal: &bob, Role: session.RoleTeacher}, r.State())
	})

	t.Run("sign out during resolution", func(t *testing.T) {
		r, store, _ := setup(t)
		g := newGate(alice.ID)
		store.BeforeGet = g.hook

		done := make(chan struct{})
		go func() {
			defer close(done)
			r.HandleAuthChange(ctx, &alice)
		}()
		<-g.entered
		assert.True(t, r.State().IsResolving)

		st := r.HandleAuthChange(ctx, nil)
		assert.Equal(t, session.State{}, st)

		close(g.release)
		<-done
		assert.Equal(t, session.State{}, r.State())
	})
}

func TestResolver_Subscribe(t *testing.T) {
	r, store, _ := setup(t)
	testutil.SetRole(t, store, alice.ID, session.RoleAdmin)

	provider := &fakeProvider{}
	changes, stop := r.Changes()
	defer stop()

	unsubscribe := r.Subscribe(provider)
	defer unsubscribe()

	// signed out at subscription time
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	st, err := r.Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.State{}, st)

	provider.emit(&alice)
	r.Wait()
	st, err = r.Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.State{Principal: &alice, Role: session.RoleAdmin}, st)

	var seen []session.State
	for len(seen) < 3 {
		select {
		case s := <-changes:
			seen = append(seen, s)
		case <-ctx.Done():
			t.Fatalf("missing state changes, got %v", seen)
		}
	}
	assert.Equal(t, session.State{}, seen[0])
	assert.Equal(t, session.State{Principal: &alice, IsResolving: true}, seen[1])
	assert.Equal(t, session.State{Principal: &alice, Role: session.RoleAdmin}, seen[2])

	// no more notifications once unsubscribed
	unsubscribe()
	provider.emit(&bob)
	assert.Equal(t, alice.ID, r.State().Principal.ID)
}

func TestResolver_Await(t *testing.T) {
	r, store, _ := setup(t)
	g := newGate(alice.ID)
	store.BeforeGet = g.hook

	go r.HandleAuthChange(context.Background(), &alice)
	<-g.entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	st, err := r.Await(ctx)
	assert.Equal(t, context.DeadlineExceeded, err)
	assert.True(t, st.IsResolving)

	close(g.release)
	st, err = r.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, session.RoleStudent, st.Role)
}

type fakeProvider struct {
	mu        sync.Mutex
	principal *session.Principal
	listeners map[int]session.StateChangeFunc
	next      int
}

func (p *fakeProvider) OnStateChange(cb session.StateChangeFunc) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.listeners == nil {
		p.listeners = make(map[int]session.StateChangeFunc)
	}
	id := p.next
	p.next++
	p.listeners[id] = cb
	cb(p.principal)
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

func (p *fakeProvider) SignIn(context.Context, session.Credentials) (session.Principal, error) {
	return session.Principal{}, session.ErrInvalidCredentials
}

func (p *fakeProvider) SignOut(context.Context) error {
	p.emit(nil)
	return nil
}

func (p *fakeProvider) emit(principal *session.Principal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.principal = principal
	for _, cb := range p.listeners {
		cb(principal)
	}
}

func TestResolver_recordWithoutRole(t *testing.T) {
	ctx := context.Background()
	r, store, logger := setup(t)
	require.NoError(t, store.Set(ctx, core.CollectionUsers, alice.ID, core.Document{session.FieldEmail: alice.Email}))

	st := r.HandleAuthChange(ctx, &alice)
	assert.Equal(t, session.State{Principal: &alice, Role: session.RoleStudent}, st)
	assert.False(t, logger.Has("WARN", "unknown role"))

	// the record is read, never rewritten
	doc := testutil.GetRecord(t, store, core.CollectionUsers, alice.ID)
	_, ok := doc[session.FieldRole]
	assert.False(t, ok)
}
