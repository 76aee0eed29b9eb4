package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"github.com/trezcool/eadtoolz/core"
)

var nowFunc = time.Now // mockable

const defaultResolveTimeout = 5 * time.Second

// Option configures a Resolver.
type Option func(*Resolver)

// WithResolveTimeout bounds the record store round trips of a single resolution.
func WithResolveTimeout(d time.Duration) Option {
	return func(r *Resolver) { r.timeout = d }
}

// Resolver turns auth state changes into session State snapshots.
//
// Every change takes the next sequence number; a resolution only publishes its result while its
// sequence number is still the latest, so the last change always wins. Readers load the current
// snapshot without locking; snapshots are replaced, never mutated.
type Resolver struct {
	store   core.RecordStore
	logger  core.Logger
	timeout time.Duration

	seq   atomic.Uint64
	state atomic.Pointer[State]

	mu          sync.Mutex // serializes publishing
	notify      chan struct{}
	watchers    map[int]chan State
	nextWatcher int
	inflight    sync.WaitGroup
}

func NewResolver(store core.RecordStore, logger core.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		store:    store,
		logger:   logger,
		timeout:  defaultResolveTimeout,
		notify:   make(chan struct{}),
		watchers: make(map[int]chan State),
	}
	r.state.Store(&State{IsResolving: true}) // unresolved until the first auth event
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Subscribe listens to the auth state changes of provider.
// Resolutions run in the background; the returned func stops listening.
func (r *Resolver) Subscribe(provider AuthProvider) (unsubscribe func()) {
	return provider.OnStateChange(func(p *Principal) {
		seq := r.begin(p)
		if p == nil {
			return
		}
		principal := *p
		r.inflight.Add(1)
		go func() {
			defer r.inflight.Done()
			r.settle(context.Background(), seq, principal)
		}()
	})
}

// HandleAuthChange resolves an auth state change synchronously and returns the resulting snapshot,
// which may already belong to a later change.
func (r *Resolver) HandleAuthChange(ctx context.Context, p *Principal) State {
	seq := r.begin(p)
	if p != nil {
		r.settle(ctx, seq, *p)
	}
	return r.State()
}

// State returns the current snapshot.
func (r *Resolver) State() State {
	return *r.state.Load()
}

// Await blocks until the current snapshot is no longer resolving.
func (r *Resolver) Await(ctx context.Context) (State, error) {
	for {
		r.mu.Lock()
		st := *r.state.Load()
		ch := r.notify
		r.mu.Unlock()

		if !st.IsResolving {
			return st, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return st, ctx.Err()
		}
	}
}

// Changes streams every published snapshot.
// A slow reader skips intermediate snapshots but always receives the latest one.
func (r *Resolver) Changes() (<-chan State, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextWatcher
	r.nextWatcher++
	ch := make(chan State, 8)
	r.watchers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.watchers, id)
			r.mu.Unlock()
		})
	}
}

// Wait blocks until background resolutions are done.
func (r *Resolver) Wait() {
	r.inflight.Wait()
}

func (r *Resolver) begin(p *Principal) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	seq := r.seq.Inc()
	if p == nil {
		r.publishLocked(State{})
	} else {
		principal := *p
		r.publishLocked(State{Principal: &principal, IsResolving: true})
	}
	return seq
}

func (r *Resolver) settle(ctx context.Context, seq uint64, p Principal) {
	role := r.resolveRole(ctx, p)

	r.mu.Lock()
	defer r.mu.Unlock()

	if latest := r.seq.Load(); seq != latest {
		r.logger.Debug(fmt.Sprintf("discarding stale resolution %d of %s (latest %d)", seq, p.ID, latest))
		return
	}
	r.publishLocked(State{Principal: &p, Role: role})
}

func (r *Resolver) publishLocked(st State) {
	r.state.Store(&st)
	close(r.notify)
	r.notify = make(chan struct{})

	for _, w := range r.watchers {
		select {
		case w <- st:
		default:
			// drop the oldest snapshot to make room for the latest
			select {
			case <-w:
			default:
			}
			select {
			case w <- st:
			default:
			}
		}
	}
}

// resolveRole reads the role record of p, creating the default one if missing.
// Store failures are logged and degrade to DefaultRole.
func (r *Resolver) resolveRole(ctx context.Context, p Principal) Role {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	doc, err := r.store.Get(ctx, core.CollectionUsers, p.ID)
	if err == nil {
		return r.recordRole(p, doc)
	}
	if errors.Cause(err) != core.ErrRecordNotFound {
		r.logger.Error(fmt.Sprintf("reading role record of %s: %v", p.ID, err), err, p)
		return DefaultRole
	}

	created, err := r.store.CreateIfAbsent(ctx, core.CollectionUsers, p.ID, NewRoleRecord(p, nowFunc()))
	if err != nil {
		r.logger.Error(fmt.Sprintf("creating role record of %s: %v", p.ID, err), err, p)
		return DefaultRole
	}
	if created {
		r.logger.Info(fmt.Sprintf("granted default role %q to %s", DefaultRole, p.ID), p)
		return DefaultRole
	}

	// created concurrently: the stored role wins
	doc, err = r.store.Get(ctx, core.CollectionUsers, p.ID)
	if err != nil {
		r.logger.Error(fmt.Sprintf("reading role record of %s: %v", p.ID, err), err, p)
		return DefaultRole
	}
	return r.recordRole(p, doc)
}

func (r *Resolver) recordRole(p Principal, doc core.Document) Role {
	role := RecordRole(doc)
	if !role.Valid() {
		r.logger.Warn(fmt.Sprintf("unknown role %q on role record of %s", role, p.ID), p)
	}
	return role
}
