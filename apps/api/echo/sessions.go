package echoapi

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/eadtoolz/core"
	"github.com/trezcool/eadtoolz/core/session"
	"github.com/trezcool/eadtoolz/services/auth"
)

const (
	sessionCookie = "eadtoolz_sid"
	tokenCookie   = "eadtoolz_token"

	contextSessionKey = "session"
)

// clientSession is the auth client and resolver of one browser.
type clientSession struct {
	id          string
	client      *authsvc.Client
	resolver    *session.Resolver
	unsubscribe func()
}

// sessionRegistry holds the client sessions, evicting the idle ones.
type sessionRegistry struct {
	auth           *authsvc.Authenticator
	store          core.RecordStore
	logger         core.Logger
	resolveTimeout time.Duration

	mu    sync.Mutex // get-or-create
	cache *expirable.LRU[string, *clientSession]
}

func newSessionRegistry(auth *authsvc.Authenticator, store core.RecordStore, logger core.Logger, conf core.SessionConfig) *sessionRegistry {
	reg := &sessionRegistry{
		auth:           auth,
		store:          store,
		logger:         logger,
		resolveTimeout: conf.ResolveTimeout,
	}
	reg.cache = expirable.NewLRU[string, *clientSession](conf.CacheSize, reg.onEvict, conf.IdleTimeout)
	return reg
}

func (reg *sessionRegistry) onEvict(id string, cs *clientSession) {
	cs.unsubscribe()
	reg.logger.Debug("client session evicted: " + id)
}

// get returns the session id, creating it if unknown. Each hit restarts its idle timeout.
func (reg *sessionRegistry) get(id string) *clientSession {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if id != "" {
		if cs, ok := reg.cache.Get(id); ok {
			reg.cache.Add(id, cs)
			return cs
		}
	}

	cs := reg.newSession()
	reg.cache.Add(cs.id, cs)
	return cs
}

// newSession returns an unregistered session, to be kept with rotate or dropped with discard.
func (reg *sessionRegistry) newSession() *clientSession {
	cs := &clientSession{
		id:     uuid.New().String(),
		client: reg.auth.NewClient(),
		resolver: session.NewResolver(
			reg.store,
			reg.logger,
			session.WithResolveTimeout(reg.resolveTimeout),
		),
	}
	cs.unsubscribe = cs.resolver.Subscribe(cs.client)
	return cs
}

// rotate registers fresh in place of old, which is evicted.
func (reg *sessionRegistry) rotate(old, fresh *clientSession) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	reg.cache.Add(fresh.id, fresh)
	reg.cache.Remove(old.id)
}

func (reg *sessionRegistry) discard(cs *clientSession) {
	cs.unsubscribe()
}

// await waits for the resolution of cs, up to the resolve timeout.
// The returned state is still resolving when the timeout is hit.
func (reg *sessionRegistry) await(ctx context.Context, cs *clientSession) session.State {
	ctx, cancel := context.WithTimeout(ctx, reg.resolveTimeout)
	defer cancel()
	st, _ := cs.resolver.Await(ctx)
	return st
}

func (reg *sessionRegistry) len() int {
	return reg.cache.Len()
}

func (reg *sessionRegistry) purge() {
	reg.cache.Purge()
}

// sessionMiddleware attaches the client session of the request to the context.
// A session token cookie resumes a signed-in session the registry no longer knows.
// Sessions whose token expired or whose account was deactivated are signed out.
func (s *server) sessionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		var sid string
		if c, err := ctx.Cookie(sessionCookie); err == nil {
			sid = c.Value
		}

		cs := s.sessions.get(sid)
		if cs.id != sid {
			s.setCookie(ctx, sessionCookie, cs.id, 0)
		}

		if c, err := ctx.Cookie(tokenCookie); err == nil && c.Value != "" && cs.client.Principal() == nil {
			if err := cs.client.Restore(c.Value); err != nil {
				s.clearCookie(ctx, tokenCookie)
			} else {
				s.sessions.await(ctx.Request().Context(), cs)
			}
		}

		switch err := cs.client.Check(ctx.Request().Context()); errors.Cause(err) {
		case nil:
		case authsvc.ErrInvalidToken, session.ErrAccountDeactivated:
			s.clearCookie(ctx, tokenCookie)
		default:
			s.opts.Logger.Error("checking client session", err)
		}

		ctx.Set(contextSessionKey, cs)
		return next(ctx)
	}
}

func getContextSession(ctx echo.Context) (*clientSession, error) {
	if cs, ok := ctx.Get(contextSessionKey).(*clientSession); ok {
		return cs, nil
	}
	return nil, errNoSession
}

func (s *server) setCookie(ctx echo.Context, name, value string, maxAge time.Duration) {
	ctx.SetCookie(&http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   s.opts.Config.Server.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *server) clearCookie(ctx echo.Context, name string) {
	ctx.SetCookie(&http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.Config.Server.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
