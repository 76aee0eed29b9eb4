package authsvc

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/eadtoolz/core/session"
)

// Client is the auth state of one browser session.
// Listeners are notified in registration order, one state change at a time.
type Client struct {
	auth *Authenticator

	notifyMu sync.Mutex // orders notifications

	mu        sync.Mutex
	claims    *Claims
	token     string
	listeners []listener
	nextID    int
}

type listener struct {
	id int
	cb session.StateChangeFunc
}

var _ session.AuthProvider = (*Client)(nil)

func (c *Client) OnStateChange(cb session.StateChangeFunc) func() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners = append(c.listeners, listener{id: id, cb: cb})
	p := c.principalLocked()
	c.mu.Unlock()

	cb(p)

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, l := range c.listeners {
				if l.id == id {
					c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
					break
				}
			}
		})
	}
}

func (c *Client) SignIn(ctx context.Context, creds session.Credentials) (session.Principal, error) {
	acc, err := c.auth.Authenticate(ctx, creds)
	if err != nil {
		return session.Principal{}, err
	}
	claims := c.auth.NewClaims(acc)
	token, err := c.auth.GenerateToken(claims)
	if err != nil {
		return session.Principal{}, errors.Wrap(err, "generating token")
	}
	c.set(claims, token)
	return claims.Principal(), nil
}

func (c *Client) SignOut(ctx context.Context) error {
	c.set(nil, "")
	return nil
}

// Restore resumes the session of a previously issued token.
func (c *Client) Restore(token string) error {
	claims, err := c.auth.ParseToken(token)
	if err != nil {
		return err
	}
	c.set(claims, token)
	return nil
}

// Refresh reissues the session token. Listeners are notified with the refreshed principal.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	c.mu.Lock()
	claims := c.claims
	c.mu.Unlock()
	if claims == nil {
		return "", ErrInvalidToken
	}

	newClaims, err := c.auth.Refresh(ctx, *claims)
	if err != nil {
		return "", err
	}
	token, err := c.auth.GenerateToken(newClaims)
	if err != nil {
		return "", errors.Wrap(err, "generating token")
	}
	c.set(newClaims, token)
	return token, nil
}

// Check signs the client out once its token has expired or its account is gone or deactivated.
// Other failures leave the session as is.
func (c *Client) Check(ctx context.Context) error {
	c.mu.Lock()
	claims := c.claims
	c.mu.Unlock()
	if claims == nil {
		return nil
	}

	err := c.auth.Verify(ctx, *claims)
	switch errors.Cause(err) {
	case nil:
		return nil
	case ErrInvalidToken, session.ErrAccountDeactivated:
		c.expire(claims)
	}
	return err
}

// Token returns the current session token, if any.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// Principal returns the signed in principal, or nil.
func (c *Client) Principal() *session.Principal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.principalLocked()
}

func (c *Client) set(claims *Claims, token string) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	c.storeLocked(claims, token)
}

// expire signs out, unless claims were replaced in the meantime.
func (c *Client) expire(claims *Claims) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if c.claims != claims {
		c.mu.Unlock()
		return
	}
	c.storeLocked(nil, "")
}

// storeLocked releases mu before notifying the listeners.
func (c *Client) storeLocked(claims *Claims, token string) {
	c.claims = claims
	c.token = token
	p := c.principalLocked()
	listeners := make([]listener, len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	for _, l := range listeners {
		l.cb(p)
	}
}

func (c *Client) principalLocked() *session.Principal {
	if c.claims == nil {
		return nil
	}
	p := c.claims.Principal()
	return &p
}
