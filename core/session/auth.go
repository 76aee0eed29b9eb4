package session

import (
	"context"
	"errors"
)

var (
	// errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDeactivated = errors.New("account deactivated")
	ErrNetwork            = errors.New("auth provider unreachable")
)

type (
	// Credentials are submitted by the login form.
	Credentials struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	// StateChangeFunc receives the current principal, or nil once signed out.
	StateChangeFunc func(p *Principal)

	// AuthProvider is the identity collaborator a Resolver listens to.
	AuthProvider interface {
		// OnStateChange registers cb and immediately notifies it with the current principal.
		// Notifications are delivered in order. The returned func unregisters cb.
		OnStateChange(cb StateChangeFunc) (unsubscribe func())
		// SignIn fails with ErrInvalidCredentials, ErrAccountDeactivated or ErrNetwork.
		SignIn(ctx context.Context, creds Credentials) (Principal, error)
		SignOut(ctx context.Context) error
	}
)
