package authsvc

import (
	"context"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"

	"github.com/trezcool/eadtoolz/core"
	"github.com/trezcool/eadtoolz/core/account"
	"github.com/trezcool/eadtoolz/core/session"
)

const audience = "EADToolz"

var (
	nowFunc = time.Now // mockable

	// errors
	ErrInvalidToken   = errors.New("invalid or expired token")
	ErrRefreshExpired = errors.New("refresh has expired")
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Email        string `json:"email,omitempty"`
	Name         string `json:"name,omitempty"`
	Avatar       string `json:"avatar,omitempty"`
}

// Principal returns the identity carried by the claims.
func (c Claims) Principal() session.Principal {
	return session.Principal{
		ID:          c.Subject,
		Email:       c.Email,
		DisplayName: c.Name,
		AvatarURL:   c.Avatar,
	}
}

// Authenticator checks credentials against the accounts and issues session tokens.
// It is shared by every Client.
type Authenticator struct {
	accounts *account.Service
	logger   core.Logger

	issuer       string
	signingKey   []byte
	expiration   time.Duration
	refreshDelta time.Duration
}

func NewAuthenticator(accounts *account.Service, logger core.Logger, conf *core.Config) *Authenticator {
	return &Authenticator{
		accounts:     accounts,
		logger:       logger,
		issuer:       conf.AppName,
		signingKey:   []byte(conf.SecretKey),
		expiration:   conf.Server.JWTExpirationDelta,
		refreshDelta: conf.Server.JWTRefreshExpirationDelta,
	}
}

// Authenticate fails with session.ErrInvalidCredentials, session.ErrAccountDeactivated or session.ErrNetwork.
func (a *Authenticator) Authenticate(ctx context.Context, creds session.Credentials) (account.Account, error) {
	acc, err := a.accounts.GetByEmail(ctx, creds.Email)
	if err != nil {
		if err == account.ErrNotFound {
			return account.Account{}, session.ErrInvalidCredentials
		}
		a.logger.Error(fmt.Sprintf("finding account by email: %v", err), err)
		return account.Account{}, errors.WithMessage(session.ErrNetwork, err.Error())
	}
	if err = acc.CheckPassword(creds.Password); err != nil {
		return account.Account{}, session.ErrInvalidCredentials
	}
	if !acc.IsActive {
		return account.Account{}, session.ErrAccountDeactivated
	}
	acc, err = a.accounts.SetLastLogin(ctx, acc)
	if err != nil {
		a.logger.Error(fmt.Sprintf("setting last login: %v", err), err)
		return account.Account{}, errors.WithMessage(session.ErrNetwork, err.Error())
	}
	return acc, nil
}

// NewClaims returns the claims of acc. origIat keeps the original issue time across refreshes.
func (a *Authenticator) NewClaims(acc account.Account, origIat ...int64) *Claims {
	now := nowFunc()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    a.issuer,
			Subject:   acc.ID,
			Audience:  audience,
			ExpiresAt: now.Add(a.expiration).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Email:        acc.Email,
		Name:         acc.Name,
		Avatar:       acc.AvatarURL,
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func (a *Authenticator) GenerateToken(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString(a.signingKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// ParseToken verifies a signed token and returns its claims.
func (a *Authenticator) ParseToken(token string) (*Claims, error) {
	claims := new(Claims)
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.signingKey, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if !claims.VerifyAudience(audience, true) || !claims.VerifyIssuer(a.issuer, true) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Refresh reissues claims for a still active account, within the refresh window of the original sign in.
func (a *Authenticator) Refresh(ctx context.Context, claims Claims) (*Claims, error) {
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(a.refreshDelta)
	if nowFunc().After(expTime) {
		return nil, ErrRefreshExpired
	}

	acc, err := a.accounts.GetByID(ctx, claims.Subject)
	if err != nil {
		if err == account.ErrNotFound {
			return nil, ErrInvalidToken
		}
		return nil, errors.Wrap(err, "finding account by ID")
	}
	if !acc.IsActive {
		return nil, session.ErrAccountDeactivated
	}
	return a.NewClaims(acc, claims.OrigIssuedAt), nil
}

// Verify checks that claims are unexpired and that their account is still active.
// It fails with ErrInvalidToken or session.ErrAccountDeactivated.
func (a *Authenticator) Verify(ctx context.Context, claims Claims) error {
	if !claims.VerifyExpiresAt(nowFunc().Unix(), true) {
		return ErrInvalidToken
	}

	acc, err := a.accounts.GetByID(ctx, claims.Subject)
	if err != nil {
		if err == account.ErrNotFound {
			return ErrInvalidToken
		}
		return errors.Wrap(err, "finding account by ID")
	}
	if !acc.IsActive {
		return session.ErrAccountDeactivated
	}
	return nil
}

// NewClient returns the auth client of a new browser session.
func (a *Authenticator) NewClient() *Client {
	return &Client{auth: a}
}
