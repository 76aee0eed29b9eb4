package account

import (
	"context"
	"errors"
	"fmt"
	"net/mail"

	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/eadtoolz/core"
)

var (
	// errors
	ErrNotFound    = errors.New("account not found")
	ErrEmailExists = errors.New("an account with this email already exists")
)

type (
	Repository interface {
		// CheckEmailUniqueness returns ErrEmailExists if another account than excluded uses email.
		CheckEmailUniqueness(ctx context.Context, email string, excluded ...Account) error
		CreateAccount(ctx context.Context, acc Account) (Account, error)
		GetAccountByID(ctx context.Context, id string) (Account, error)
		GetAccountByEmail(ctx context.Context, email string) (Account, error)
		UpdateAccount(ctx context.Context, acc Account) (Account, error)
	}

	Service struct {
		repo      Repository
		mailSvc   core.EmailService
		validator *core.Validator
		logger    core.Logger
		tokenGen  tokenGenerator
	}

	passwordResetData struct {
		Name  string
		UID   string
		Token string
	}
)

func NewService(repo Repository, mailSvc core.EmailService, validator *core.Validator, logger core.Logger, conf *core.Config) *Service {
	return &Service{
		repo:      repo,
		mailSvc:   mailSvc,
		validator: validator,
		logger:    logger,
		tokenGen: tokenGenerator{
			secretKey: []byte(conf.SecretKey),
			timeout:   conf.PasswordResetTimeoutDelta,
		},
	}
}

func (svc *Service) checkUniqueness(ctx context.Context, email string, excluded ...Account) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, excluded...); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return pkgerrors.Wrap(err, "checking email uniqueness")
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, na NewAccount) (Account, error) {
	na.Clean()
	if err := svc.validator.Struct(na); err != nil {
		return Account{}, err
	}
	if err := svc.checkUniqueness(ctx, na.Email); err != nil {
		return Account{}, err
	}

	now := nowFunc().UTC()
	acc := Account{
		Name:      na.Name,
		Email:     na.Email,
		AvatarURL: na.AvatarURL,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := acc.SetPassword(na.Password); err != nil {
		return Account{}, pkgerrors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateAccount(ctx, acc)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Account, error) {
	return svc.repo.GetAccountByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (Account, error) {
	return svc.repo.GetAccountByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) SetLastLogin(ctx context.Context, acc Account) (Account, error) {
	acc.LastLogin = nowFunc().UTC()
	return svc.repo.UpdateAccount(ctx, acc)
}

// SetPassword replaces the password of acc, bypassing the password policy.
func (svc *Service) SetPassword(ctx context.Context, acc Account, pwd string) (Account, error) {
	if err := acc.SetPassword(pwd); err != nil {
		return Account{}, pkgerrors.Wrap(err, "hashing password")
	}
	acc.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateAccount(ctx, acc)
}

// RequestPasswordReset emails a password reset link to the account owning email.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	acc, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	token, err := svc.tokenGen.makeToken(acc)
	if err != nil {
		return pkgerrors.Wrap(err, "making password reset token")
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: acc.Name, Address: acc.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: passwordResetData{
			Name:  acc.Name,
			UID:   EncodeUID(acc),
			Token: token,
		},
	})
	return nil
}

func (svc *Service) ResetPassword(ctx context.Context, rp ResetPassword) (Account, error) {
	if err := svc.validator.Struct(rp); err != nil {
		return Account{}, err
	}

	invalidErr := core.NewValidationError(errInvalidToken, core.FieldError{Field: "token", Error: errInvalidToken.Error()})
	id, err := decodeUID(rp.UID)
	if err != nil {
		return Account{}, invalidErr
	}
	acc, err := svc.GetByID(ctx, id)
	if err != nil {
		if err == ErrNotFound {
			return Account{}, invalidErr
		}
		return Account{}, err
	}
	if err := svc.tokenGen.verifyToken(acc, rp.Token); err != nil {
		if err == errInvalidToken || err == errTokenExpired {
			return Account{}, core.NewValidationError(err, core.FieldError{Field: "token", Error: err.Error()})
		}
		return Account{}, pkgerrors.Wrap(err, "verifying password reset token")
	}

	acc, err = svc.SetPassword(ctx, acc, rp.Password)
	if err != nil {
		return Account{}, err
	}
	svc.logger.Info(fmt.Sprintf("password reset for account %s", acc.ID))
	return acc, nil
}

// AddOrUpdate creates or reactivates the account owning email with the given password.
// Used by the admin CLI.
func (svc *Service) AddOrUpdate(ctx context.Context, name, email, pwd string) (acc Account, created bool, err error) {
	email = core.CleanString(email, true /* lower */)
	acc, err = svc.repo.GetAccountByEmail(ctx, email)
	switch {
	case err == ErrNotFound:
		now := nowFunc().UTC()
		acc = Account{Email: email, CreatedAt: now}
		created = true
	case err != nil:
		return Account{}, false, err
	}

	if name = core.CleanString(name); name != "" {
		acc.Name = name
	}
	acc.IsActive = true
	acc.UpdatedAt = nowFunc().UTC()
	if err = acc.SetPassword(pwd); err != nil {
		return Account{}, false, pkgerrors.Wrap(err, "hashing password")
	}

	if created {
		acc, err = svc.repo.CreateAccount(ctx, acc)
	} else {
		acc, err = svc.repo.UpdateAccount(ctx, acc)
	}
	return acc, created, err
}
