package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/eadtoolz/core/access"
	"github.com/trezcool/eadtoolz/core/account"
)

// loginView renders the login page, or sends a signed-in principal to their landing.
func (s *server) loginView(ctx echo.Context) error {
	cs, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}
	next := ctx.QueryParam("next")

	st := cs.resolver.State()
	switch {
	case st.IsResolving:
		return respondDecision(ctx, access.Decision{Kind: access.Loading})
	case st.SignedIn():
		return ctx.Redirect(http.StatusFound, s.guard.Routes().Landing(st.Role, next))
	}
	return ctx.JSON(http.StatusOK, LoginView{Next: next})
}

func (s *server) login(ctx echo.Context) error {
	cs, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}

	var data LoginRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err = ctx.Validate(&data); err != nil {
		return err
	}

	// signing in opens a new session id; a failed sign in leaves the current session untouched
	fresh := s.sessions.newSession()
	if _, err = fresh.client.SignIn(ctx.Request().Context(), data.Credentials); err != nil {
		s.sessions.discard(fresh)
		return err
	}
	s.sessions.rotate(cs, fresh)
	cs = fresh
	ctx.Set(contextSessionKey, cs)
	s.setCookie(ctx, sessionCookie, cs.id, 0)
	s.setCookie(ctx, tokenCookie, cs.client.Token(), s.opts.Config.Server.JWTExpirationDelta)

	st := s.sessions.await(ctx.Request().Context(), cs)
	if st.IsResolving {
		return respondDecision(ctx, access.Decision{Kind: access.Loading})
	}
	if !st.SignedIn() { // signed out meanwhile
		return ctx.JSON(http.StatusOK, RedirectResponse{Redirect: access.LoginPath, Session: &st})
	}
	return ctx.JSON(http.StatusOK, RedirectResponse{
		Redirect: s.guard.Routes().Landing(st.Role, data.Next),
		Session:  &st,
	})
}

func (s *server) logout(ctx echo.Context) error {
	cs, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}
	if err = cs.client.SignOut(ctx.Request().Context()); err != nil {
		return errors.Wrap(err, "signing out")
	}
	s.clearCookie(ctx, tokenCookie)

	st := cs.resolver.State()
	return ctx.JSON(http.StatusOK, RedirectResponse{Redirect: access.LoginPath, Session: &st})
}

func (s *server) refreshToken(ctx echo.Context) error {
	cs, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}
	token, err := cs.client.Refresh(ctx.Request().Context())
	if err != nil {
		return err
	}
	s.setCookie(ctx, tokenCookie, token, s.opts.Config.Server.JWTExpirationDelta)
	s.sessions.await(ctx.Request().Context(), cs)
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (s *server) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := ctx.Validate(&data); err != nil {
		return err
	}

	err := s.opts.Accounts.RequestPasswordReset(ctx.Request().Context(), data.Email)
	if !(err == nil || errors.Cause(err) == account.ErrNotFound) {
		// do not return errors to attackers
		s.opts.Logger.Error("requesting password reset", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (s *server) confirmPasswordReset(ctx echo.Context) error {
	var data account.ResetPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetPassword")
	}
	if _, err := s.opts.Accounts.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}
