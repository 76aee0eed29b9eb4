package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/eadtoolz/core"
	"github.com/trezcool/eadtoolz/core/account"
	"github.com/trezcool/eadtoolz/core/profile"
	"github.com/trezcool/eadtoolz/core/session"
	"github.com/trezcool/eadtoolz/services/auth"
)

var (
	errNoSession = errors.New("client session not found in echo.Context")

	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "invalid credentials")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errAuthUnavailable      = echo.NewHTTPError(http.StatusServiceUnavailable, "authentication service unavailable")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// httpError maps domain errors to the HTTP error they are reported as, if any.
func httpError(err error) *echo.HTTPError {
	switch errors.Cause(err) {
	case session.ErrInvalidCredentials:
		return errAuthenticationFailed
	case session.ErrAccountDeactivated:
		return errAccountDeactivated
	case session.ErrNetwork:
		return errAuthUnavailable
	case authsvc.ErrInvalidToken:
		return errUnauthorized
	case authsvc.ErrRefreshExpired:
		return errRefreshExpired
	case profile.ErrNotFound, account.ErrNotFound:
		return errHttpNotFound
	}
	return nil
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
func newAppHTTPErrorHandler(logger core.Logger) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		if herr := httpError(err); herr != nil {
			err = herr
		}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			var principal *session.Principal
			if cs, cErr := getContextSession(ctx); cErr == nil {
				principal = cs.resolver.State().Principal
			}
			logger.Error(msg, errors.Wrap(err, msg), principal)
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
