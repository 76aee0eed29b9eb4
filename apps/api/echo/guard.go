package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/eadtoolz/core/access"
	"github.com/trezcool/eadtoolz/core/session"
)

const (
	retryAfter = "1" // seconds

	contextStateKey = "sessionState"
)

// guardMiddleware lets the request through only when the guard allows the session on the requested path.
// An empty roles only demands a signed-in principal.
func (s *server) guardMiddleware(roles ...session.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			cs, err := getContextSession(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context session")
			}
			st := cs.resolver.State()
			d := s.guard.Decide(st, roles, ctx.Request().URL.Path)
			if d.Kind == access.Allow {
				ctx.Set(contextStateKey, st)
				return next(ctx)
			}
			return respondDecision(ctx, d)
		}
	}
}

// respondDecision renders a non-allow decision: a loading placeholder the client polls, or a redirect.
func respondDecision(ctx echo.Context, d access.Decision) error {
	if d.Kind == access.Loading {
		ctx.Response().Header().Set("Retry-After", retryAfter)
		return ctx.JSON(http.StatusAccepted, LoadingResponse{Loading: true})
	}
	return ctx.Redirect(http.StatusFound, d.URL())
}

// getContextState returns the session snapshot the guard allowed the request with.
func getContextState(ctx echo.Context) (session.State, error) {
	if st, ok := ctx.Get(contextStateKey).(session.State); ok && st.Principal != nil {
		return st, nil
	}
	return session.State{}, errUnauthorized
}
