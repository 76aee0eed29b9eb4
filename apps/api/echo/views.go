package echoapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/eadtoolz/core/access"
	"github.com/trezcool/eadtoolz/core/dashboard"
	"github.com/trezcool/eadtoolz/core/profile"
	"github.com/trezcool/eadtoolz/core/session"
)

// home sends signed-in principals to their role home and everyone else to the login page.
func (s *server) home(ctx echo.Context) error {
	cs, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}
	st := cs.resolver.State()
	d := s.guard.Decide(st, nil, "/")
	if d.Kind == access.Allow {
		return ctx.Redirect(http.StatusFound, s.guard.Routes().HomeOrFallback(st.Role))
	}
	return respondDecision(ctx, d)
}

func (s *server) sessionState(ctx echo.Context) error {
	cs, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}
	return ctx.JSON(http.StatusOK, cs.resolver.State())
}

// navView returns the navigation of the role the guard allowed the request with.
func (s *server) navView(ctx echo.Context) (NavView, session.State, error) {
	st, err := getContextState(ctx)
	if err != nil {
		return NavView{}, session.State{}, err
	}
	routes := s.guard.Routes()

	nav := NavView{Role: st.Role, Home: routes.HomeOrFallback(st.Role), Sections: []string{}}
	if route, ok := routes[st.Role]; ok {
		for _, prefix := range route.AllowedPrefixes {
			nav.Sections = append(nav.Sections, strings.TrimSuffix(prefix, "/*"))
		}
	}
	return nav, st, nil
}

func (s *server) adminDashboard(ctx echo.Context) error {
	nav, _, err := s.navView(ctx)
	if err != nil {
		return err
	}
	counts, err := dashboard.Count(ctx.Request().Context(), s.opts.Store, dashboard.Collections...)
	if err != nil {
		return errors.Wrap(err, "counting collections")
	}
	return ctx.JSON(http.StatusOK, AdminDashboard{NavView: nav, Counts: counts})
}

func (s *server) adminSection(ctx echo.Context) error {
	nav, _, err := s.navView(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SectionView{NavView: nav, Section: access.CleanPath(ctx.Request().URL.Path)})
}

func (s *server) roleDashboard(ctx echo.Context) error {
	nav, st, err := s.navView(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, DashboardView{NavView: nav, Principal: *st.Principal})
}

func (s *server) retrieveProfile(ctx echo.Context) error {
	st, err := getContextState(ctx)
	if err != nil {
		return err
	}
	p, err := s.opts.Profiles.Get(ctx.Request().Context(), st.Principal.ID)
	if err != nil {
		return errors.Wrap(err, "getting profile")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (s *server) updateProfile(ctx echo.Context) error {
	st, err := getContextState(ctx)
	if err != nil {
		return err
	}

	var data profile.Update
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to profile.Update")
	}
	p, err := s.opts.Profiles.Update(ctx.Request().Context(), st.Principal.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (s *server) livez(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, HealthResponse{Status: "ok", Build: s.opts.Config.Build})
}

func (s *server) readyz(ctx echo.Context) error {
	if !s.ready.Load() {
		return ctx.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "not ready"})
	}
	return ctx.JSON(http.StatusOK, HealthResponse{Status: "ok", Build: s.opts.Config.Build})
}
