package echoapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"go.uber.org/atomic"

	"github.com/trezcool/eadtoolz/core"
	"github.com/trezcool/eadtoolz/core/access"
	"github.com/trezcool/eadtoolz/core/account"
	"github.com/trezcool/eadtoolz/core/profile"
	"github.com/trezcool/eadtoolz/services/auth"
)

type (
	Options struct {
		DisableReqLogs bool
		Config         *core.Config
		Logger         core.Logger
		Validator      *core.Validator
		Store          core.RecordStore
		Accounts       *account.Service
		Profiles       *profile.Service
		Authenticator  *authsvc.Authenticator
		Routes         access.RouteTable
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
		SetReady(bool)
	}

	server struct {
		opts     *Options
		app      *echo.Echo
		guard    *access.Guard
		sessions *sessionRegistry
		ready    atomic.Bool
	}

	// echoValidator adapts core.Validator to echo.Validator.
	echoValidator struct {
		v *core.Validator
	}
)

var _ Server = (*server)(nil)

func (ev echoValidator) Validate(i interface{}) error {
	return ev.v.Struct(i)
}

func NewServer(opts *Options) Server {
	if opts.Routes == nil {
		opts.Routes = access.DefaultRoutes
	}

	s := &server{
		opts:     opts,
		app:      echo.New(),
		guard:    access.NewGuard(opts.Routes),
		sessions: newSessionRegistry(opts.Authenticator, opts.Store, opts.Logger, opts.Config.Session),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Config

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger)
	s.app.Validator = echoValidator{v: s.opts.Validator}
	s.app.Debug = conf.Debug

	s.app.GET("/livez", s.livez)
	s.app.GET("/readyz", s.readyz)

	// every other route belongs to a client session
	// TODO: rate limit `/login`, `/password-reset` & `/password-reset-confirm`
	g := s.app.Group("", s.sessionMiddleware)
	g.GET("/", s.home)
	g.GET("/session", s.sessionState)
	g.GET(access.LoginPath, s.loginView)
	g.POST(access.LoginPath, s.login)
	g.POST("/logout", s.logout)
	g.POST("/password-reset", s.resetPassword)
	g.POST("/password-reset-confirm", s.confirmPasswordReset)

	// any signed-in principal
	signedIn := s.guardMiddleware()
	g.POST("/token-refresh", s.refreshToken, signedIn)
	g.GET(access.ProfilePath, s.retrieveProfile, signedIn)
	g.PUT(access.ProfilePath, s.updateProfile, signedIn)

	// role sections; required roles come from the route table
	admin := g.Group("/admin", s.guardMiddleware(s.opts.Routes.Roles("/admin")...))
	admin.GET("", s.adminDashboard)
	admin.GET("/*", s.adminSection)

	teacher := g.Group("/teacher", s.guardMiddleware(s.opts.Routes.Roles("/teacher")...))
	teacher.GET("/dashboard", s.roleDashboard)
	teacher.GET("/*", s.roleDashboard)

	student := g.Group("/student", s.guardMiddleware(s.opts.Routes.Roles("/student")...))
	student.GET("/dashboard", s.roleDashboard)
	student.GET("/*", s.roleDashboard)
}

func (s *server) Start() error {
	return s.app.Start(s.opts.Config.Server.Address)
}

func (s *server) Stop(ctx context.Context) error {
	s.SetReady(false)
	err := s.app.Shutdown(ctx)
	s.opts.Logger.Info(fmt.Sprintf("closing %d client sessions", s.sessions.len()))
	s.sessions.purge()
	return err
}

func (s *server) SetReady(ready bool) {
	s.ready.Store(ready)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}
