// Package echoapi serves the REST API with echo.
package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/cpmappstudio/alef-university-sub001/apps/shared"
	"github.com/cpmappstudio/alef-university-sub001/core"
	"github.com/cpmappstudio/alef-university-sub001/core/bilingual"
	workersvc "github.com/cpmappstudio/alef-university-sub001/services/worker"
)

type ServerDeps struct {
	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator
	Services   *shared.Services
	// Imports schedules asynchronous imports. When nil, imports only run synchronously.
	Imports *workersvc.Scheduler
	// DisableReqLogs turns off the request logger, e.g. in tests.
	DisableReqLogs bool
}

type Server struct {
	deps     ServerDeps
	app      *echo.Echo
	tokens   *Tokens
	errors   chan error
	shutdown chan os.Signal
}

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		tokens:   NewTokens(deps.Conf),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Server.ReadTimeout = conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = conf.Server.WriteTimeout

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{conf.FrontendBaseURL},
	}))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.SignalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(s.tokens.jwtConfig())
	authed := v1.Group("", jwt, principalMiddleware)
	svcs := s.deps.Services
	locale := bilingual.ParseLocale(conf.DefaultLocale, bilingual.Spanish)

	registerAuthAPI(v1, jwt, &authApi{users: svcs.Users, tokens: s.tokens, validate: s.deps.Validate})
	registerUserAPI(authed, &userApi{svc: svcs.Users, validate: s.deps.Validate})
	registerCatalogAPI(authed, &catalogApi{
		programs: svcs.Programs, courses: svcs.Courses, validate: s.deps.Validate, locale: locale,
	})
	registerBimesterAPI(authed, &bimesterApi{svc: svcs.Bimesters, validate: s.deps.Validate})
	registerClassAPI(authed, &classApi{
		svc: svcs.Classes, enrollments: svcs.Enrollments, validate: s.deps.Validate, locale: locale,
	})
	registerEnrollmentAPI(authed, &enrollmentApi{
		svc: svcs.Enrollments, classes: svcs.Classes, validate: s.deps.Validate, locale: locale,
	})
	registerImportAPI(authed, &importApi{importer: svcs.Importer, scheduler: s.deps.Imports})
	registerGradingAPI(authed, svcs.Enrollments)
}

// Start blocks while serving. Failures are sent to Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address()); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

// ShutdownSignal fires on SIGINT, SIGTERM or SignalShutdown.
func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already signaled
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

// Tokens returns the JWT issuer of the server.
func (s *Server) Tokens() *Tokens {
	return s.tokens
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Alef University API!")
}
