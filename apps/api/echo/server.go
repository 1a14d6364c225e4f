package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/Bebdyshev/usp-backend/core"
	"github.com/Bebdyshev/usp-backend/core/analytics"
	"github.com/Bebdyshev/usp-backend/core/score"
	"github.com/Bebdyshev/usp-backend/core/settings"
	"github.com/Bebdyshev/usp-backend/core/user"
)

type ServerDeps struct {
	Conf           *core.Config
	Logger         core.Logger
	UserSvc        *user.Service
	ScoreSvc       *score.Service
	SettingsSvc    *settings.Service
	AnalyticsSvc   *analytics.Service
	Validate       *validator.Validate
	Translator     ut.Translator
	DisableReqLogs bool
}

type Server struct {
	app      *echo.Echo
	address  string
	errors   chan error
	shutdown chan os.Signal
}

func NewServer(deps ServerDeps) *Server {
	vala.BeginValidation().Validate(
		vala.IsNotNil(deps.Conf, "Conf"),
		vala.IsNotNil(deps.Logger, "Logger"),
		vala.IsNotNil(deps.UserSvc, "UserSvc"),
		vala.IsNotNil(deps.ScoreSvc, "ScoreSvc"),
		vala.IsNotNil(deps.SettingsSvc, "SettingsSvc"),
		vala.IsNotNil(deps.AnalyticsSvc, "AnalyticsSvc"),
		vala.IsNotNil(deps.Validate, "Validate"),
		vala.IsNotNil(deps.Translator, "Translator"),
	).CheckAndPanic()

	s := &Server{
		app:      echo.New(),
		address:  deps.Conf.Server.Address,
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup(deps)
	return s
}

func (s *Server) setup(deps ServerDeps) {
	conf := deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(deps.Logger, deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	auth := newAuthenticator(conf, deps.UserSvc)
	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(auth.jwtConfig)

	registerUserAPI(v1, jwt, auth, deps.UserSvc, deps.Validate)
	registerGradeAPI(v1, jwt, auth, deps.ScoreSvc, deps.Validate)
	registerGradebookAPI(v1, jwt, auth, deps.ScoreSvc, deps.Validate, conf.Server.MaxUploadSize)
	registerScoreAPI(v1, jwt, auth, deps.ScoreSvc)
	registerDashboardAPI(v1, jwt, auth, deps.AnalyticsSvc)
	registerSettingsAPI(v1, jwt, deps.SettingsSvc, deps.Validate)
}

// Start listens until the server is shut down. Listening errors are sent on Errors.
func (s *Server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	if err := s.app.Start(s.address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to USP API!")
}
