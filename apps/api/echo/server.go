package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/portal/core"
	"github.com/trezcool/portal/core/alert"
	"github.com/trezcool/portal/core/conversation"
	"github.com/trezcool/portal/core/dashboard"
	"github.com/trezcool/portal/core/meeting"
	"github.com/trezcool/portal/core/resource"
	"github.com/trezcool/portal/core/submission"
	"github.com/trezcool/portal/core/ticket"
)

type (
	Options struct {
		Address        string
		Debug          bool
		TestMode       bool
		DisableReqLogs bool
		Logger         core.Logger
		// Shutdown is called when a handler returns a core shutdown error.
		Shutdown func()
	}

	Deps struct {
		Alerts        *alert.Service
		Tickets       *ticket.Service
		Meetings      *meeting.Service
		Submissions   *submission.Service
		Resources     *resource.Service
		Conversations *conversation.Service
		Dashboard     *dashboard.Builder
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		deps *Deps
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options, deps *Deps) Server {
	if opts.Shutdown == nil {
		opts.Shutdown = func() {}
	}
	s := &server{
		opts: opts,
		deps: deps,
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.opts.Debug || s.opts.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Shutdown)
	s.app.Debug = s.opts.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1", identityMiddleware)
	registerUserAPI(v1, s.deps.Dashboard)

	if d := s.deps.Alerts; d != nil {
		registerAlertAPI(v1, d)
	}
	if d := s.deps.Tickets; d != nil {
		registerTicketAPI(v1, d)
	}
	if d := s.deps.Meetings; d != nil {
		registerCollectionAPI(v1, d.Collection)
	}
	if d := s.deps.Submissions; d != nil {
		registerSubmissionAPI(v1, d)
	}
	if d := s.deps.Resources; d != nil {
		registerResourceAPI(v1, d)
	}
	if d := s.deps.Conversations; d != nil {
		registerConversationAPI(v1, d)
	}
}

func (s *server) Start() error {
	return s.app.Start(s.opts.Address)
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to the Masomo Portal API!")
}
