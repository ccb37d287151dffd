package server

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/jrsteele09/go-pin-client/api"
	"github.com/jrsteele09/go-pin-client/appstate"
	"github.com/jrsteele09/go-pin-client/guard"
	"github.com/jrsteele09/go-pin-client/internal/config"
	"github.com/jrsteele09/go-pin-client/internal/telemetry"
	"github.com/jrsteele09/go-pin-client/profile"
	"github.com/jrsteele09/go-pin-client/session"
	"github.com/jrsteele09/go-pin-client/signup"
	"github.com/rs/zerolog/log"
)

// Deps are the session core components the server exposes as screens.
type Deps struct {
	API       *api.Client
	Store     *session.Store
	Container *appstate.Container
	Reporter  telemetry.Reporter
	// FlowOptions are passed to signup.New after the session config.
	FlowOptions []signup.Option
}

type Server struct {
	env    string // Environment (e.g., "DEV", "PROD")
	mux    *http.ServeMux
	routes []string
	config config.Config

	api       *api.Client
	store     *session.Store
	container *appstate.Container
	reporter  telemetry.Reporter
	flow      *signup.Flow
	guard     *guard.Guard
	profiles  *profile.Service

	refreshMu sync.Mutex
	refresh   *backgroundRefresh
}

func New(config config.Config, deps Deps) *Server {
	s := &Server{
		env:       config.GetEnv(),
		mux:       http.NewServeMux(),
		config:    config,
		api:       deps.API,
		store:     deps.Store,
		container: deps.Container,
		reporter:  deps.Reporter,
		guard:     guard.New(deps.Store, deps.Container),
		profiles:  profile.New(deps.API, deps.Store, deps.Container),
	}
	if s.reporter == nil {
		s.reporter = telemetry.Nop{}
	}
	flowOptions := append([]signup.Option{signup.WithSessionConfig(config)}, deps.FlowOptions...)
	s.flow = signup.New(deps.API, deps.Store, deps.Container, flowOptions...)

	s.initRoutes()
	s.logRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Flow exposes the entry screen state machine.
func (s *Server) Flow() *signup.Flow {
	return s.flow
}

// Close stops the entry screen's timers and any background profile refresh.
func (s *Server) Close() {
	s.stopRefresh()
	s.flow.Close()
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != config.EnvDev {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	log.Info().Msgf("[%-19s] %s", colourMethod(method), path)
}

func logError(method, path, error string) {
	log.Error().Msgf("[%-19s] %s %s", colourMethod(method), path, Red+error+ResetColor)
}

func colourMethod(method string) string {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		return color + paddedMethod + ResetColor
	}
	return Gray + paddedMethod + ResetColor
}

// Terminal colours for DEV route logging.
const (
	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Blue    = "\033[34m"
	Magenta = "\033[35m"
	Cyan    = "\033[36m"
	Gray    = "\033[90m"

	ResetColor = "\033[0m"
)

var methodColors = map[string]string{
	"GET":     Green,
	"POST":    Blue,
	"PUT":     Cyan,
	"DELETE":  Yellow,
	"PATCH":   Magenta,
	"OPTIONS": Gray,
}
