package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/nerrad567/gray-logic-lampfx/internal/audit"
	"github.com/nerrad567/gray-logic-lampfx/internal/effect"
	"github.com/nerrad567/gray-logic-lampfx/internal/engine"
	"github.com/nerrad567/gray-logic-lampfx/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-lampfx/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-lampfx/internal/lamp"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Controller is the engine surface the API drives. *engine.Controller
// satisfies it.
type Controller interface {
	IsAvailable() bool

	Brightness() float64
	SetBrightness(v float64)
	Speed() float64
	SetSpeed(v float64)
	SmoothTransition() bool
	SetSmoothTransition(v bool)
	TransitionDuration() time.Duration
	SetTransitionDuration(d time.Duration)

	SetEffect(e effect.Effect)
	Effects() (current, target effect.Effect)
	SetEffectForIndices(indices []int, e effect.Effect)
	ClearOverrides()
	Overrides() []engine.Override

	Lamps() []engine.LampRef
	CurrentColor(index int) (lamp.Color, bool)
	SetAllLampsColor(col lamp.Color)
	SetLampColors(colors map[int]lamp.Color)
	SetColorForKeys(codes []uint16, col lamp.Color)
}

// HealthChecker is implemented by infrastructure clients reported in status.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config     config.APIConfig
	Logger     *logging.Logger
	Controller Controller

	// EffectOptions are passed to effect.New for every effect built from a
	// request, so API-built effects share state such as the AuroraSync feed.
	EffectOptions []effect.Option

	// Checks are optional named health checks included in /status.
	Checks map[string]HealthChecker

	// Audit records control changes. nil disables the audit log.
	Audit audit.Repository

	Version string
}

// Server is the HTTP API server.
//
// The server is created with New() and started with Start().
type Server struct {
	cfg        config.APIConfig
	logger     *logging.Logger
	controller Controller
	effectOpts []effect.Option
	checks     map[string]HealthChecker
	audit      audit.Repository
	version    string
	started    time.Time
	server     *http.Server
	listener   net.Listener
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (logger, controller)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Controller == nil {
		return nil, fmt.Errorf("controller is required")
	}

	return &Server{
		cfg:        deps.Config,
		logger:     deps.Logger,
		controller: deps.Controller,
		effectOpts: deps.EffectOptions,
		checks:     deps.Checks,
		audit:      deps.Audit,
		version:    deps.Version,
		started:    time.Now(),
	}, nil
}

// Handler returns the routed HTTP handler without starting a listener.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start binds the listener and serves requests in a background goroutine.
// The server can be stopped with Close().
//
// Returns:
//   - error: If the listener cannot be bound (port in use, etc.)
func (s *Server) Start() error {
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprintf("%d", s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("binding API listener on %s: %w", addr, err)
	}
	s.listener = ln

	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	s.logger.Info("API server starting", "address", ln.Addr().String())
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
