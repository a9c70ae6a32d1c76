package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	rfbridge "github.com/nerrad567/gray-logic-rf433/internal/bridges/rf433"
	"github.com/nerrad567/gray-logic-rf433/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-rf433/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-rf433/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-rf433/internal/rf433"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Receiver is the read-only view of the decoder the API exposes.
// *rf433.Device satisfies it.
type Receiver interface {
	Stats() rf433.Stats
	IsReceiving() bool
}

// Bridge is the read-only view of the MQTT bridge. *rfbridge.Bridge
// satisfies it.
type Bridge interface {
	Metrics() rfbridge.BridgeMetrics
	Transmitters(ctx context.Context) ([]rfbridge.Transmitter, error)
	LastState(address string) (rfbridge.StateMessage, bool)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Logger   *logging.Logger
	Receiver Receiver
	Bridge   Bridge
	DB       *database.DB // optional, pool stats in /metrics
	Hub      *Hub         // optional, created on Start if nil
	Version  string
}

// Server is the HTTP diagnostics server: health, receiver counters,
// known transmitters and a websocket feed of decoded frames.
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	logger    *logging.Logger
	receiver  Receiver
	bridge    Bridge
	db        *database.DB
	hub       *Hub
	version   string
	startTime time.Time

	server   *http.Server
	listener net.Listener
	cancel   context.CancelFunc
	mu       sync.Mutex
}

// New creates a server. It is not listening until Start.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Receiver == nil {
		return nil, fmt.Errorf("receiver is required")
	}
	if deps.Bridge == nil {
		return nil, fmt.Errorf("bridge is required")
	}

	return &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		logger:    deps.Logger,
		receiver:  deps.Receiver,
		bridge:    deps.Bridge,
		db:        deps.DB,
		hub:       deps.Hub,
		version:   deps.Version,
		startTime: time.Now(),
	}, nil
}

// Hub returns the websocket hub, creating it if needed so it can be
// handed to the bridge as a frame observer before Start.
func (s *Server) Hub() *Hub {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	return s.hub
}

// Start binds the listener and serves in the background. The hub runs
// until Close or ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	hub := s.Hub()

	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	go hub.Run(srvCtx)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.cancel()
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}
	srv := s.server
	s.mu.Unlock()

	s.logger.Info("API server listening", "address", ln.Addr().String())
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Port returns the bound TCP port, or 0 before Start.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return 0
	}
	if tcp, ok := s.listener.Addr().(*net.TCPAddr); ok {
		return tcp.Port
	}
	return 0
}

// Close gracefully shuts down the server, waiting up to 10 seconds for
// in-flight requests.
func (s *Server) Close() error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
