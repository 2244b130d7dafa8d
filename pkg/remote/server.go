package remote

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/vango-dev/domsync/pkg/program"
)

// Server upgrades HTTP requests to websocket sessions, each running its
// own application instance.
type Server struct {
	factory     AppFactory
	config      *Config
	logger      *slog.Logger
	metrics     *Metrics
	programOpts []program.Option
	checkOrigin func(r *http.Request) bool
	upgrader    websocket.Upgrader

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	sessions map[string]*Session
}

// Option configures a Server.
type Option func(*Server)

// WithConfig sets the session settings.
func WithConfig(config *Config) Option {
	return func(s *Server) {
		if config != nil {
			s.config = config.Clone()
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the connection collectors.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithProgramOptions adds options to every session's program.
func WithProgramOptions(opts ...program.Option) Option {
	return func(s *Server) {
		s.programOpts = append(s.programOpts, opts...)
	}
}

// WithCheckOrigin sets the origin check of the upgrade. The default
// accepts same-origin requests only.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(s *Server) {
		s.checkOrigin = fn
	}
}

// NewServer creates a Server running factory's application per session.
func NewServer(factory AppFactory, opts ...Option) *Server {
	s := &Server{
		factory:  factory,
		config:   DefaultConfig(),
		logger:   slog.Default(),
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "remote")
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  s.config.ReadBufferSize,
		WriteBufferSize: s.config.WriteBufferSize,
		CheckOrigin:     s.checkOrigin,
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

// ServeHTTP upgrades the request and runs the session until it ends.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.ctx.Err() != nil {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	sess := newSession(conn, s.factory, s.config, s.logger, s.metrics, s.programOpts)
	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	s.wg.Add(1)
	defer func() {
		s.mu.Lock()
		delete(s.sessions, sess.id)
		s.mu.Unlock()
		s.wg.Done()
	}()

	if err := sess.Run(s.ctx); err != nil {
		s.logger.Warn("session ended with error", "session", sess.id, "error", err)
	}
}

// Sessions returns the number of running sessions.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Shutdown ends every session and waits for them to finish or for ctx to
// be done.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
