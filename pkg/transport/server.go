// Package transport serves streams to remote consumers over websockets.
//
// Each connection gets its own session: a stream created by the server's
// Factory, a sink that writes envelopes to the connection, and a read
// loop that hands inbound frames to the stream. Protocol errors are
// reported and the connection stays open.
package transport

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/sync/errgroup"

	"github.com/go-drift/driftui/pkg/errors"
	"github.com/go-drift/driftui/pkg/stream"
)

// Stream is the per-connection protocol endpoint.
type Stream interface {
	Handle(ctx context.Context, data []byte) error
	Close()
}

// Runner is implemented by streams that need a goroutine of their own,
// such as [stream.DocumentStream].
type Runner interface {
	Run(ctx context.Context) error
}

// Factory creates the stream for a new connection. Messages sent to sink
// are written to that connection.
type Factory func(sink stream.Sink) (Stream, error)

// Server accepts websocket connections and binds each to a stream.
type Server struct {
	factory      Factory
	path         string
	logger       *slog.Logger
	writeTimeout time.Duration
	upgrader     websocket.Upgrader
	router       *gin.Engine

	mu       sync.Mutex
	sessions map[string]*session
}

// Option configures a Server.
type Option func(*Server)

// WithPath sets the websocket endpoint path. The default is "/ws".
func WithPath(path string) Option {
	return func(s *Server) {
		s.path = path
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithWriteTimeout bounds each websocket write. The default is 10s.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.writeTimeout = d
	}
}

// NewServer creates a server for streams made by factory.
func NewServer(factory Factory, opts ...Option) *Server {
	s := &Server{
		factory:      factory,
		path:         "/ws",
		logger:       slog.Default(),
		writeTimeout: 10 * time.Second,
		sessions:     make(map[string]*session),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), otelgin.Middleware("driftui"), s.logRequests)

	router.GET(s.path, s.handleWebSocket)
	router.GET("/healthz", s.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	debug := router.Group("/debug")
	debug.GET("/sessions", s.handleSessions)
	debug.GET("/sessions/:id/tree", s.handleTree)
	return router
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Sessions returns the number of open sessions.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Serve listens on addr until ctx is done, then shuts down gracefully and
// closes every open session.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("listening", "addr", addr, "path", s.path)

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	// Hijacked websocket connections are not closed by Shutdown.
	s.closeSessions()
	return err
}

func (s *Server) closeSessions() {
	s.mu.Lock()
	sessions := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()
	for _, sess := range sessions {
		sess.conn.Close()
	}
}

func (s *Server) logRequests(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.logger.Debug("request",
		"method", c.Request.Method,
		"path", c.FullPath(),
		"status", c.Writer.Status(),
		"duration", time.Since(start),
	)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": s.Sessions()})
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	sess := &session{
		id:           uuid.New().String(),
		conn:         conn,
		writeTimeout: s.writeTimeout,
		started:      time.Now(),
	}
	st, err := s.factory(sess)
	if err != nil {
		errors.Report(&errors.Error{Op: "transport.session", Kind: errors.KindTransport, Err: err})
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "stream unavailable"))
		conn.Close()
		return
	}
	sess.stream = st

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	sessionsActive.Inc()
	logger := s.logger.With("session", sess.id)
	logger.Info("session opened", "remote", c.Request.RemoteAddr)

	defer func() {
		s.mu.Lock()
		delete(s.sessions, sess.id)
		s.mu.Unlock()
		sessionsActive.Dec()
		st.Close()
		conn.Close()
		logger.Info("session closed", "sent", sess.sentCount())
	}()

	// The request context is not canceled when a hijacked connection
	// closes, so the session has its own.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	if runner, ok := st.(Runner); ok {
		g.Go(func() error {
			err := runner.Run(ctx)
			if stderrors.Is(err, context.Canceled) || stderrors.Is(err, stream.ErrClosed) {
				return nil
			}
			return err
		})
	}
	g.Go(func() error {
		defer cancel()
		return sess.readLoop(ctx, logger)
	})
	g.Go(func() error {
		// Unblocks readLoop when the stream fails first.
		<-ctx.Done()
		conn.Close()
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.Warn("session ended with error", "error", err)
	}
}
