package httpeval

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/bpcreech/http-eval/internal/helpers"
)

const readHeaderTimeout = 10 * time.Second

// Server serves an http.Handler on a Unix domain socket. The socket file is
// created by Listen and removed when the server shuts down.
type Server struct {
	path    string
	handler http.Handler

	mu       sync.Mutex
	listener net.Listener
	srv      *http.Server

	logger *slog.Logger
}

// NewServer creates a Server for the socket at path.
func NewServer(path string, handler http.Handler, logHandler slog.Handler) (*Server, error) {
	if path == "" {
		return nil, ErrNoSocketPath
	}
	if handler == nil {
		return nil, errors.New("handler is nil")
	}
	_, logger := helpers.SetupLogger(logHandler, "httpeval", "Server")
	return &Server{
		path:    path,
		handler: handler,
		logger:  logger.With("socket", path),
	}, nil
}

func (s *Server) String() string {
	return fmt.Sprintf("httpeval.Server{socket: %s}", s.path)
}

// Listen binds the socket. It fails if anything already exists at the path.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return nil
	}
	if _, err := os.Lstat(s.path); err == nil {
		return fmt.Errorf("%w: %s", ErrSocketExists, s.path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to inspect socket path: %w", err)
	}

	l, err := net.Listen("unix", s.path)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.path, err)
	}
	s.listener = l
	s.srv = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
	s.logger.Info("Listening")
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections until Shutdown. It returns nil after a clean
// shutdown.
func (s *Server) Serve() error {
	s.mu.Lock()
	srv, l := s.srv, s.listener
	s.mu.Unlock()
	if srv == nil {
		return ErrServerNotReady
	}

	if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve failed: %w", err)
	}
	return nil
}

// Run listens if needed and serves until ctx is cancelled, then shuts down
// within shutdownTimeout.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	if err := s.Listen(); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv, l := s.srv, s.listener
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	s.logger.Info("Shutting down")
	err := srv.Shutdown(ctx)
	// Serve may never have run, in which case the listener is still open.
	_ = l.Close()
	if err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
