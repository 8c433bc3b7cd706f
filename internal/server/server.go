// Package server exposes a Navigator to the browser: a single page with the
// satellite map, a JSON action API and the display websocket.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/tropicly/labeler/internal/config"
	"github.com/tropicly/labeler/internal/keys"
	"github.com/tropicly/labeler/internal/navigator"
	"github.com/tropicly/labeler/internal/samplecsv"
	"github.com/tropicly/labeler/internal/storage"
)

//go:embed web/index.html
var webFS embed.FS

// Dependencies holds all dependencies needed by the server
type Dependencies struct {
	Navigator *navigator.Navigator
	Keymap    keys.Keymap
	// Display is mounted at /ws when set.
	Display http.Handler
	Storage storage.Backend
	// Autosave saves after every edit, not only on export.
	Autosave bool
	CSV      samplecsv.Options
	Server   config.ServerConfig
	Map      config.MapConfig
	Logger   *slog.Logger
}

// Server serializes every action on the navigator, one request at a time.
type Server struct {
	deps  Dependencies
	log   *slog.Logger
	page  *template.Template
	mux   *http.ServeMux
	mu    sync.Mutex
	ready chan struct{}
	once  sync.Once
	addr  net.Addr
}

// New creates a server and registers its routes.
func New(deps Dependencies) (*Server, error) {
	if deps.Navigator == nil {
		return nil, errors.New("navigator not set")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	page, err := template.ParseFS(webFS, "web/index.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	s := &Server{
		deps:  deps,
		log:   deps.Logger,
		page:  page,
		mux:   http.NewServeMux(),
		ready: make(chan struct{}),
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /healthcheck", s.handleHealthcheck)

	s.mux.HandleFunc("GET /api/state", s.handleState)
	s.mux.HandleFunc("POST /api/load", s.handleLoad)
	s.mux.HandleFunc("POST /api/next", s.handleNext)
	s.mux.HandleFunc("POST /api/previous", s.handlePrevious)
	s.mux.HandleFunc("POST /api/jump", s.handleJump)
	s.mux.HandleFunc("POST /api/validation", s.handleValidation)
	s.mux.HandleFunc("POST /api/label", s.handleLabel)
	s.mux.HandleFunc("POST /api/key", s.handleKey)
	s.mux.HandleFunc("POST /api/restore", s.handleRestore)
	s.mux.HandleFunc("GET /api/export", s.handleExport)

	if s.deps.Display != nil {
		s.mux.Handle("GET /ws", s.deps.Display)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Start listens on the configured address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.deps.Server.Address)
	if err != nil {
		s.markReady(nil)
		return fmt.Errorf("failed to listen on %s: %w", s.deps.Server.Address, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(s.log.Handler(), slog.LevelWarn),
	}

	s.markReady(ln.Addr())
	s.log.Info("Labeler listening", "address", "http://"+ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	wait := s.deps.Server.ShutdownWait
	if wait <= 0 {
		wait = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()

	s.log.Info("Shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr blocks until Serve has a listener and returns its address. It returns
// nil if Start could not listen.
func (s *Server) Addr() net.Addr {
	<-s.ready
	return s.addr
}

func (s *Server) markReady(addr net.Addr) {
	s.once.Do(func() {
		s.addr = addr
		close(s.ready)
	})
}
