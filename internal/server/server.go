// Package server is the HTTP shell that mounts the revlens feature routes.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ziadkadry99/revlens/internal/db"
	"github.com/ziadkadry99/revlens/internal/journal"
	"github.com/ziadkadry99/revlens/internal/notifications"
	"github.com/ziadkadry99/revlens/internal/reference"
	"github.com/ziadkadry99/revlens/internal/viewer"
)

// Config holds server configuration.
type Config struct {
	Port     int
	AllowAll bool // allow all CORS origins (dev mode)
	Logger   *slog.Logger
}

// Deps are the feature components the server exposes. Nil components are
// not mounted.
type Deps struct {
	DB            *db.DB
	Resolver      *reference.Resolver
	Builder       *reference.HrefBuilder
	Viewer        *viewer.Viewer
	Journal       *journal.Store
	Notifications *notifications.Store
	Dispatcher    *notifications.Dispatcher
}

// Server serves the REST and websocket surfaces.
type Server struct {
	cfg        Config
	deps       Deps
	logger     *slog.Logger
	router     chi.Router
	httpServer *http.Server
}

// New creates a server with all routes mounted.
func New(cfg Config, deps Deps) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{cfg: cfg, deps: deps, logger: logger}
	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS
	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		if s.deps.Resolver != nil {
			builder := s.deps.Builder
			if builder == nil {
				builder = reference.NewHrefBuilder(s.deps.Resolver.Site())
			}
			reference.RegisterRoutes(r, s.deps.Resolver, builder)
		}
		if s.deps.Viewer != nil {
			viewer.RegisterRoutes(r, s.deps.Viewer)
		}
		if s.deps.Journal != nil {
			journal.RegisterRoutes(r, s.deps.Journal)
		}
		if s.deps.Notifications != nil {
			dispatcher := s.deps.Dispatcher
			if dispatcher == nil {
				dispatcher = notifications.NewDispatcher(s.deps.Notifications, notifications.Options{Logger: s.logger})
			}
			notifications.RegisterRoutes(r, s.deps.Notifications, dispatcher)
		}
	})

	if s.deps.Viewer != nil {
		viewer.RegisterWebSocket(r, s.deps.Viewer)
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.deps.DB != nil {
		if err := s.deps.DB.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, `{"status":"degraded","error":%q}`, err.Error())
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// Router returns the chi router for registering additional routes.
func (s *Server) Router() chi.Router { return s.router }

// Database returns the database connection.
func (s *Server) Database() *db.DB { return s.deps.DB }

// ServerConfig returns the server configuration.
func (s *Server) ServerConfig() Config { return s.cfg }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("revlens server listening", "addr", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
