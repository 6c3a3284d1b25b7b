package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/avelldiaz/authbase/internal/auth"
	"github.com/avelldiaz/authbase/internal/config"
	"github.com/avelldiaz/authbase/internal/http/handlers"
	"github.com/avelldiaz/authbase/internal/http/respond"
	"github.com/avelldiaz/authbase/internal/middleware"
	"github.com/avelldiaz/authbase/internal/storage"
)

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// New wires up middleware, routes, and returns a ready server.
func New(cfg config.Config, store storage.UserStore, log *slog.Logger) *Server {
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	svc := auth.NewService(store, tokens)
	guard := middleware.Authenticate(tokens, store, log)

	router := chi.NewRouter()
	router.Use(
		chimiddleware.RequestID,
		chimiddleware.RealIP,
		chimiddleware.Recoverer,
	)

	handlers.NewHealthHandler().Register(router)

	authHandler := handlers.NewAuthHandler(svc, cfg, log)
	router.Route("/api/auth", func(r chi.Router) {
		authHandler.Register(r, guard)
	})

	router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respond.Error(w, http.StatusNotFound, "Not found")
	})

	handler := middleware.CORS(cfg.CORSOrigins, middleware.Logging(log, router))

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{inner: httpServer}
}

// Handler exposes the full middleware-wrapped handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.inner.Handler
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
