// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer: it connects handlers, middleware, and
// routes, and owns the server's lifecycle.
//
// DEPENDENCY INJECTION FLOW:
// main.go creates:
//
//	config.Config → logger → sqlite.DB → server.New
//
// server.New creates:
//
//	TokenService, PasswordService → AccountService → AccountHandler
//
// This is the "composition root" pattern: all dependencies are wired in
// one place (New/setupRoutes), rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/account-service/internal/auth"
	"github.com/sakif/account-service/internal/config"
	"github.com/sakif/account-service/internal/handler"
	"github.com/sakif/account-service/internal/middleware"
	sqliteRepo "github.com/sakif/account-service/internal/repository/sqlite"
	"github.com/sakif/account-service/internal/service"
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection (db). Start closes it after the
// HTTP server has drained, so no in-flight request loses its store.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New creates a Server around an already-open database.
//
// Each layer only receives what it needs:
//   - Service gets the repository interface (not the concrete sqlite.DB)
//   - Handler gets the service interface (not the repository or DB)
func New(cfg config.Config, db *sqliteRepo.DB, logger *slog.Logger) (*Server, error) {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// Handler returns the root http.Handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE (under cfg.APIPrefix, default /api/v1):
// GET    /                 → liveness ("TEST COMPLETE")
// POST   /register         → create account
// POST   /login            → issue token (body + cookie)
// GET    /user/{username}  → public or private profile
// PUT    /user/update      → update own profile (confirm password)
// DELETE /user/delete      → delete own account (confirm password)
// POST   /verify-token     → return the token's claims
// *                        → 404 "Route <path> not found"
//
// MIDDLEWARE ORDER MATTERS:
//  1. RequestID: assigns unique ID to each request (for tracing)
//  2. RealIP: extracts real client IP from proxy headers
//  3. Logger: logs each request with timing info and the request ID
//  4. Recoverer: catches panics and returns 500 instead of crashing
//  5. Timeout: puts a deadline on the request context, which every store call honours
//  6. Credentials: captures bearer header and auth cookie for the service
func (s *Server) setupRoutes() error {
	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.config.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	accounts := service.NewAccountService(
		s.db,
		tokens,
		auth.NewPasswordService(),
		s.config.PasswordPepper,
		s.logger,
	)
	accountHandler := handler.NewAccountHandler(accounts, handler.CookieConfig{
		Name:     s.config.CookieName,
		Path:     s.config.APIPrefix,
		MaxAge:   int(s.config.TokenTTL / time.Second),
		HTTPOnly: s.config.DevMode,
	}, s.logger)

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(chimiddleware.Timeout(s.config.RequestTimeout))
	s.router.Use(auth.Credentials(s.config.CookieName))

	s.router.NotFound(handler.HandleNotFound)

	s.router.Route(s.config.APIPrefix, func(r chi.Router) {
		r.Get("/", handler.HandleRoot)
		r.Post("/register", accountHandler.HandleRegister)
		r.Post("/login", accountHandler.HandleLogin)
		r.Get("/user/{username}", accountHandler.HandleGetUser)
		r.Put("/user/update", accountHandler.HandleUpdate)
		r.Delete("/user/delete", accountHandler.HandleDelete)
		r.Post("/verify-token", accountHandler.HandleVerifyToken)
	})

	return nil
}

// Start starts the HTTP server and blocks until SIGINT/SIGTERM or a
// listener failure.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new HTTP connections
//  2. Wait for in-flight requests to finish (cfg.ShutdownTimeout)
//  3. Close the database connection (flushes WAL, releases file lock)
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: s.config.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d%s", s.config.Port, s.config.APIPrefix)),
			slog.String("database", s.config.DBPath),
			slog.Bool("devMode", s.config.DevMode),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		timeout := s.config.ShutdownTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
