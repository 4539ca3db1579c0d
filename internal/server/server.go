// Package server provides the HTTP surface of the bridge: agent-facing
// token-protected routes for approval requests and file access, and
// operator-facing routes for deciding, revoking, and auditing.
package server

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/localbridge-dev/localbridge/internal/approval"
	"github.com/localbridge-dev/localbridge/internal/audit"
	"github.com/localbridge-dev/localbridge/internal/event"
	"github.com/localbridge-dev/localbridge/internal/file"
	"github.com/localbridge-dev/localbridge/internal/workspace"
	"github.com/localbridge-dev/localbridge/pkg/types"
)

// Server is the HTTP server.
type Server struct {
	cfg       *types.Config
	router    *chi.Mux
	httpSrv   *http.Server
	resolver  *workspace.Resolver
	approvals *approval.Service
	files     *file.Service
	ledger    *audit.Ledger
	bus       *event.Bus
}

// New creates a Server over already-wired services.
func New(cfg *types.Config, resolver *workspace.Resolver, approvals *approval.Service, files *file.Service, ledger *audit.Ledger, bus *event.Bus) *Server {
	s := &Server{
		cfg:       cfg,
		router:    chi.NewRouter(),
		resolver:  resolver,
		approvals: approvals,
		files:     files,
		ledger:    ledger,
		bus:       bus,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures middleware for the server.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RealIP)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

// requireToken guards agent-facing routes with the configured bearer token.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.Token)) != 1 {
			writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid or missing bearer token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:     s.router,
		ReadTimeout: 30 * time.Second,
		// No write timeout: approval requests block for up to the decision
		// timeout and the SSE stream is long-lived.
	}

	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
