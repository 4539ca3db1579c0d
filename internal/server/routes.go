package server

import (
	"github.com/go-chi/chi/v5"
)

// setupRoutes configures all API routes. Routes under requireToken are the
// agent-facing surface; the rest serve the local operator dashboard.
func (s *Server) setupRoutes() {
	r := s.router

	// Approval routes
	r.Route("/approvals", func(r chi.Router) {
		r.With(s.requireToken).Post("/request", s.requestApproval)

		r.Get("/", s.listApprovals)
		r.Get("/pending", s.listPending)
		r.Get("/{approvalID}", s.getApproval)
		r.Post("/{approvalID}/decide", s.decideApproval)
		r.Delete("/{approvalID}", s.revokeApproval)
	})

	// File routes
	r.Route("/files", func(r chi.Router) {
		r.Use(s.requireToken)
		r.Get("/tree", s.fileTree)
		r.Get("/read", s.readFile)
		r.Put("/write", s.writeFile)
	})

	// Audit routes
	r.Route("/audit", func(r chi.Router) {
		r.Get("/", s.recentAudit)
		r.Get("/path", s.auditForPath)
	})

	// Event streaming (SSE) for the dashboard
	r.Get("/events", s.streamEvents)

	r.Get("/health", s.health)
}
