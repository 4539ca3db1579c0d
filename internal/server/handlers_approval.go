package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/localbridge-dev/localbridge/pkg/types"
)

// requestApproval handles POST /approvals/request.
//
// The agent asks for access to a path. With wait=true (the default) the call
// blocks until the operator decides or the decision timeout elapses; with
// wait=false it returns the pending record immediately.
func (s *Server) requestApproval(w http.ResponseWriter, r *http.Request) {
	var req types.ApprovalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	access, err := types.ParseAccess(string(req.Access))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	// Short-circuit when an existing grant already covers the path.
	resolved, err := s.resolver.Resolve(req.Path)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if existing := s.approvals.ApprovalFor(resolved, access); existing != nil {
		writeJSON(w, http.StatusOK, existing)
		return
	}

	a, err := s.approvals.CreateRequest(req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	s.ledger.Append(types.AuditApprovalRequested, a.ResolvedPath, a.Reason, true)

	if r.URL.Query().Get("wait") == "false" {
		writeJSON(w, http.StatusAccepted, a)
		return
	}

	decided, err := s.approvals.WaitForDecision(r.Context(), a.ID, s.cfg.DecisionTimeout())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, decided)
}

// listApprovals handles GET /approvals.
func (s *Server) listApprovals(w http.ResponseWriter, r *http.Request) {
	includeExpired := r.URL.Query().Get("includeExpired") == "true"
	writeJSON(w, http.StatusOK, s.approvals.List(includeExpired))
}

// listPending handles GET /approvals/pending.
func (s *Server) listPending(w http.ResponseWriter, r *http.Request) {
	pending := make([]*types.Approval, 0)
	for _, a := range s.approvals.List(false) {
		if a.Status == types.StatusPending {
			pending = append(pending, a)
		}
	}
	writeJSON(w, http.StatusOK, pending)
}

// getApproval handles GET /approvals/{approvalID}.
func (s *Server) getApproval(w http.ResponseWriter, r *http.Request) {
	a, err := s.approvals.Get(chi.URLParam(r, "approvalID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// decideApproval handles POST /approvals/{approvalID}/decide.
func (s *Server) decideApproval(w http.ResponseWriter, r *http.Request) {
	var d types.Decision
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	a, err := s.approvals.Resolve(chi.URLParam(r, "approvalID"), d)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	action := types.AuditApprovalDenied
	if d.Approved {
		action = types.AuditApprovalGranted
	}
	s.ledger.Append(action, a.ResolvedPath, "", true)

	writeJSON(w, http.StatusOK, a)
}

// revokeApproval handles DELETE /approvals/{approvalID}.
func (s *Server) revokeApproval(w http.ResponseWriter, r *http.Request) {
	a, err := s.approvals.Revoke(chi.URLParam(r, "approvalID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	s.ledger.Append(types.AuditApprovalRevoked, a.ResolvedPath, "", true)

	writeJSON(w, http.StatusOK, a)
}
