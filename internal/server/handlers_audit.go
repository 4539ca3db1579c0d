package server

import (
	"net/http"
	"strconv"
)

// recentAudit handles GET /audit.
func (s *Server) recentAudit(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 100, 1000)
	writeJSON(w, http.StatusOK, s.ledger.Recent(limit))
}

// auditForPath handles GET /audit/path.
func (s *Server) auditForPath(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "path required")
		return
	}
	limit := queryLimit(r, 50, 1000)
	writeJSON(w, http.StatusOK, s.ledger.ForPath(path, limit))
}

// health handles GET /health.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func queryLimit(r *http.Request, def, max int) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
