package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/localbridge-dev/localbridge/pkg/types"
)

// fileTree handles GET /files/tree.
func (s *Server) fileTree(w http.ResponseWriter, r *http.Request) {
	depth, _ := strconv.Atoi(r.URL.Query().Get("depth"))
	if depth <= 0 {
		depth = 3
	}
	if depth > 10 {
		depth = 10
	}

	nodes, err := s.files.Tree(r.URL.Query().Get("path"), depth)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nodes)
}

// readFile handles GET /files/read.
func (s *Server) readFile(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "path required")
		return
	}

	result, err := s.files.Read(path)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// writeFile handles PUT /files/write.
func (s *Server) writeFile(w http.ResponseWriter, r *http.Request) {
	var req types.FileWriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "path required")
		return
	}

	result, err := s.files.Write(req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
