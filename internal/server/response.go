package server

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/localbridge-dev/localbridge/internal/approval"
	"github.com/localbridge-dev/localbridge/internal/file"
	"github.com/localbridge-dev/localbridge/internal/workspace"
	"github.com/localbridge-dev/localbridge/pkg/types"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodePermissionDenied = "PERMISSION_DENIED"
	ErrCodeApprovalRequired = "APPROVAL_REQUIRED"
	ErrCodeInvalidState     = "INVALID_STATE"
	ErrCodeDecisionTimeout  = "DECISION_TIMEOUT"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// writeServiceError maps engine, sandbox, and file-layer errors onto HTTP
// responses. The three look-alike outcomes of a request — still pending,
// explicitly denied, and timed out — each surface distinctly to callers.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case workspace.IsAccessDenied(err):
		writeError(w, http.StatusForbidden, ErrCodePermissionDenied, err.Error())
	case file.IsNotApproved(err):
		writeError(w, http.StatusForbidden, ErrCodeApprovalRequired, err.Error())
	case approval.IsNotFound(err):
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case approval.IsInvalidState(err):
		writeError(w, http.StatusConflict, ErrCodeInvalidState, err.Error())
	case approval.IsTimeout(err):
		writeError(w, http.StatusRequestTimeout, ErrCodeDecisionTimeout, err.Error())
	case types.IsValidationError(err):
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
	case os.IsNotExist(err):
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
	}
}
