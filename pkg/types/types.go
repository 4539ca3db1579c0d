// Package types defines the shared data model for the localbridge API.
package types

import (
	"fmt"
	"time"
)

// Scope is the granularity of an approval grant.
type Scope string

const (
	// ScopeFile covers a single file only.
	ScopeFile Scope = "file"
	// ScopeDirectory covers a directory and everything below it.
	ScopeDirectory Scope = "directory"
	// ScopeDirectoryShallow covers direct children of a directory only.
	ScopeDirectoryShallow Scope = "directory_shallow"
)

// ParseScope validates a scope string. Empty defaults to ScopeFile.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case "":
		return ScopeFile, nil
	case ScopeFile, ScopeDirectory, ScopeDirectoryShallow:
		return Scope(s), nil
	}
	return "", &ValidationError{Field: "scope", Message: fmt.Sprintf("unknown scope %q", s)}
}

// AccessLevel is the kind of file access an approval grants.
type AccessLevel string

const (
	AccessRead      AccessLevel = "read"
	AccessWrite     AccessLevel = "write"
	AccessReadWrite AccessLevel = "read_write"
)

// ParseAccess validates an access level string. Empty defaults to AccessRead.
func ParseAccess(s string) (AccessLevel, error) {
	switch AccessLevel(s) {
	case "":
		return AccessRead, nil
	case AccessRead, AccessWrite, AccessReadWrite:
		return AccessLevel(s), nil
	}
	return "", &ValidationError{Field: "access", Message: fmt.Sprintf("unknown access level %q", s)}
}

// Status is the lifecycle state of an approval record.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
	StatusRevoked  Status = "revoked"
	StatusExpired  Status = "expired"
)

// Terminal reports whether a status admits no further decision.
// Revocation is still possible from any status.
func (s Status) Terminal() bool {
	return s != StatusPending
}

// Approval is a stored grant-or-pending-request for access to a path.
//
// ResolvedPath is computed once at creation from RequestedPath and never
// recomputed; changing the workspace roots later does not invalidate
// existing records.
type Approval struct {
	ID            string      `json:"id"`
	RequestedPath string      `json:"path"`
	ResolvedPath  string      `json:"resolvedPath"`
	Scope         Scope       `json:"scope"`
	Access        AccessLevel `json:"access"`
	Status        Status      `json:"status"`
	Reason        string      `json:"reason,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
	ResolvedAt    *time.Time  `json:"resolvedAt,omitempty"`
	ExpiresAt     *time.Time  `json:"expiresAt,omitempty"`
	// FilePatterns restricts matches within a directory scope to filenames
	// matching at least one shell-style glob. Empty means all files.
	FilePatterns []string `json:"filePatterns,omitempty"`
}

// Clone returns a deep copy so callers can hand records across goroutines
// without aliasing engine-owned state.
func (a *Approval) Clone() *Approval {
	if a == nil {
		return nil
	}
	c := *a
	if a.ResolvedAt != nil {
		t := *a.ResolvedAt
		c.ResolvedAt = &t
	}
	if a.ExpiresAt != nil {
		t := *a.ExpiresAt
		c.ExpiresAt = &t
	}
	if len(a.FilePatterns) > 0 {
		c.FilePatterns = append([]string(nil), a.FilePatterns...)
	}
	return &c
}

// ApprovalRequest is the inbound request from the agent to access a path.
type ApprovalRequest struct {
	Path   string      `json:"path"`
	Scope  Scope       `json:"scope,omitempty"`
	Access AccessLevel `json:"access,omitempty"`
	// Reason is shown to the operator when deciding.
	Reason string `json:"reason,omitempty"`
	// TTLMinutes auto-expires the grant after N minutes. Nil means use the
	// configured default; zero means no expiry.
	TTLMinutes *int `json:"ttlMinutes,omitempty"`
}

// Decision is the operator's response to an approval request.
type Decision struct {
	Approved bool `json:"approved"`
	// FilePatterns optionally restricts a directory approval to filenames
	// matching these globs.
	FilePatterns []string `json:"filePatterns,omitempty"`
	// TTLMinutes overrides the requested TTL when set.
	TTLMinutes *int `json:"ttlMinutes,omitempty"`
}

// AuditAction identifies what kind of access-relevant event occurred.
type AuditAction string

const (
	AuditRead              AuditAction = "read"
	AuditWrite             AuditAction = "write"
	AuditList              AuditAction = "list"
	AuditApprovalRequested AuditAction = "approval_requested"
	AuditApprovalGranted   AuditAction = "approval_granted"
	AuditApprovalDenied    AuditAction = "approval_denied"
	AuditApprovalRevoked   AuditAction = "approval_revoked"
)

// AuditEntry is one immutable record in the audit ledger.
type AuditEntry struct {
	Timestamp time.Time   `json:"timestamp"`
	Action    AuditAction `json:"action"`
	Path      string      `json:"path"`
	Detail    string      `json:"detail,omitempty"`
	Success   bool        `json:"success"`
}

// ValidationError reports malformed scope/access/ttl input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// IsValidationError checks if an error is a validation failure.
func IsValidationError(err error) bool {
	_, ok := err.(*ValidationError)
	return ok
}
