package event

import "github.com/localbridge-dev/localbridge/pkg/types"

// ApprovalRequestedData is the data for approval.requested events.
type ApprovalRequestedData struct {
	Approval *types.Approval `json:"approval"`
}

// ApprovalResolvedData is the data for approval.resolved events.
type ApprovalResolvedData struct {
	Approval *types.Approval `json:"approval"`
	Granted  bool            `json:"granted"`
}

// ApprovalRevokedData is the data for approval.revoked events.
type ApprovalRevokedData struct {
	Approval *types.Approval `json:"approval"`
}

// FileAccessData is the data for file.read and file.written events.
type FileAccessData struct {
	Path    string `json:"path"`
	Bytes   int64  `json:"bytes,omitempty"`
	Success bool   `json:"success"`
}

// FileChangedData is the data for file.changed events from the workspace watcher.
type FileChangedData struct {
	Path string `json:"path"`
	// Op is the fsnotify operation string, e.g. "WRITE" or "REMOVE".
	Op string `json:"op"`
}
