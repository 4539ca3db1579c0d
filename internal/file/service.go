// Package file provides sandboxed, approval-gated file operations. Every
// read and write consults the approval engine immediately before touching
// the filesystem and writes one audit entry regardless of the outcome.
package file

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/localbridge-dev/localbridge/internal/approval"
	"github.com/localbridge-dev/localbridge/internal/audit"
	"github.com/localbridge-dev/localbridge/internal/event"
	"github.com/localbridge-dev/localbridge/internal/workspace"
	"github.com/localbridge-dev/localbridge/pkg/types"
)

// NotApprovedError is returned when no active approval covers an access.
type NotApprovedError struct {
	Path   string
	Access types.AccessLevel
}

func (e *NotApprovedError) Error() string {
	return fmt.Sprintf("no active %s approval for %s; request approval first", e.Access, e.Path)
}

// IsNotApproved checks if an error is a missing-approval failure.
func IsNotApproved(err error) bool {
	_, ok := err.(*NotApprovedError)
	return ok
}

// langByExt maps file extensions to language hints for the dashboard.
var langByExt = map[string]string{
	".py": "python", ".js": "javascript", ".ts": "typescript", ".jsx": "jsx",
	".tsx": "tsx", ".rs": "rust", ".go": "go", ".java": "java", ".kt": "kotlin",
	".rb": "ruby", ".php": "php", ".c": "c", ".cpp": "cpp", ".h": "c",
	".cs": "csharp", ".swift": "swift", ".sh": "bash", ".yml": "yaml",
	".yaml": "yaml", ".json": "json", ".toml": "toml", ".md": "markdown",
	".html": "html", ".css": "css", ".sql": "sql",
}

// skipDirs are directory names excluded from tree listings.
var skipDirs = map[string]bool{
	"node_modules": true,
	"__pycache__":  true,
	".git":         true,
	"venv":         true,
	".venv":        true,
}

// Service performs the actual file I/O behind the policy engine.
type Service struct {
	resolver  *workspace.Resolver
	approvals *approval.Service
	ledger    *audit.Ledger
	bus       *event.Bus

	maxFileSize int64
}

// NewService wires the file layer to its collaborators. maxFileSizeMB of
// zero disables the size cap.
func NewService(resolver *workspace.Resolver, approvals *approval.Service, ledger *audit.Ledger, bus *event.Bus, maxFileSizeMB int) *Service {
	return &Service{
		resolver:    resolver,
		approvals:   approvals,
		ledger:      ledger,
		bus:         bus,
		maxFileSize: int64(maxFileSizeMB) * 1024 * 1024,
	}
}

// Read returns a file's contents. Requires an active read approval for the
// canonical path.
func (s *Service) Read(rawPath string) (*types.FileReadResult, error) {
	resolved, err := s.resolver.Resolve(rawPath)
	if err != nil {
		return nil, err
	}

	if !s.approvals.IsApproved(resolved, types.AccessRead) {
		s.ledger.Append(types.AuditRead, resolved, "denied: no approval", false)
		return nil, &NotApprovedError{Path: rawPath, Access: types.AccessRead}
	}

	info, err := os.Stat(resolved)
	if err != nil {
		s.ledger.Append(types.AuditRead, resolved, err.Error(), false)
		return nil, err
	}
	if info.IsDir() {
		err := fmt.Errorf("%s is not a file", resolved)
		s.ledger.Append(types.AuditRead, resolved, err.Error(), false)
		return nil, err
	}
	if s.maxFileSize > 0 && info.Size() > s.maxFileSize {
		err := fmt.Errorf("file exceeds max size of %d bytes", s.maxFileSize)
		s.ledger.Append(types.AuditRead, resolved, err.Error(), false)
		return nil, err
	}

	content, err := os.ReadFile(resolved)
	if err != nil {
		s.ledger.Append(types.AuditRead, resolved, err.Error(), false)
		return nil, err
	}

	s.ledger.Append(types.AuditRead, resolved, "", true)
	s.bus.Publish(event.Event{
		Type: event.FileRead,
		Data: event.FileAccessData{Path: resolved, Bytes: info.Size(), Success: true},
	})

	return &types.FileReadResult{
		Path:     resolved,
		Content:  string(content),
		Size:     info.Size(),
		Encoding: "utf-8",
		Modified: info.ModTime(),
		Language: langByExt[strings.ToLower(filepath.Ext(resolved))],
	}, nil
}

// Write stores content to a file. Requires an active write approval. When
// req.Backup is set and the file exists, the previous contents are copied to
// <name>.bak first.
func (s *Service) Write(req types.FileWriteRequest) (*types.FileWriteResult, error) {
	resolved, err := s.resolver.Resolve(req.Path)
	if err != nil {
		return nil, err
	}

	if !s.approvals.IsApproved(resolved, types.AccessWrite) {
		s.ledger.Append(types.AuditWrite, resolved, "denied: no approval", false)
		return nil, &NotApprovedError{Path: req.Path, Access: types.AccessWrite}
	}

	_, statErr := os.Stat(resolved)
	exists := statErr == nil
	if !exists && !req.CreateIfMissing {
		err := fmt.Errorf("%s does not exist (set createIfMissing to create)", resolved)
		s.ledger.Append(types.AuditWrite, resolved, err.Error(), false)
		return nil, err
	}

	var backupPath string
	if exists && req.Backup {
		backupPath = resolved + ".bak"
		if err := copyFile(resolved, backupPath); err != nil {
			s.ledger.Append(types.AuditWrite, resolved, "backup failed: "+err.Error(), false)
			return nil, err
		}
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		s.ledger.Append(types.AuditWrite, resolved, err.Error(), false)
		return nil, err
	}
	if err := os.WriteFile(resolved, []byte(req.Content), 0o644); err != nil {
		s.ledger.Append(types.AuditWrite, resolved, err.Error(), false)
		return nil, err
	}

	s.ledger.Append(types.AuditWrite, resolved, "", true)
	s.bus.Publish(event.Event{
		Type: event.FileWritten,
		Data: event.FileAccessData{Path: resolved, Bytes: int64(len(req.Content)), Success: true},
	})

	return &types.FileWriteResult{
		Path:         resolved,
		BytesWritten: len(req.Content),
		BackupPath:   backupPath,
	}, nil
}

// Tree lists files and directories below path (or all workspace roots when
// path is empty), annotating each node with its read-approval status.
// Browsing needs no approval; only names and sizes are revealed.
func (s *Service) Tree(rawPath string, maxDepth int) ([]*types.FileNode, error) {
	if maxDepth < 1 {
		maxDepth = 1
	}

	var targets []string
	if rawPath == "" {
		targets = s.resolver.Roots()
	} else {
		resolved, err := s.resolver.Resolve(rawPath)
		if err != nil {
			return nil, err
		}
		targets = []string{resolved}
	}

	nodes := make([]*types.FileNode, 0, len(targets))
	for _, t := range targets {
		nodes = append(nodes, s.walk(t, 0, maxDepth))
	}

	listed := rawPath
	if listed == "" {
		listed = "<all roots>"
	}
	s.ledger.Append(types.AuditList, listed, "", true)

	return nodes, nil
}

func (s *Service) walk(path string, depth, maxDepth int) *types.FileNode {
	node := &types.FileNode{
		Name:     filepath.Base(path),
		Path:     path,
		Approved: s.approvals.IsApproved(path, types.AccessRead),
	}

	info, err := os.Stat(path)
	if err != nil {
		return node
	}
	node.IsDir = info.IsDir()
	if !node.IsDir {
		node.Size = info.Size()
	}
	mod := info.ModTime()
	node.Modified = &mod

	if node.IsDir && depth < maxDepth {
		entries, err := os.ReadDir(path)
		if err != nil {
			return node
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
		for _, entry := range entries {
			name := entry.Name()
			if strings.HasPrefix(name, ".") || skipDirs[name] {
				continue
			}
			node.Children = append(node.Children, s.walk(filepath.Join(path, name), depth+1, maxDepth))
		}
	}

	return node
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
