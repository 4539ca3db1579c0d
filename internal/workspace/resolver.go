// Package workspace provides the sandboxed path resolver for the bridge.
// Every path the agent names is canonicalized here before any policy check
// or file I/O; nothing outside the configured workspace roots is reachable.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// AccessDeniedError is returned when a path falls outside every workspace
// root or has a denied extension.
type AccessDeniedError struct {
	Path    string
	Message string
}

func (e *AccessDeniedError) Error() string {
	return e.Message
}

// IsAccessDenied checks if an error is a sandbox rejection.
func IsAccessDenied(err error) bool {
	_, ok := err.(*AccessDeniedError)
	return ok
}

// Resolver canonicalizes paths and enforces containment within the
// configured roots plus an extension deny-list. It performs no file I/O
// beyond resolution and is safe for concurrent use.
type Resolver struct {
	roots  []string
	denied map[string]bool
}

// NewResolver canonicalizes the given roots once, up front. Symlinked roots
// are followed so that containment checks compare like with like.
func NewResolver(roots []string, deniedExtensions []string) (*Resolver, error) {
	if len(roots) == 0 {
		return nil, fmt.Errorf("at least one workspace root is required")
	}

	resolved := make([]string, 0, len(roots))
	for _, root := range roots {
		canonical, err := canonicalize(root)
		if err != nil {
			return nil, fmt.Errorf("workspace root %s: %w", root, err)
		}
		resolved = append(resolved, canonical)
	}

	denied := make(map[string]bool, len(deniedExtensions))
	for _, ext := range deniedExtensions {
		denied[strings.ToLower(ext)] = true
	}

	return &Resolver{roots: resolved, denied: denied}, nil
}

// Roots returns the canonical workspace roots.
func (r *Resolver) Roots() []string {
	return append([]string(nil), r.roots...)
}

// Resolve canonicalizes raw and verifies it is inside a workspace root and
// not deny-listed by extension. Resolution follows symlinks, so a link
// pointing outside the roots is rejected even when the link itself lives
// inside one. Deterministic: the same raw path always yields the same
// canonical path.
func (r *Resolver) Resolve(raw string) (string, error) {
	expanded, err := expandHome(raw)
	if err != nil {
		return "", err
	}

	canonical, err := canonicalize(expanded)
	if err != nil {
		return "", err
	}

	if ext := strings.ToLower(filepath.Ext(canonical)); ext != "" && r.denied[ext] {
		return "", &AccessDeniedError{
			Path:    canonical,
			Message: fmt.Sprintf("file type %s is blocked", ext),
		}
	}

	for _, root := range r.roots {
		if contains(root, canonical) {
			return canonical, nil
		}
	}

	return "", &AccessDeniedError{
		Path:    canonical,
		Message: fmt.Sprintf("path %s is outside all workspace roots", canonical),
	}
}

// Contains reports whether an already-canonical path is inside a root.
func (r *Resolver) Contains(canonical string) bool {
	for _, root := range r.roots {
		if contains(root, canonical) {
			return true
		}
	}
	return false
}

// canonicalize returns the absolute, symlink-followed form of a path. The
// path itself may not exist yet (e.g. a file about to be created); symlinks
// are then followed from the deepest existing ancestor and the remainder is
// re-joined lexically.
func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}

	// Walk up until an existing ancestor is found.
	dir := abs
	var tail []string
	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		tail = append([]string{filepath.Base(dir)}, tail...)
		dir = parent
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			return filepath.Join(append([]string{resolved}, tail...)...), nil
		}
	}

	return abs, nil
}

// expandHome rewrites a leading ~ to the user's home directory.
func expandHome(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}

// contains reports whether target equals root or is a descendant of it.
func contains(root, target string) bool {
	if target == root {
		return true
	}
	return strings.HasPrefix(target, root+string(filepath.Separator))
}
