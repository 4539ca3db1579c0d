package approval

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/localbridge-dev/localbridge/pkg/types"
)

// Matches reports whether a canonical target path is covered by an approval
// record for the requested access level. Three conditions must all hold:
// access sufficiency, scope containment, and the filename pattern filter.
// Pure function; the caller is responsible for checking record status.
func Matches(a *types.Approval, target string, access types.AccessLevel) bool {
	if !accessSufficient(a.Access, access) {
		return false
	}

	switch a.Scope {
	case types.ScopeFile:
		if target != a.ResolvedPath {
			return false
		}
	case types.ScopeDirectory:
		if !underneath(a.ResolvedPath, target) {
			return false
		}
	case types.ScopeDirectoryShallow:
		rel, ok := relativeTo(a.ResolvedPath, target)
		if !ok || strings.ContainsRune(rel, filepath.Separator) {
			return false
		}
	default:
		return false
	}

	return matchesPatterns(a.FilePatterns, filepath.Base(target))
}

// accessSufficient reports whether a granted level covers a requested one.
// ReadWrite covers everything; otherwise the levels must be identical.
func accessSufficient(granted, requested types.AccessLevel) bool {
	if granted == types.AccessReadWrite {
		return true
	}
	return granted == requested
}

// underneath reports whether target equals root or lies below it.
func underneath(root, target string) bool {
	_, ok := relativeTo(root, target)
	return ok
}

// relativeTo returns target's path relative to root, lexically. ok is false
// when target is not root or a descendant of it. Both paths must already be
// canonical.
func relativeTo(root, target string) (string, bool) {
	if target == root {
		return "", true
	}
	prefix := root + string(filepath.Separator)
	if !strings.HasPrefix(target, prefix) {
		return "", false
	}
	return strings.TrimPrefix(target, prefix), true
}

// doublestarValid reports whether a glob pattern is well formed.
func doublestarValid(pattern string) bool {
	return doublestar.ValidatePattern(pattern)
}

// matchesPatterns applies the filename glob filter. An empty pattern set
// imposes no restriction. Matching is case-sensitive and shell-style;
// malformed patterns simply never match.
func matchesPatterns(patterns []string, name string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}
