// Package audit provides a bounded, append-only log of access-relevant
// events. Every read, write, listing, and approval decision lands here,
// including denied and failed attempts.
package audit

import (
	"sync"
	"time"

	"github.com/localbridge-dev/localbridge/pkg/types"
)

// DefaultCapacity is used when no capacity is configured.
const DefaultCapacity = 5000

// Ledger is a fixed-capacity ring buffer of audit entries. Appending beyond
// capacity silently evicts the oldest entry. Entries are immutable once
// appended; eviction is the only way one disappears.
type Ledger struct {
	mu      sync.Mutex
	entries []types.AuditEntry
	start   int // index of the oldest entry
	count   int

	now func() time.Time
}

// NewLedger creates a ledger holding at most capacity entries.
func NewLedger(capacity int) *Ledger {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ledger{
		entries: make([]types.AuditEntry, capacity),
		now:     time.Now,
	}
}

// Append records one event and returns the stored entry. Concurrent
// appenders only contend for the duration of the ring update.
func (l *Ledger) Append(action types.AuditAction, path, detail string, success bool) types.AuditEntry {
	entry := types.AuditEntry{
		Timestamp: l.now(),
		Action:    action,
		Path:      path,
		Detail:    detail,
		Success:   success,
	}

	l.mu.Lock()
	if l.count < len(l.entries) {
		l.entries[(l.start+l.count)%len(l.entries)] = entry
		l.count++
	} else {
		l.entries[l.start] = entry
		l.start = (l.start + 1) % len(l.entries)
	}
	l.mu.Unlock()

	return entry
}

// Recent returns up to limit of the newest entries, oldest first.
func (l *Ledger) Recent(limit int) []types.AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := l.count
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]types.AuditEntry, 0, n)
	for i := l.count - n; i < l.count; i++ {
		out = append(out, l.entries[(l.start+i)%len(l.entries)])
	}
	return out
}

// ForPath returns up to limit of the newest entries whose path equals path,
// oldest first.
func (l *Ledger) ForPath(path string, limit int) []types.AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	matched := make([]types.AuditEntry, 0)
	for i := 0; i < l.count; i++ {
		e := l.entries[(l.start+i)%len(l.entries)]
		if e.Path == path {
			matched = append(matched, e)
		}
	}
	if limit > 0 && len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	return matched
}

// Len returns the number of entries currently held.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}
