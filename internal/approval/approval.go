// Package approval implements the policy engine that gates all file access:
// the permission-record state machine, the scope-matching query surface, and
// the blocking wait/decision protocol between agent and operator.
package approval

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sourcegraph/conc/panics"

	"github.com/localbridge-dev/localbridge/internal/event"
	"github.com/localbridge-dev/localbridge/internal/logging"
	"github.com/localbridge-dev/localbridge/internal/workspace"
	"github.com/localbridge-dev/localbridge/pkg/types"
)

// Notifier pushes a new approval request to the operator. Best effort and
// synchronous: failures (including panics) are suppressed so a broken
// notification path can never block the approval workflow.
type Notifier interface {
	Notify(a *types.Approval) error
}

// Config tunes a Service.
type Config struct {
	// DefaultTTL applies when a request does not name a TTL. Zero means
	// grants do not expire unless the request or decision says otherwise.
	DefaultTTL time.Duration
	// MaxTTL caps requested and overridden TTLs. Zero means no cap.
	MaxTTL time.Duration
	// Notifier, when set, is invoked synchronously from CreateRequest.
	Notifier Notifier
}

// Service owns the permission-record store and the decision-channel
// registry. All mutations for a given id happen under one mutex, so a
// concurrent resolve and revoke can never race a lost update.
type Service struct {
	mu       sync.Mutex
	records  map[string]*types.Approval
	order    []string // ids in creation order, for deterministic matching
	waiters  map[string]chan struct{}
	reqTTL   map[string]time.Duration
	resolver *workspace.Resolver
	bus      *event.Bus
	cfg      Config

	// now is swapped out by tests exercising lazy expiry.
	now func() time.Time
}

// NewService creates an approval engine over the given path resolver.
// Engine state is entirely in-memory; a process restart discards it.
func NewService(resolver *workspace.Resolver, bus *event.Bus, cfg Config) *Service {
	return &Service{
		records:  make(map[string]*types.Approval),
		waiters:  make(map[string]chan struct{}),
		reqTTL:   make(map[string]time.Duration),
		resolver: resolver,
		bus:      bus,
		cfg:      cfg,
		now:      time.Now,
	}
}

// CreateRequest resolves the path, stores a new pending record, and opens a
// decision channel for it. The notifier is invoked before returning; its
// failure never aborts the request.
func (s *Service) CreateRequest(req types.ApprovalRequest) (*types.Approval, error) {
	scope, err := types.ParseScope(string(req.Scope))
	if err != nil {
		return nil, err
	}
	access, err := types.ParseAccess(string(req.Access))
	if err != nil {
		return nil, err
	}
	ttl, err := s.requestTTL(req.TTLMinutes)
	if err != nil {
		return nil, err
	}

	resolved, err := s.resolver.Resolve(req.Path)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	a := &types.Approval{
		ID:            ulid.Make().String(),
		RequestedPath: req.Path,
		ResolvedPath:  resolved,
		Scope:         scope,
		Access:        access,
		Status:        types.StatusPending,
		Reason:        req.Reason,
		CreatedAt:     s.now(),
	}
	s.records[a.ID] = a
	s.order = append(s.order, a.ID)
	s.waiters[a.ID] = make(chan struct{})
	s.reqTTL[a.ID] = ttl
	out := a.Clone()
	s.mu.Unlock()

	s.bus.Publish(event.Event{
		Type: event.ApprovalRequested,
		Data: event.ApprovalRequestedData{Approval: out.Clone()},
	})
	s.notify(out.Clone())

	return out, nil
}

// Resolve records the operator's decision. Deciding an already-terminal
// record fails with InvalidStateError rather than silently overwriting it.
// All current and future waiters on the id observe the final record.
func (s *Service) Resolve(id string, d types.Decision) (*types.Approval, error) {
	ttlOverride, err := s.decisionTTL(d.TTLMinutes)
	if err != nil {
		return nil, err
	}
	if err := validatePatterns(d.FilePatterns); err != nil {
		return nil, err
	}

	s.mu.Lock()
	a, ok := s.records[id]
	if !ok {
		s.mu.Unlock()
		return nil, &NotFoundError{ID: id}
	}
	if a.Status != types.StatusPending {
		s.mu.Unlock()
		return nil, &InvalidStateError{ID: id, Status: a.Status}
	}

	now := s.now()
	a.ResolvedAt = &now
	if d.Approved {
		a.Status = types.StatusApproved
		a.FilePatterns = append([]string(nil), d.FilePatterns...)
		ttl := s.reqTTL[id]
		if d.TTLMinutes != nil {
			ttl = ttlOverride
		}
		if ttl > 0 {
			exp := now.Add(ttl)
			a.ExpiresAt = &exp
		}
	} else {
		a.Status = types.StatusDenied
	}
	s.complete(id)
	out := a.Clone()
	s.mu.Unlock()

	s.bus.Publish(event.Event{
		Type: event.ApprovalResolved,
		Data: event.ApprovalResolvedData{Approval: out.Clone(), Granted: d.Approved},
	})

	return out, nil
}

// Revoke withdraws an approval from any status, including terminal ones.
// Re-revoking is idempotent apart from re-stamping the resolution time.
func (s *Service) Revoke(id string) (*types.Approval, error) {
	s.mu.Lock()
	a, ok := s.records[id]
	if !ok {
		s.mu.Unlock()
		return nil, &NotFoundError{ID: id}
	}

	now := s.now()
	a.Status = types.StatusRevoked
	a.ResolvedAt = &now
	s.complete(id)
	out := a.Clone()
	s.mu.Unlock()

	s.bus.Publish(event.Event{
		Type: event.ApprovalRevoked,
		Data: event.ApprovalRevokedData{Approval: out.Clone()},
	})

	return out, nil
}

// WaitForDecision blocks the calling goroutine until the record for id
// leaves pending, the timeout elapses, or ctx is done. A timed-out or
// canceled wait never mutates the record; a later decision still lands.
func (s *Service) WaitForDecision(ctx context.Context, id string, timeout time.Duration) (*types.Approval, error) {
	s.mu.Lock()
	a, ok := s.records[id]
	if !ok {
		s.mu.Unlock()
		return nil, &NotFoundError{ID: id}
	}
	ch, open := s.waiters[id]
	if a.Status != types.StatusPending || !open {
		out := a.Clone()
		s.mu.Unlock()
		return out, nil
	}
	s.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, &TimeoutError{ID: id, Timeout: timeout}
	case <-ch:
	}

	s.mu.Lock()
	out := s.records[id].Clone()
	s.mu.Unlock()
	return out, nil
}

// Get returns the record for id.
func (s *Service) Get(id string) (*types.Approval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.records[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	s.expireStale()
	return a.Clone(), nil
}

// IsApproved reports whether some currently approved record covers the
// canonical path at the requested access level. Expiry is applied lazily
// before matching.
func (s *Service) IsApproved(resolvedPath string, access types.AccessLevel) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireStale()
	for _, id := range s.order {
		a := s.records[id]
		if a.Status == types.StatusApproved && Matches(a, resolvedPath, access) {
			return true
		}
	}
	return false
}

// ApprovalFor returns the approved record covering the path, or nil. Ties
// between multiple matching records break by creation order so results are
// reproducible.
func (s *Service) ApprovalFor(resolvedPath string, access types.AccessLevel) *types.Approval {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireStale()
	for _, id := range s.order {
		a := s.records[id]
		if a.Status == types.StatusApproved && Matches(a, resolvedPath, access) {
			return a.Clone()
		}
	}
	return nil
}

// List returns records in creation order. Unless includeExpired is set, only
// pending and approved records are returned.
func (s *Service) List(includeExpired bool) []*types.Approval {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireStale()
	out := make([]*types.Approval, 0, len(s.order))
	for _, id := range s.order {
		a := s.records[id]
		if !includeExpired && a.Status != types.StatusPending && a.Status != types.StatusApproved {
			continue
		}
		out = append(out, a.Clone())
	}
	return out
}

// complete closes and forgets the decision channel for id, releasing every
// current waiter; later waiters observe the terminal record directly. Must
// be called with the mutex held. Closing exactly once is guaranteed by the
// delete: a second terminal transition finds no channel.
func (s *Service) complete(id string) {
	if ch, ok := s.waiters[id]; ok {
		close(ch)
		delete(s.waiters, id)
	}
	delete(s.reqTTL, id)
}

// expireStale lazily derives Approved -> Expired. Must be called with the
// mutex held. Expiry accuracy is only guaranteed at query time; there is no
// background timer.
func (s *Service) expireStale() {
	now := s.now()
	for _, a := range s.records {
		if a.Status == types.StatusApproved && a.ExpiresAt != nil && a.ExpiresAt.Before(now) {
			a.Status = types.StatusExpired
		}
	}
}

// notify invokes the notifier, swallowing errors and panics.
func (s *Service) notify(a *types.Approval) {
	if s.cfg.Notifier == nil {
		return
	}
	recovered := panics.Try(func() {
		if err := s.cfg.Notifier.Notify(a); err != nil {
			logging.Warn().Str("approval", a.ID).Err(err).Msg("notify failed")
		}
	})
	if recovered != nil {
		logging.Warn().Str("approval", a.ID).Str("panic", recovered.String()).Msg("notifier panicked")
	}
}

// requestTTL maps a requested ttlMinutes to a duration, applying the default
// and the cap.
func (s *Service) requestTTL(minutes *int) (time.Duration, error) {
	if minutes == nil {
		return s.cfg.DefaultTTL, nil
	}
	return s.checkTTL(*minutes)
}

// decisionTTL validates a decision's ttl override without applying defaults.
func (s *Service) decisionTTL(minutes *int) (time.Duration, error) {
	if minutes == nil {
		return 0, nil
	}
	return s.checkTTL(*minutes)
}

func (s *Service) checkTTL(minutes int) (time.Duration, error) {
	if minutes < 0 {
		return 0, &types.ValidationError{Field: "ttlMinutes", Message: "must not be negative"}
	}
	ttl := time.Duration(minutes) * time.Minute
	if s.cfg.MaxTTL > 0 && ttl > s.cfg.MaxTTL {
		return 0, &types.ValidationError{Field: "ttlMinutes", Message: "exceeds the configured maximum"}
	}
	return ttl, nil
}

func validatePatterns(patterns []string) error {
	for _, p := range patterns {
		if !doublestarValid(p) {
			return &types.ValidationError{Field: "filePatterns", Message: "malformed pattern " + p}
		}
	}
	return nil
}
