package whatsapp

import (
	"context"
	"sync"
	"time"

	apperrors "atendo/internal/shared/errors"
	"atendo/internal/shared/logger"
)

// Session is one live registered connection. The registry holds it so the
// HTTP layer can relay outbound sends and the import pipeline can verify the
// connection is up.
type Session struct {
	AccountID   uint
	TenantID    uint
	Transport   Transport
	ConnectedAt time.Time
}

// SessionRegistry is the process-wide table of live connections keyed by
// account id. Registration is idempotent per account: last writer wins, and
// the replaced connection is not closed here; callers close it first.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[uint]*Session
	logger   logger.Interface
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry(log logger.Interface) *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[uint]*Session),
		logger:   log,
	}
}

// Register inserts or replaces the live session for an account.
func (r *SessionRegistry) Register(s *Session) {
	r.mu.Lock()
	old := r.sessions[s.AccountID]
	r.sessions[s.AccountID] = s
	r.mu.Unlock()

	if old != nil {
		r.logger.Warnw("replaced stale session entry",
			"account_id", s.AccountID,
			"stale_connected_at", old.ConnectedAt,
		)
	}
	r.logger.Infow("session registered",
		"account_id", s.AccountID,
		"tenant_id", s.TenantID,
	)
}

// Get returns the live session for an account. It fails with
// ErrNotInitialized when no entry exists; callers must not assume lazy
// connection.
func (r *SessionRegistry) Get(accountID uint) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[accountID]
	if !ok {
		return nil, apperrors.ErrNotInitialized
	}
	return s, nil
}

// IsConnected reports whether a live session exists for the account.
func (r *SessionRegistry) IsConnected(accountID uint) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[accountID]
	return ok
}

// Remove drops the registry entry for an account. When closeSocket is set it
// attempts logout and close on the transport first; close errors are logged,
// never propagated; removal always succeeds.
func (r *SessionRegistry) Remove(ctx context.Context, accountID uint, closeSocket bool) {
	r.mu.Lock()
	s, ok := r.sessions[accountID]
	delete(r.sessions, accountID)
	r.mu.Unlock()

	if !ok {
		return
	}

	if closeSocket {
		if err := s.Transport.Logout(ctx); err != nil {
			r.logger.Warnw("logout failed during session removal",
				"account_id", accountID,
				"error", err,
			)
		}
		if err := s.Transport.Close(); err != nil {
			r.logger.Warnw("close failed during session removal",
				"account_id", accountID,
				"error", err,
			)
		}
	}

	r.logger.Infow("session removed", "account_id", accountID)
}

// RestartAll closes the sockets of every session belonging to a tenant
// without touching persisted account state. The close event handler in the
// supervisor then drives reconnection. Returns the number of sessions closed.
func (r *SessionRegistry) RestartAll(tenantID uint) int {
	r.mu.RLock()
	var targets []*Session
	for _, s := range r.sessions {
		if s.TenantID == tenantID {
			targets = append(targets, s)
		}
	}
	r.mu.RUnlock()

	for _, s := range targets {
		if err := s.Transport.Close(); err != nil {
			r.logger.Warnw("close failed during tenant restart",
				"account_id", s.AccountID,
				"tenant_id", tenantID,
				"error", err,
			)
		}
	}

	r.logger.Infow("tenant sessions restarted",
		"tenant_id", tenantID,
		"count", len(targets),
	)
	return len(targets)
}

// Shutdown closes every live socket. Used at process teardown.
func (r *SessionRegistry) Shutdown() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[uint]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		if err := s.Transport.Close(); err != nil {
			r.logger.Warnw("close failed during shutdown",
				"account_id", s.AccountID,
				"error", err,
			)
		}
	}
}

// Count returns the number of registered sessions.
func (r *SessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
