package whatsapp

import (
	"context"
	"sync"

	"atendo/internal/domain/account"
	"atendo/internal/domain/message"
	"atendo/internal/importer"
	apperrors "atendo/internal/shared/errors"
	"atendo/internal/shared/goroutine"
	"atendo/internal/shared/logger"
)

// Manager is the application-facing entry point for session operations. It
// keeps one Supervisor per account and fans operations out to them.
type Manager struct {
	accounts account.Repository
	creds    CredentialStore
	registry *SessionRegistry
	retry    *RetryScheduler
	notifier SessionNotifier
	ingestor message.Ingestor
	dialer   Dialer
	pipeline *importer.Pipeline
	logger   logger.Interface
	cfg      SupervisorConfig

	mu          sync.Mutex
	supervisors map[uint]*Supervisor
}

// NewManager creates a Manager. All collaborators are shared across accounts;
// per-account state lives in the supervisors.
func NewManager(
	accounts account.Repository,
	creds CredentialStore,
	registry *SessionRegistry,
	retry *RetryScheduler,
	notifier SessionNotifier,
	ingestor message.Ingestor,
	dialer Dialer,
	pipeline *importer.Pipeline,
	log logger.Interface,
	cfg SupervisorConfig,
) *Manager {
	return &Manager{
		accounts:    accounts,
		creds:       creds,
		registry:    registry,
		retry:       retry,
		notifier:    notifier,
		ingestor:    ingestor,
		dialer:      dialer,
		pipeline:    pipeline,
		logger:      log,
		cfg:         cfg,
		supervisors: make(map[uint]*Supervisor),
	}
}

// StartSession opens (or reopens) the session for an account, blocking until
// it connects or fails terminally.
func (m *Manager) StartSession(ctx context.Context, accountID uint) error {
	acc, err := m.accounts.FindByID(ctx, accountID)
	if err != nil {
		return err
	}

	sup := m.supervisorFor(acc)
	return sup.Start(ctx, acc)
}

// ResumeSessions re-establishes every resumable session at boot. Failures are
// logged per account and never abort the sweep.
func (m *Manager) ResumeSessions(ctx context.Context) {
	accounts, err := m.accounts.FindResumable(ctx)
	if err != nil {
		m.logger.Errorw("failed to list resumable accounts", "error", err)
		return
	}

	for _, acc := range accounts {
		acc := acc
		goroutine.SafeGo(m.logger, "whatsapp-resume-session", func() {
			sup := m.supervisorFor(acc)
			if err := sup.Start(context.Background(), acc); err != nil {
				m.logger.Warnw("session resume failed",
					"account_id", acc.ID(),
					"error", err,
				)
			}
		})
	}

	m.logger.Infow("session resume started", "count", len(accounts))
}

// RemoveSession stops an account's supervisor and drops its registry entry.
// closeSocket also logs out and tears the connection down server-side.
func (m *Manager) RemoveSession(ctx context.Context, accountID uint, closeSocket bool) {
	m.mu.Lock()
	sup, ok := m.supervisors[accountID]
	delete(m.supervisors, accountID)
	m.mu.Unlock()

	if ok {
		sup.Stop(ctx, closeSocket)
		return
	}
	m.registry.Remove(ctx, accountID, closeSocket)
}

// RestartTenant closes the sockets of all of a tenant's sessions; the
// supervisors reconnect them. Persisted state is untouched.
func (m *Manager) RestartTenant(tenantID uint) int {
	return m.registry.RestartAll(tenantID)
}

// RequestDrain forces an import drain for the account right now.
func (m *Manager) RequestDrain(accountID uint) error {
	m.mu.Lock()
	sup, ok := m.supervisors[accountID]
	m.mu.Unlock()

	if !ok {
		return apperrors.ErrNotInitialized
	}
	sup.RequestDrain()
	return nil
}

// CancelImport interrupts an in-flight drain for the account.
func (m *Manager) CancelImport(accountID uint) error {
	m.mu.Lock()
	sup, ok := m.supervisors[accountID]
	m.mu.Unlock()

	if !ok {
		return apperrors.ErrNotInitialized
	}
	sup.CancelImport()
	return nil
}

// Shutdown stops every supervisor and closes every socket.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	supervisors := m.supervisors
	m.supervisors = make(map[uint]*Supervisor)
	m.mu.Unlock()

	for _, sup := range supervisors {
		sup.Stop(ctx, false)
	}
	m.registry.Shutdown()
	m.logger.Infow("whatsapp manager shut down", "count", len(supervisors))
}

func (m *Manager) supervisorFor(acc *account.Account) *Supervisor {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sup, ok := m.supervisors[acc.ID()]; ok {
		return sup
	}
	sup := NewSupervisor(
		acc,
		m.accounts,
		m.creds,
		m.registry,
		m.retry,
		m.notifier,
		m.ingestor,
		m.dialer,
		m.pipeline,
		m.logger,
		m.cfg,
	)
	m.supervisors[acc.ID()] = sup
	return sup
}
