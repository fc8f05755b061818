package whatsapp

import (
	"context"
	"sync"
	"time"

	"atendo/internal/domain/account"
	"atendo/internal/domain/message"
	"atendo/internal/importer"
	apperrors "atendo/internal/shared/errors"
	"atendo/internal/shared/goroutine"
	"atendo/internal/shared/logger"
)

// SupervisorConfig holds the transport timeouts for one supervisor.
type SupervisorConfig struct {
	ConnectTimeout time.Duration
	QueryTimeout   time.Duration
}

func (c SupervisorConfig) withDefaults() SupervisorConfig {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = DefaultQueryTimeout
	}
	return c
}

// Supervisor owns one account's connection lifecycle: it dials the transport,
// classifies its events through the state machine, and executes the resulting
// side effects (persisting status, registering the session, buffering
// history, scheduling reconnects). One Supervisor exists per account for the
// life of the process; all per-account mutable state lives here rather than
// in ambient globals, so teardown and testing stay trivial.
type Supervisor struct {
	accountID uint
	tenantID  uint

	accounts account.Repository
	creds    CredentialStore
	registry *SessionRegistry
	retry    *RetryScheduler
	notifier SessionNotifier
	ingestor message.Ingestor
	dialer   Dialer
	pipeline *importer.Pipeline
	buffer   *importer.Buffer
	logger   logger.Interface
	cfg      SupervisorConfig

	mu           sync.Mutex
	state        State
	transport    Transport
	attempt      chan error
	quiesce      *time.Timer
	importCancel context.CancelFunc
	stopped      bool
}

// NewSupervisor creates the supervisor for one account.
func NewSupervisor(
	acc *account.Account,
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
) *Supervisor {
	return &Supervisor{
		accountID: acc.ID(),
		tenantID:  acc.TenantID(),
		accounts:  accounts,
		creds:     creds,
		registry:  registry,
		retry:     retry,
		notifier:  notifier,
		ingestor:  ingestor,
		dialer:    dialer,
		pipeline:  pipeline,
		buffer:    importer.NewBuffer(acc.ID()),
		logger:    log.With("account_id", acc.ID(), "tenant_id", acc.TenantID()),
		cfg:       cfg.withDefaults(),
	}
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Buffer returns the account's import staging buffer.
func (s *Supervisor) Buffer() *importer.Buffer {
	return s.buffer
}

// Start opens a transport connection using the account's persisted
// credentials and blocks until the session reaches CONNECTED, the run hits a
// terminal condition (ban, logout, exhausted QR retries, surfaced as
// ConnectError), or ctx is done. Transient dial failures are absorbed: a
// reconnect is scheduled and Start keeps waiting, per the lifecycle policy.
func (s *Supervisor) Start(ctx context.Context, acc *account.Account) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return apperrors.NewConnectError(s.accountID, "supervisor stopped", nil)
	}
	if s.attempt == nil {
		s.attempt = make(chan error, 1)
	}
	attempt := s.attempt
	s.state = StateInit
	s.mu.Unlock()

	if err := s.dial(ctx, acc); err != nil {
		// Dial failures are connection-lost equivalents: schedule a retry
		// and keep the caller waiting on the attempt outcome.
		s.logger.Warnw("dial failed, scheduling reconnect", "error", err)
		s.scheduleReconnect()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-attempt:
		return err
	}
}

func (s *Supervisor) dial(ctx context.Context, acc *account.Account) error {
	creds, err := s.creds.Load(ctx, s.accountID)
	if err != nil {
		s.logger.Warnw("failed to load credentials, starting fresh pairing", "error", err)
		creds = nil
	}

	acc.MarkOpening()
	if err := s.accounts.Update(ctx, acc); err != nil {
		s.logger.Warnw("failed to persist opening status", "error", err)
	}
	s.publishUpdate(ctx, SessionUpdate{AccountID: s.accountID, Status: account.StatusOpening.String()})

	dialCtx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
	defer cancel()

	tr, err := s.dialer.Dial(dialCtx, s.accountID, creds)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.transport = tr
	s.mu.Unlock()

	goroutine.SafeGo(s.logger, "whatsapp-session-loop", func() {
		s.runLoop(tr)
	})
	return nil
}

// runLoop consumes the transport's serialized event stream until it closes.
func (s *Supervisor) runLoop(tr Transport) {
	for ev := range tr.Events() {
		s.handleEvent(ev)
	}
}

// handleEvent classifies one event through the pure state machine and
// executes the transition's side effects. Transport-level errors inside the
// side effects are logged and never crash the loop; only close events drive
// state transitions.
func (s *Supervisor) handleEvent(ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.QueryTimeout)
	defer cancel()

	qrExhausted := false
	if _, isPairing := ev.(PairingEvent); isPairing {
		qrExhausted = !s.retry.ShouldRetryQR(s.accountID)
	}

	s.mu.Lock()
	tr := Handle(s.state, ev, qrExhausted)
	s.state = tr.Next
	s.mu.Unlock()

	switch tr.Action {
	case ActionIssueQR:
		s.issueQR(ctx, ev.(PairingEvent))
	case ActionExhaustQR:
		s.exhaustQR(ctx)
	case ActionCompleteConnect:
		s.completeConnect(ctx, ev.(ConnectedEvent))
	case ActionHandleLogout:
		s.handleClosed(ctx, ev.(ClosedEvent), false)
	case ActionHandleBan:
		s.handleClosed(ctx, ev.(ClosedEvent), true)
	case ActionScheduleReconnect:
		s.handleConnectionLost(ev.(ClosedEvent))
	case ActionBufferHistory:
		s.bufferHistory(ev.(HistoryBatchEvent))
	case ActionIngestLive:
		s.ingestLive(ctx, ev.(MessageEvent))
	case ActionDrainImport:
		s.logger.Infow("history sync complete, draining import buffer")
		s.triggerDrain()
	}
}

func (s *Supervisor) issueQR(ctx context.Context, ev PairingEvent) {
	attempts := s.retry.RecordQRAttempt(s.accountID)

	acc, err := s.accounts.FindByID(ctx, s.accountID)
	if err != nil {
		s.logger.Errorw("failed to load account for qr update", "error", err)
		return
	}
	acc.MarkQRCode(ev.Code)
	if err := s.accounts.Update(ctx, acc); err != nil {
		s.logger.Errorw("failed to persist qr code", "error", err)
	}

	s.publishUpdate(ctx, SessionUpdate{
		AccountID: s.accountID,
		Status:    account.StatusQRCode.String(),
		QRCode:    ev.Code,
		Retries:   attempts,
	})
	s.logger.Infow("qr code issued", "attempt", attempts)
}

// exhaustQR handles the terminal QR path: credentials cleared, account
// persisted as DISCONNECTED, socket closed, run over.
func (s *Supervisor) exhaustQR(ctx context.Context) {
	s.logger.Warnw("qr retry budget exhausted, disconnecting")

	if err := s.creds.Delete(ctx, s.accountID); err != nil {
		s.logger.Warnw("failed to delete credentials", "error", err)
	}

	if acc, err := s.accounts.FindByID(ctx, s.accountID); err == nil {
		acc.MarkDisconnected()
		if err := s.accounts.Update(ctx, acc); err != nil {
			s.logger.Errorw("failed to persist disconnected status", "error", err)
		}
	}

	s.publishUpdate(ctx, SessionUpdate{
		AccountID: s.accountID,
		Status:    account.StatusDisconnected.String(),
	})

	s.registry.Remove(ctx, s.accountID, false)
	s.closeTransport()
	s.resolveAttempt(apperrors.NewConnectError(s.accountID, "qr retries exhausted", nil))
}

func (s *Supervisor) completeConnect(ctx context.Context, ev ConnectedEvent) {
	s.retry.Reset(s.accountID)

	if len(ev.Creds) > 0 {
		if err := s.creds.Save(ctx, s.accountID, ev.Creds); err != nil {
			s.logger.Errorw("failed to persist session credentials", "error", err)
		}
	}

	// A store hiccup must not wedge a live connection: persistence failures
	// are logged, the session still registers and the attempt resolves.
	acc, err := s.accounts.FindByID(ctx, s.accountID)
	if err != nil {
		s.logger.Errorw("failed to load account on connect", "error", err)
	} else {
		acc.MarkConnected(ev.Number)
		if err := s.accounts.Update(ctx, acc); err != nil {
			s.logger.Errorw("failed to persist connected status", "error", err)
		}
	}

	s.mu.Lock()
	tr := s.transport
	s.mu.Unlock()

	// Last writer wins in the registry; a stale prior entry for this
	// account is replaced, not closed (it already received its close event).
	s.registry.Register(&Session{
		AccountID:   s.accountID,
		TenantID:    s.tenantID,
		Transport:   tr,
		ConnectedAt: time.Now(),
	})

	s.publishUpdate(ctx, SessionUpdate{
		AccountID: s.accountID,
		Status:    account.StatusConnected.String(),
		Number:    ev.Number,
	})

	if acc != nil && acc.HasImportWindow() {
		s.armQuiescenceTimer()
	}

	s.logger.Infow("session connected", "number", ev.Number)
	s.resolveAttempt(nil)
}

// handleClosed covers logout and ban: both persist PENDING, clear
// credentials, and deregister without retry; ban additionally purges any
// locally cached auth material.
func (s *Supervisor) handleClosed(ctx context.Context, ev ClosedEvent, banned bool) {
	s.logger.Warnw("session closed without retry", "reason", ev.Reason.String(), "error", ev.Err)

	if err := s.creds.Delete(ctx, s.accountID); err != nil {
		s.logger.Warnw("failed to delete credentials", "error", err)
	}
	if banned {
		s.purgeAuthCache(ctx)
	}

	if acc, err := s.accounts.FindByID(ctx, s.accountID); err == nil {
		acc.MarkPending()
		if err := s.accounts.Update(ctx, acc); err != nil {
			s.logger.Errorw("failed to persist pending status", "error", err)
		}
	}

	s.registry.Remove(ctx, s.accountID, false)
	s.disarmQuiescenceTimer()
	s.clearTransport()

	s.publishUpdate(ctx, SessionUpdate{
		AccountID: s.accountID,
		Status:    account.StatusPending.String(),
	})
	s.resolveAttempt(apperrors.NewConnectError(s.accountID, ev.Reason.String(), ev.Err))
}

// handleConnectionLost deregisters, bumps the reconnect counter, and
// schedules a delayed restart. There is no attempt cap: the session retries
// until an explicit logout or ban ends it.
func (s *Supervisor) handleConnectionLost(ev ClosedEvent) {
	s.logger.Warnw("connection lost", "error", ev.Err)

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.QueryTimeout)
	defer cancel()

	s.registry.Remove(ctx, s.accountID, false)
	s.disarmQuiescenceTimer()
	s.clearTransport()
	s.scheduleReconnect()
}

func (s *Supervisor) scheduleReconnect() {
	attempt := s.retry.RecordReconnectAttempt(s.accountID)
	delay := s.retry.ReconnectDelay(attempt)

	s.logger.Infow("reconnect scheduled", "attempt", attempt, "delay", delay.String())

	goroutine.SafeGo(s.logger, "whatsapp-reconnect", func() {
		time.Sleep(delay)

		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.QueryTimeout)
		acc, err := s.accounts.FindByID(ctx, s.accountID)
		cancel()
		if err != nil {
			if apperrors.IsNotFoundError(err) {
				s.logger.Warnw("account removed, abandoning reconnect")
				return
			}
			s.logger.Errorw("failed to load account for reconnect", "error", err)
			s.scheduleReconnect()
			return
		}

		if err := s.dial(context.Background(), acc); err != nil {
			s.logger.Warnw("reconnect dial failed", "attempt", attempt, "error", err)
			s.scheduleReconnect()
		}
	})
}

func (s *Supervisor) bufferHistory(ev HistoryBatchEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.QueryTimeout)
	defer cancel()

	acc, err := s.accounts.FindByID(ctx, s.accountID)
	if err != nil {
		s.logger.Errorw("failed to load account for history batch", "error", err)
		return
	}
	if !acc.HasImportWindow() {
		s.logger.Debugw("history batch ignored, no import window", "size", len(ev.Messages))
		return
	}

	s.buffer.Append(ev.Messages...)
	s.armQuiescenceTimer()
	s.logger.Debugw("history batch buffered",
		"size", len(ev.Messages),
		"buffered_total", s.buffer.Len(),
	)
}

// ingestLive feeds a live message into the shared ingestion entrypoint.
// Ingestion errors are transient transport-path failures: logged, no status
// change, no abort.
func (s *Supervisor) ingestLive(ctx context.Context, ev MessageEvent) {
	if err := s.ingestor.Ingest(ctx, ev.Message, s.accountID, s.tenantID, false); err != nil {
		s.logger.Errorw("live message ingestion failed",
			"message_id", ev.Message.Key.ID,
			"error", err,
		)
	}
}

// armQuiescenceTimer (re)starts the drain trigger: when no history burst
// arrives for the quiescence window, the buffer is drained.
func (s *Supervisor) armQuiescenceTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.quiesce != nil {
		s.quiesce.Stop()
	}
	s.quiesce = time.AfterFunc(s.pipeline.Quiescence(), func() {
		s.logger.Infow("import buffer quiescent, draining")
		s.triggerDrain()
	})
}

func (s *Supervisor) disarmQuiescenceTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.quiesce != nil {
		s.quiesce.Stop()
		s.quiesce = nil
	}
}

// triggerDrain runs the import pipeline in the background. The pipeline's
// drain lock guarantees a second trigger (timer plus manual request racing)
// cannot start a concurrent drain for the same account.
func (s *Supervisor) triggerDrain() {
	importCtx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	if s.importCancel != nil {
		s.importCancel()
	}
	s.importCancel = cancel
	s.mu.Unlock()

	goroutine.SafeGo(s.logger, "whatsapp-import-drain", func() {
		defer cancel()

		acc, err := s.accounts.FindByID(importCtx, s.accountID)
		if err != nil {
			s.logger.Errorw("failed to load account for drain", "error", err)
			return
		}

		if _, err := s.pipeline.Drain(importCtx, s.buffer, acc); err != nil {
			if apperrors.IsImportAborted(err) {
				s.logger.Warnw("import drain aborted", "error", err)
				return
			}
			s.logger.Errorw("import drain failed", "error", err)
		}
	})
}

// RequestDrain triggers an import drain immediately, bypassing the
// quiescence timer. Used by the manual "process import now" action.
func (s *Supervisor) RequestDrain() {
	s.disarmQuiescenceTimer()
	s.triggerDrain()
}

// CancelImport interrupts an in-flight drain promptly via its context.
func (s *Supervisor) CancelImport() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.importCancel != nil {
		s.importCancel()
		s.importCancel = nil
	}
}

// Stop tears the supervisor down: no more reconnects, import cancelled,
// socket closed. Persisted account state is left untouched.
func (s *Supervisor) Stop(ctx context.Context, closeSocket bool) {
	s.mu.Lock()
	s.stopped = true
	if s.importCancel != nil {
		s.importCancel()
		s.importCancel = nil
	}
	if s.quiesce != nil {
		s.quiesce.Stop()
		s.quiesce = nil
	}
	s.mu.Unlock()

	s.registry.Remove(ctx, s.accountID, closeSocket)
	if !closeSocket {
		s.closeTransport()
	}
	s.resolveAttempt(apperrors.NewConnectError(s.accountID, "supervisor stopped", nil))
}

// purgeAuthCache drops any locally cached auth material after a ban. The
// credential record is already deleted; this clears the transport-side
// session by logging out best-effort.
func (s *Supervisor) purgeAuthCache(ctx context.Context) {
	s.mu.Lock()
	tr := s.transport
	s.mu.Unlock()
	if tr == nil {
		return
	}
	if err := tr.Logout(ctx); err != nil {
		s.logger.Debugw("logout during auth purge failed", "error", err)
	}
}

func (s *Supervisor) closeTransport() {
	s.mu.Lock()
	tr := s.transport
	s.transport = nil
	s.mu.Unlock()
	if tr != nil {
		if err := tr.Close(); err != nil {
			s.logger.Debugw("transport close failed", "error", err)
		}
	}
}

func (s *Supervisor) clearTransport() {
	s.mu.Lock()
	s.transport = nil
	s.mu.Unlock()
}

// resolveAttempt completes the pending Start call exactly once.
func (s *Supervisor) resolveAttempt(err error) {
	s.mu.Lock()
	attempt := s.attempt
	s.attempt = nil
	s.mu.Unlock()

	if attempt == nil {
		return
	}
	attempt <- err
}

func (s *Supervisor) publishUpdate(ctx context.Context, u SessionUpdate) {
	if err := s.notifier.PublishSessionUpdate(ctx, s.tenantID, u); err != nil {
		s.logger.Warnw("failed to publish session update", "error", err)
	}
}
