package whatsapp

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atendo/internal/domain/account"
	"atendo/internal/domain/message"
	"atendo/internal/importer"
	apperrors "atendo/internal/shared/errors"
)

// memAccounts is a minimal in-memory account.Repository.
type memAccounts struct {
	mu       sync.Mutex
	accounts map[uint]*account.Account
	statuses []account.Status
	findErr  error
}

func newMemAccounts(accs ...*account.Account) *memAccounts {
	m := &memAccounts{accounts: make(map[uint]*account.Account)}
	for _, acc := range accs {
		m.accounts[acc.ID()] = acc
	}
	return m
}

func (m *memAccounts) failFinds(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findErr = err
}

func (m *memAccounts) FindByID(ctx context.Context, id uint) (*account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	acc, ok := m.accounts[id]
	if !ok {
		return nil, errors.New("account not found")
	}
	return acc, nil
}

func (m *memAccounts) FindAllByTenant(ctx context.Context, tenantID uint) ([]*account.Account, error) {
	return nil, errors.New("not implemented")
}

func (m *memAccounts) FindPendingTicketClose(ctx context.Context) ([]*account.Account, error) {
	return nil, errors.New("not implemented")
}

func (m *memAccounts) FindResumable(ctx context.Context) ([]*account.Account, error) {
	return nil, errors.New("not implemented")
}

func (m *memAccounts) Save(ctx context.Context, acc *account.Account) error { return nil }

func (m *memAccounts) Update(ctx context.Context, acc *account.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[acc.ID()] = acc
	m.statuses = append(m.statuses, acc.Status())
	return nil
}

func (m *memAccounts) lastStatus() account.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.statuses) == 0 {
		return ""
	}
	return m.statuses[len(m.statuses)-1]
}

// memCreds is an in-memory CredentialStore.
type memCreds struct {
	mu    sync.Mutex
	creds map[uint]Credentials
}

func newMemCreds() *memCreds { return &memCreds{creds: make(map[uint]Credentials)} }

func (m *memCreds) Load(ctx context.Context, accountID uint) (Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creds[accountID], nil
}

func (m *memCreds) Save(ctx context.Context, accountID uint, creds Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds[accountID] = creds
	return nil
}

func (m *memCreds) Delete(ctx context.Context, accountID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.creds, accountID)
	return nil
}

func (m *memCreds) has(accountID uint) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.creds[accountID]
	return ok
}

// updateRecorder records published session updates.
type updateRecorder struct {
	mu      sync.Mutex
	updates []SessionUpdate
}

func (r *updateRecorder) PublishSessionUpdate(ctx context.Context, tenantID uint, u SessionUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
	return nil
}

func (r *updateRecorder) byStatus(status string) []SessionUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []SessionUpdate
	for _, u := range r.updates {
		if u.Status == status {
			out = append(out, u)
		}
	}
	return out
}

type nopIngestor struct{}

func (nopIngestor) Ingest(ctx context.Context, msg message.RawMessage, accountID, tenantID uint, imported bool) error {
	return nil
}

type fixedDialer struct{ tr Transport }

func (d fixedDialer) Dial(ctx context.Context, accountID uint, creds Credentials) (Transport, error) {
	return d.tr, nil
}

type alwaysConnected struct{}

func (alwaysConnected) IsConnected(accountID uint) bool { return true }

type nopLock struct{}

func (nopLock) Acquire(ctx context.Context, accountID uint) (bool, error) { return true, nil }
func (nopLock) Release(ctx context.Context, accountID uint) error         { return nil }

type nopProgress struct{}

func (nopProgress) PublishImportProgress(ctx context.Context, tenantID uint, p importer.Progress) error {
	return nil
}

type nopCloser struct{}

func (nopCloser) CloseImportedForAccount(ctx context.Context, accountID uint) (int, error) {
	return 0, nil
}

func testAccount(t *testing.T) *account.Account {
	t.Helper()
	acc, err := account.ReconstructAccount(
		1, 7, "support-line", account.StatusPending, "", "",
		nil, nil, false, "", false, false,
		time.Now(), time.Now(),
	)
	require.NoError(t, err)
	return acc
}

type supFixture struct {
	sup      *Supervisor
	accounts *memAccounts
	creds    *memCreds
	registry *SessionRegistry
	notifier *updateRecorder
	tr       *fakeTransport
}

func newSupervisorFixture(t *testing.T) *supFixture {
	t.Helper()

	log := testLogger()
	acc := testAccount(t)
	accounts := newMemAccounts(acc)
	creds := newMemCreds()
	registry := NewSessionRegistry(log)
	notifier := &updateRecorder{}
	tr := newFakeTransport()

	pipeline := importer.NewPipeline(
		accounts, nopIngestor{}, alwaysConnected{}, nopLock{},
		nopProgress{}, nopCloser{}, log, importer.Config{},
	)

	sup := NewSupervisor(
		acc, accounts, creds, registry, NewRetryScheduler(3, time.Millisecond, time.Millisecond),
		notifier, nopIngestor{}, fixedDialer{tr: tr}, pipeline, log,
		SupervisorConfig{ConnectTimeout: time.Second, QueryTimeout: time.Second},
	)
	return &supFixture{sup: sup, accounts: accounts, creds: creds, registry: registry, notifier: notifier, tr: tr}
}

func startSupervisor(t *testing.T, f *supFixture) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() {
		acc, _ := f.accounts.FindByID(context.Background(), 1)
		done <- f.sup.Start(context.Background(), acc)
	}()
	return done
}

func waitErr(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("start did not return")
		return nil
	}
}

func TestSupervisor_ConnectHappyPath(t *testing.T) {
	f := newSupervisorFixture(t)
	done := startSupervisor(t, f)

	f.tr.events <- PairingEvent{Code: "qr-1"}
	f.tr.events <- ConnectedEvent{Number: "5511999990000", Creds: Credentials(`{"k":"v"}`)}

	require.NoError(t, waitErr(t, done))

	assert.Equal(t, StateConnected, f.sup.State())
	assert.True(t, f.registry.IsConnected(1))
	assert.True(t, f.creds.has(1))
	assert.Equal(t, account.StatusConnected, f.accounts.lastStatus())
	assert.Len(t, f.notifier.byStatus(account.StatusQRCode.String()), 1)
	assert.Len(t, f.notifier.byStatus(account.StatusConnected.String()), 1)
}

func TestSupervisor_ConnectSurvivesAccountLoadFailure(t *testing.T) {
	f := newSupervisorFixture(t)
	done := startSupervisor(t, f)

	require.Eventually(t, func() bool {
		return len(f.notifier.byStatus(account.StatusOpening.String())) > 0
	}, 5*time.Second, 10*time.Millisecond)

	f.accounts.failFinds(errors.New("store unavailable"))
	f.tr.events <- ConnectedEvent{Number: "5511999990000"}

	// The connection is live, so a persistence failure must not wedge the
	// session: the attempt resolves and the transport still registers.
	require.NoError(t, waitErr(t, done))
	assert.Equal(t, StateConnected, f.sup.State())
	assert.True(t, f.registry.IsConnected(1))
	assert.Equal(t, account.StatusOpening, f.accounts.lastStatus())
}

func TestSupervisor_QRExhaustionDisconnects(t *testing.T) {
	f := newSupervisorFixture(t)
	done := startSupervisor(t, f)

	// Three codes fit the budget; the fourth pairing event is terminal.
	for i := 0; i < 4; i++ {
		f.tr.events <- PairingEvent{Code: "qr"}
	}

	err := waitErr(t, done)
	require.Error(t, err)
	assert.True(t, apperrors.IsConnectError(err))

	assert.Equal(t, StateDisconnected, f.sup.State())
	assert.False(t, f.registry.IsConnected(1))
	assert.Equal(t, account.StatusDisconnected, f.accounts.lastStatus())
	assert.Len(t, f.notifier.byStatus(account.StatusQRCode.String()), 3)
	assert.True(t, f.tr.wasClosed())
}

func TestSupervisor_LogoutClearsCredentialsAndStops(t *testing.T) {
	f := newSupervisorFixture(t)
	done := startSupervisor(t, f)

	f.tr.events <- ConnectedEvent{Number: "5511999990000", Creds: Credentials(`{"k":"v"}`)}
	require.NoError(t, waitErr(t, done))
	require.True(t, f.creds.has(1))

	f.tr.events <- ClosedEvent{Reason: CloseReasonLoggedOut}
	close(f.tr.events)

	// The PENDING update is published after credentials are cleared and the
	// session is deregistered, so it marks the teardown as finished.
	require.Eventually(t, func() bool {
		return len(f.notifier.byStatus(account.StatusPending.String())) > 0
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, StatePending, f.sup.State())
	assert.False(t, f.creds.has(1))
	assert.False(t, f.registry.IsConnected(1))
	assert.Equal(t, account.StatusPending, f.accounts.lastStatus())
}

func TestSupervisor_ConnectionLostReconnects(t *testing.T) {
	f := newSupervisorFixture(t)
	done := startSupervisor(t, f)

	f.tr.events <- ConnectedEvent{Number: "5511999990000"}
	require.NoError(t, waitErr(t, done))

	f.tr.events <- ClosedEvent{Reason: CloseReasonConnectionLost, Err: errors.New("stream error")}

	// The fixed dialer hands back the same transport, so a reconnect shows
	// up as the session re-registering after deregistration.
	require.Eventually(t, func() bool {
		return f.sup.State() == StateReconnecting
	}, 5*time.Second, 10*time.Millisecond)

	f.tr.events <- ConnectedEvent{Number: "5511999990000"}
	require.Eventually(t, func() bool {
		return f.sup.State() == StateConnected && f.registry.IsConnected(1)
	}, 5*time.Second, 10*time.Millisecond)
}
