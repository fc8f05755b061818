package whatsapp

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "atendo/internal/shared/errors"
	"atendo/internal/shared/logger"
)

func testLogger() logger.Interface {
	return logger.NewLoggerWithSlog(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// fakeTransport records lifecycle calls for registry tests.
type fakeTransport struct {
	mu        sync.Mutex
	loggedOut bool
	closed    bool
	events    chan Event
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{events: make(chan Event, 16)}
}

func (f *fakeTransport) Events() <-chan Event { return f.events }

func (f *fakeTransport) SendText(ctx context.Context, jid, body string) error { return nil }

func (f *fakeTransport) FetchProfilePicture(ctx context.Context, jid string) (string, error) {
	return "", nil
}

func (f *fakeTransport) Logout(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loggedOut = true
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) wasClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeTransport) wasLoggedOut() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loggedOut
}

func session(accountID, tenantID uint, tr Transport) *Session {
	return &Session{
		AccountID:   accountID,
		TenantID:    tenantID,
		Transport:   tr,
		ConnectedAt: time.Now(),
	}
}

func TestSessionRegistry_GetMissingFails(t *testing.T) {
	r := NewSessionRegistry(testLogger())

	_, err := r.Get(1)
	assert.ErrorIs(t, err, apperrors.ErrNotInitialized)
	assert.False(t, r.IsConnected(1))
}

func TestSessionRegistry_RegisterAndGet(t *testing.T) {
	r := NewSessionRegistry(testLogger())
	tr := newFakeTransport()

	r.Register(session(1, 7, tr))

	s, err := r.Get(1)
	require.NoError(t, err)
	assert.Equal(t, uint(1), s.AccountID)
	assert.Equal(t, uint(7), s.TenantID)
	assert.True(t, r.IsConnected(1))
	assert.Equal(t, 1, r.Count())
}

func TestSessionRegistry_RegisterReplacesWithoutClosing(t *testing.T) {
	r := NewSessionRegistry(testLogger())
	old := newFakeTransport()
	replacement := newFakeTransport()

	r.Register(session(1, 7, old))
	r.Register(session(1, 7, replacement))

	s, err := r.Get(1)
	require.NoError(t, err)
	assert.Same(t, Transport(replacement), s.Transport)
	assert.False(t, old.wasClosed())
	assert.Equal(t, 1, r.Count())
}

func TestSessionRegistry_RemoveWithCloseSocket(t *testing.T) {
	r := NewSessionRegistry(testLogger())
	tr := newFakeTransport()
	r.Register(session(1, 7, tr))

	r.Remove(context.Background(), 1, true)

	assert.False(t, r.IsConnected(1))
	assert.True(t, tr.wasLoggedOut())
	assert.True(t, tr.wasClosed())
}

func TestSessionRegistry_RemoveWithoutCloseSocket(t *testing.T) {
	r := NewSessionRegistry(testLogger())
	tr := newFakeTransport()
	r.Register(session(1, 7, tr))

	r.Remove(context.Background(), 1, false)

	assert.False(t, r.IsConnected(1))
	assert.False(t, tr.wasLoggedOut())
	assert.False(t, tr.wasClosed())
}

func TestSessionRegistry_RestartAllClosesTenantSocketsOnly(t *testing.T) {
	r := NewSessionRegistry(testLogger())
	mine := newFakeTransport()
	other := newFakeTransport()
	r.Register(session(1, 7, mine))
	r.Register(session(2, 8, other))

	n := r.RestartAll(7)

	assert.Equal(t, 1, n)
	assert.True(t, mine.wasClosed())
	assert.False(t, other.wasClosed())
	// Entries stay registered; the close event drives deregistration.
	assert.True(t, r.IsConnected(1))
	assert.True(t, r.IsConnected(2))
}

func TestSessionRegistry_ShutdownClosesEverything(t *testing.T) {
	r := NewSessionRegistry(testLogger())
	a := newFakeTransport()
	b := newFakeTransport()
	r.Register(session(1, 7, a))
	r.Register(session(2, 8, b))

	r.Shutdown()

	assert.Equal(t, 0, r.Count())
	assert.True(t, a.wasClosed())
	assert.True(t, b.wasClosed())
}
