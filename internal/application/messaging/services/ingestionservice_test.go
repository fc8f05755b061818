package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atendo/internal/application/ticket/testutil"
	ticketusecases "atendo/internal/application/ticket/usecases"
	"atendo/internal/domain/account"
	"atendo/internal/domain/contact"
	"atendo/internal/domain/message"
	"atendo/internal/domain/ticket"
	"atendo/internal/shared/keylock"
)

// memContacts is an in-memory contact.Repository keyed by number.
type memContacts struct {
	mu       sync.Mutex
	nextID   uint
	byNumber map[string]*contact.Contact
}

func newMemContacts() *memContacts {
	return &memContacts{nextID: 1, byNumber: make(map[string]*contact.Contact)}
}

func (m *memContacts) FindByID(ctx context.Context, id uint) (*contact.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.byNumber {
		if c.ID() == id {
			return c, nil
		}
	}
	return nil, nil
}

func (m *memContacts) FindByNumber(ctx context.Context, tenantID uint, number string) (*contact.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byNumber[number], nil
}

func (m *memContacts) Save(ctx context.Context, c *contact.Contact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := c.SetID(m.nextID); err != nil {
		return err
	}
	m.nextID++
	m.byNumber[c.Number()] = c
	return nil
}

func (m *memContacts) Update(ctx context.Context, c *contact.Contact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byNumber[c.Number()] = c
	return nil
}

// memMessages is an in-memory message.Repository.
type memMessages struct {
	mu    sync.Mutex
	rows  map[string]*message.Message
	order []string
}

func newMemMessages() *memMessages {
	return &memMessages{rows: make(map[string]*message.Message)}
}

func (m *memMessages) Exists(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[id]
	return ok, nil
}

func (m *memMessages) Save(ctx context.Context, msg *message.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[msg.ID()] = msg
	m.order = append(m.order, msg.ID())
	return nil
}

// recordingTx counts transactions and runs the body directly.
type recordingTx struct {
	mu    sync.Mutex
	calls int
}

func (r *recordingTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	return fn(ctx)
}

func (r *recordingTx) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type ingestFixture struct {
	svc      *IngestionService
	contacts *memContacts
	messages *memMessages
	tickets  *testutil.MockTicketRepository
	tx       *recordingTx
}

func newIngestFixture(t *testing.T) *ingestFixture {
	t.Helper()

	log := testutil.NewTestLogger()
	tickets := testutil.NewMockTicketRepository()
	accounts := testutil.NewMockAccountRepository()

	acc, err := account.ReconstructAccount(
		10, 1, "support-line", account.StatusConnected, "5511999990000", "",
		nil, nil, false, "", false, false,
		time.Now(), time.Now(),
	)
	require.NoError(t, err)
	accounts.Put(acc)

	resolver := ticketusecases.NewResolveTicketUseCase(
		tickets, accounts, testutil.NewMockTicketNotifier(), keylock.New(), log,
	)

	contacts := newMemContacts()
	messages := newMemMessages()
	tx := &recordingTx{}
	svc := NewIngestionService(contacts, messages, resolver, tx, log)
	return &ingestFixture{svc: svc, contacts: contacts, messages: messages, tickets: tickets, tx: tx}
}

func inbound(id, body string) message.RawMessage {
	return message.RawMessage{
		Key:       message.Key{ID: id, RemoteJID: "5511888880000@s.whatsapp.net"},
		Timestamp: time.Now(),
		PushName:  "Maria",
		Body:      body,
	}
}

func TestIngest_CreatesContactTicketAndMessage(t *testing.T) {
	f := newIngestFixture(t)

	err := f.svc.Ingest(context.Background(), inbound("m-1", "hello"), 10, 1, false)
	require.NoError(t, err)

	c, err := f.contacts.FindByNumber(context.Background(), 1, "5511888880000")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "Maria", c.Name())

	require.Len(t, f.tickets.Tickets, 1)
	for _, tk := range f.tickets.Tickets {
		assert.Equal(t, ticket.StatusOpen, tk.Status())
		assert.Equal(t, "hello", tk.LastMessage())
		assert.Equal(t, 1, tk.UnreadMessages())
	}

	saved := f.messages.rows["m-1"]
	require.NotNil(t, saved)
	assert.False(t, saved.Read())
	assert.False(t, saved.Imported())

	// The whole projection ran in a single transaction.
	assert.Equal(t, 1, f.tx.count())
}

func TestIngest_DuplicateMessageIsNoOp(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Ingest(ctx, inbound("m-1", "hello"), 10, 1, false))
	require.NoError(t, f.svc.Ingest(ctx, inbound("m-1", "hello again"), 10, 1, false))

	assert.Len(t, f.messages.order, 1)
	require.Len(t, f.tickets.Tickets, 1)
	for _, tk := range f.tickets.Tickets {
		assert.Equal(t, "hello", tk.LastMessage())
	}
	// The duplicate never opens a transaction.
	assert.Equal(t, 1, f.tx.count())
}

func TestIngest_ImportedMessageStampsTicketAndReadsMessage(t *testing.T) {
	f := newIngestFixture(t)

	err := f.svc.Ingest(context.Background(), inbound("m-1", "old news"), 10, 1, true)
	require.NoError(t, err)

	for _, tk := range f.tickets.Tickets {
		require.NotNil(t, tk.Imported())
		assert.Equal(t, 0, tk.UnreadMessages())
	}
	saved := f.messages.rows["m-1"]
	require.NotNil(t, saved)
	assert.True(t, saved.Read())
	assert.True(t, saved.Imported())
}
