// Package testutil provides hand-rolled mocks for ticket use case tests.
package testutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"atendo/internal/domain/account"
	"atendo/internal/domain/ticket"
	"atendo/internal/shared/logger"
)

// NewTestLogger returns a logger that discards everything.
func NewTestLogger() logger.Interface {
	return logger.NewLoggerWithSlog(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// MockTicketRepository is an in-memory ticket.Repository.
type MockTicketRepository struct {
	mu      sync.Mutex
	nextID  uint
	Tickets map[uint]*ticket.Ticket

	SaveErr   error
	UpdateErr error
}

func NewMockTicketRepository() *MockTicketRepository {
	return &MockTicketRepository{
		nextID:  1,
		Tickets: make(map[uint]*ticket.Ticket),
	}
}

func (m *MockTicketRepository) Save(ctx context.Context, t *ticket.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	if err := t.SetID(m.nextID); err != nil {
		return err
	}
	m.nextID++
	m.Tickets[t.ID()] = t
	return nil
}

func (m *MockTicketRepository) Update(ctx context.Context, t *ticket.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	if _, ok := m.Tickets[t.ID()]; !ok {
		return fmt.Errorf("ticket not found")
	}
	m.Tickets[t.ID()] = t
	return nil
}

func (m *MockTicketRepository) GetByID(ctx context.Context, id uint) (*ticket.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.Tickets[id]
	if !ok {
		return nil, fmt.Errorf("ticket not found")
	}
	return t, nil
}

func (m *MockTicketRepository) GetByIDWithRelations(ctx context.Context, id uint) (*ticket.Ticket, error) {
	return m.GetByID(ctx, id)
}

func (m *MockTicketRepository) FindActiveByContact(ctx context.Context, tenantID, contactID uint, accountID *uint) (*ticket.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.Tickets {
		if t.TenantID() != tenantID || t.ContactID() != contactID || !t.IsActive() {
			continue
		}
		if accountID != nil && t.AccountID() != *accountID {
			continue
		}
		return t, nil
	}
	return nil, nil
}

func (m *MockTicketRepository) FindRecentClosed(ctx context.Context, tenantID, contactID uint, accountID *uint) (*ticket.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *ticket.Ticket
	for _, t := range m.Tickets {
		if t.TenantID() != tenantID || t.ContactID() != contactID || !t.Status().IsClosed() {
			continue
		}
		if accountID != nil && t.AccountID() != *accountID {
			continue
		}
		if best == nil || t.UpdatedAt().After(best.UpdatedAt()) {
			best = t
		}
	}
	return best, nil
}

func (m *MockTicketRepository) FindPendingImported(ctx context.Context, accountID uint, before time.Time) ([]*ticket.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*ticket.Ticket
	for _, t := range m.Tickets {
		if t.AccountID() != accountID || t.Status() != ticket.StatusPending {
			continue
		}
		if t.Imported() == nil || !t.Imported().Before(before) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// MockAccountRepository is an in-memory account.Repository.
type MockAccountRepository struct {
	mu       sync.Mutex
	Accounts map[uint]*account.Account
	Updated  []uint
}

func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{Accounts: make(map[uint]*account.Account)}
}

func (m *MockAccountRepository) Put(acc *account.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Accounts[acc.ID()] = acc
}

func (m *MockAccountRepository) FindByID(ctx context.Context, id uint) (*account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.Accounts[id]
	if !ok {
		return nil, fmt.Errorf("account not found")
	}
	return acc, nil
}

func (m *MockAccountRepository) FindAllByTenant(ctx context.Context, tenantID uint) ([]*account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*account.Account
	for _, acc := range m.Accounts {
		if acc.TenantID() == tenantID {
			out = append(out, acc)
		}
	}
	return out, nil
}

func (m *MockAccountRepository) FindPendingTicketClose(ctx context.Context) ([]*account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*account.Account
	for _, acc := range m.Accounts {
		if acc.StatusImportMessages() == account.ImportStatusPendingClose {
			out = append(out, acc)
		}
	}
	return out, nil
}

func (m *MockAccountRepository) FindResumable(ctx context.Context) ([]*account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*account.Account
	for _, acc := range m.Accounts {
		switch acc.Status() {
		case account.StatusConnected, account.StatusOpening, account.StatusQRCode:
			out = append(out, acc)
		}
	}
	return out, nil
}

func (m *MockAccountRepository) Save(ctx context.Context, acc *account.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Accounts[acc.ID()] = acc
	return nil
}

func (m *MockAccountRepository) Update(ctx context.Context, acc *account.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Accounts[acc.ID()] = acc
	m.Updated = append(m.Updated, acc.ID())
	return nil
}

// MockTicketNotifier records published ticket events.
type MockTicketNotifier struct {
	mu     sync.Mutex
	Events []ticket.Event
	Err    error
}

func NewMockTicketNotifier() *MockTicketNotifier {
	return &MockTicketNotifier{}
}

func (m *MockTicketNotifier) PublishTicketEvent(ctx context.Context, tenantID uint, ev ticket.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Events = append(m.Events, ev)
	return nil
}

func (m *MockTicketNotifier) Published() []ticket.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ticket.Event, len(m.Events))
	copy(out, m.Events)
	return out
}
