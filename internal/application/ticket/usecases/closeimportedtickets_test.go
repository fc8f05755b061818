package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atendo/internal/application/ticket/testutil"
	"atendo/internal/domain/account"
	"atendo/internal/domain/ticket"
)

func putImportedTicket(t *testing.T, repo *testutil.MockTicketRepository, id uint, status ticket.Status, importedAgo time.Duration) *ticket.Ticket {
	t.Helper()

	imported := time.Now().Add(-importedAgo)
	tk, err := ticket.ReconstructTicket(
		id, 1, id, 10, nil, status, "msg", 0, &imported,
		time.Now().Add(-importedAgo), time.Now().Add(-importedAgo),
	)
	require.NoError(t, err)
	repo.Tickets[id] = tk
	return tk
}

func TestCloseImportedTickets_ClosesOnlyOldPending(t *testing.T) {
	tickets := testutil.NewMockTicketRepository()
	accounts := testutil.NewMockAccountRepository()
	notifier := testutil.NewMockTicketNotifier()

	putImportedTicket(t, tickets, 1, ticket.StatusPending, 6*time.Hour)
	putImportedTicket(t, tickets, 2, ticket.StatusPending, 7*time.Hour)
	// Inside the grace window, must survive.
	putImportedTicket(t, tickets, 3, ticket.StatusPending, 1*time.Hour)
	// Already open, must survive.
	putImportedTicket(t, tickets, 4, ticket.StatusOpen, 6*time.Hour)

	uc := NewCloseImportedTicketsUseCase(tickets, accounts, notifier, testutil.NewTestLogger(), 5*time.Hour, 0)

	closed, err := uc.ExecuteForAccount(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, 2, closed)
	assert.Equal(t, ticket.StatusClosed, tickets.Tickets[1].Status())
	assert.Equal(t, ticket.StatusClosed, tickets.Tickets[2].Status())
	assert.Equal(t, ticket.StatusPending, tickets.Tickets[3].Status())
	assert.Equal(t, ticket.StatusOpen, tickets.Tickets[4].Status())
	assert.Len(t, notifier.Published(), 2)
}

func TestCloseImportedTickets_SweepClearsSentinelWhenDone(t *testing.T) {
	tickets := testutil.NewMockTicketRepository()
	accounts := testutil.NewMockAccountRepository()
	notifier := testutil.NewMockTicketNotifier()

	acc, err := account.ReconstructAccount(
		10, 1, "support-line", account.StatusConnected, "", "",
		nil, nil, false, account.ImportStatusPendingClose, false, false,
		time.Now(), time.Now(),
	)
	require.NoError(t, err)
	accounts.Put(acc)

	uc := NewCloseImportedTicketsUseCase(tickets, accounts, notifier, testutil.NewTestLogger(), 5*time.Hour, 0)

	closed, err := uc.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, closed)
	assert.Empty(t, accounts.Accounts[10].StatusImportMessages())
}

func TestCloseImportedTickets_SweepKeepsSentinelWhileWorkRemains(t *testing.T) {
	tickets := testutil.NewMockTicketRepository()
	accounts := testutil.NewMockAccountRepository()
	notifier := testutil.NewMockTicketNotifier()

	acc, err := account.ReconstructAccount(
		10, 1, "support-line", account.StatusConnected, "", "",
		nil, nil, false, account.ImportStatusPendingClose, false, false,
		time.Now(), time.Now(),
	)
	require.NoError(t, err)
	accounts.Put(acc)

	putImportedTicket(t, tickets, 1, ticket.StatusPending, 6*time.Hour)

	uc := NewCloseImportedTicketsUseCase(tickets, accounts, notifier, testutil.NewTestLogger(), 5*time.Hour, 0)

	closed, err := uc.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, closed)
	assert.Equal(t, account.ImportStatusPendingClose, accounts.Accounts[10].StatusImportMessages())
}
