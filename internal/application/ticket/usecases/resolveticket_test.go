package usecases

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atendo/internal/application/ticket/testutil"
	"atendo/internal/domain/account"
	"atendo/internal/domain/ticket"
	"atendo/internal/shared/keylock"
)

func newResolveFixture(t *testing.T, allowGroup bool) (*ResolveTicketUseCase, *testutil.MockTicketRepository, *testutil.MockAccountRepository, *testutil.MockTicketNotifier) {
	t.Helper()

	tickets := testutil.NewMockTicketRepository()
	accounts := testutil.NewMockAccountRepository()
	notifier := testutil.NewMockTicketNotifier()

	acc, err := account.ReconstructAccount(
		10, 1, "support-line", account.StatusConnected, "5511999990000", "",
		nil, nil, false, "", false, allowGroup,
		time.Now(), time.Now(),
	)
	require.NoError(t, err)
	accounts.Put(acc)

	uc := NewResolveTicketUseCase(tickets, accounts, notifier, keylock.New(), testutil.NewTestLogger())
	return uc, tickets, accounts, notifier
}

func TestResolveTicket_CreatesWhenNoneActive(t *testing.T) {
	uc, _, _, notifier := newResolveFixture(t, false)

	res, err := uc.Execute(context.Background(), ResolveTicketCommand{
		TenantID:  1,
		ContactID: 5,
		AccountID: 10,
		Body:      "hello",
		Unread:    true,
	})
	require.NoError(t, err)

	assert.True(t, res.Created)
	assert.Equal(t, ticket.StatusOpen, res.Ticket.Status())
	assert.Equal(t, "hello", res.Ticket.LastMessage())
	assert.Equal(t, 1, res.Ticket.UnreadMessages())

	events := notifier.Published()
	require.Len(t, events, 1)
	assert.Equal(t, ticket.EventActionCreate, events[0].Action)
}

func TestResolveTicket_ReturnsExistingActive(t *testing.T) {
	uc, _, _, notifier := newResolveFixture(t, false)
	ctx := context.Background()

	first, err := uc.Execute(ctx, ResolveTicketCommand{
		TenantID: 1, ContactID: 5, AccountID: 10, Body: "first", Unread: true,
	})
	require.NoError(t, err)
	require.True(t, first.Created)

	second, err := uc.Execute(ctx, ResolveTicketCommand{
		TenantID: 1, ContactID: 5, AccountID: 10, Body: "second", Unread: true,
	})
	require.NoError(t, err)

	assert.False(t, second.Created)
	assert.Equal(t, first.Ticket.ID(), second.Ticket.ID())
	assert.Equal(t, "second", second.Ticket.LastMessage())
	assert.Equal(t, 2, second.Ticket.UnreadMessages())

	events := notifier.Published()
	require.Len(t, events, 2)
	assert.Equal(t, ticket.EventActionUpdate, events[1].Action)
}

func TestResolveTicket_ConcurrentResolvesCreateOne(t *testing.T) {
	uc, tickets, _, _ := newResolveFixture(t, false)
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	created := make(chan bool, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := uc.Execute(ctx, ResolveTicketCommand{
				TenantID: 1, ContactID: 5, AccountID: 10, Body: "msg", Unread: true,
			})
			if err == nil {
				created <- res.Created
			}
		}()
	}
	wg.Wait()
	close(created)

	createdCount := 0
	for c := range created {
		if c {
			createdCount++
		}
	}
	assert.Equal(t, 1, createdCount)
	assert.Len(t, tickets.Tickets, 1)
}

func TestResolveTicket_GroupStatusFollowsAccountPolicy(t *testing.T) {
	ctx := context.Background()

	uc, _, _, _ := newResolveFixture(t, true)
	res, err := uc.Execute(ctx, ResolveTicketCommand{
		TenantID: 1, ContactID: 5, AccountID: 10, IsGroup: true, Body: "g",
	})
	require.NoError(t, err)
	assert.Equal(t, ticket.StatusGroup, res.Ticket.Status())

	uc2, _, _, _ := newResolveFixture(t, false)
	res2, err := uc2.Execute(ctx, ResolveTicketCommand{
		TenantID: 1, ContactID: 5, AccountID: 10, IsGroup: true, Body: "g",
	})
	require.NoError(t, err)
	assert.Equal(t, ticket.StatusPending, res2.Ticket.Status())
}

func TestResolveTicket_BackfillReopensClosedTicket(t *testing.T) {
	uc, tickets, _, _ := newResolveFixture(t, false)
	ctx := context.Background()

	closed, err := ticket.ReconstructTicket(
		99, 1, 5, 10, nil, ticket.StatusClosed, "old", 0, nil,
		time.Now().Add(-48*time.Hour), time.Now().Add(-24*time.Hour),
	)
	require.NoError(t, err)
	tickets.Tickets[closed.ID()] = closed

	importedAt := time.Now()
	res, err := uc.Execute(ctx, ResolveTicketCommand{
		TenantID: 1, ContactID: 5, AccountID: 10,
		Body: "backfilled", Imported: &importedAt,
	})
	require.NoError(t, err)

	assert.False(t, res.Created)
	assert.Equal(t, closed.ID(), res.Ticket.ID())
	assert.Equal(t, ticket.StatusPending, res.Ticket.Status())
	require.NotNil(t, res.Ticket.Imported())
	assert.Len(t, tickets.Tickets, 1)
}

func TestResolveTicket_BackfillCreatesWhenNoClosedTicket(t *testing.T) {
	uc, _, _, _ := newResolveFixture(t, false)

	importedAt := time.Now()
	res, err := uc.Execute(context.Background(), ResolveTicketCommand{
		TenantID: 1, ContactID: 5, AccountID: 10,
		Body: "backfilled", Imported: &importedAt,
	})
	require.NoError(t, err)

	assert.True(t, res.Created)
	require.NotNil(t, res.Ticket.Imported())
	assert.Equal(t, ticket.StatusOpen, res.Ticket.Status())
}

func TestResolveTicket_AssignsCreatedTicketToRequester(t *testing.T) {
	uc, _, _, _ := newResolveFixture(t, false)

	res, err := uc.Execute(context.Background(), ResolveTicketCommand{
		TenantID: 1, ContactID: 5, AccountID: 10,
		RequestingUserID: 3, Body: "hi",
	})
	require.NoError(t, err)

	assert.True(t, res.Created)
	require.NotNil(t, res.Ticket.UserID())
	assert.Equal(t, uint(3), *res.Ticket.UserID())
}

func TestResolveTicket_AssignedToOtherUserReturnsUntouched(t *testing.T) {
	uc, tickets, _, notifier := newResolveFixture(t, false)
	ctx := context.Background()

	owner := uint(7)
	existing, err := ticket.ReconstructTicket(
		42, 1, 5, 10, &owner, ticket.StatusOpen, "theirs", 1, nil,
		time.Now().Add(-time.Hour), time.Now().Add(-time.Hour),
	)
	require.NoError(t, err)
	tickets.Tickets[existing.ID()] = existing

	res, err := uc.Execute(ctx, ResolveTicketCommand{
		TenantID: 1, ContactID: 5, AccountID: 10,
		RequestingUserID: 8, Body: "mine now",
	})
	require.NoError(t, err)

	// The conflict is a normal outcome: the caller gets the existing ticket
	// back, created=false, with nothing mutated or published.
	assert.False(t, res.Created)
	assert.Equal(t, existing.ID(), res.Ticket.ID())
	assert.Equal(t, owner, *res.Ticket.UserID())
	assert.Equal(t, "theirs", res.Ticket.LastMessage())
	assert.Equal(t, 1, res.Ticket.UnreadMessages())
	assert.Empty(t, notifier.Published())

	// The owner and the system both still touch the ticket normally.
	same, err := uc.Execute(ctx, ResolveTicketCommand{
		TenantID: 1, ContactID: 5, AccountID: 10,
		RequestingUserID: 7, Body: "owner reply",
	})
	require.NoError(t, err)
	assert.Equal(t, "owner reply", same.Ticket.LastMessage())

	system, err := uc.Execute(ctx, ResolveTicketCommand{
		TenantID: 1, ContactID: 5, AccountID: 10, Body: "inbound", Unread: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "inbound", system.Ticket.LastMessage())
}
